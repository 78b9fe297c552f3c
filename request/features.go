package request

import "maps"

// ContextPathKey is the site property holding the site's URL prefix.
const ContextPathKey = "context_path"

// DefaultContextPath is used when the site does not configure a prefix.
const DefaultContextPath = "/"

// SiteProperties exposes the configured properties of the site serving the
// current request.
type SiteProperties struct {
	values map[string]any
}

// NewSiteProperties wraps values. The map is copied.
func NewSiteProperties(values map[string]any) SiteProperties {
	return SiteProperties{values: maps.Clone(values)}
}

// Get returns a raw property value.
func (p SiteProperties) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// String returns a string property or def when it is missing or not a string.
func (p SiteProperties) String(key, def string) string {
	v, ok := p.values[key].(string)
	if !ok || v == "" {
		return def
	}
	return v
}

// ContextPath returns the site's URL prefix, "/" when unset.
func (p SiteProperties) ContextPath() string {
	return p.String(ContextPathKey, DefaultContextPath)
}

// Preview marks a request as rendering unpublished content. It carries no
// data; its presence is the signal.
type Preview struct{}
