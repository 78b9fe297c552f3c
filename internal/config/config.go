// Package config loads the site configuration consumed by the mdrender host.
// Sites are described in YAML or TOML; a .env file and MDRENDER_* variables
// override file values.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ay/mdrender/markdown"
	"github.com/ay/mdrender/request"
)

// EnvContextPath overrides the configured context path.
const EnvContextPath = "MDRENDER_CONTEXT_PATH"

// ErrUnsupportedFormat is returned for config files that are neither YAML
// nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Site is the configuration of one served site.
type Site struct {
	ContextPath string   `yaml:"context_path" toml:"context_path"`
	Renderer    Renderer `yaml:"renderer" toml:"renderer"`

	// all top-level keys, exposed to requests as site properties
	properties map[string]any
}

// Renderer holds the Markdown renderer settings.
type Renderer struct {
	HighlightStyle    string `yaml:"highlight_style" toml:"highlight_style"`
	Unsafe            bool   `yaml:"unsafe" toml:"unsafe"`
	Sanitize          bool   `yaml:"sanitize" toml:"sanitize"`
	AnchorIDOnHeading bool   `yaml:"anchor_id_on_heading" toml:"anchor_id_on_heading"`
}

// Default returns the configuration used when no site file is given.
func Default() *Site {
	return &Site{
		ContextPath: request.DefaultContextPath,
		Renderer: Renderer{
			HighlightStyle: markdown.DefaultHighlightStyle,
			Unsafe:         true,
		},
		properties: map[string]any{},
	}
}

// LoadSite reads the site file at path. An empty path yields the defaults,
// still subject to environment overrides.
func LoadSite(path string) (*Site, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	site := Default()

	// 2. Load the site file
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read site config: %w", err)
		}
		if err := decode(path, data, site); err != nil {
			return nil, fmt.Errorf("failed to parse site config %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if contextPath := os.Getenv(EnvContextPath); contextPath != "" {
		site.ContextPath = contextPath
	}
	site.ContextPath = NormalizeContextPath(site.ContextPath)

	return site, nil
}

func decode(path string, data []byte, site *Site) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, site); err != nil {
			return err
		}
		return yaml.Unmarshal(data, &site.properties)
	case ".toml":
		if err := toml.Unmarshal(data, site); err != nil {
			return err
		}
		return toml.Unmarshal(data, &site.properties)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// NormalizeContextPath returns p with a leading slash and without a
// trailing one. Empty paths become "/".
func NormalizeContextPath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return request.DefaultContextPath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Properties returns the site properties handed to each request. The
// effective context path replaces the file value.
func (s *Site) Properties() request.SiteProperties {
	values := maps.Clone(s.properties)
	if values == nil {
		values = map[string]any{}
	}
	values[request.ContextPathKey] = s.ContextPath
	return request.NewSiteProperties(values)
}

// RendererOptions converts the renderer settings into markdown options.
func (s *Site) RendererOptions() []markdown.Option {
	return []markdown.Option{
		markdown.WithHighlightStyle(s.Renderer.HighlightStyle),
		markdown.WithUnsafe(s.Renderer.Unsafe),
		markdown.WithSanitizer(s.Renderer.Sanitize),
		markdown.WithAnchorOptions(markdown.AnchorOptions{IDOnHeading: s.Renderer.AnchorIDOnHeading}),
	}
}
