package markdown

// DefaultHighlightStyle is the chroma style used for fenced code blocks.
const DefaultHighlightStyle = "friendly"

// Option configures a Renderer.
type Option func(*config)

type config struct {
	highlightStyle string
	unsafe         bool
	sanitize       bool
	anchors        AnchorOptions
	providers      []AttributeProvider
}

func newConfig() *config {
	return &config{
		highlightStyle: DefaultHighlightStyle,
		unsafe:         true,
	}
}

// WithHighlightStyle sets the chroma style for fenced code blocks. An empty
// style disables highlighting.
func WithHighlightStyle(style string) Option {
	return func(c *config) {
		c.highlightStyle = style
	}
}

// WithUnsafe controls whether raw HTML and dangerous link targets are
// written as-is. It is on by default.
func WithUnsafe(unsafe bool) Option {
	return func(c *config) {
		c.unsafe = unsafe
	}
}

// WithSanitizer runs the rendered HTML through a user-generated-content
// sanitizing policy.
func WithSanitizer(sanitize bool) Option {
	return func(c *config) {
		c.sanitize = sanitize
	}
}

// WithAnchorOptions configures heading anchors.
func WithAnchorOptions(opts AnchorOptions) Option {
	return func(c *config) {
		c.anchors = opts
	}
}

// WithAttributeProviders registers additional attribute providers. They run
// after the built-in LinkRewriter.
func WithAttributeProviders(providers ...AttributeProvider) Option {
	return func(c *config) {
		c.providers = append(c.providers, providers...)
	}
}
