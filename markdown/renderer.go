// Package markdown renders Markdown to HTML, rewriting link targets for the
// request being served and adding self-links to headings.
package markdown

import (
	"bytes"
	"context"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/ay/mdrender/internal/logger"
)

// Renderer converts Markdown to HTML. It is immutable after New and safe
// for concurrent use; all per-call state comes from the context passed to
// Render.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New builds a Renderer.
func New(opts ...Option) *Renderer {
	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	providers := append([]AttributeProvider{LinkRewriter{}}, cfg.providers...)

	extensions := []goldmark.Extender{
		extension.GFM,
		&extender{anchors: cfg.anchors, providers: providers},
	}
	if cfg.highlightStyle != "" {
		extensions = append(extensions, highlighting.NewHighlighting(
			highlighting.WithStyle(cfg.highlightStyle),
		))
	}

	var rendererOpts []renderer.Option
	if cfg.unsafe {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}

	r := &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extensions...),
			goldmark.WithRendererOptions(rendererOpts...),
		),
	}
	if cfg.sanitize {
		r.policy = bluemonday.UGCPolicy()
	}
	return r
}

// Markdown returns the underlying goldmark instance. Parse it with a
// context from NewParserContext to get request-aware links.
func (r *Renderer) Markdown() goldmark.Markdown {
	return r.md
}

// Document is a parsed Markdown source, bound to the render call that
// parsed it.
type Document struct {
	root   ast.Node
	source []byte
}

// Root returns the document's AST.
func (d *Document) Root() ast.Node {
	return d.root
}

// Text returns the document's plain text with all markup removed.
func (d *Document) Text() string {
	return plainText(d.root, d.source)
}

// Parse parses markdown. It never fails; unrecognized syntax becomes text.
// ctx is handed to attribute providers when the document is rendered.
func (r *Renderer) Parse(ctx context.Context, markdown string) *Document {
	source := []byte(markdown)
	root := r.md.Parser().Parse(text.NewReader(source), parser.WithContext(NewParserContext(ctx)))
	return &Document{root: root, source: source}
}

// RenderDocument writes doc as HTML.
func (r *Renderer) RenderDocument(doc *Document) string {
	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, doc.source, doc.root); err != nil {
		logger.Warn("failed to render markdown: %v", err)
	}
	if r.policy != nil {
		return string(r.policy.SanitizeBytes(buf.Bytes()))
	}
	return buf.String()
}

// Render converts markdown to HTML. Links are rewritten according to the
// request context carried by ctx, if any.
func (r *Renderer) Render(ctx context.Context, markdown string) string {
	return r.RenderDocument(r.Parse(ctx, markdown))
}

// Excerpt returns the plain text of markdown, cut to at most length
// characters. A negative length yields an empty string.
func (r *Renderer) Excerpt(markdown string, length int) string {
	return truncate(r.Parse(context.Background(), markdown).Text(), length)
}

// Close releases the renderer. It holds no external resources.
func (r *Renderer) Close() error {
	return nil
}

// extender wires the request-aware transformers and node renderers into
// goldmark.
type extender struct {
	anchors   AnchorOptions
	providers []AttributeProvider
}

// Extend implements goldmark.Extender
func (e *extender) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithASTTransformers(
			util.Prioritized(contextTransformer{}, 100),
			util.Prioritized(&anchorTransformer{options: e.anchors}, 200),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(newNodeRenderer(e.providers), 100),
		),
	)
}
