package markdown

import (
	"context"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// renderContextKey carries the render call's context.Context through the
// goldmark parser.Context.
var renderContextKey = parser.NewContextKey()

// renderContextMeta is the document metadata key node renderers read the
// render context from. Render funcs only see the AST, so it travels there.
const renderContextMeta = "mdrender.context"

// NewParserContext returns a goldmark parser context carrying ctx, for
// callers that drive goldmark.Markdown.Convert themselves.
func NewParserContext(ctx context.Context) parser.Context {
	pc := parser.NewContext()
	pc.Set(renderContextKey, ctx)
	return pc
}

// contextTransformer copies the render context from the parser context
// onto the document.
type contextTransformer struct{}

// Transform implements parser.ASTTransformer
func (contextTransformer) Transform(node *ast.Document, _ text.Reader, pc parser.Context) {
	if ctx, ok := pc.Get(renderContextKey).(context.Context); ok && ctx != nil {
		node.AddMeta(renderContextMeta, ctx)
	}
}

// renderContext returns the context n's document was parsed with.
func renderContext(n ast.Node) context.Context {
	doc := n.OwnerDocument()
	if doc == nil {
		return context.Background()
	}
	if ctx, ok := doc.Meta()[renderContextMeta].(context.Context); ok {
		return ctx
	}
	return context.Background()
}
