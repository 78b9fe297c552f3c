package markdown

import (
	"fmt"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// nodeRenderer renders links and heading anchors, routing their attributes
// through the registered AttributeProviders.
type nodeRenderer struct {
	html.Config
	providers []AttributeProvider
}

func newNodeRenderer(providers []AttributeProvider) *nodeRenderer {
	return &nodeRenderer{
		Config:    html.NewConfig(),
		providers: providers,
	}
}

// SetOption implements renderer.SetOptioner
func (r *nodeRenderer) SetOption(name renderer.OptionName, value any) {
	r.Config.SetOption(name, value)
}

// RegisterFuncs implements renderer.NodeRenderer
func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindLink, r.renderLink)
	reg.Register(KindHeadingAnchor, r.renderHeadingAnchor)
}

func (r *nodeRenderer) renderLink(
	w util.BufWriter,
	source []byte,
	node ast.Node,
	entering bool,
) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</a>")
		return ast.WalkContinue, nil
	}

	n := node.(*ast.Link)
	attrs := &Attributes{}
	attrs.Set("href", string(n.Destination))
	if n.Title != nil {
		attrs.Set("title", string(n.Title))
	}
	for _, a := range n.Attributes() {
		if html.LinkAttributeFilter.Contains(a.Name) {
			attrs.Set(string(a.Name), attributeValue(a.Value))
		}
	}

	r.applyProviders(n, attrs)
	r.writeOpenTag(w, "a", attrs)
	return ast.WalkContinue, nil
}

func (r *nodeRenderer) renderHeadingAnchor(
	w util.BufWriter,
	source []byte,
	node ast.Node,
	entering bool,
) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</a>")
		return ast.WalkContinue, nil
	}

	n := node.(*HeadingAnchor)
	attrs := &Attributes{}
	attrs.Set("href", "#"+n.ID)
	if h, ok := n.Parent().(*ast.Heading); !ok || !hasAttribute(h, "id") {
		attrs.Set("id", n.ID)
	}

	r.applyProviders(n, attrs)
	r.writeOpenTag(w, "a", attrs)
	return ast.WalkContinue, nil
}

func (r *nodeRenderer) applyProviders(n ast.Node, attrs *Attributes) {
	if len(r.providers) == 0 {
		return
	}
	ctx := renderContext(n)
	for _, p := range r.providers {
		if p.Applies(n.Kind()) {
			p.SetAttributes(ctx, n, attrs)
		}
	}
}

// writeOpenTag writes <tag name="value" ...>. href values are URL-escaped
// and dropped when dangerous (unless unsafe rendering is on); all values are
// HTML-escaped.
func (r *nodeRenderer) writeOpenTag(w util.BufWriter, tag string, attrs *Attributes) {
	_ = w.WriteByte('<')
	_, _ = w.WriteString(tag)
	for _, a := range attrs.List() {
		_ = w.WriteByte(' ')
		_, _ = w.WriteString(a.Name)
		_, _ = w.WriteString(`="`)
		value := []byte(a.Value)
		switch a.Name {
		case "href":
			if r.Unsafe || !html.IsDangerousURL(value) {
				_, _ = w.Write(util.EscapeHTML(util.URLEscape(value, true)))
			}
		case "title":
			r.Writer.Write(w, value)
		default:
			_, _ = w.Write(util.EscapeHTML(value))
		}
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
}

func attributeValue(v any) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func hasAttribute(n ast.Node, name string) bool {
	_, ok := n.AttributeString(name)
	return ok
}
