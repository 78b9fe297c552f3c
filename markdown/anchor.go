package markdown

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// HeadingAnchor is an inline node wrapping the content of a heading in a
// link to the heading itself.
type HeadingAnchor struct {
	ast.BaseInline
	ID string
}

// Dump implements Node.Dump
func (n *HeadingAnchor) Dump(source []byte, level int) {
	m := map[string]string{
		"ID": n.ID,
	}
	ast.DumpHelper(n, source, level, m, nil)
}

// KindHeadingAnchor is the NodeKind for HeadingAnchor
var KindHeadingAnchor = ast.NewNodeKind("HeadingAnchor")

// Kind implements Node.Kind
func (n *HeadingAnchor) Kind() ast.NodeKind {
	return KindHeadingAnchor
}

// NewHeadingAnchor returns a new HeadingAnchor node
func NewHeadingAnchor(id string) *HeadingAnchor {
	return &HeadingAnchor{
		BaseInline: ast.BaseInline{},
		ID:         id,
	}
}

// AnchorOptions controls how heading anchors are generated.
type AnchorOptions struct {
	// IDOnHeading puts the id attribute on the <hN> element instead of the
	// anchor inside it.
	IDOnHeading bool
}

// anchorTransformer gives every heading a document-unique id and moves its
// content into a self-referencing HeadingAnchor.
type anchorTransformer struct {
	options AnchorOptions
}

// Transform implements parser.ASTTransformer
func (t *anchorTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	var headings []*ast.Heading
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			headings = append(headings, h)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	source := reader.Source()
	ids := newSlugger()

	// Ids that are already present win over generated ones.
	for _, h := range headings {
		if id, ok := h.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				ids.Put(b)
			}
		}
	}

	for _, h := range headings {
		t.anchorHeading(h, source, ids)
	}
}

func (t *anchorTransformer) anchorHeading(h *ast.Heading, source []byte, ids *slugger) {
	if h.ChildCount() == 0 {
		return
	}

	var id string
	if v, ok := h.AttributeString("id"); ok {
		if b, ok := v.([]byte); ok {
			id = string(b)
		}
	}
	if id == "" {
		id = string(ids.Generate([]byte(plainText(h, source)), ast.KindHeading))
	}

	if t.options.IDOnHeading {
		h.SetAttributeString("id", []byte(id))
	} else {
		removeAttribute(h, "id")
	}

	anchor := NewHeadingAnchor(id)
	for c := h.FirstChild(); c != nil; {
		next := c.NextSibling()
		anchor.AppendChild(anchor, c)
		c = next
	}
	h.AppendChild(h, anchor)
}

func removeAttribute(n ast.Node, name string) {
	if _, ok := n.AttributeString(name); !ok {
		return
	}
	attrs := n.Attributes()
	n.RemoveAttributes()
	for _, a := range attrs {
		if string(a.Name) != name {
			n.SetAttribute(a.Name, a.Value)
		}
	}
}
