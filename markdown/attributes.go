package markdown

import (
	"context"
	"slices"

	"github.com/yuin/goldmark/ast"
)

// Attribute is a single HTML attribute.
type Attribute struct {
	Name  string
	Value string
}

// Attributes is the ordered, mutable attribute set of an element about to
// be written. Values are unescaped; escaping happens on output.
type Attributes struct {
	list []Attribute
}

// Get returns the value of the named attribute.
func (a *Attributes) Get(name string) (string, bool) {
	i := a.index(name)
	if i < 0 {
		return "", false
	}
	return a.list[i].Value, true
}

// Set replaces the value of the named attribute, or appends it.
func (a *Attributes) Set(name, value string) {
	if i := a.index(name); i >= 0 {
		a.list[i].Value = value
		return
	}
	a.list = append(a.list, Attribute{Name: name, Value: value})
}

// Remove deletes the named attribute if present.
func (a *Attributes) Remove(name string) {
	if i := a.index(name); i >= 0 {
		a.list = slices.Delete(a.list, i, i+1)
	}
}

// List returns the attributes in output order.
func (a *Attributes) List() []Attribute {
	return slices.Clone(a.list)
}

// Len returns the number of attributes.
func (a *Attributes) Len() int {
	return len(a.list)
}

func (a *Attributes) index(name string) int {
	return slices.IndexFunc(a.list, func(attr Attribute) bool {
		return attr.Name == name
	})
}

// AttributeProvider adjusts the attributes of rendered elements. Providers
// are called in registration order, once per node, after the default
// attributes are collected and before anything is written.
type AttributeProvider interface {
	// Applies reports whether the provider wants nodes of this kind.
	Applies(kind ast.NodeKind) bool
	// SetAttributes mutates attrs for node. ctx is the context the render
	// call was started with.
	SetAttributes(ctx context.Context, node ast.Node, attrs *Attributes)
}
