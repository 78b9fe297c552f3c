// Package request holds the per-request state consulted while rendering:
// a bag of features keyed by their Go type, and accessors that carry it
// through a context.Context.
package request

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrFeatureMissing is returned when a feature is read from a Context that
// does not carry it.
var ErrFeatureMissing = errors.New("feature missing from request context")

// Context maps feature types to feature values for one logical request.
// The zero value is not usable; create one with New.
type Context struct {
	mu       sync.RWMutex
	features map[reflect.Type]any
}

// New creates an empty request context.
func New() *Context {
	return &Context{features: make(map[reflect.Type]any)}
}

// Add stores feature in c, replacing any earlier value of the same type.
func Add[T any](c *Context, feature T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.features[typeOf[T]()] = feature
}

// Has reports whether c carries a feature of type T. A nil context has no
// features.
func Has[T any](c *Context) bool {
	_, ok := Lookup[T](c)
	return ok
}

// Lookup returns the feature of type T and whether it was present.
func Lookup[T any](c *Context) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.features[typeOf[T]()]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Get returns the feature of type T, or an error wrapping ErrFeatureMissing.
// Callers are expected to check Has first.
func Get[T any](c *Context) (T, error) {
	v, ok := Lookup[T](c)
	if !ok {
		return v, fmt.Errorf("%w: %s", ErrFeatureMissing, typeOf[T]())
	}
	return v, nil
}

// MustGet is like Get but panics when the feature is missing.
func MustGet[T any](c *Context) T {
	v, err := Get[T](c)
	if err != nil {
		panic(err)
	}
	return v
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

type contextKey struct{}

// NewContext returns a copy of ctx that carries rc.
func NewContext(ctx context.Context, rc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, rc)
}

// FromContext returns the request context carried by ctx, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	rc, ok := ctx.Value(contextKey{}).(*Context)
	if !ok || rc == nil {
		return nil, false
	}
	return rc, true
}
