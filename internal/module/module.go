// Package module manages the lifecycle of the Markdown renderer inside a
// host: one renderer is built on activation and released on deactivation.
package module

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ay/mdrender/internal/logger"
	"github.com/ay/mdrender/markdown"
)

// ErrNotActive is returned when the renderer is requested before
// Activate or after Deactivate.
var ErrNotActive = errors.New("markdown module not active")

// Module owns the host's renderer.
type Module struct {
	mu       sync.RWMutex
	renderer *markdown.Renderer
}

// New returns an inactive module.
func New() *Module {
	return &Module{}
}

// Activate builds the renderer. Activating an active module replaces its
// renderer.
func (m *Module) Activate(opts ...markdown.Option) error {
	r := markdown.New(opts...)

	m.mu.Lock()
	old := m.renderer
	m.renderer = r
	m.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			return fmt.Errorf("failed to close previous renderer: %w", err)
		}
	}
	logger.Info("markdown module activated")
	return nil
}

// Deactivate releases the renderer. It is a no-op for inactive modules.
func (m *Module) Deactivate() error {
	m.mu.Lock()
	r := m.renderer
	m.renderer = nil
	m.mu.Unlock()

	if r == nil {
		return nil
	}
	logger.Info("markdown module deactivated")
	return r.Close()
}

// Renderer returns the active renderer.
func (m *Module) Renderer() (*markdown.Renderer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.renderer == nil {
		return nil, ErrNotActive
	}
	return m.renderer, nil
}
