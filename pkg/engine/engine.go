// Package engine wraps the Graphviz layout engine behind a small adapter
// interface.
//
// The rest of the application treats layout as an opaque operation: DOT
// source plus a layout identifier go in, positioned SVG markup comes out, or
// a human-readable diagnostic comes back as an error. The adapter is stateful
// and must never be invoked concurrently with itself; the render coordinator
// in pkg/viewer guarantees strictly sequential calls.
package engine

import (
	"context"

	"github.com/graphpad/graphpad/pkg/errors"
)

// Layout identifies a Graphviz layout engine.
type Layout string

// The layout engines accepted by the adapter.
const (
	Dot       Layout = "dot"
	Neato     Layout = "neato"
	Fdp       Layout = "fdp"
	Sfdp      Layout = "sfdp"
	Circo     Layout = "circo"
	Twopi     Layout = "twopi"
	Osage     Layout = "osage"
	Patchwork Layout = "patchwork"
)

// Layouts returns all supported layout engines, in menu order.
func Layouts() []Layout {
	return []Layout{Dot, Neato, Fdp, Sfdp, Circo, Twopi, Osage, Patchwork}
}

// String returns the engine identifier as passed to Graphviz.
func (l Layout) String() string { return string(l) }

// Valid reports whether l is a known layout engine.
func (l Layout) Valid() bool {
	for _, known := range Layouts() {
		if l == known {
			return true
		}
	}
	return false
}

// ParseLayout converts an identifier string into a Layout.
func ParseLayout(s string) (Layout, error) {
	l := Layout(s)
	if !l.Valid() {
		return "", errors.New(errors.ErrCodeInvalidLayout, "unknown layout engine: %s", s)
	}
	return l, nil
}

// Renderer lays out DOT source into SVG markup.
//
// Implementations retain state across calls (fonts, the wasm instance) and
// are not safe for concurrent use. Render blocks until layout completes or
// ctx is done.
type Renderer interface {
	// Render lays out source with the given engine and returns SVG bytes.
	// Failures carry the engine's diagnostic text in the error message.
	Render(ctx context.Context, source string, layout Layout) ([]byte, error)

	// Version returns a human-readable engine version string.
	Version(ctx context.Context) (string, error)

	// Close releases engine resources.
	Close() error
}
