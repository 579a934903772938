// Package pkg provides the core libraries for graphpad live DOT rendering.
//
// # Overview
//
// Graphpad is the rendering backend for interactive Graphviz DOT editing:
// it turns a stream of rapid source changes into sequential engine renders,
// tracks zoom and load state, and exports stable SVG snapshots. The pkg
// directory is organized around that flow:
//
//  1. [engine] - Layout engine adapter (Graphviz via goccy/go-graphviz)
//  2. [visual] - Rendered SVG geometry, zoom transforms, snapshot export
//  3. [viewer] - Render coordinator (coalescing state machine)
//  4. [bridge] - WebSocket protocol binding coordinators to host frontends
//  5. [cache]  - Render cache backends (file, Redis, null)
//
// # Architecture
//
// The typical data flow through graphpad:
//
//	editor keystrokes / file saves
//	         ↓
//	    [bridge] session (debounce, protocol)
//	         ↓
//	    [viewer] coordinator (coalesce, serialize)
//	         ↓
//	    [engine] Graphviz render (cached via [cache])
//	         ↓
//	    [visual] geometry + zoom + snapshot
//	         ↓
//	    SVG to the frontend or to disk
//
// # Quick Start
//
// Drive a coordinator directly:
//
//	import (
//	    "context"
//	    "github.com/graphpad/graphpad/pkg/engine"
//	    "github.com/graphpad/graphpad/pkg/viewer"
//	)
//
//	gv, _ := engine.NewGraphviz(ctx)
//	coord := viewer.New(ctx, gv, viewer.Options{Events: myEvents})
//	defer coord.Close()
//
//	coord.SetData("digraph { a -> b }", engine.Dot)
//	// myEvents receives rendering/loaded/zoom notifications.
//
// # Supporting Packages
//
// [config] - TOML configuration with defaults for every field.
//
// [errors] - Coded errors shared across the CLI and the bridge protocol,
// plus diagnostic parsing (syntax error line extraction).
//
// [observability] - Pluggable hooks for render, cache, and session metrics.
//
// [buildinfo] - ldflags-injected version information.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/viewer/...   # Coordinator state machine only
//
// [engine]: https://pkg.go.dev/github.com/graphpad/graphpad/pkg/engine
// [visual]: https://pkg.go.dev/github.com/graphpad/graphpad/pkg/visual
// [viewer]: https://pkg.go.dev/github.com/graphpad/graphpad/pkg/viewer
// [bridge]: https://pkg.go.dev/github.com/graphpad/graphpad/pkg/bridge
// [cache]: https://pkg.go.dev/github.com/graphpad/graphpad/pkg/cache
// [config]: https://pkg.go.dev/github.com/graphpad/graphpad/pkg/config
// [errors]: https://pkg.go.dev/github.com/graphpad/graphpad/pkg/errors
// [observability]: https://pkg.go.dev/github.com/graphpad/graphpad/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/graphpad/graphpad/pkg/buildinfo
package pkg
