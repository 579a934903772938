package engine

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/goccy/go-graphviz"

	"github.com/graphpad/graphpad/pkg/errors"
)

// Graphviz is a Renderer backed by github.com/goccy/go-graphviz, which runs
// the Graphviz C library in-process via wazero. One instance per document;
// instances are stateful and not safe for concurrent use.
type Graphviz struct {
	gv      *graphviz.Graphviz
	version string
	closed  bool
}

// NewGraphviz initializes an in-process Graphviz instance.
func NewGraphviz(ctx context.Context) (*Graphviz, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEngineUnavailable, err, "init graphviz")
	}
	return &Graphviz{gv: gv}, nil
}

// Render lays out DOT source and returns SVG bytes.
func (g *Graphviz) Render(ctx context.Context, source string, layout Layout) ([]byte, error) {
	if g.closed {
		return nil, errors.New(errors.ErrCodeEngineClosed, "renderer is closed")
	}
	if !layout.Valid() {
		// Surfaced like any other engine diagnostic, not a distinct channel.
		return nil, errors.New(errors.ErrCodeInvalidLayout, "unknown layout engine: %s", layout)
	}

	graph, err := graphviz.ParseBytes([]byte(source))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "parse DOT")
	}
	defer graph.Close()

	g.gv.SetLayout(graphviz.Layout(layout))

	var buf bytes.Buffer
	if err := g.gv.Render(ctx, graph, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "render with %s", layout)
	}
	return buf.Bytes(), nil
}

// Version reports the bundled Graphviz version. Graphviz stamps every SVG it
// produces with a generator comment, so the version is recovered by laying
// out an empty graph once and parsing that comment.
func (g *Graphviz) Version(ctx context.Context) (string, error) {
	if g.version != "" {
		return g.version, nil
	}
	svg, err := g.Render(ctx, "digraph {}", Dot)
	if err != nil {
		return "", fmt.Errorf("probe engine version: %w", err)
	}
	g.version = parseEngineVersion(svg)
	return g.version, nil
}

// Close releases the wasm instance. Render calls after Close fail.
func (g *Graphviz) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	return g.gv.Close()
}

// Graphviz SVG output opens with e.g.
// <!-- Generated by graphviz version 9.0.0 (20230911.1827) -->
var generatorRe = regexp.MustCompile(`Generated by graphviz version ([^\s]+)`)

func parseEngineVersion(svg []byte) string {
	match := generatorRe.FindSubmatch(svg)
	if match == nil {
		return "graphviz (unknown version)"
	}
	return "graphviz " + string(match[1])
}

// Ensure Graphviz implements Renderer.
var _ Renderer = (*Graphviz)(nil)
