// Package visual models a successfully laid-out graph.
//
// A Visual owns the SVG markup produced by the layout engine together with
// the geometry captured at render time, before any interactive zoom or pan.
// Zooming rewrites the root group's transform attribute in place; exporting
// restores the captured geometry so snapshots are independent of the live
// view state.
package visual

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Geometry is the pristine top-level geometry of a rendered visual,
// captured immediately after layout completes.
type Geometry struct {
	// Raw attribute values, restored verbatim on export.
	WidthAttr     string // e.g. "62pt"
	HeightAttr    string // e.g. "116pt"
	ViewBox       string // e.g. "0.00 0.00 62.00 116.00"
	RootTransform string // e.g. "scale(1 1) rotate(0) translate(4 112)"

	// Parsed viewport dimensions in points.
	Width  float64
	Height float64

	// Content bounding box parsed from the viewBox.
	ContentX float64
	ContentY float64
	ContentW float64
	ContentH float64
}

// Graphviz SVG output carries its geometry on the <svg> element and the
// layout translate on the root group (class="graph").
var (
	svgTagRe       = regexp.MustCompile(`<svg[^>]*>`)
	widthAttrRe    = regexp.MustCompile(`width="([^"]*)"`)
	heightAttrRe   = regexp.MustCompile(`height="([^"]*)"`)
	viewBoxAttrRe  = regexp.MustCompile(`viewBox="([^"]*)"`)
	rootGroupRe    = regexp.MustCompile(`(<g\b[^>]*class="graph"[^>]*transform=")([^"]*)(")`)
	dimensionValRe = regexp.MustCompile(`^([0-9.]+)\s*(pt|px)?$`)
)

// Visual is the most recent successfully rendered graph. It is exclusively
// owned by one render coordinator and replaced wholesale on each render.
type Visual struct {
	doc      []byte
	original Geometry
	live     Transform
}

// Parse captures a Visual from layout engine SVG output.
func Parse(svg []byte) (*Visual, error) {
	tag := svgTagRe.Find(svg)
	if tag == nil {
		return nil, fmt.Errorf("no <svg> element in engine output")
	}

	var g Geometry
	if m := widthAttrRe.FindSubmatch(tag); m != nil {
		g.WidthAttr = string(m[1])
		g.Width = parseDimension(g.WidthAttr)
	}
	if m := heightAttrRe.FindSubmatch(tag); m != nil {
		g.HeightAttr = string(m[1])
		g.Height = parseDimension(g.HeightAttr)
	}
	if m := viewBoxAttrRe.FindSubmatch(tag); m != nil {
		g.ViewBox = string(m[1])
		g.ContentX, g.ContentY, g.ContentW, g.ContentH = parseViewBox(g.ViewBox)
	}
	if m := rootGroupRe.FindSubmatch(svg); m != nil {
		g.RootTransform = string(m[2])
	}

	if g.Width == 0 || g.Height == 0 {
		return nil, fmt.Errorf("engine output has no usable dimensions")
	}

	return &Visual{
		doc:      append([]byte(nil), svg...),
		original: g,
		live:     Identity(),
	}, nil
}

// Original returns the geometry captured at render time.
func (v *Visual) Original() Geometry {
	return v.original
}

// LiveTransform returns the currently applied zoom/pan transform.
func (v *Visual) LiveTransform() Transform {
	return v.live
}

// SetTransform applies a zoom/pan transform to the live markup by rewriting
// the root group's transform attribute. The interactive transform composes
// in front of the engine's own layout translate.
func (v *Visual) SetTransform(t Transform) {
	v.live = t
	live := t.String()
	if v.original.RootTransform != "" {
		live += " " + v.original.RootTransform
	}
	v.doc = rootGroupRe.ReplaceAll(v.doc, []byte("${1}"+live+"${3}"))
}

// Markup returns the live markup with the current transform applied.
// Callers must not retain the returned slice across further mutations.
func (v *Visual) Markup() []byte {
	return v.doc
}

// Snapshot returns self-contained markup with the original geometry
// restored: width, height, viewBox, and the root group transform are
// overwritten with the values captured at render time, discarding the live
// zoom/pan. Two snapshots taken across pure zoom changes are identical.
func (v *Visual) Snapshot() string {
	doc := append([]byte(nil), v.doc...)

	doc = rootGroupRe.ReplaceAll(doc, []byte("${1}"+v.original.RootTransform+"${3}"))

	tag := svgTagRe.Find(doc)
	if tag != nil {
		restored := widthAttrRe.ReplaceAll(tag, []byte(`width="`+v.original.WidthAttr+`"`))
		restored = heightAttrRe.ReplaceAll(restored, []byte(`height="`+v.original.HeightAttr+`"`))
		if v.original.ViewBox != "" {
			restored = viewBoxAttrRe.ReplaceAll(restored, []byte(`viewBox="`+v.original.ViewBox+`"`))
		}
		doc = svgTagRe.ReplaceAll(doc, restored)
	}

	return string(doc)
}

// parseDimension strips the pt/px unit suffix from an SVG length.
// Returns 0 for values it cannot parse.
func parseDimension(s string) float64 {
	m := dimensionValRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// parseViewBox parses "minX minY width height".
func parseViewBox(s string) (x, y, w, h float64) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return 0, 0, 0, 0
	}
	vals := make([]float64, 4)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, 0, 0, 0
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], vals[3]
}
