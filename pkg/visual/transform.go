package visual

import (
	"fmt"
	"strconv"
	"strings"
)

// Transform is a zoom/pan transform applied to a rendered visual. The zero
// value is not meaningful; use Identity.
type Transform struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
}

// Identity returns the no-op transform.
func Identity() Transform {
	return Transform{Scale: 1}
}

// String renders the transform as an SVG transform attribute value.
func (t Transform) String() string {
	return fmt.Sprintf("translate(%s,%s) scale(%s)",
		fmtNum(t.TranslateX), fmtNum(t.TranslateY), fmtNum(t.Scale))
}

// ScaledBy returns a copy of t with the scale multiplied by factor,
// clamped to [min, max] when max > 0. Translation is scaled by the same
// ratio, so the zoom is anchored at the viewport origin: a content point at
// the origin stays put and everything else moves proportionally.
func (t Transform) ScaledBy(factor, min, max float64) Transform {
	scale := clamp(t.Scale*factor, min, max)
	if t.Scale != 0 {
		ratio := scale / t.Scale
		t.TranslateX *= ratio
		t.TranslateY *= ratio
	}
	t.Scale = scale
	return t
}

// Fit computes the transform that centers the content bounding box inside
// the given viewport, scaled to fill it without cropping. This is the
// engine's default view after a render.
func Fit(g Geometry, viewportW, viewportH float64) Transform {
	if g.ContentW <= 0 || g.ContentH <= 0 || viewportW <= 0 || viewportH <= 0 {
		return Identity()
	}
	scale := viewportW / g.ContentW
	if s := viewportH / g.ContentH; s < scale {
		scale = s
	}
	return Transform{
		Scale:      scale,
		TranslateX: (viewportW-g.ContentW*scale)/2 - g.ContentX*scale,
		TranslateY: (viewportH-g.ContentH*scale)/2 - g.ContentY*scale,
	}
}

func clamp(v, min, max float64) float64 {
	if max > 0 && v > max {
		v = max
	}
	if min > 0 && v < min {
		v = min
	}
	return v
}

// fmtNum formats a float the way Graphviz does: no exponent, no trailing
// zeros, so transform attributes stay stable across exports.
func fmtNum(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
