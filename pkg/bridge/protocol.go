// Package bridge exposes the render coordinator to host frontends over a
// WebSocket message protocol.
//
// Each connection is an isolated session: it owns its own layout engine
// instance and coordinator, so a slow render in one editor tab never blocks
// another. Inbound messages are commands (setData, zoomBy, ...); outbound
// messages mirror the coordinator's notifications plus direct replies for
// the two query commands (exportSnapshot, engineVersionInfo).
//
// Messages are flat JSON objects tagged by a "type" field:
//
//	{"type": "setData", "source": "digraph { a -> b }", "engine": "dot"}
//	{"type": "zoomLevelChanged", "level": 1.5}
package bridge

// Inbound message types, sent by the host.
const (
	// TypeSetData submits source for rendering immediately.
	TypeSetData = "setData"

	// TypeSourceChanged reports an edit; the session debounces a run of
	// these into one setData with the session's current engine.
	TypeSourceChanged = "sourceChanged"

	TypeZoomBy             = "zoomBy"
	TypeResetZoom          = "resetZoom"
	TypeSetZoomScaleExtent = "setZoomScaleExtent"
	TypeResize             = "resize"
	TypeExportSnapshot     = "exportSnapshot"
	TypeEngineVersionInfo  = "engineVersionInfo"
)

// Outbound message types, sent to the host.
const (
	TypeInitializationComplete = "initializationComplete"
	TypeRenderError            = "renderError"
	TypeRenderingStateChanged  = "renderingStateChanged"
	TypeLoadedStateChanged     = "loadedStateChanged"
	TypeZoomLevelChanged       = "zoomLevelChanged"

	// TypeSnapshot replies to exportSnapshot. Markup is null when nothing
	// is loaded.
	TypeSnapshot = "snapshot"

	// TypeEngineVersion replies to engineVersionInfo.
	TypeEngineVersion = "engineVersion"

	// TypeProtocolError reports a malformed or unknown inbound message.
	// Render failures use TypeRenderError, never this.
	TypeProtocolError = "protocolError"
)

// Inbound is the envelope for host commands. Only the fields relevant to
// Type are read; the rest stay at their zero values.
type Inbound struct {
	Type   string  `json:"type"`
	Source string  `json:"source"`
	Engine string  `json:"engine,omitempty"`
	Factor float64 `json:"factor,omitempty"`
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Outbound is the envelope for notifications and replies. Optional fields
// are pointers so that false, 0, and absent stay distinguishable on the
// wire.
type Outbound struct {
	Type string `json:"type"`

	IsRendering *bool    `json:"isRendering,omitempty"`
	IsLoaded    *bool    `json:"isLoaded,omitempty"`
	Level       *float64 `json:"level,omitempty"`

	// Diagnostic and Line accompany renderError. Line is set when the
	// diagnostic names a source line, so editors can mark the gutter.
	Diagnostic string `json:"diagnostic,omitempty"`
	Line       *int   `json:"line,omitempty"`

	Markup  *string `json:"markup,omitempty"`
	Version string  `json:"version,omitempty"`

	// Code and Message accompany protocolError.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func initializationComplete() Outbound {
	return Outbound{Type: TypeInitializationComplete}
}

func renderingStateChanged(isRendering bool) Outbound {
	return Outbound{Type: TypeRenderingStateChanged, IsRendering: &isRendering}
}

func loadedStateChanged(isLoaded bool) Outbound {
	return Outbound{Type: TypeLoadedStateChanged, IsLoaded: &isLoaded}
}

func zoomLevelChanged(level float64) Outbound {
	return Outbound{Type: TypeZoomLevelChanged, Level: &level}
}

func renderError(diagnostic string, line int, hasLine bool) Outbound {
	msg := Outbound{Type: TypeRenderError, Diagnostic: diagnostic}
	if hasLine {
		msg.Line = &line
	}
	return msg
}

func snapshot(markup string, ok bool) Outbound {
	msg := Outbound{Type: TypeSnapshot}
	if ok {
		msg.Markup = &markup
	}
	return msg
}

func engineVersion(version string) Outbound {
	return Outbound{Type: TypeEngineVersion, Version: version}
}

func protocolError(code, message string) Outbound {
	return Outbound{Type: TypeProtocolError, Code: code, Message: message}
}
