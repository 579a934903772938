package viewer

// Events receives fire-and-forget notifications from a Coordinator. This is
// the outbound half of the host contract: the host learns about render
// progress, load state, and zoom changes only through these callbacks.
//
// Handlers run on the coordinator's own loop and must return promptly. They
// must not call back into the coordinator's blocking query methods
// (ZoomLevel, ExportSnapshot), which would deadlock; everything a handler
// needs is carried in the event itself.
type Events interface {
	// InitializationComplete fires once, when the layout engine is ready.
	InitializationComplete()

	// RenderError fires when a layout engine invocation fails. The
	// diagnostic is the engine's human-readable text.
	RenderError(diagnostic string)

	// RenderingStateChanged fires on every transition into or out of an
	// in-flight render.
	RenderingStateChanged(rendering bool)

	// LoadedStateChanged fires when a rendered visual becomes present or
	// absent.
	LoadedStateChanged(loaded bool)

	// ZoomLevelChanged fires when a render completes and whenever a zoom
	// operation settles. Intermediate animation frames are not reported.
	ZoomLevelChanged(level float64)
}

// NoopEvents is an Events implementation that discards all notifications.
// Embed it to implement only the notifications a host cares about.
type NoopEvents struct{}

func (NoopEvents) InitializationComplete()    {}
func (NoopEvents) RenderError(string)         {}
func (NoopEvents) RenderingStateChanged(bool) {}
func (NoopEvents) LoadedStateChanged(bool)    {}
func (NoopEvents) ZoomLevelChanged(float64)   {}

// Ensure NoopEvents implements Events.
var _ Events = (*NoopEvents)(nil)
