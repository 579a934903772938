package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Render hooks
	r := NoopRenderHooks{}
	r.OnRenderStart(ctx, "dot", 42)
	r.OnRenderComplete(ctx, "dot", time.Second, nil)
	r.OnCoalesced(ctx, "dot")
	r.OnExport(ctx, 1024)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "render")
	c.OnCacheMiss(ctx, "render")
	c.OnCacheSet(ctx, "render", 1024)

	// Bridge hooks
	b := NoopBridgeHooks{}
	b.OnSessionOpen(ctx, "abc")
	b.OnSessionClose(ctx, "abc", time.Minute)
	b.OnMessage(ctx, "abc", "setData")
}

type testRenderHooks struct {
	NoopRenderHooks
	starts int
}

func (h *testRenderHooks) OnRenderStart(ctx context.Context, layout string, sourceLen int) {
	h.starts++
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()
	t.Cleanup(Reset)

	// Verify defaults are noop
	if _, ok := Render().(NoopRenderHooks); !ok {
		t.Error("Render() should return NoopRenderHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Bridge().(NoopBridgeHooks); !ok {
		t.Error("Bridge() should return NoopBridgeHooks by default")
	}

	// Set custom hooks
	custom := &testRenderHooks{}
	SetRenderHooks(custom)
	if Render() != RenderHooks(custom) {
		t.Error("SetRenderHooks should set custom hooks")
	}
	Render().OnRenderStart(context.Background(), "dot", 1)
	if custom.starts != 1 {
		t.Errorf("custom hook should have been called, starts = %d", custom.starts)
	}

	// nil registrations are ignored
	SetRenderHooks(nil)
	if Render() != RenderHooks(custom) {
		t.Error("SetRenderHooks(nil) should keep previous hooks")
	}

	// Reset restores defaults
	Reset()
	if _, ok := Render().(NoopRenderHooks); !ok {
		t.Error("Reset should restore NoopRenderHooks")
	}
}
