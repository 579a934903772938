package engine

import (
	"context"

	"github.com/graphpad/graphpad/pkg/cache"
	"github.com/graphpad/graphpad/pkg/observability"
)

// CachedRenderer wraps a Renderer with artifact caching. Rendering is
// deterministic for a given (source, layout) pair, so a cache hit skips the
// layout engine entirely.
type CachedRenderer struct {
	inner Renderer
	cache cache.Cache
}

// Cached wraps r with the given cache. A nil cache disables caching.
func Cached(r Renderer, c cache.Cache) *CachedRenderer {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &CachedRenderer{inner: r, cache: c}
}

// Render returns the cached artifact when present, otherwise delegates to
// the wrapped renderer and stores the result. Engine failures are never
// cached.
func (r *CachedRenderer) Render(ctx context.Context, source string, layout Layout) ([]byte, error) {
	key := cache.RenderKey(source, layout.String())

	if svg, hit, err := r.cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "render")
		return svg, nil
	}
	observability.Cache().OnCacheMiss(ctx, "render")

	svg, err := r.inner.Render(ctx, source, layout)
	if err != nil {
		return nil, err
	}

	// Cache write failures degrade to uncached behavior.
	if err := r.cache.Set(ctx, key, svg, cache.DefaultTTL); err == nil {
		observability.Cache().OnCacheSet(ctx, "render", len(svg))
	}
	return svg, nil
}

// Version delegates to the wrapped renderer.
func (r *CachedRenderer) Version(ctx context.Context) (string, error) {
	return r.inner.Version(ctx)
}

// Close closes the wrapped renderer. The cache is owned by the caller and
// left open, since it may be shared across renderers.
func (r *CachedRenderer) Close() error {
	return r.inner.Close()
}

// Ensure CachedRenderer implements Renderer.
var _ Renderer = (*CachedRenderer)(nil)
