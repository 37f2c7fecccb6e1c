package render

import (
	"context"
	"time"
)

// Renderer turns a search URL into realized page markup. The results
// page populates through an ajax call, so implementations poll until a
// ready marker shows up or the wait expires, returning the last markup
// either way.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// Factory builds one Renderer per worker. Workers never share a session.
type Factory func() (Renderer, error)

type Options struct {
	UserAgent string
	Marker    string
	Wait      time.Duration
	Delay     time.Duration
}

// NewFactory picks the backend. Anything other than "http" gets the
// collector-based renderer.
func NewFactory(backend string, opts Options) Factory {
	if backend == "http" {
		return func() (Renderer, error) { return NewHTTPRenderer(opts), nil }
	}
	return func() (Renderer, error) { return NewCollyRenderer(opts) }
}
