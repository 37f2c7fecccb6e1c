package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly"
)

// CollyRenderer fetches pages through a colly collector. The collector
// checks robots.txt itself; AllowURLRevisit lets the poll loop re-request
// the same URL.
type CollyRenderer struct {
	collector *colly.Collector
	marker    string
	wait      time.Duration
}

func NewCollyRenderer(opts Options) (*CollyRenderer, error) {
	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       opts.Delay,
		RandomDelay: 500 * time.Millisecond,
	}); err != nil {
		return nil, fmt.Errorf("setting collector limits: %w", err)
	}

	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put("body", string(r.Body))
	})

	return &CollyRenderer{
		collector: c,
		marker:    opts.Marker,
		wait:      opts.Wait,
	}, nil
}

func (r *CollyRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	deadline := time.Now().Add(r.wait)
	var last string
	for {
		reqCtx := colly.NewContext()
		if err := r.collector.Request("GET", pageURL, nil, reqCtx, nil); err != nil {
			return "", fmt.Errorf("requesting %s: %w", pageURL, err)
		}
		last = reqCtx.Get("body")
		if r.marker == "" || strings.Contains(last, r.marker) {
			return last, nil
		}
		if !time.Now().Before(deadline) {
			return last, nil
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}
