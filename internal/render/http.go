package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"
)

const maxHops = 15

// HTTPRenderer is the plain net/http backend for pages that realize
// without script execution. It loads robots.txt once for the first host
// it sees and refuses paths the group disallows.
type HTTPRenderer struct {
	client *http.Client
	ua     string
	marker string
	wait   time.Duration

	robotsOnce sync.Once
	robots     *robotstxt.Group
}

func NewHTTPRenderer(opts Options) *HTTPRenderer {
	jar, _ := cookiejar.New(nil)
	return &HTTPRenderer{
		client: &http.Client{
			Transport: &http.Transport{
				DisableKeepAlives: true,
				MaxIdleConns:      0,
			},
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxHops {
					return fmt.Errorf("stopped after %d redirects", maxHops)
				}
				return nil
			},
		},
		ua:     opts.UserAgent,
		marker: opts.Marker,
		wait:   opts.Wait,
	}
}

func (r *HTTPRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	if !r.allowed(u) {
		return "", fmt.Errorf("blocked by robots.txt: %s", u.Path)
	}

	deadline := time.Now().Add(r.wait)
	var last string
	for {
		body, err := r.fetch(ctx, pageURL)
		if err != nil {
			return "", err
		}
		last = body
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

func (r *HTTPRenderer) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", r.ua)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d for %s", resp.StatusCode, pageURL)
	}

	utf8Reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		utf8Reader = resp.Body
	}
	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (r *HTTPRenderer) allowed(u *url.URL) bool {
	r.robotsOnce.Do(func() {
		robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
		resp, err := r.client.Get(robotsURL)
		if err != nil {
			log.Debug().Err(err).Str("url", robotsURL).Msg("robots.txt not loaded")
			return
		}
		defer resp.Body.Close()
		data, err := robotstxt.FromResponse(resp)
		if err != nil {
			log.Debug().Err(err).Str("url", robotsURL).Msg("robots.txt not parsed")
			return
		}
		r.robots = data.FindGroup(r.ua)
	})
	if r.robots == nil {
		return true
	}
	return r.robots.Test(u.Path)
}
