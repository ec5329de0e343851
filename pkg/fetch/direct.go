package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"golang.org/x/net/publicsuffix"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Direct talks to the upstream site itself, dressed up as a desktop Chrome.
// Its cookie jar is the HTTP session shared by the landing page and data requests.
type Direct struct {
	httpClient *http.Client
	opts       Options
}

// NewDirect creates a direct fetcher with a fresh cookie jar
func NewDirect(opts Options) *Direct {
	// cookiejar.New never returns an error
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &Direct{
		httpClient: &http.Client{Jar: jar},
		opts:       opts,
	}
}

func (d *Direct) Mode() Mode {
	return ModeDirect
}

// Fetch issues req with browser headers, retrying timeouts
func (d *Direct) Fetch(ctx context.Context, req Request) (*Result, error) {
	return withRetries(ctx, d.opts, func(ctx context.Context) (*Result, error) {
		return d.do(ctx, req)
	})
}

func (d *Direct) do(ctx context.Context, r Request) (*Result, error) {
	req, err := r.build(ctx, r.URL)
	if err != nil {
		return nil, err
	}

	setBrowserHeaders(req.Header, r.Form != nil)
	for k, vs := range r.Header {
		req.Header[k] = vs
	}
	// Cookies in r come from the jar's own responses, so the jar already sends them

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", r.URL, err)
	}

	return readResult(resp, r.URL)
}

// setBrowserHeaders mimics what Chrome sends for a page navigation, or for an XHR when xhr is set
func setBrowserHeaders(h http.Header, xhr bool) {
	h.Set("User-Agent", userAgent)
	h.Set("Accept-Language", "en-AU,en-GB;q=0.9,en;q=0.8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("sec-ch-ua", `"Not/A)Brand";v="8", "Chromium";v="126", "Google Chrome";v="126"`)
	h.Set("sec-ch-ua-mobile", "?0")
	h.Set("sec-ch-ua-platform", `"Windows"`)

	if xhr {
		h.Set("Accept", "application/json, text/javascript, */*; q=0.01")
		h.Set("Sec-Fetch-Dest", "empty")
		h.Set("Sec-Fetch-Mode", "cors")
		h.Set("Sec-Fetch-Site", "same-origin")
		return
	}

	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Upgrade-Insecure-Requests", "1")
}
