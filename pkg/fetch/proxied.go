package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultProxyEndpoint is the scraping relay used when none is configured
const DefaultProxyEndpoint = "https://api.scraperapi.com/"

// Proxied hands every request to a third-party scraping relay, which fetches (and optionally
// renders) the target on our behalf.
type Proxied struct {
	httpClient *http.Client
	opts       Options
}

func NewProxied(opts Options) *Proxied {
	if opts.ProxyEndpoint == "" {
		opts.ProxyEndpoint = DefaultProxyEndpoint
	}
	return &Proxied{
		httpClient: &http.Client{},
		opts:       opts,
	}
}

func (p *Proxied) Mode() Mode {
	return ModeProxied
}

// Fetch relays req through the proxy, retrying timeouts
func (p *Proxied) Fetch(ctx context.Context, req Request) (*Result, error) {
	return withRetries(ctx, p.opts, func(ctx context.Context) (*Result, error) {
		return p.do(ctx, req)
	})
}

func (p *Proxied) do(ctx context.Context, r Request) (*Result, error) {
	forwardHeaders := len(r.Header) > 0 || len(r.Cookies) > 0

	target, err := p.proxyURL(r.URL, forwardHeaders)
	if err != nil {
		return nil, err
	}

	req, err := r.build(ctx, target)
	if err != nil {
		return nil, err
	}

	if forwardHeaders {
		setBrowserHeaders(req.Header, r.Form != nil)
		for k, vs := range r.Header {
			req.Header[k] = vs
		}
		if len(r.Cookies) > 0 {
			parts := make([]string, 0, len(r.Cookies))
			for _, c := range r.Cookies {
				parts = append(parts, c.Name+"="+c.Value)
			}
			req.Header.Set("Cookie", strings.Join(parts, "; "))
		}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// The proxy URL carries the API key, so only the target is named here
		return nil, fmt.Errorf("failed to fetch %s via proxy: %w", r.URL, redactURLError(err))
	}

	return readResult(resp, r.URL)
}

// proxyURL wraps target in the relay's query string
func (p *Proxied) proxyURL(target string, keepHeaders bool) (string, error) {
	u, err := url.Parse(p.opts.ProxyEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid proxy endpoint: %w", err)
	}

	q := u.Query()
	q.Set("api_key", p.opts.ProxyAPIKey)
	q.Set("url", target)
	q.Set("render", strconv.FormatBool(p.opts.ProxyRender))
	if p.opts.WaitFor != "" {
		q.Set("wait_for_selector", p.opts.WaitFor)
	}
	if keepHeaders {
		q.Set("keep_headers", "true")
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// redactURLError drops the request URL from *url.Error so the API key never reaches the logs
func redactURLError(err error) error {
	if urlErr, ok := err.(*url.Error); ok {
		return urlErr.Err
	}
	return err
}
