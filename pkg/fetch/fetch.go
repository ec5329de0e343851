package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Mode selects how requests reach the upstream site
type Mode string

const (
	ModeDirect   Mode = "direct"
	ModeProxied  Mode = "proxied"
	ModeRendered Mode = "rendered"
)

var (
	// ErrAccessDenied is returned for HTTP 403. It is never retried.
	ErrAccessDenied = errors.New("access denied by upstream")
	// ErrTimeout is returned once every attempt has timed out
	ErrTimeout = errors.New("upstream request timed out")
	// ErrUnsupported is returned when a mode cannot issue the request (e.g. POST while rendering)
	ErrUnsupported = errors.New("request not supported in this fetch mode")
)

// StatusError reports a non-success status other than 403
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d when fetching %s", e.Code, e.URL)
}

// maxBodySize bounds how much of an upstream response is read
const maxBodySize = 8 << 20

// Request describes one upstream call
type Request struct {
	Method  string
	URL     string
	Form    url.Values
	Header  http.Header
	Cookies []*http.Cookie
}

// Get builds a plain page request
func Get(target string) Request {
	return Request{Method: http.MethodGet, URL: target}
}

// PostForm builds a form-encoded POST, as the timetable endpoint expects
func PostForm(target string, form url.Values) Request {
	return Request{Method: http.MethodPost, URL: target, Form: form, Header: http.Header{}}
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// build creates the HTTP request against target, which is r.URL or a proxy wrapping it
func (r Request) build(ctx context.Context, target string) (*http.Request, error) {
	var body io.Reader
	if r.Form != nil {
		body = strings.NewReader(r.Form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, r.method(), target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if r.Form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	}
	return req, nil
}

// Result is the upstream response of a successful fetch
type Result struct {
	StatusCode int
	Body       []byte
	Cookies    []*http.Cookie
}

// Strategy performs upstream requests in one fixed mode
type Strategy interface {
	Fetch(ctx context.Context, req Request) (*Result, error)
	Mode() Mode
}

// Options configures every fetch mode
type Options struct {
	Mode       Mode
	Timeout    time.Duration
	Attempts   int
	RetryDelay time.Duration

	ProxyEndpoint string
	ProxyAPIKey   string
	ProxyRender   bool

	// WaitFor is a CSS selector the proxy or the headless browser waits for before returning
	WaitFor    string
	ChromePath string
}

// New returns the strategy for opts.Mode. The mode is fixed for the lifetime of the strategy.
func New(opts Options) (Strategy, error) {
	switch opts.Mode {
	case ModeDirect, "":
		return NewDirect(opts), nil
	case ModeProxied:
		if opts.ProxyAPIKey == "" {
			return nil, fmt.Errorf("proxied fetch mode requires a proxy API key")
		}
		return NewProxied(opts), nil
	case ModeRendered:
		return NewRendered(opts), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode %q", opts.Mode)
	}
}

// readResult drains resp and maps its status onto the package errors
func readResult(resp *http.Response, target string) (*Result, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", target, err)
	}

	if err := checkStatus(resp.StatusCode, target); err != nil {
		return nil, err
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Body:       body,
		Cookies:    resp.Cookies(),
	}, nil
}

func checkStatus(code int, target string) error {
	switch {
	case code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAccessDenied, target)
	case code < 200 || code > 299:
		return &StatusError{Code: code, URL: target}
	}
	return nil
}
