package fetch

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Rendered loads pages in a local headless Chrome so client-side scripts can fill the
// departures table before the HTML is read.
type Rendered struct {
	opts      Options
	allocOpts []chromedp.ExecAllocatorOption
}

func NewRendered(opts Options) *Rendered {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.Flag("disable-gpu", true),
	)
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	return &Rendered{
		opts:      opts,
		allocOpts: allocOpts,
	}
}

func (r *Rendered) Mode() Mode {
	return ModeRendered
}

// Fetch renders req.URL. Only GET requests can be rendered.
func (r *Rendered) Fetch(ctx context.Context, req Request) (*Result, error) {
	if req.method() != http.MethodGet {
		return nil, fmt.Errorf("%w: %s %s", ErrUnsupported, req.method(), req.URL)
	}

	return withRetries(ctx, r.opts, func(ctx context.Context) (*Result, error) {
		return r.render(ctx, req.URL)
	})
}

func (r *Rendered) render(ctx context.Context, target string) (*Result, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Status of the first document response, i.e. the page itself
	var status atomic.Int64
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			status.CompareAndSwap(0, e.Response.Status)
		}
	})

	var html string
	actions := []chromedp.Action{
		network.Enable(),
		chromedp.Navigate(target),
	}
	if r.opts.WaitFor != "" {
		actions = append(actions, chromedp.WaitReady(r.opts.WaitFor, chromedp.ByQuery))
	}
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", target, err)
	}

	code := int(status.Load())
	if code == 0 {
		code = http.StatusOK
	}
	if err := checkStatus(code, target); err != nil {
		return nil, err
	}

	return &Result{StatusCode: code, Body: []byte(html)}, nil
}
