package netfetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/plugin-runtime/errors"
	"github.com/wippyai/plugin-runtime/loader"
)

const defaultTimeout = 30 * time.Second

// HTTPFetcher fetches loader requests over HTTP.
type HTTPFetcher struct {
	client    *http.Client
	limits    *LimiterStore
	log       *zap.Logger
	stop      context.CancelFunc
	userAgent string
	wg        sync.WaitGroup
	ownClient bool
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient replaces the HTTP client. Its redirect policy is kept for
// requests that follow redirects.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = c
		f.ownClient = false
	}
}

// WithTimeout sets the whole-request timeout. A client passed to WithClient
// is copied first and never modified.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		switch {
		case f.client == nil:
			f.client = &http.Client{}
		case !f.ownClient:
			c := *f.client
			f.client = &c
		}
		f.ownClient = true
		f.client.Timeout = d
	}
}

// WithUserAgent sets the User-Agent sent when the request carries none.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) { f.userAgent = ua }
}

// WithRateLimit limits requests per host. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int, opts ...StoreOption) Option {
	return func(f *HTTPFetcher) {
		if rps <= 0 {
			f.limits = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limits = NewLimiterStore(rps, burst, opts...)
	}
}

// WithLogger sets the logger for fetch traces.
func WithLogger(l *zap.Logger) Option {
	return func(f *HTTPFetcher) { f.log = l }
}

// New creates an HTTP fetcher with a 30 second timeout and no rate limit.
// With a rate limit, idle host buckets are pruned until Close.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: defaultTimeout}
	}
	if f.log == nil {
		f.log = zap.NewNop()
	}
	if f.limits != nil {
		ctx, cancel := context.WithCancel(context.Background())
		f.stop = cancel
		f.limits.StartJanitor(ctx)
	}
	return f
}

// Close stops the limiter janitor. In-flight fetches are not cancelled.
func (f *HTTPFetcher) Close() {
	if f.stop != nil {
		f.stop()
	}
}

// Limits returns the per-host limiter store, or nil when unlimited.
func (f *HTTPFetcher) Limits() *LimiterStore { return f.limits }

// Fetch starts req on a new goroutine and returns immediately. The sink is
// always finished, with an error when the fetch fails or ctx is cancelled.
func (f *HTTPFetcher) Fetch(ctx context.Context, req loader.Request, sink loader.Sink) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		start := time.Now()
		err := f.do(ctx, req, sink)
		f.log.Debug("fetch done",
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		sink.Finish(err)
	}()
}

// Wait blocks until every started fetch has finished its sink.
func (f *HTTPFetcher) Wait() {
	f.wg.Wait()
}

func (f *HTTPFetcher) do(ctx context.Context, req loader.Request, sink loader.Sink) error {
	target, err := url.Parse(req.URL)
	if err != nil {
		return errors.FetchFailed(req.URL, err)
	}

	if f.limits != nil {
		if err := f.limits.Get(target.Host).Wait(ctx); err != nil {
			return errors.FetchFailed(req.URL, err)
		}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return errors.FetchFailed(req.URL, err)
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	if f.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.clientFor(req).Do(httpReq)
	if err != nil {
		return errors.FetchFailed(req.URL, err)
	}
	defer resp.Body.Close()

	var redirect string
	if loc, err := resp.Location(); err == nil {
		redirect = loc.String()
	}
	sink.Header(loader.ResponseHeader{
		StatusCode:    resp.StatusCode,
		StatusLine:    resp.Proto + " " + resp.Status,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
		RedirectURL:   redirect,
	})

	if _, err := io.Copy(sink, resp.Body); err != nil {
		return errors.FetchFailed(req.URL, err)
	}
	return nil
}

// clientFor returns a client that stops at the first redirect when req does
// not follow redirects.
func (f *HTTPFetcher) clientFor(req loader.Request) *http.Client {
	if req.FollowRedirects {
		return f.client
	}
	c := *f.client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &c
}
