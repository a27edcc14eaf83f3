package loader

import (
	"context"
	"io"
	"net/url"
	"sync/atomic"

	"go.uber.org/zap"

	pluginruntime "github.com/wippyai/plugin-runtime"
	"github.com/wippyai/plugin-runtime/bytestore"
	"github.com/wippyai/plugin-runtime/errors"
	"github.com/wippyai/plugin-runtime/mainloop"
	"github.com/wippyai/plugin-runtime/resource"
)

// Service implements the loader family of resources over a registry.
type Service struct {
	reg     *resource.Registry
	loop    *mainloop.Loop
	fetcher Fetcher
	log     *zap.Logger
	docURL  *url.URL
	tempDir string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for loader traces.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithTempDir sets the directory backing body stores. Empty means os.TempDir.
func WithTempDir(dir string) Option {
	return func(s *Service) { s.tempDir = dir }
}

// WithDocumentURL sets the base that relative request URLs resolve against.
func WithDocumentURL(u *url.URL) Option {
	return func(s *Service) { s.docURL = u }
}

// New creates a loader service. fetcher is invoked on loop for every Open.
func New(reg *resource.Registry, loop *mainloop.Loop, fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		reg:     reg,
		loop:    loop,
		fetcher: fetcher,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = Logger()
	}
	return s
}

// Create allocates a URL loader. It returns resource.InvalidHandle once the
// registry is closed.
func (s *Service) Create() resource.Handle {
	h := s.reg.Allocate(resource.TypeURLLoader)
	s.log.Debug("url loader created", zap.Int32("handle", int32(h)))
	return h
}

// IsURLLoader reports whether h is a live URL loader.
func (s *Service) IsURLLoader(h resource.Handle) bool {
	return s.reg.GetType(h) == resource.TypeURLLoader
}

// Open starts fetching the request described by request into loader.
//
// With a callback set, Open returns as soon as the fetch is dispatched and the
// callback later runs on the control loop with OK or ErrorFailed. Without a
// callback, Open blocks until the body is fully stored, ctx is done, or the
// loader is destroyed. Blocking is refused on the control loop itself.
func (s *Service) Open(ctx context.Context, loader, request resource.Handle, cb pluginruntime.CompletionCallback) error {
	if !cb.IsSet() && mainloop.OnLoop(ctx) {
		return errors.BlocksMainThread(errors.PhaseOpen, "synchronous open")
	}

	// Leases are not reentrant; one handle cannot be both.
	if request == loader {
		want := resource.TypeURLRequestInfo
		if s.reg.GetType(loader) != resource.TypeURLLoader {
			want = resource.TypeURLLoader
		}
		return s.badHandle(errors.PhaseOpen, loader, want)
	}

	ul, ok := resource.Acquire[*resource.URLLoader](s.reg, loader)
	if !ok {
		return s.badHandle(errors.PhaseOpen, loader, resource.TypeURLLoader)
	}
	ri, ok := resource.Acquire[*resource.URLRequestInfo](s.reg, request)
	if !ok {
		ul.Release()
		return s.badHandle(errors.PhaseOpen, request, resource.TypeURLRequestInfo)
	}

	req, err := s.prepare(loader, ul.Value(), ri.Value(), cb)
	ri.Release()
	if err != nil {
		ul.Release()
		return err
	}
	done := ul.Value().Done()
	ul.Release()

	// The in-flight fetch owns a reference, dropped by the sink's Finish.
	s.reg.Ref(loader)
	sink := &loaderSink{svc: s, handle: loader, url: req.URL}

	s.log.Debug("url loader open",
		zap.Int32("handle", int32(loader)),
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Bool("async", cb.IsSet()))

	if !s.loop.Post(func(ctx context.Context) { s.fetcher.Fetch(ctx, req, sink) }) {
		sink.Finish(errors.Closed(errors.PhaseOpen, "control loop"))
	}

	if cb.IsSet() {
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return errors.Wrap(errors.PhaseOpen, errors.KindNotLoaded, ctx.Err(), "wait for load")
	}

	ul, ok = resource.Acquire[*resource.URLLoader](s.reg, loader)
	if !ok {
		return errors.InvalidHandle(errors.PhaseOpen, int32(loader))
	}
	defer ul.Release()
	if !ul.Value().Loaded() {
		return errors.New(errors.PhaseOpen, errors.KindNotLoaded).
			Handle(int32(loader)).
			Detail("loader closed before load completed").
			Build()
	}
	return ul.Value().Err
}

// prepare records the request on ul and opens its body store. Both leases are
// held by the caller.
func (s *Service) prepare(h resource.Handle, ul *resource.URLLoader, ri *resource.URLRequestInfo, cb pluginruntime.CompletionCallback) (Request, error) {
	if ul.Opened() {
		return Request{}, errors.InProgress(errors.PhaseOpen, int32(h), "loader already opened")
	}
	if ri.URL == "" {
		return Request{}, errors.InvalidInput(errors.PhaseOpen, "request has no url")
	}
	target, err := s.resolve(ri.URL)
	if err != nil {
		return Request{}, err
	}

	store, err := bytestore.New(s.tempDir)
	if err != nil {
		return Request{}, err
	}

	method := ri.Method
	if method == "" {
		method = "GET"
	}
	var body []byte
	if len(ri.Body) > 0 {
		body = append([]byte(nil), ri.Body...)
	}

	ul.URL = target
	ul.Method = method
	ul.RequestHeaders = ri.Headers
	ul.RequestBody = body
	ul.Body = store
	ul.ReadPos = 0
	ul.ContentLength = -1
	ul.Callback = cb
	ul.Err = nil
	ul.MarkOpened()

	return Request{
		URL:             target,
		Method:          method,
		Header:          parseHeader(ri.Headers),
		Body:            body,
		FollowRedirects: ri.FollowRedirects,
	}, nil
}

// resolve makes raw absolute, using the document URL as base.
func (s *Service) resolve(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", errors.New(errors.PhaseOpen, errors.KindInvalidInput).
			Value(raw).
			Cause(err).
			Detail("malformed url").
			Build()
	}
	if s.docURL != nil {
		ref = s.docURL.ResolveReference(ref)
	}
	if !ref.IsAbs() {
		return "", errors.New(errors.PhaseOpen, errors.KindInvalidInput).
			Value(raw).
			Detail("relative url without a document url").
			Build()
	}
	return ref.String(), nil
}

// FollowRedirect is not supported; redirects are followed by the fetcher.
func (s *Service) FollowRedirect(h resource.Handle, cb pluginruntime.CompletionCallback) error {
	return errors.Unsupported(errors.PhaseOpen, "follow redirect")
}

// GetUploadProgress reports upload progress. Uploads are not tracked, so the
// counters are always zero; ok reports whether h is a loader.
func (s *Service) GetUploadProgress(h resource.Handle) (sent, total int64, ok bool) {
	return 0, 0, s.IsURLLoader(h)
}

// GetDownloadProgress reports how many body bytes are stored and the expected
// total, or -1 when the response did not announce a length.
func (s *Service) GetDownloadProgress(h resource.Handle) (received, total int64, ok bool) {
	ul, ok := resource.Acquire[*resource.URLLoader](s.reg, h)
	if !ok {
		return 0, 0, false
	}
	defer ul.Release()

	l := ul.Value()
	if l.Body != nil {
		received = l.Body.Size()
	}
	return received, l.ContentLength, true
}

// GetResponseInfo derives a response info from loader. The response info
// holds a reference on the loader until it is destroyed.
func (s *Service) GetResponseInfo(loader resource.Handle) resource.Handle {
	ul, ok := resource.Acquire[*resource.URLLoader](s.reg, loader)
	if !ok {
		return resource.InvalidHandle
	}
	defer ul.Release()

	info := s.reg.Allocate(resource.TypeURLResponseInfo)
	if info == resource.InvalidHandle {
		return resource.InvalidHandle
	}
	if !s.reg.Link(info, loader) {
		s.reg.Unref(info)
		return resource.InvalidHandle
	}
	return info
}

// ReadResponseBody copies body bytes at the loader's read cursor into buf and
// advances the cursor. It returns 0 at the end of the stored bytes or when
// the loader has no body.
func (s *Service) ReadResponseBody(h resource.Handle, buf []byte) (int, error) {
	ul, ok := resource.Acquire[*resource.URLLoader](s.reg, h)
	if !ok {
		return 0, s.badHandle(errors.PhaseRead, h, resource.TypeURLLoader)
	}
	defer ul.Release()

	l := ul.Value()
	if l.Body == nil || len(buf) == 0 {
		return 0, nil
	}
	n, err := l.Body.ReadAt(buf, l.ReadPos)
	l.ReadPos += int64(n)
	if err != nil && err != io.EOF {
		return n, errors.IO(errors.PhaseRead, "read body", err)
	}
	return n, nil
}

// FinishStreamingToFile is not supported.
func (s *Service) FinishStreamingToFile(h resource.Handle, cb pluginruntime.CompletionCallback) error {
	return errors.Unsupported(errors.PhaseOpen, "finish streaming to file")
}

// Close drops the loader's body store and response strings. The handle
// stays valid until its last reference is dropped.
func (s *Service) Close(h resource.Handle) {
	ul, ok := resource.Acquire[*resource.URLLoader](s.reg, h)
	if !ok {
		return
	}
	defer ul.Release()
	if err := ul.Value().CloseBody(); err != nil {
		s.log.Warn("close body store", zap.Int32("handle", int32(h)), zap.Error(err))
	}
}

func (s *Service) badHandle(phase errors.Phase, h resource.Handle, want resource.Type) error {
	got := s.reg.GetType(h)
	if got == resource.TypeUnknown {
		return errors.InvalidHandle(phase, int32(h))
	}
	return errors.TypeMismatch(phase, int32(h), want.String(), got.String())
}

// loaderSink delivers a fetch into one loader.
type loaderSink struct {
	svc      *Service
	url      string
	handle   resource.Handle
	finished atomic.Bool
}

func (k *loaderSink) Header(h ResponseHeader) {
	ul, ok := resource.Acquire[*resource.URLLoader](k.svc.reg, k.handle)
	if !ok {
		return
	}
	defer ul.Release()

	l := ul.Value()
	if l.Body == nil {
		return
	}
	l.StatusCode = int32(h.StatusCode)
	l.StatusLine = h.StatusLine
	l.Headers = formatHeader(h.Header)
	l.RedirectURL = h.RedirectURL
	l.ContentLength = h.ContentLength
}

func (k *loaderSink) Write(p []byte) (int, error) {
	ul, ok := resource.Acquire[*resource.URLLoader](k.svc.reg, k.handle)
	if !ok {
		return 0, errors.InvalidHandle(errors.PhaseFetch, int32(k.handle))
	}
	defer ul.Release()

	l := ul.Value()
	if l.Body == nil {
		return 0, errors.Closed(errors.PhaseFetch, "loader body")
	}
	return l.Body.Write(p)
}

func (k *loaderSink) Finish(err error) {
	if !k.finished.CompareAndSwap(false, true) {
		return
	}

	// Drop the in-flight reference before waking waiters. A loader that
	// dies here is torn down by Release.
	var cb pluginruntime.CompletionCallback
	if ul, ok := resource.Acquire[*resource.URLLoader](k.svc.reg, k.handle); ok {
		l := ul.Value()
		l.Err = err
		cb = l.Callback
		l.Callback = pluginruntime.CompletionCallback{}
		k.svc.reg.Unref(k.handle)
		l.MarkLoaded()
		ul.Release()
	}

	result := pluginruntime.OK
	if err != nil {
		result = pluginruntime.ErrorFailed
		k.svc.log.Debug("fetch failed",
			zap.Int32("handle", int32(k.handle)),
			zap.String("url", k.url),
			zap.Error(err))
	}
	k.svc.loop.CallOnMainThread(0, cb, result)
}
