package loader

import (
	"context"
	"net/http"
)

// Request is what a Fetcher is asked to retrieve.
type Request struct {
	Header          http.Header
	URL             string
	Method          string
	Body            []byte
	FollowRedirects bool
}

// ResponseHeader carries response metadata to a loader.
type ResponseHeader struct {
	Header        http.Header
	StatusLine    string
	RedirectURL   string
	StatusCode    int
	ContentLength int64 // -1 when unknown
}

// Sink receives a fetch result for one loader. Header is optional and must
// precede Write. Finish must be called exactly once; later calls are ignored.
type Sink interface {
	Header(ResponseHeader)
	Write(p []byte) (int, error)
	Finish(err error)
}

// Fetcher is the network collaborator. Fetch is called on the control loop
// and must not block it: long work belongs on another goroutine, reporting
// through sink.
type Fetcher interface {
	Fetch(ctx context.Context, req Request, sink Sink)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req Request, sink Sink)

// Fetch calls f(ctx, req, sink).
func (f FetcherFunc) Fetch(ctx context.Context, req Request, sink Sink) { f(ctx, req, sink) }
