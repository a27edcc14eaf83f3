package resource

import (
	"sync"

	"go.uber.org/zap"

	pluginruntime "github.com/wippyai/plugin-runtime"
)

// header is the state every resource shares. Fields other than mu and typ
// are guarded by the registry's table lock.
type header struct {
	mu      sync.Mutex // payload lock, held for the lifetime of a Lease
	typ     Type
	refs    int32
	holders int32 // leases held or being waited for
	parent  Handle
	dead    bool // refs hit zero or slot expunged; no new leases
	torn    bool // teardown claimed
}

func (h *header) hdr() *header { return h }

// Type returns the resource kind tag.
func (h *header) Type() Type { return h.typ }

// Object is a resource payload stored in the registry. The set of
// implementations is closed: one struct per Type.
type Object interface {
	Type() Type
	hdr() *header
}

// URLLoader streams a single URL into an anonymous body store.
type URLLoader struct {
	header

	URL            string
	Method         string
	RequestHeaders string
	RequestBody    []byte

	// Response metadata, filled in by the network collaborator.
	Headers       string
	StatusCode    int32
	StatusLine    string
	RedirectURL   string
	ContentLength int64 // -1 when unknown

	Body     BodyStore
	ReadPos  int64
	Callback pluginruntime.CompletionCallback
	Err      error

	opened bool
	loaded bool
	done   chan struct{}
	woken  bool
}

// Opened reports whether an open was ever accepted. CloseBody keeps it set,
// so a loader serves exactly one fetch.
func (l *URLLoader) Opened() bool { return l.opened }

// MarkOpened records that a fetch was dispatched into l.
func (l *URLLoader) MarkOpened() { l.opened = true }

// Loaded reports whether the collaborator has finished the fetch.
func (l *URLLoader) Loaded() bool { return l.loaded }

// Done returns a channel closed once the fetch completes or the loader is
// torn down. Call it while holding a lease; wait on it after releasing.
func (l *URLLoader) Done() <-chan struct{} {
	if l.done == nil {
		l.done = make(chan struct{})
		if l.woken {
			close(l.done)
		}
	}
	return l.done
}

// MarkLoaded records fetch completion and wakes waiters.
func (l *URLLoader) MarkLoaded() {
	l.loaded = true
	l.wake()
}

func (l *URLLoader) wake() {
	if l.woken {
		return
	}
	l.woken = true
	if l.done != nil {
		close(l.done)
	}
}

// CloseBody releases the body store and response strings. It is what
// teardown runs and is also reachable through the loader's Close call.
func (l *URLLoader) CloseBody() error {
	var err error
	if l.Body != nil {
		err = l.Body.Close()
		l.Body = nil
	}
	l.Headers = ""
	l.URL = ""
	l.RequestBody = nil
	return err
}

// URLRequestInfo describes a request before it is handed to a loader.
type URLRequestInfo struct {
	header

	URL                    string
	Method                 string
	Headers                string
	Body                   []byte
	FollowRedirects        bool
	RecordDownloadProgress bool
	RecordUploadProgress   bool
}

// URLResponseInfo exposes response metadata of its parent loader. The
// parent link is kept in the registry, see Registry.Link.
type URLResponseInfo struct {
	header
}

// Rect is a plugin-space rectangle.
type Rect struct {
	X, Y          int32
	Width, Height int32
}

// View holds the geometry and visibility of a plugin instance.
type View struct {
	header

	Rect        Rect
	Clip        Rect
	Visible     bool
	PageVisible bool
	Fullscreen  bool
	DeviceScale float32
	CSSScale    float32
}

// Graphics3D is an accelerated drawing context.
type Graphics3D struct {
	header

	Width   int32
	Height  int32
	Attribs []int32
}

// ImageFormat is the pixel layout of image buffers.
type ImageFormat int32

const (
	FormatBGRAPremul ImageFormat = iota
	FormatRGBAPremul
)

// ImageData is a CPU-side pixel buffer.
type ImageData struct {
	header

	Format ImageFormat
	Width  int32
	Height int32
	Stride int32
	Data   []byte
}

// Graphics2D is a software drawing surface with its own backing buffer.
type Graphics2D struct {
	header

	Width  int32
	Height int32
	Stride int32
	Data   []byte
	Opaque bool
	Scale  float32
}

// NetworkMonitor delivers network list updates to the plugin.
type NetworkMonitor struct {
	header

	Callback pluginruntime.CompletionCallback
}

// Generic backs TypeUnknown and any tag outside the closed set.
type Generic struct {
	header
}

func newObject(typ Type) Object {
	var obj Object
	switch typ {
	case TypeURLLoader:
		obj = &URLLoader{}
	case TypeURLRequestInfo:
		obj = &URLRequestInfo{}
	case TypeURLResponseInfo:
		obj = &URLResponseInfo{}
	case TypeView:
		obj = &View{}
	case TypeGraphics3D:
		obj = &Graphics3D{}
	case TypeImageData:
		obj = &ImageData{}
	case TypeGraphics2D:
		obj = &Graphics2D{}
	case TypeNetworkMonitor:
		obj = &NetworkMonitor{}
	default:
		obj = &Generic{}
	}
	h := obj.hdr()
	h.typ = typ
	h.refs = 1
	return obj
}

// teardown frees what the object owns. Caller holds the object's payload lock.
func teardown(obj Object, log *zap.Logger) {
	switch o := obj.(type) {
	case *URLLoader:
		if err := o.CloseBody(); err != nil {
			log.Warn("close loader body", zap.Error(err))
		}
		o.wake()
	case *ImageData:
		o.Data = nil
	case *Graphics2D:
		o.Data = nil
	case *URLRequestInfo:
		o.Body = nil
	case *URLResponseInfo, *View, *Graphics3D, *NetworkMonitor, *Generic:
	}
}

// parentOf returns the handle a dying object keeps alive, if any.
// Caller holds the table lock.
func parentOf(obj Object) Handle {
	switch o := obj.(type) {
	case *URLResponseInfo:
		p := o.parent
		o.parent = InvalidHandle
		return p
	default:
		return InvalidHandle
	}
}
