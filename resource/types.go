package resource

import (
	"io"
	"strconv"
)

// Handle is an opaque reference to a registry slot.
// Handle 0 is reserved and always invalid.
type Handle int32

// InvalidHandle is the reserved "no resource" handle.
const InvalidHandle Handle = 0

// Type is the resource kind tag. It never changes after allocation.
type Type int32

const (
	TypeUnknown Type = iota
	TypeURLLoader
	TypeURLRequestInfo
	TypeURLResponseInfo
	TypeView
	TypeGraphics3D
	TypeImageData
	TypeGraphics2D
	TypeNetworkMonitor
)

var typeNames = [...]string{
	TypeUnknown:         "unknown",
	TypeURLLoader:       "url-loader",
	TypeURLRequestInfo:  "url-request-info",
	TypeURLResponseInfo: "url-response-info",
	TypeView:            "view",
	TypeGraphics3D:      "graphics3d",
	TypeImageData:       "image-data",
	TypeGraphics2D:      "graphics2d",
	TypeNetworkMonitor:  "network-monitor",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// EventType identifies a resource lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDestroyed
	EventAcquired
	EventReleased
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventDestroyed:
		return "destroyed"
	case EventAcquired:
		return "acquired"
	case EventReleased:
		return "released"
	}
	return "event(" + strconv.Itoa(int(e)) + ")"
}

// Event represents a resource lifecycle event.
type Event struct {
	Handle Handle
	Kind   Type
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
// Observers are called outside the table lock from whichever goroutine
// triggered the event, so they must be safe for concurrent use.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnResourceEvent calls f(e).
func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Entry is one row of a registry snapshot.
type Entry struct {
	Handle Handle
	Type   Type
	Refs   int32
	Parent Handle
}

// BodyStore is the byte buffer a URL loader streams response bodies into.
// It is owned by the loader and closed when the loader is torn down.
type BodyStore interface {
	io.ReaderAt
	io.Writer
	Size() int64
	Close() error
}
