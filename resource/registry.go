package resource

import (
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Registry maps handles to reference-counted resources. It is safe for
// concurrent use.
//
// Lock order is object payload lock, then table lock. The table lock is never
// held while waiting on a payload lock.
type Registry struct {
	slots     []Object // slots[0] is the invalid sentinel
	leases    map[Handle]*leaseState
	log       *zap.Logger
	observers []Observer
	mu        sync.Mutex
	obsMu     sync.RWMutex
	live      int
	closed    bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger. Defaults to Logger().
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithObserver subscribes o before the first allocation.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observers = append(r.observers, o) }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		slots:  make([]Object, 1, 64),
		leases: make(map[Handle]*leaseState),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = Logger()
	}
	return r
}

// lookup returns the live object for h. Caller holds r.mu.
func (r *Registry) lookup(h Handle) Object {
	if h < 1 || int(h) >= len(r.slots) {
		return nil
	}
	obj := r.slots[h]
	if obj == nil || obj.hdr().dead {
		return nil
	}
	return obj
}

// Allocate creates a zero-valued resource of the given kind with one
// reference and returns its handle. Handles are never reused. After Close it
// returns InvalidHandle.
func (r *Registry) Allocate(typ Type) Handle {
	obj := newObject(typ)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return InvalidHandle
	}
	h := Handle(len(r.slots))
	r.slots = append(r.slots, obj)
	r.live++
	r.mu.Unlock()

	r.log.Debug("allocate", zap.Int32("handle", int32(h)), zap.Stringer("type", typ))
	r.notify(Event{Type: EventCreated, Handle: h, Kind: typ})
	return h
}

// GetType returns the kind of h, or TypeUnknown if h is not live.
func (r *Registry) GetType(h Handle) Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.lookup(h)
	if obj == nil {
		return TypeUnknown
	}
	return obj.Type()
}

// Ref adds a reference to h. Invalid handles are ignored.
func (r *Registry) Ref(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if obj := r.lookup(h); obj != nil {
		obj.hdr().refs++
	}
}

// Unref drops a reference to h. Invalid handles are ignored.
//
// The 1 to 0 transition is decided under the table lock: the object is
// marked dead so no new lease can reach it, and a URL response info gives up
// its parent handle. Teardown, expunge and the parent cascade then run with
// the table lock released. If a lease is outstanding, teardown is left to
// the last Release.
func (r *Registry) Unref(h Handle) {
	r.mu.Lock()
	obj := r.lookup(h)
	if obj == nil {
		r.mu.Unlock()
		r.log.Debug("unref of invalid handle", zap.Int32("handle", int32(h)))
		return
	}
	hd := obj.hdr()
	hd.refs--
	if hd.refs > 0 {
		r.mu.Unlock()
		return
	}
	hd.dead = true
	parent := parentOf(obj)
	now := r.claimTeardown(hd)
	r.mu.Unlock()

	if now {
		r.destroy(obj)
	}
	r.Expunge(h)
	if parent != InvalidHandle {
		r.Unref(parent)
	}
}

// Expunge removes h from the table. It is idempotent; calling it on an
// out-of-range or already cleared handle does nothing. It does not cascade
// to a parent.
func (r *Registry) Expunge(h Handle) {
	r.mu.Lock()
	if h < 1 || int(h) >= len(r.slots) || r.slots[h] == nil {
		r.mu.Unlock()
		return
	}
	obj := r.slots[h]
	r.slots[h] = nil
	r.live--
	hd := obj.hdr()
	hd.dead = true
	now := r.claimTeardown(hd)
	r.mu.Unlock()

	if now {
		r.destroy(obj)
	}
	r.log.Debug("expunge", zap.Int32("handle", int32(h)), zap.Stringer("type", obj.Type()))
	r.notify(Event{Type: EventDestroyed, Handle: h, Kind: obj.Type()})
}

// claimTeardown reports whether the caller must run teardown now. It is
// true at most once per object, and only when no lease is outstanding.
// Caller holds r.mu.
func (r *Registry) claimTeardown(hd *header) bool {
	if !hd.dead || hd.torn || hd.holders > 0 {
		return false
	}
	hd.torn = true
	return true
}

// destroy runs teardown under the payload lock. Only called after
// claimTeardown succeeded with no holders, so the lock is uncontended.
func (r *Registry) destroy(obj Object) {
	hd := obj.hdr()
	hd.mu.Lock()
	teardown(obj, r.log)
	hd.mu.Unlock()
}

// Link records parent as the owner of child and takes a reference on
// parent. The reference is dropped when child is destroyed. child must be a
// live URL response info without a parent.
func (r *Registry) Link(child, parent Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.lookup(child)
	p := r.lookup(parent)
	if c == nil || p == nil || child == parent {
		return false
	}
	ri, ok := c.(*URLResponseInfo)
	if !ok || ri.parent != InvalidHandle {
		return false
	}
	p.hdr().refs++
	ri.parent = parent
	return true
}

// Parent returns the handle child keeps alive, or InvalidHandle.
func (r *Registry) Parent(child Handle) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if obj := r.lookup(child); obj != nil {
		return obj.hdr().parent
	}
	return InvalidHandle
}

// RefCount returns the reference count of a live handle.
func (r *Registry) RefCount(h Handle) (int32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if obj := r.lookup(h); obj != nil {
		return obj.hdr().refs, true
	}
	return 0, false
}

// Len returns the number of resources in the table.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// Snapshot returns the live resources in handle order.
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]Entry, 0, r.live)
	for i, obj := range r.slots {
		if obj == nil || obj.hdr().dead {
			continue
		}
		hd := obj.hdr()
		entries = append(entries, Entry{
			Handle: Handle(i),
			Type:   hd.typ,
			Refs:   hd.refs,
			Parent: hd.parent,
		})
	}
	return entries
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer. o must be comparable, so an ObserverFunc
// cannot be removed.
func (r *Registry) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = slices.Delete(slices.Clone(r.observers), i, i+1)
			return
		}
	}
}

// notify calls observers outside obsMu, so an observer may subscribe or
// unsubscribe. The observer slice is copy-on-write.
func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	observers := r.observers
	r.obsMu.RUnlock()
	for _, o := range observers {
		o.OnResourceEvent(e)
	}
}

// Close tears down every resource regardless of reference counts and stops
// further allocation. Resources still leased are torn down by their last
// Release.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true

	type doomed struct {
		obj Object
		h   Handle
		now bool
	}
	var all []doomed
	for i, obj := range r.slots {
		if obj == nil {
			continue
		}
		hd := obj.hdr()
		hd.dead = true
		hd.parent = InvalidHandle
		all = append(all, doomed{obj: obj, h: Handle(i), now: r.claimTeardown(hd)})
		r.slots[i] = nil
	}
	r.live = 0
	r.mu.Unlock()

	for _, d := range all {
		if d.now {
			r.destroy(d.obj)
		}
		r.notify(Event{Type: EventDestroyed, Handle: d.h, Kind: d.obj.Type()})
	}
	r.log.Debug("registry closed", zap.Int("destroyed", len(all)))
	return nil
}
