package resource

import "go.uber.org/zap"

// leaseState tracks one outstanding acquisition. Guarded by the table lock.
type leaseState struct {
	obj      Object
	released bool
}

// Lease is a scoped, type-checked view of a resource. While a lease is held
// no other goroutine can lease the same handle, so payload fields may be
// read and written freely. Release must be called exactly once; extra calls
// are ignored.
//
//	lease, ok := resource.Acquire[*resource.URLLoader](reg, h)
//	if !ok {
//	    return errors.InvalidHandle(errors.PhaseRead, int32(h))
//	}
//	defer lease.Release()
type Lease[T Object] struct {
	reg    *Registry
	state  *leaseState
	value  T
	handle Handle
}

// Value returns the leased payload.
func (l *Lease[T]) Value() T { return l.value }

// Handle returns the leased handle.
func (l *Lease[T]) Handle() Handle { return l.handle }

// Release gives up the lease.
func (l *Lease[T]) Release() {
	l.reg.release(l.handle, l.state)
}

// AcquireAny leases h regardless of its kind. It blocks while another
// goroutine holds a lease on h and fails if h is not live.
func (r *Registry) AcquireAny(h Handle) (*Lease[Object], bool) {
	obj, st, ok := r.acquire(h)
	if !ok {
		return nil, false
	}
	return &Lease[Object]{reg: r, state: st, value: obj, handle: h}, true
}

// AcquireType leases h if it holds a resource of kind typ. On a kind
// mismatch the lease is released and ok is false.
func (r *Registry) AcquireType(h Handle, typ Type) (*Lease[Object], bool) {
	obj, st, ok := r.acquire(h)
	if !ok {
		return nil, false
	}
	if obj.Type() != typ {
		r.release(h, st)
		return nil, false
	}
	return &Lease[Object]{reg: r, state: st, value: obj, handle: h}, true
}

// Acquire leases h as the payload type T.
//
//	lease, ok := resource.Acquire[*resource.ImageData](reg, h)
func Acquire[T Object](r *Registry, h Handle) (*Lease[T], bool) {
	obj, st, ok := r.acquire(h)
	if !ok {
		return nil, false
	}
	v, ok := obj.(T)
	if !ok {
		r.release(h, st)
		return nil, false
	}
	return &Lease[T]{reg: r, state: st, value: v, handle: h}, true
}

// Release gives up the outstanding lease on h, whichever goroutine acquired
// it, and unlocks that lease's payload. The holder's Lease value is then
// spent: its Release is a no-op, and it must not touch the payload again.
// Prefer Lease.Release; this form serves callers that only kept the handle.
// It is a no-op for invalid, stale or unleased handles.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	st := r.leases[h]
	r.mu.Unlock()
	if st != nil {
		r.release(h, st)
	}
}

func (r *Registry) acquire(h Handle) (Object, *leaseState, bool) {
	r.mu.Lock()
	obj := r.lookup(h)
	if obj == nil {
		r.mu.Unlock()
		return nil, nil, false
	}
	hd := obj.hdr()
	hd.holders++
	r.mu.Unlock()

	hd.mu.Lock()

	r.mu.Lock()
	if hd.dead {
		// Destroyed while we waited for the payload lock.
		hd.holders--
		now := r.claimTeardown(hd)
		r.mu.Unlock()
		if now {
			teardown(obj, r.log)
		}
		hd.mu.Unlock()
		return nil, nil, false
	}
	st := &leaseState{obj: obj}
	r.leases[h] = st
	r.mu.Unlock()

	r.notify(Event{Type: EventAcquired, Handle: h, Kind: obj.Type()})
	return obj, st, true
}

func (r *Registry) release(h Handle, st *leaseState) {
	r.mu.Lock()
	if st.released {
		r.mu.Unlock()
		r.log.Debug("double release", zap.Int32("handle", int32(h)))
		return
	}
	st.released = true
	if r.leases[h] == st {
		delete(r.leases, h)
	}
	hd := st.obj.hdr()
	hd.holders--
	now := r.claimTeardown(hd)
	r.mu.Unlock()

	if now {
		teardown(st.obj, r.log)
	}
	hd.mu.Unlock()

	r.notify(Event{Type: EventReleased, Handle: h, Kind: st.obj.Type()})
}
