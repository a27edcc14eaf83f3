// Package resource provides the handle-based resource registry.
//
// Every object the plugin can name (URL loaders, request and response
// infos, views, image buffers, graphics contexts) is stored in a Registry
// slot and addressed by a positive integer Handle. Handle 0 is never valid.
//
// # Resource Lifecycle
//
//	h := reg.Allocate(resource.TypeImageData) // refs = 1
//	reg.Ref(h)                                // refs = 2
//	reg.Unref(h)                              // refs = 1
//	reg.Unref(h)                              // teardown, slot cleared
//
// Handles are never recycled: once a slot is cleared every lookup on it
// fails, so Unref and Release on a stale handle are safe no-ops.
//
// # Leases
//
// Payload fields are only touched inside an acquire/release scope:
//
//	lease, ok := resource.Acquire[*resource.ImageData](reg, h)
//	if !ok {
//	    return // not live, or not image data
//	}
//	defer lease.Release()
//	img := lease.Value()
//
// A lease holds the resource's own mutex, so two goroutines never see the
// same payload at once. Do not acquire a handle you already hold.
//
// # Parent Cascade
//
// A URL response info keeps its loader alive. Link takes a reference on the
// parent; when the child reaches zero the registry unrefs the parent exactly
// once, after the table lock is dropped.
//
// # Observers
//
//	reg.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s %d (%s)", e.Type, e.Handle, e.Kind)
//	}))
//
// Observers run on the goroutine that caused the event and must not
// acquire resources.
package resource
