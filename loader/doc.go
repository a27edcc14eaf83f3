// Package loader implements URL loader, URL request info and URL response
// info resources on top of the resource registry.
//
// A loader streams one URL into an anonymous byte store. The fetch itself is
// performed by a Fetcher collaborator, dispatched on the control loop, which
// reports back through a Sink bound to the loader handle.
//
//	svc := loader.New(reg, loop, fetcher, loader.WithDocumentURL(doc))
//	ul := svc.Create()
//	req := svc.CreateRequestInfo()
//	svc.SetProperty(req, loader.PropertyURL, "/a")
//
//	// Blocking: returns once the body is fully stored.
//	err := svc.Open(ctx, ul, req, pluginruntime.CompletionCallback{})
//
//	// Asynchronous: the callback runs on the loop when the fetch completes.
//	err = svc.Open(ctx, ul, req, pluginruntime.CompletionCallback{Func: onDone})
//
// Response metadata is read through a response info derived from the
// loader. The response info keeps the loader alive until it is unreffed.
package loader
