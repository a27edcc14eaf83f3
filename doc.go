// Package pluginruntime provides the host side of a plugin runtime built around
// a handle-based resource registry.
//
// Plugins never hold Go pointers. Every object they create (URL loaders,
// request and response infos, image buffers, graphics surfaces, views) lives
// in a registry slot and is addressed by a small integer handle.
//
// # Architecture Overview
//
//	pluginruntime/       Result codes and completion callbacks
//	├── resource/        Handle table, ref counting, leases, parent cascade
//	├── errors/          Structured error types
//	├── mainloop/        Control thread for callbacks and fetch dispatch
//	├── bytestore/       Anonymous self-deleting byte buffers
//	├── loader/          URL loader, request info and response info resources
//	├── netfetch/        HTTP collaborator feeding loaders
//	├── graphics/        Image data, 2D graphics and view resources
//	├── hostabi/         wazero host module exposing the plugin interface
//	└── config/          TOML configuration
//
// # Quick Start
//
//	reg := resource.New()
//	defer reg.Close()
//
//	loop := mainloop.New()
//	loop.Start()
//	defer loop.Stop()
//
//	svc := loader.New(reg, loop, netfetch.New())
//	ul := svc.Create()
//	req := svc.CreateRequestInfo()
//	svc.SetProperty(req, loader.PropertyURL, "http://example.test/a")
//
//	// No callback: Open blocks until the body is fully downloaded.
//	if err := svc.Open(ctx, ul, req, pluginruntime.CompletionCallback{}); err != nil {
//	    log.Fatal(err)
//	}
//
//	buf := make([]byte, 4096)
//	n, _ := svc.ReadResponseBody(ul, buf)
//
// # Thread Safety
//
// The registry, the loop and every service are safe for concurrent use.
// Payload fields of a resource may only be touched while holding a lease on
// its handle.
package pluginruntime
