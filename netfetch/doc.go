// Package netfetch provides the HTTP network collaborator for URL loaders.
//
// HTTPFetcher satisfies loader.Fetcher. Each fetch runs on its own goroutine
// so the control loop is never blocked, waits on a per-host token bucket when
// rate limiting is enabled, and streams the response into the loader's sink.
package netfetch
