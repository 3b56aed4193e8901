// Package server owns the TCP data plane: it binds the listener, spawns one
// goroutine per accepted connection, and drives each request through the
// scan/resolve/fetch/stream pipeline built from wire, resolver, cache and
// fanout. The protocol is one request per connection with the socket closed
// after the response. A separate Fiber app under /-/ exposes read-only
// diagnostics (health, cache usage, resolver table) on its own port; it never
// serves resources, so keep its handlers free of data-plane mutations and
// accept explicit dependencies.
package server
