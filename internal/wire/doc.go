// Package wire implements the minimal request/response framing spoken on the
// raw TCP data plane. ReadHeader locates the end-of-header delimiter without
// consuming anything past it, so body bytes stay buffered for the caller;
// ParseRequest turns the head into method/path/headers, and Head renders the
// fixed two-form response head. The package deliberately stays below
// net/http: the protocol is one request per connection and the response is
// written as a plain byte stream.
package wire
