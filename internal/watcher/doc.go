// Package watcher observes the resource root and evicts cache entries when
// the files behind them are written, removed, or renamed. It never refreshes
// entries itself; the next request repopulates the cache from disk. fsnotify
// watches are per-directory, so the constructor registers the whole tree and
// the event loop adds directories created afterwards. Errors from the watch
// channel are returned to the caller, which treats them as fatal: a server
// that cannot see invalidations would silently serve stale bytes.
package watcher
