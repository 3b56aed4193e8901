// Package cache keeps whole files in memory behind a single RWMutex so the
// data plane can serve hot resources without touching the filesystem. The
// cache enforces an aggregate byte ceiling: files that fit are admitted and
// held until explicitly removed, files that do not fit degrade to streaming
// straight from the opened file handle while the request still succeeds.
// Nothing expires on its own; invalidation arrives from the filesystem
// watcher. Admission and the file read happen inside one exclusive section,
// which keeps the byte accounting exact at the cost of serializing concurrent
// misses.
package cache
