// Package resolver maps request paths to physical resource paths from a
// plain-text table. A value is either a single literal path or a weighted
// list (path'weight,path'weight); weighted entries are sampled on every
// Resolve call in proportion to their weights. Tables are immutable after
// Parse, so lookups need no locking. Any syntax problem aborts the parse
// with the offending line number; a weighted line whose weights sum to zero
// is rejected at load time instead of failing on first lookup.
package resolver
