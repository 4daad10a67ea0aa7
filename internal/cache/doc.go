// Package cache provides the bounded LRU cache for kernel-matrix rows.
//
// # Layout
//
// RowCache keeps a fixed array of slots. Recency is a doubly linked list
// threaded through the slots by int32 index, and a dense key->slot table
// replaces a hash map because keys are sample indices in [0, n).
//
//	slots:  [ s0 | s1 | s2 | ... ]      each slot owns one row buffer
//	head -> s2 <-> s0 <-> s1 <- tail    MRU ... LRU
//	free:   [ s3, s4, ... ]             buffers not yet holding a row
//
// A miss takes a buffer from the free pool or evicts the tail and reuses its
// buffer. Rows are filled lazily: a row may hold values for a prefix of the
// working positions only and is extended on demand.
//
// # Memory
//
// Row buffers are reserved against a resource.Controller before they are
// allocated. The cache fails with ErrAllocation only when not even one row
// can be reserved.
package cache
