// Package memstore is an in-process implementation of the store contracts.
// It backs the "memory" database driver and most unit tests. Committed state
// lives in maps guarded by a RWMutex; a batch works on a private copy that
// replaces the committed maps only when the batch commits.
package memstore
