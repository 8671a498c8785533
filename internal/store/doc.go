// Package store defines the data-access contracts of the task manager and the
// backend-independent pieces that implement them.
//
// A UnitOfWork is created once per request. Its repositories stage Add,
// Update and Remove operations in memory, answer reads from the merged view of
// committed rows plus staged changes, and write nothing until SaveChanges
// flushes every staged operation through a single Backend transaction.
//
// Backends (see internal/platform/sqlstore and internal/platform/memstore)
// supply committed reads through Source and transactional writes through
// Writer, with optimistic concurrency enforced by a per-row version.
package store
