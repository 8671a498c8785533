// Package cache provides byte-oriented cache backends and the cache-aside
// read path used for listing a user's tasks.
//
// Entries expire at an absolute time fixed when they are written. Writes to
// tasks do not invalidate cached lists, so a list may be up to one TTL stale
// after a create, update or delete by the same owner.
package cache
