// Package service contains the application use cases. It orchestrates domain
// objects, the unit of work from internal/store, the task list cache and the
// event publisher to fulfill the task API.
//
// Every operation opens its own store.UnitOfWork; nothing is shared between
// requests. Errors are translated into the sentinels declared in errors.go so
// the API layer can map them without knowing about storage.
package service
