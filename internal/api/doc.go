// Package api holds the HTTP handlers for registration, login and the
// owner-scoped task endpoints. Handlers decode and validate requests, call
// into the service layer and translate its errors into status codes and
// client-safe messages.
package api
