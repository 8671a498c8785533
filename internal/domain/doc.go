// Package domain contains the core business entities of the task manager:
// TaskItem with its status enum and field rules, and User. It is independent
// of any storage or transport.
package domain
