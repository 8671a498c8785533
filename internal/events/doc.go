// Package events publishes domain events produced by task writes.
//
// A TaskCreatedEvent is handed to a Publisher after the unit of work that created the
// task has committed. The Dispatcher makes publishing fire-and-forget: it queues events
// on a bounded buffer and a small worker pool forwards them to a sink (an asynq broker
// client or the in-process Emitter). Publish failures are logged and never reported to
// the caller that produced the event.
package events
