// Package notifications delivers job events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// executors can publish unconditionally. Failures are always sent; completion
// events are sent only when notifications.notify_completions is enabled.
package notifications
