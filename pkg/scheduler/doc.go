// Package scheduler runs named actions on a fixed interval with per-job
// overlap protection and coordinated shutdown. A job's invocations are
// strictly serialized by an in-flight guard: a tick firing while a prior
// invocation is still running is skipped, never queued. Distinct jobs run
// independently of each other.
package scheduler
