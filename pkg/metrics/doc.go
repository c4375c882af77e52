// Package metrics exposes prometheus metrics describing driftwatch's update
// checks: updates detected by the last check, the time it completed, and
// totals for completed and failed checks.
package metrics
