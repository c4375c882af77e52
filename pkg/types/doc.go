// Package types defines the shared data types and collaborator interfaces used
// across driftwatch. It contains the container snapshot and update record
// values exchanged between the runtime client, the update-detection engine,
// and the outer HTTP/notification surfaces, keeping the packages free of
// circular dependencies.
package types
