package types

// Filter decides whether a container, identified by its display name, is
// subject to update checks.
type Filter func(name string) bool
