// Package engine implements update detection for a container fleet. It
// compares the digest recorded against each container's local image with the
// digest its origin registry currently serves for the same tag, applying the
// configured inclusion/exclusion policy and deduplicating notifications so
// that a given remote digest is surfaced at most once per container.
package engine
