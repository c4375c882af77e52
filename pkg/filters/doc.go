// Package filters builds the container-selection policy applied during
// update checks. Exclusion always wins; an explicit include list (anything
// other than "all") restricts checks to the named containers.
package filters
