// Package image parses container image reference strings into a structured,
// immutable form. A reference names a registry host, a repository path, and
// either a tag or a content digest; the parser normalizes Docker Hub's
// shorthand forms (missing registry, official-image repositories without a
// namespace) into their canonical equivalents.
package image
