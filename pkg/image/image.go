package image

import (
	"errors"
	"fmt"
	"strings"
)

// Well-known registry hosts.
const (
	// DefaultRegistryDomain is the alias commonly used for Docker Hub in
	// image references.
	DefaultRegistryDomain = "docker.io"
	// DefaultRegistryHost is the canonical Docker Hub registry host that
	// aliased and registry-less references are normalized to.
	DefaultRegistryHost = "index.docker.io"
	// GHCRHost is the GitHub Container Registry host.
	GHCRHost = "ghcr.io"
)

// DefaultTag is assumed when a reference carries no tag.
const DefaultTag = "latest"

// officialRepoPrefix is the namespace Docker Hub stores official images
// under; single-segment repositories are rewritten to it.
const officialRepoPrefix = "library/"

// ErrInvalidReference indicates an image reference string that cannot be
// parsed.
var ErrInvalidReference = errors.New("invalid image reference")

// Reference is the structured form of an image reference. It is created
// fresh on every Parse call and never mutated. When Digest is non-empty it
// is the authoritative addressing mode; Tag is still populated but must be
// ignored for remote lookups.
type Reference struct {
	Registry   string // Registry host, possibly with port.
	Repository string // Repository path without leading or trailing slash.
	Tag        string // Tag, defaulted to "latest".
	Digest     string // Content digest, empty when the reference is tag-addressed.
}

// Parse normalizes an image reference string into a Reference.
//
// The reference is consumed left to right: a digest suffix after "@" wins
// over any tag, the last ":" is a tag delimiter only when no "/" follows it
// (distinguishing a registry:port prefix from a name:tag suffix), and the
// first path segment is an explicit registry only when it contains a ".",
// a ":", or equals "localhost". Registry-less and "docker.io"-aliased
// references are canonicalized to the default registry host, with
// single-segment repositories rewritten under the official-image namespace.
func Parse(ref string) (Reference, error) {
	if ref == "" {
		return Reference{}, fmt.Errorf("%w: empty reference", ErrInvalidReference)
	}

	rest := ref

	var dig string
	if i := strings.Index(rest, "@"); i >= 0 {
		dig = rest[i+1:]
		rest = rest[:i]
	}

	tag := DefaultTag

	if dig == "" {
		if i := strings.LastIndex(rest, ":"); i >= 0 && !strings.Contains(rest[i+1:], "/") {
			tag = rest[i+1:]
			rest = rest[:i]
		}
	}

	var registry string
	if i := strings.Index(rest, "/"); i >= 0 {
		prefix := rest[:i]
		if strings.Contains(prefix, ".") || strings.Contains(prefix, ":") ||
			prefix == "localhost" {
			registry = prefix
			rest = rest[i+1:]
		}
	}

	if registry == "" || registry == DefaultRegistryDomain {
		registry = DefaultRegistryHost

		if !strings.Contains(rest, "/") {
			rest = officialRepoPrefix + rest
		}
	}

	if rest == "" {
		return Reference{}, fmt.Errorf("%w: missing repository in %q", ErrInvalidReference, ref)
	}

	return Reference{
		Registry:   registry,
		Repository: rest,
		Tag:        tag,
		Digest:     dig,
	}, nil
}

// String reconstructs the canonical reference string. The digest form wins
// over the tag form.
func (r Reference) String() string {
	if r.Digest != "" {
		return fmt.Sprintf("%s/%s@%s", r.Registry, r.Repository, r.Digest)
	}

	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

// RegistryURL returns the HTTPS base URL for a reference's registry. The
// default registry maps to its well-known endpoint, an already-schemed
// registry value passes through unchanged, and anything else is prefixed
// with "https://".
func RegistryURL(ref Reference) string {
	switch {
	case ref.Registry == DefaultRegistryHost:
		return "https://" + DefaultRegistryHost
	case strings.HasPrefix(ref.Registry, "http://"),
		strings.HasPrefix(ref.Registry, "https://"):
		return ref.Registry
	default:
		return "https://" + ref.Registry
	}
}

// IsDockerHub reports whether the reference addresses Docker Hub.
func IsDockerHub(ref Reference) bool {
	return ref.Registry == DefaultRegistryHost
}

// IsGHCR reports whether the reference addresses the GitHub Container
// Registry.
func IsGHCR(ref Reference) bool {
	return ref.Registry == GHCRHost
}
