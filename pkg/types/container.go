package types

import "strings"

// ContainerSnapshot is a read-only view of a container as reported by the
// runtime collaborator. ImageRef is the raw reference string the container
// was created from; LocalImageID is the content id of the image currently
// backing the container.
type ContainerSnapshot struct {
	ID           ContainerID `json:"id"`
	Name         string      `json:"name"`
	ImageRef     string      `json:"image_ref"`
	LocalImageID ImageID     `json:"local_image_id"`
}

// DisplayName returns the container name without the leading slash the
// docker API prepends.
func (c ContainerSnapshot) DisplayName() string {
	return strings.TrimPrefix(c.Name, "/")
}

// ImageID is a hash string for a container image.
type ImageID string

// ContainerID is a hash string for a container instance.
type ContainerID string

// ShortID returns the 12-character short version of an image ID.
func (id ImageID) ShortID() string {
	return shortID(string(id))
}

// ShortID returns the 12-character short version of a container ID.
func (id ContainerID) ShortID() string {
	return shortID(string(id))
}

// shortID shortens a hash string to 12 characters, adjusting for an
// algorithm prefix such as "sha256:".
func shortID(longID string) string {
	prefixSep := strings.IndexRune(longID, ':')
	offset := 0
	length := 12

	if prefixSep >= 0 {
		if longID[0:prefixSep] == "sha256" {
			offset = prefixSep + 1
		} else {
			length += prefixSep + 1
		}
	}

	if len(longID) >= offset+length {
		return longID[offset : offset+length]
	}

	return longID
}
