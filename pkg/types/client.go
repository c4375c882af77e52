package types

import "context"

// RuntimeClient is the container-runtime inspection interface consumed by the
// update-detection engine. It abstracts the Docker API so that the engine can
// be exercised in tests without a daemon.
type RuntimeClient interface {
	// ListContainers retrieves containers known to the runtime. When all is
	// true, stopped containers are included alongside running ones.
	ListContainers(ctx context.Context, all bool) ([]ContainerSnapshot, error)

	// LocalImageDigest resolves the digest recorded against a local image.
	// Implementations prefer a registry-qualified repo digest and fall back
	// to the image's own content id when none exists.
	LocalImageDigest(ctx context.Context, imageID ImageID) (string, error)
}
