package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	cerrdefs "github.com/containerd/errdefs"
	dockerContainer "github.com/docker/docker/api/types/container"
	dockerClient "github.com/docker/docker/client"

	"github.com/driftwatch/driftwatch/pkg/types"
)

// Errors for runtime inspection.
var (
	// errListContainersFailed indicates the daemon could not list containers.
	errListContainersFailed = errors.New("failed to list containers")
	// ErrImageNotFound indicates the referenced image no longer exists
	// locally.
	ErrImageNotFound = errors.New("image not found")
	// errInspectImageFailed indicates the daemon could not inspect an image.
	errInspectImageFailed = errors.New("failed to inspect image")
)

// client implements types.RuntimeClient against the Docker API.
type client struct {
	api dockerClient.APIClient
}

// NewClient initializes a runtime client from the environment (DOCKER_HOST,
// DOCKER_API_VERSION, TLS settings), negotiating the API version with the
// daemon. It exits the process when the daemon is unreachable, matching the
// behavior expected at startup.
func NewClient() types.RuntimeClient {
	api, err := dockerClient.NewClientWithOpts(
		dockerClient.FromEnv,
		dockerClient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize Docker client")
	}

	logrus.WithField("client_version", api.ClientVersion()).
		Debug("Initialized Docker client")

	return &client{api: api}
}

// NewClientWithAPI wraps an existing Docker API client, primarily for tests.
func NewClientWithAPI(api dockerClient.APIClient) types.RuntimeClient {
	return &client{api: api}
}

// ListContainers retrieves containers known to the daemon. When all is true,
// stopped containers are included.
func (c *client) ListContainers(
	ctx context.Context,
	all bool,
) ([]types.ContainerSnapshot, error) {
	list, err := c.api.ContainerList(ctx, dockerContainer.ListOptions{All: all})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errListContainersFailed, err)
	}

	snapshots := make([]types.ContainerSnapshot, 0, len(list))

	for _, summary := range list {
		name := ""
		if len(summary.Names) > 0 {
			name = summary.Names[0]
		}

		snapshots = append(snapshots, types.ContainerSnapshot{
			ID:           types.ContainerID(summary.ID),
			Name:         name,
			ImageRef:     summary.Image,
			LocalImageID: types.ImageID(summary.ImageID),
		})
	}

	logrus.WithFields(logrus.Fields{
		"count": len(snapshots),
		"all":   all,
	}).Debug("Listed containers")

	return snapshots, nil
}

// LocalImageDigest resolves the digest recorded against a local image. A
// registry-qualified repo digest is preferred; the image's own content id is
// the fallback when the image was never pulled from or pushed to a registry.
func (c *client) LocalImageDigest(
	ctx context.Context,
	imageID types.ImageID,
) (string, error) {
	inspect, err := c.api.ImageInspect(ctx, string(imageID))
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s", ErrImageNotFound, imageID.ShortID())
		}

		return "", fmt.Errorf("%w: %w", errInspectImageFailed, err)
	}

	if d, ok := repoDigest(inspect.RepoDigests); ok {
		logrus.WithFields(logrus.Fields{
			"image_id": imageID.ShortID(),
			"digest":   d,
		}).Debug("Resolved local digest from repo digests")

		return d, nil
	}

	logrus.WithField("image_id", imageID.ShortID()).
		Debug("No repo digest recorded, falling back to image id")

	return inspect.ID, nil
}
