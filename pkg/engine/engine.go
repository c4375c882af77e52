package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"

	"github.com/driftwatch/driftwatch/pkg/image"
	"github.com/driftwatch/driftwatch/pkg/types"
)

// errListContainersFailed indicates the runtime collaborator could not list
// containers.
var errListContainersFailed = errors.New("failed to list containers")

// DigestResolver resolves the remote manifest digest for a parsed image
// reference. It is satisfied by *registry.Client.
type DigestResolver interface {
	GetRemoteDigest(ctx context.Context, ref image.Reference, authToken string) (string, error)
}

// Config carries the engine's filtering and authentication settings.
type Config struct {
	// Filter decides which containers are checked; nil means all.
	Filter types.Filter
	// AuthToken is an optional bearer token attached to GHCR manifest
	// requests.
	AuthToken string
}

// Engine computes per-container update status and deduplicates
// notifications. It owns the notification history for its lifetime; the
// history is mutated only by CheckForNewUpdates.
type Engine struct {
	client   types.RuntimeClient
	resolver DigestResolver
	cfg      Config

	mu      sync.Mutex
	history map[types.ContainerID]string
}

// New creates an update-detection engine. All collaborators are injected;
// the engine holds no process-wide state.
func New(client types.RuntimeClient, resolver DigestResolver, cfg Config) *Engine {
	if cfg.Filter == nil {
		cfg.Filter = func(string) bool { return true }
	}

	return &Engine{
		client:   client,
		resolver: resolver,
		cfg:      cfg,
		history:  make(map[types.ContainerID]string),
	}
}

// CheckForUpdates lists the container fleet and returns a record for every
// container whose remote digest differs from its local one. A failure for a
// single container is logged and excludes that container from the results;
// it never aborts the batch.
func (e *Engine) CheckForUpdates(ctx context.Context) ([]types.UpdateRecord, error) {
	containers, err := e.client.ListContainers(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errListContainersFailed, err)
	}

	logrus.WithField("count", len(containers)).Debug("Checking containers for updates")

	var updates []types.UpdateRecord

	for _, c := range containers {
		record, ok := e.checkContainer(ctx, c)
		if !ok {
			continue
		}

		if record.HasUpdate {
			updates = append(updates, record)
		}
	}

	logrus.WithField("updates", len(updates)).Debug("Completed update check")

	return updates, nil
}

// checkContainer resolves update status for one container. The second
// return value is false when the container is filtered out, skipped, or its
// check failed.
func (e *Engine) checkContainer(
	ctx context.Context,
	c types.ContainerSnapshot,
) (types.UpdateRecord, bool) {
	name := c.DisplayName()
	fields := logrus.Fields{
		"container": name,
		"image":     c.ImageRef,
	}

	if !e.cfg.Filter(name) {
		return types.UpdateRecord{}, false
	}

	// A container created straight from a content digest has no tag to
	// compare; skip before parsing.
	if isDigestReference(c.ImageRef) {
		logrus.WithFields(fields).Debug("Image reference is a bare digest, skipping")

		return types.UpdateRecord{}, false
	}

	ref, err := image.Parse(c.ImageRef)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Warn("Failed to parse image reference")

		return types.UpdateRecord{}, false
	}

	// Digest-pinned references never move; there is nothing to compare.
	if ref.Digest != "" {
		logrus.WithFields(fields).Debug("Image reference is digest-pinned, skipping")

		return types.UpdateRecord{}, false
	}

	localDigest, err := e.client.LocalImageDigest(ctx, c.LocalImageID)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Warn("Failed to resolve local image digest")

		return types.UpdateRecord{}, false
	}

	remoteDigest, err := e.resolver.GetRemoteDigest(ctx, ref, e.cfg.AuthToken)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Warn("Failed to resolve remote digest")

		return types.UpdateRecord{}, false
	}

	hasUpdate := localDigest != remoteDigest

	logrus.WithFields(fields).WithFields(logrus.Fields{
		"local_digest":  localDigest,
		"remote_digest": remoteDigest,
		"has_update":    hasUpdate,
	}).Debug("Compared digests")

	return types.UpdateRecord{
		ContainerID:   c.ID,
		ContainerName: name,
		Image:         c.ImageRef,
		LocalDigest:   localDigest,
		RemoteDigest:  remoteDigest,
		HasUpdate:     hasUpdate,
	}, true
}

// CheckForNewUpdates runs CheckForUpdates and suppresses records whose
// remote digest was already surfaced for the same container. Newly surfaced
// digests are recorded; the history is only updated after a successful
// comparison, so a failed check can never corrupt dedup state.
func (e *Engine) CheckForNewUpdates(ctx context.Context) ([]types.UpdateRecord, error) {
	records, err := e.CheckForUpdates(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var fresh []types.UpdateRecord

	for _, record := range records {
		if last, seen := e.history[record.ContainerID]; seen && last == record.RemoteDigest {
			logrus.WithFields(logrus.Fields{
				"container": record.ContainerName,
				"digest":    record.RemoteDigest,
			}).Debug("Update already notified, suppressing")

			continue
		}

		e.history[record.ContainerID] = record.RemoteDigest
		fresh = append(fresh, record)
	}

	return fresh, nil
}

// ClearNotificationHistory empties the dedup history, causing every pending
// update to be reported again on the next check.
func (e *Engine) ClearNotificationHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = make(map[types.ContainerID]string)

	logrus.Debug("Cleared notification history")
}

// NotificationHistory returns a snapshot of the last digest surfaced per
// container.
func (e *Engine) NotificationHistory() map[types.ContainerID]string {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := make(map[types.ContainerID]string, len(e.history))
	for id, d := range e.history {
		snapshot[id] = d
	}

	return snapshot
}

// isDigestReference reports whether a raw image reference is itself a
// content digest, as is the case for containers created from an image id.
func isDigestReference(ref string) bool {
	if _, err := digest.Parse(ref); err == nil {
		return true
	}

	// Truncated ids still carry the algorithm prefix without a repository.
	return strings.HasPrefix(ref, "sha256:") && !strings.Contains(ref, "/")
}
