package types

// UpdateRecord is the result of comparing one container's local image digest
// against the digest its origin registry currently serves for the same tag.
// It is produced per check and never persisted.
type UpdateRecord struct {
	ContainerID   ContainerID `json:"container_id"`
	ContainerName string      `json:"container_name"`
	Image         string      `json:"image"`
	LocalDigest   string      `json:"local_digest"`
	RemoteDigest  string      `json:"remote_digest"`
	HasUpdate     bool        `json:"has_update"`
}
