// Package container implements the runtime-inspection collaborator on top of
// the Docker API. It lists the container fleet and resolves the digest
// recorded against a local image, preferring registry-qualified repo digests
// over the image's own content id. It never mutates container state.
package container
