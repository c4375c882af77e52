package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepoDigest(t *testing.T) {
	digest, ok := repoDigest([]string{
		"index.docker.io/library/nginx@sha256:d68e1e532088964195ad3a0a71526bc2f11a78de0def85629beb75e2265f0547",
	})

	assert.True(t, ok)
	assert.Equal(t,
		"sha256:d68e1e532088964195ad3a0a71526bc2f11a78de0def85629beb75e2265f0547",
		digest)
}

func TestRepoDigestSkipsMalformedEntries(t *testing.T) {
	digest, ok := repoDigest([]string{
		"NOT A REFERENCE",
		"ghcr.io/org/app@sha256:1b8a6a81957d58f82af9b10ff0c7689b159d0d4ee82138d1470e4f064a85e4b7",
	})

	assert.True(t, ok)
	assert.Equal(t,
		"sha256:1b8a6a81957d58f82af9b10ff0c7689b159d0d4ee82138d1470e4f064a85e4b7",
		digest)
}

func TestRepoDigestSkipsTaggedOnlyEntries(t *testing.T) {
	_, ok := repoDigest([]string{"index.docker.io/library/nginx:latest"})
	assert.False(t, ok)
}

func TestRepoDigestEmptyList(t *testing.T) {
	_, ok := repoDigest(nil)
	assert.False(t, ok)
}
