package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortDigest(t *testing.T) {
	assert.Equal(t, "d68e1e532088",
		ShortDigest("sha256:d68e1e532088964195ad3a0a71526bc2f11a78de0def85629beb75e2265f0547"))
	assert.Equal(t, "0a1b2c", ShortDigest("sha256:0a1b2c"))
	assert.Equal(t, "0123456789ab", ShortDigest("0123456789abcdef"))
}

func TestToJSON(t *testing.T) {
	assert.JSONEq(t, `{"name":"web"}`, toJSON(map[string]string{"name": "web"}))
}
