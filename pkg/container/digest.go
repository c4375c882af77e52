package container

import (
	"github.com/distribution/reference"
	"github.com/sirupsen/logrus"
)

// repoDigest extracts the digest part of the first well-formed
// registry-qualified entry in an image's RepoDigests list. Entries look like
// "index.docker.io/library/nginx@sha256:abc..."; malformed ones are skipped.
func repoDigest(repoDigests []string) (string, bool) {
	for _, entry := range repoDigests {
		ref, err := reference.Parse(entry)
		if err != nil {
			logrus.WithError(err).
				WithField("repo_digest", entry).
				Debug("Skipping malformed repo digest")

			continue
		}

		canonical, ok := ref.(reference.Canonical)
		if !ok {
			continue
		}

		return canonical.Digest().String(), true
	}

	return "", false
}
