package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/sirupsen/logrus"

	"github.com/driftwatch/driftwatch/pkg/image"
)

// ContentDigestHeader is the response header carrying the manifest digest.
const ContentDigestHeader = "Docker-Content-Digest"

// requestTimeout bounds every network call made by the client. Exceeding it
// aborts the call and surfaces as a failure rather than hanging.
const requestTimeout = 30 * time.Second

// Docker manifest media types predating the OCI spec; registries still serve
// them for most images.
const (
	mediaTypeManifestListV2 = "application/vnd.docker.distribution.manifest.list.v2+json"
	mediaTypeManifestV2     = "application/vnd.docker.distribution.manifest.v2+json"
)

// UserAgent identifies driftwatch in registry requests. It can be overridden
// at build time with linker flags.
var UserAgent = "Driftwatch/unknown"

// Errors for digest resolution.
var (
	// ErrAuthRequired indicates the registry demands a credential that was
	// not supplied.
	ErrAuthRequired = errors.New("registry authentication required")
	// ErrRegistryFetch indicates a token fetch failure, a non-success
	// manifest response, or a missing digest header.
	ErrRegistryFetch = errors.New("registry fetch failed")
)

// acceptHeader lists the manifest content types we accept, in preference
// order: manifest list, OCI image index, manifest v2, OCI manifest.
var acceptHeader = strings.Join([]string{
	mediaTypeManifestListV2,
	ocispec.MediaTypeImageIndex,
	mediaTypeManifestV2,
	ocispec.MediaTypeImageManifest,
}, ", ")

// Client resolves remote manifest digests. The zero value is not usable;
// construct it with NewClient.
type Client struct {
	httpClient *http.Client
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// HTTPClient overrides the HTTP client used for registry and token
	// requests, primarily for tests. When nil a client with the default
	// request timeout is used.
	HTTPClient *http.Client
}

// NewClient creates a digest resolution client.
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{httpClient: httpClient}
}

// GetRemoteDigest resolves the digest the reference's registry currently
// serves for its tag. The authToken is attached as a bearer credential only
// on the GHCR flow; Docker Hub uses an anonymous token exchange and generic
// registries are queried without authentication.
func (c *Client) GetRemoteDigest(
	ctx context.Context,
	ref image.Reference,
	authToken string,
) (string, error) {
	fields := logrus.Fields{
		"registry":   ref.Registry,
		"repository": ref.Repository,
		"tag":        ref.Tag,
	}

	switch {
	case image.IsDockerHub(ref):
		logrus.WithFields(fields).Debug("Resolving digest via Docker Hub flow")

		token, err := c.hubToken(ctx, ref.Repository)
		if err != nil {
			return "", fmt.Errorf(
				"%w: token exchange for %s/%s:%s: %w",
				ErrRegistryFetch, ref.Registry, ref.Repository, ref.Tag, err,
			)
		}

		digest, _, err := c.fetchDigest(ctx, manifestURL(ref), "Bearer "+token)
		if err != nil {
			return "", wrapFetchErr(ref, err)
		}

		return digest, nil

	case image.IsGHCR(ref):
		logrus.WithFields(fields).Debug("Resolving digest via GHCR flow")

		header := ""
		if authToken != "" {
			header = "Bearer " + authToken
		}

		digest, status, err := c.fetchDigest(ctx, manifestURL(ref), header)
		if err != nil {
			if authToken == "" &&
				(status == http.StatusUnauthorized || status == http.StatusForbidden) {
				return "", fmt.Errorf(
					"%w: %s:%s requires a GHCR token",
					ErrAuthRequired, ref.Repository, ref.Tag,
				)
			}

			return "", wrapFetchErr(ref, err)
		}

		return digest, nil

	default:
		logrus.WithFields(fields).Debug("Resolving digest via generic registry flow")

		digest, _, err := c.fetchDigest(ctx, manifestURL(ref), "")
		if err != nil {
			return "", wrapFetchErr(ref, err)
		}

		return digest, nil
	}
}

// GetDigest requests the manifest at url and extracts the digest from the
// response header. The authHeader is sent verbatim as the Authorization
// header when non-empty. It is exported for callers that already know the
// manifest URL, such as tests.
func (c *Client) GetDigest(ctx context.Context, url, authHeader string) (string, error) {
	digest, _, err := c.fetchDigest(ctx, url, authHeader)

	return digest, err
}

// fetchDigest performs the manifest request and reads the digest header.
// The returned status is zero when the request never produced a response.
func (c *Client) fetchDigest(
	ctx context.Context,
	url, authHeader string,
) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", resp.StatusCode, fmt.Errorf("unexpected status %q", resp.Status)
	}

	digest := resp.Header.Get(ContentDigestHeader)
	if digest == "" {
		logrus.WithFields(logrus.Fields{
			"url":    url,
			"status": resp.Status,
		}).Debug("Registry response missing digest header")

		return "", resp.StatusCode, fmt.Errorf("missing %s header", ContentDigestHeader)
	}

	return digest, resp.StatusCode, nil
}

// manifestURL builds the Registry API v2 manifest endpoint for a reference.
func manifestURL(ref image.Reference) string {
	return fmt.Sprintf(
		"%s/v2/%s/manifests/%s",
		image.RegistryURL(ref), ref.Repository, ref.Tag,
	)
}

// wrapFetchErr attaches registry, repository, and tag context to a manifest
// fetch failure.
func wrapFetchErr(ref image.Reference, err error) error {
	return fmt.Errorf(
		"%w: %s/%s:%s: %w",
		ErrRegistryFetch, ref.Registry, ref.Repository, ref.Tag, err,
	)
}
