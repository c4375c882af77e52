package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/driftwatch/driftwatch/pkg/types"
)

// hubTokenURLFormat is Docker Hub's anonymous token endpoint, scoped to pull
// access on a single repository.
const hubTokenURLFormat = "https://auth.docker.io/token?service=registry.docker.io&scope=repository:%s:pull"

// hubToken fetches an anonymous bearer token for pulling the given Docker
// Hub repository.
func (c *Client) hubToken(ctx context.Context, repository string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := fmt.Sprintf(hubTokenURLFormat, repository)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %q", resp.Status)
	}

	var token types.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	if token.Token == "" {
		return "", fmt.Errorf("token endpoint returned empty token")
	}

	logrus.WithField("repository", repository).Debug("Fetched anonymous pull token")

	return token.Token, nil
}
