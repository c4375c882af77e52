package registry

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	dockerCliConfig "github.com/docker/cli/cli/config"
	dockerConfigCredentials "github.com/docker/cli/cli/config/credentials"

	"github.com/driftwatch/driftwatch/pkg/types"
)

// Errors for credential lookup.
var (
	// errUnsetRegAuthVars indicates the REPO_USER and REPO_PASS environment
	// variables are not set.
	errUnsetRegAuthVars = errors.New(
		"registry auth environment variables (REPO_USER, REPO_PASS) not set",
	)
	// errFailedLoadDockerConfig indicates a failure to load the Docker
	// configuration file.
	errFailedLoadDockerConfig = errors.New("failed to load Docker config")
	// errNoCredentials indicates no stored credentials exist for a registry.
	errNoCredentials = errors.New("no credentials found for registry")
)

// Credentials resolves stored credentials for a registry host, checking the
// REPO_USER/REPO_PASS environment variables first and falling back to the
// Docker config file. The password field doubles as the bearer token for
// registries that accept personal access tokens.
func Credentials(registryHost string) (types.RegistryCredentials, error) {
	fields := logrus.Fields{"registry": registryHost}

	creds, err := envCredentials()
	if err == nil {
		logrus.WithFields(fields).Debug("Loaded credentials from environment")

		return creds, nil
	}

	logrus.WithError(err).
		WithFields(fields).
		Debug("Environment auth not available, trying config file")

	return configCredentials(registryHost)
}

// envCredentials reads credentials from the REPO_USER and REPO_PASS
// environment variables.
func envCredentials() (types.RegistryCredentials, error) {
	username := os.Getenv("REPO_USER")
	password := os.Getenv("REPO_PASS")

	if username == "" || password == "" {
		return types.RegistryCredentials{}, errUnsetRegAuthVars
	}

	return types.RegistryCredentials{Username: username, Password: password}, nil
}

// configCredentials reads credentials for a registry host from the Docker
// config file. DOCKER_CONFIG overrides the config directory.
func configCredentials(registryHost string) (types.RegistryCredentials, error) {
	configDir := os.Getenv("DOCKER_CONFIG")
	if configDir == "" {
		configDir = dockerCliConfig.Dir()
	}

	configFile, err := dockerCliConfig.Load(configDir)
	if err != nil {
		return types.RegistryCredentials{}, fmt.Errorf(
			"%w: %w", errFailedLoadDockerConfig, err,
		)
	}

	credStore := dockerConfigCredentials.DetectDefaultStore(configFile.CredentialsStore)
	if credStore != "" {
		configFile.CredentialsStore = credStore
	}

	authConfig, err := configFile.GetAuthConfig(registryHost)
	if err != nil {
		return types.RegistryCredentials{}, fmt.Errorf(
			"%w %q: %w", errNoCredentials, registryHost, err,
		)
	}

	if authConfig.Username == "" && authConfig.Password == "" {
		return types.RegistryCredentials{}, fmt.Errorf(
			"%w %q", errNoCredentials, registryHost,
		)
	}

	logrus.WithFields(logrus.Fields{
		"registry": registryHost,
		"username": authConfig.Username,
	}).Debug("Loaded credentials from Docker config")

	return types.RegistryCredentials{
		Username: authConfig.Username,
		Password: authConfig.Password,
	}, nil
}
