// Package flags manages command-line flags and environment variables for
// driftwatch configuration.
package flags

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// defaultPollInterval is the default time between update checks.
const defaultPollInterval = time.Hour

// Errors for flag handling.
var (
	// errInvalidLogFormat indicates an invalid log format was specified.
	errInvalidLogFormat = errors.New("invalid log format specified")
	// errInvalidLogLevel indicates an invalid log level was specified.
	errInvalidLogLevel = errors.New("invalid log level specified")
	// errGetFlagFailed indicates a failure to read a flag's value.
	errGetFlagFailed = errors.New("failed to get flag value")
	// errReadSecretFailed indicates a failure to read a secret file.
	errReadSecretFailed = errors.New("failed to read secret file")
)

// RegisterDockerFlags adds flags used directly by the Docker API client.
func RegisterDockerFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringP("host", "H", envString("DOCKER_HOST"), "daemon socket to connect to")
	flags.BoolP("tlsverify", "v", envBool("DOCKER_TLS_VERIFY"), "use TLS and verify the remote")
	flags.StringP(
		"api-version",
		"a",
		envString("DOCKER_API_VERSION"),
		"api version to use by docker client",
	)
}

// RegisterSystemFlags adds flags that modify driftwatch's program flow.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.DurationP(
		"interval",
		"i",
		envDuration("DRIFTWATCH_POLL_INTERVAL"),
		"Poll interval between update checks")

	flags.StringP(
		"schedule",
		"s",
		envString("DRIFTWATCH_SCHEDULE"),
		"Cron expression triggering additional checks")

	flags.StringSliceP(
		"containers",
		"c",
		envStringSlice("DRIFTWATCH_CONTAINERS"),
		`Container names to check; "all" or empty checks everything`)

	flags.StringSliceP(
		"exclude-containers",
		"x",
		envStringSlice("DRIFTWATCH_EXCLUDE_CONTAINERS"),
		"Container names to exclude from checks")

	flags.BoolP(
		"run-once",
		"R",
		envBool("DRIFTWATCH_RUN_ONCE"),
		"Run a single check and exit")

	flags.BoolP(
		"run-on-start",
		"",
		envBool("DRIFTWATCH_RUN_ON_START"),
		"Trigger the first check immediately instead of waiting one interval")

	flags.StringP(
		"registry-auth-token",
		"",
		envString("DRIFTWATCH_REGISTRY_AUTH_TOKEN"),
		"Bearer token attached to GHCR manifest requests")

	flags.BoolP(
		"registry-auth-from-config",
		"",
		envBool("DRIFTWATCH_REGISTRY_AUTH_FROM_CONFIG"),
		"Resolve the GHCR token from the Docker config file or REPO_USER/REPO_PASS")

	flags.StringSliceP(
		"notification-url",
		"n",
		envStringSlice("DRIFTWATCH_NOTIFICATION_URL"),
		"Shoutrrr service URLs notified about new updates")

	flags.BoolP(
		"no-startup-message",
		"",
		envBool("DRIFTWATCH_NO_STARTUP_MESSAGE"),
		"Do not log the startup summary")

	flags.StringP(
		"log-level",
		"l",
		viper.GetString("DRIFTWATCH_LOG_LEVEL"),
		"Log verbosity: trace, debug, info, warn, error, fatal or panic")

	flags.StringP(
		"log-format",
		"f",
		viper.GetString("DRIFTWATCH_LOG_FORMAT"),
		"Log format: auto, logfmt, json or pretty")

	flags.BoolP(
		"debug",
		"d",
		envBool("DRIFTWATCH_DEBUG"),
		"Enable debug log level, overriding log-level")
}

// RegisterAPIFlags adds flags configuring the HTTP API.
func RegisterAPIFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.BoolP(
		"http-api",
		"",
		envBool("DRIFTWATCH_HTTP_API"),
		"Enable the HTTP API")

	flags.StringP(
		"http-api-addr",
		"",
		envString("DRIFTWATCH_HTTP_API_ADDR"),
		"Listen address for the HTTP API")

	flags.StringP(
		"http-api-token",
		"",
		envString("DRIFTWATCH_HTTP_API_TOKEN"),
		"Bearer token required by HTTP API requests")

	flags.BoolP(
		"http-api-metrics",
		"",
		envBool("DRIFTWATCH_HTTP_API_METRICS"),
		"Expose prometheus metrics on the HTTP API")
}

// envString reads a string flag default from the environment through viper.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envStringSlice reads a string-slice flag default from the environment.
func envStringSlice(key string) []string {
	viper.MustBindEnv(key)

	return viper.GetStringSlice(key)
}

// envBool reads a boolean flag default from the environment.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// envDuration reads a duration flag default from the environment.
func envDuration(key string) time.Duration {
	viper.MustBindEnv(key)

	return viper.GetDuration(key)
}

// PollInterval resolves the effective poll interval, falling back to the
// default when the flag is unset.
func PollInterval(flags *pflag.FlagSet) (time.Duration, error) {
	interval, err := flags.GetDuration("interval")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	if interval <= 0 {
		interval = defaultPollInterval
	}

	return interval, nil
}

// GetSecretsFromFiles checks each secret-bearing flag for a __FILE variant
// pointing at a file containing the actual value.
func GetSecretsFromFiles(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()

	for _, secret := range []string{
		"registry-auth-token",
		"http-api-token",
		"notification-url",
	} {
		if err := getSecretFromFile(flags, secret, afero.NewOsFs()); err != nil {
			return err
		}
	}

	return nil
}

// getSecretFromFile replaces a flag value of the form "/run/secrets/x" read
// from disk when the value names an existing file.
func getSecretFromFile(flags *pflag.FlagSet, secret string, fs afero.Fs) error {
	flag := flags.Lookup(secret)
	if flag == nil {
		return nil
	}

	value := flag.Value.String()
	if value == "" || !strings.HasPrefix(value, "/") {
		return nil
	}

	if exists, _ := afero.Exists(fs, value); !exists {
		return nil
	}

	content, err := afero.ReadFile(fs, value)
	if err != nil {
		return fmt.Errorf("%w %q: %w", errReadSecretFailed, value, err)
	}

	if err := flags.Set(secret, strings.TrimSpace(string(content))); err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	logrus.WithField("flag", secret).Debug("Loaded secret from file")

	return nil
}

// SetupLogging configures logrus from the log-level, log-format, and debug
// flags.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	switch strings.ToLower(logFormat) {
	case "auto", "":
		// logrus default: pretty when attached to a TTY, logfmt otherwise.
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: false})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	if rawLogLevel == "" {
		rawLogLevel = "info"
	}

	if debug, _ := flags.GetBool("debug"); debug {
		rawLogLevel = "debug"
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}
