package flags

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{}
	RegisterDockerFlags(cmd)
	RegisterSystemFlags(cmd)
	RegisterAPIFlags(cmd)

	return cmd
}

func TestPollIntervalDefault(t *testing.T) {
	cmd := newTestCommand()

	interval, err := PollInterval(cmd.PersistentFlags())
	require.NoError(t, err)
	assert.Equal(t, time.Hour, interval)
}

func TestPollIntervalExplicit(t *testing.T) {
	cmd := newTestCommand()
	require.NoError(t, cmd.PersistentFlags().Set("interval", "15m"))

	interval, err := PollInterval(cmd.PersistentFlags())
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, interval)
}

func TestGetSecretFromFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(
		fs, "/run/secrets/api-token", []byte("token-from-file\n"), 0o600))

	cmd := newTestCommand()
	require.NoError(t, cmd.PersistentFlags().Set("http-api-token", "/run/secrets/api-token"))

	require.NoError(t, getSecretFromFile(cmd.PersistentFlags(), "http-api-token", fs))

	value, err := cmd.PersistentFlags().GetString("http-api-token")
	require.NoError(t, err)
	assert.Equal(t, "token-from-file", value)
}

func TestGetSecretFromFileKeepsLiteralValues(t *testing.T) {
	fs := afero.NewMemMapFs()

	cmd := newTestCommand()
	require.NoError(t, cmd.PersistentFlags().Set("http-api-token", "literal-token"))

	require.NoError(t, getSecretFromFile(cmd.PersistentFlags(), "http-api-token", fs))

	value, err := cmd.PersistentFlags().GetString("http-api-token")
	require.NoError(t, err)
	assert.Equal(t, "literal-token", value)
}

func TestGetSecretFromFileMissingPathIsNoOp(t *testing.T) {
	fs := afero.NewMemMapFs()

	cmd := newTestCommand()
	require.NoError(t, cmd.PersistentFlags().Set("http-api-token", "/run/secrets/absent"))

	require.NoError(t, getSecretFromFile(cmd.PersistentFlags(), "http-api-token", fs))

	value, err := cmd.PersistentFlags().GetString("http-api-token")
	require.NoError(t, err)
	assert.Equal(t, "/run/secrets/absent", value)
}

func TestSetupLoggingFormats(t *testing.T) {
	for _, format := range []string{"auto", "logfmt", "json", "pretty", ""} {
		cmd := newTestCommand()
		require.NoError(t, cmd.PersistentFlags().Set("log-format", format))

		assert.NoError(t, SetupLogging(cmd.PersistentFlags()), "format %q", format)
	}
}

func TestSetupLoggingInvalidFormat(t *testing.T) {
	cmd := newTestCommand()
	require.NoError(t, cmd.PersistentFlags().Set("log-format", "xml"))

	err := SetupLogging(cmd.PersistentFlags())
	assert.ErrorIs(t, err, errInvalidLogFormat)
}

func TestSetupLoggingInvalidLevel(t *testing.T) {
	cmd := newTestCommand()
	require.NoError(t, cmd.PersistentFlags().Set("log-level", "verbose"))

	err := SetupLogging(cmd.PersistentFlags())
	assert.ErrorIs(t, err, errInvalidLogLevel)
}
