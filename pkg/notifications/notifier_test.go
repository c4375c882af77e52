package notifications

import (
	"errors"
	"testing"
	"text/template"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/driftwatch/pkg/notifications/templates"
	"github.com/driftwatch/driftwatch/pkg/types"
)

// mockRouter records sent messages.
type mockRouter struct {
	messages []string
	params   []*shoutrrrTypes.Params
	errs     []error
}

func (m *mockRouter) Send(message string, params *shoutrrrTypes.Params) []error {
	m.messages = append(m.messages, message)
	m.params = append(m.params, params)

	return m.errs
}

func newTestNotifier(t *testing.T, router router) *notifier {
	t.Helper()

	tpl, err := template.New("updates").Funcs(templates.Funcs).Parse(defaultTemplate)
	require.NoError(t, err)

	params := &shoutrrrTypes.Params{}
	params.SetTitle("driftwatch")

	return &notifier{
		router:   router,
		template: tpl,
		params:   params,
	}
}

func TestSendUpdatesRendersBatch(t *testing.T) {
	router := &mockRouter{}
	n := newTestNotifier(t, router)

	err := n.SendUpdates([]types.UpdateRecord{
		{
			ContainerName: "web",
			Image:         "nginx:1.25",
			RemoteDigest:  "sha256:d68e1e532088964195ad3a0a71526bc2f11a78de0def85629beb75e2265f0547",
			HasUpdate:     true,
		},
		{
			ContainerName: "cache",
			Image:         "redis:7",
			RemoteDigest:  "sha256:1b8a6a81957d58f82af9b10ff0c7689b159d0d4ee82138d1470e4f064a85e4b7",
			HasUpdate:     true,
		},
	})
	require.NoError(t, err)

	require.Len(t, router.messages, 1, "a batch sends exactly one message")
	assert.Contains(t, router.messages[0], "web: update available for nginx:1.25 (d68e1e532088)")
	assert.Contains(t, router.messages[0], "cache: update available for redis:7 (1b8a6a81957d)")
}

func TestSendUpdatesEmptyBatchSendsNothing(t *testing.T) {
	router := &mockRouter{}
	n := newTestNotifier(t, router)

	require.NoError(t, n.SendUpdates(nil))
	assert.Empty(t, router.messages)
}

func TestSendUpdatesPropagatesSendFailure(t *testing.T) {
	router := &mockRouter{errs: []error{errors.New("service rejected message")}}
	n := newTestNotifier(t, router)

	err := n.SendUpdates([]types.UpdateRecord{
		{ContainerName: "web", Image: "nginx:1.25", HasUpdate: true},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errSendFailed)
}

func TestNewNotifierWithoutURLsDropsEverything(t *testing.T) {
	n, err := NewNotifier(nil, "driftwatch")
	require.NoError(t, err)

	assert.NoError(t, n.SendUpdates([]types.UpdateRecord{
		{ContainerName: "web", Image: "nginx:1.25", HasUpdate: true},
	}))
}
