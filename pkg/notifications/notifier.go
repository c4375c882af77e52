// Package notifications delivers newly-detected update reports through
// Shoutrrr, batching all records of one check into a single templated
// message per configured service URL.
package notifications

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"

	"github.com/nicholas-fedor/shoutrrr"
	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/sirupsen/logrus"

	"github.com/driftwatch/driftwatch/pkg/notifications/templates"
	"github.com/driftwatch/driftwatch/pkg/types"
)

// defaultTemplate renders one line per newly-detected update.
const defaultTemplate = `{{- range . }}
{{ .ContainerName }}: update available for {{ .Image }} ({{ .RemoteDigest | ShortDigest }})
{{- end }}`

// errSendFailed indicates at least one notification service rejected the
// message.
var errSendFailed = errors.New("failed to send notification")

// router abstracts the Shoutrrr service router for tests.
type router interface {
	Send(message string, params *shoutrrrTypes.Params) []error
}

// notifier implements types.Notifier on top of Shoutrrr.
type notifier struct {
	router   router
	template *template.Template
	params   *shoutrrrTypes.Params
}

// NewNotifier creates a notifier sending to the given Shoutrrr service URLs.
// An empty URL list yields a notifier that drops everything, so callers do
// not need to special-case unconfigured notifications.
func NewNotifier(urls []string, title string) (types.Notifier, error) {
	if len(urls) == 0 {
		return &notifier{}, nil
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification sender: %w", err)
	}

	tpl, err := template.New("updates").Funcs(templates.Funcs).Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification template: %w", err)
	}

	params := &shoutrrrTypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}

	logrus.WithField("services", len(urls)).Debug("Initialized notifier")

	return &notifier{
		router:   sender,
		template: tpl,
		params:   params,
	}, nil
}

// SendUpdates renders and sends one message covering the batch. A nil or
// empty batch sends nothing.
func (n *notifier) SendUpdates(records []types.UpdateRecord) error {
	if n.router == nil || len(records) == 0 {
		return nil
	}

	var body bytes.Buffer
	if err := n.template.Execute(&body, records); err != nil {
		return fmt.Errorf("failed to render notification: %w", err)
	}

	sendErrors := n.router.Send(body.String(), n.params)
	for _, err := range sendErrors {
		if err != nil {
			logrus.WithError(err).Error("Failed to send notification")

			return fmt.Errorf("%w: %w", errSendFailed, err)
		}
	}

	logrus.WithField("updates", len(records)).Info("Sent update notification")

	return nil
}

// Close is a no-op; messages are sent synchronously.
func (n *notifier) Close() {}
