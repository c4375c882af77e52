// Package updates implements the HTTP handlers for triggering update checks
// and reading their results.
package updates

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/driftwatch/driftwatch/pkg/scheduler"
	"github.com/driftwatch/driftwatch/pkg/types"
)

// CheckFunc triggers an update check and returns the newly-detected updates.
type CheckFunc func() ([]types.UpdateRecord, error)

// Handler serves the update-check endpoints.
type Handler struct {
	CheckPath   string
	UpdatesPath string
	HistoryPath string

	check        CheckFunc
	latest       func() []types.UpdateRecord
	clearHistory func()
}

// New creates the updates handler. The check function runs a check through
// the scheduler's concurrency guard; latest returns the most recent results
// without triggering a new check; clearHistory empties the notification
// dedup history.
func New(check CheckFunc, latest func() []types.UpdateRecord, clearHistory func()) *Handler {
	return &Handler{
		CheckPath:    "/v1/check",
		UpdatesPath:  "/v1/updates",
		HistoryPath:  "/v1/history",
		check:        check,
		latest:       latest,
		clearHistory: clearHistory,
	}
}

// HandleCheck triggers a check and responds with the new updates. A check
// already in flight yields HTTP 429 rather than queuing a redundant scan.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)

		return
	}

	logrus.WithField("path", r.URL.Path).Info("Received HTTP API check request")

	records, err := h.check()
	if err != nil {
		if errors.Is(err, scheduler.ErrJobAlreadyRunning) {
			http.Error(w, "Check already in progress", http.StatusTooManyRequests)

			return
		}

		logrus.WithError(err).Error("HTTP-triggered check failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	writeJSON(w, records)
}

// HandleUpdates responds with the results of the most recent check.
func (h *Handler) HandleUpdates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)

		return
	}

	writeJSON(w, h.latest())
}

// HandleClearHistory empties the notification dedup history, causing
// pending updates to be reported again on the next check.
func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)

		return
	}

	h.clearHistory()

	logrus.Info("Cleared notification history via HTTP API")
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON encodes records, normalizing nil to an empty array.
func writeJSON(w http.ResponseWriter, records []types.UpdateRecord) {
	if records == nil {
		records = []types.UpdateRecord{}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(records); err != nil {
		logrus.WithError(err).Debug("Failed to encode update records")
	}
}
