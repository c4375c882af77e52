// Package jobs implements the HTTP handler exposing scheduler job statuses.
package jobs

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/driftwatch/driftwatch/pkg/types"
)

// StatusSource supplies point-in-time job snapshots.
type StatusSource interface {
	AllJobStatuses() []types.JobStatus
}

// Handler serves scheduler job statuses.
type Handler struct {
	Path   string
	source StatusSource
}

// New creates the jobs handler backed by the given scheduler.
func New(source StatusSource) *Handler {
	return &Handler{
		Path:   "/v1/jobs",
		source: source,
	}
}

// Handle responds with a snapshot of every registered job.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)

		return
	}

	statuses := h.source.AllJobStatuses()
	if statuses == nil {
		statuses = []types.JobStatus{}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(statuses); err != nil {
		logrus.WithError(err).Debug("Failed to encode job statuses")
	}
}
