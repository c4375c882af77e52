// Package metrics exposes the prometheus scrape endpoint of the HTTP API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftwatch/driftwatch/pkg/metrics"
)

// Handler serves prometheus metrics.
type Handler struct {
	Path    string
	Handle  http.HandlerFunc
	Metrics *metrics.Metrics
}

// New creates the metrics handler bound to the default metrics registry.
func New() *Handler {
	return &Handler{
		Path:    "/v1/metrics",
		Handle:  promhttp.Handler().ServeHTTP,
		Metrics: metrics.Default(),
	}
}
