// Package api provides the HTTP API server for driftwatch. Handlers are
// registered onto a private mux and protected by bearer-token
// authentication; the server shuts down gracefully when its context is
// cancelled.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// readHeaderTimeout is the timeout for reading request headers.
const readHeaderTimeout = 10 * time.Second

// shutdownTimeout is the timeout for graceful server shutdown.
const shutdownTimeout = 5 * time.Second

// API is the HTTP API server.
type API struct {
	token       string
	addr        string
	hasHandlers bool
	mux         *http.ServeMux
	server      HTTPServer // optional injected server for testing
}

// HTTPServer is the subset of *http.Server the API drives, extracted for
// test injection.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// New creates an API instance. The optional server parameter allows
// dependency injection for testing.
func New(token, addr string, server ...HTTPServer) *API {
	var injected HTTPServer
	if len(server) > 0 {
		injected = server[0]
	}

	return &API{
		token:  token,
		addr:   addr,
		mux:    http.NewServeMux(),
		server: injected,
	}
}

// RegisterFunc registers an HTTP handler function for the given path,
// wrapped with token authentication.
func (a *API) RegisterFunc(path string, handler http.HandlerFunc) {
	a.mux.HandleFunc(path, a.RequireToken(handler))
	a.hasHandlers = true
}

// RegisterHandler registers an HTTP handler for the given path, wrapped
// with token authentication.
func (a *API) RegisterHandler(path string, handler http.Handler) {
	a.mux.Handle(path, a.RequireToken(handler.ServeHTTP))
	a.hasHandlers = true
}

// RequireToken wraps a handler function with bearer-token authentication.
func (a *API) RequireToken(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") ||
			strings.TrimPrefix(auth, "Bearer ") != a.token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)

			return
		}

		handler(w, r)
	}
}

// Start runs the server until the context is cancelled. It is a no-op when
// no handlers are registered, and fails fast on an empty token so the API
// is never exposed unauthenticated.
func (a *API) Start(ctx context.Context) error {
	if !a.hasHandlers {
		logrus.Info("No API handlers registered, skipping HTTP server start")

		return nil
	}

	if a.token == "" {
		return errors.New("API token is empty or unset")
	}

	server := a.server
	if server == nil {
		server = &http.Server{
			Addr:              a.addr,
			Handler:           a.mux,
			ReadHeaderTimeout: readHeaderTimeout,
			BaseContext:       func(_ net.Listener) context.Context { return ctx },
		}
	}

	logrus.WithField("addr", a.addr).Info("Starting HTTP API server")

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("HTTP server failed")
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("Failed to shutdown HTTP server")
		}
	}()

	return nil
}

// Handler exposes the authenticated mux, primarily for tests.
func (a *API) Handler() http.Handler {
	return a.mux
}
