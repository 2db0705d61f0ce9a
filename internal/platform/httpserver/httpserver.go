package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for this service. Individual
// handlers apply their own per-request timeouts via middleware, so the
// server-level write timeout stays generous.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
