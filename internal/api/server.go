package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fastprodman/gamemarket/internal/config"
)

// NewServer creates the marketplace *http.Server. Server-level errors (TLS
// handshakes, panics outside handlers) go to log at Warn.
func NewServer(cfg config.HTTPConfig, handler http.Handler, log *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}
}
