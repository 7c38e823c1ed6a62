package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fastprodman/gamemarket/internal/config"
	"github.com/fastprodman/gamemarket/internal/infra/logging"
)

func TestNewServer_UsesConfig(t *testing.T) {
	t.Parallel()

	cfg := config.HTTPConfig{
		Port:              9099,
		ReadTimeout:       time.Second,
		WriteTimeout:      2 * time.Second,
		IdleTimeout:       3 * time.Second,
		ReadHeaderTimeout: 4 * time.Second,
	}

	srv := NewServer(cfg, http.NotFoundHandler(), logging.Discard())

	require.Equal(t, ":9099", srv.Addr)
	require.Equal(t, time.Second, srv.ReadTimeout)
	require.Equal(t, 2*time.Second, srv.WriteTimeout)
	require.Equal(t, 3*time.Second, srv.IdleTimeout)
	require.Equal(t, 4*time.Second, srv.ReadHeaderTimeout)
	require.NotNil(t, srv.ErrorLog)
}
