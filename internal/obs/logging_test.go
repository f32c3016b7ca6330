package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerAddsServiceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "warn", "showroom-api")

	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "kept", line["message"])
	require.Equal(t, "showroom-api", line["service"])
}

func TestRequestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(RequestLogger{Logger: logger}.Middleware)
	r.Get("/api/v1/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Catalog-Generation", "3")
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/s-1", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "warn", line["level"])
	require.Equal(t, "/api/v1/sessions/{id}", line["route"])
	require.Equal(t, "s-1", line["session_id"])
	require.Equal(t, "3", line["catalog_generation"])
	require.Equal(t, "203.0.113.9", line["client_ip"])
	require.EqualValues(t, 404, line["status"])
}

func TestLevelForStatus(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, levelForStatus(http.StatusOK))
	require.Equal(t, zerolog.WarnLevel, levelForStatus(http.StatusTooManyRequests))
	require.Equal(t, zerolog.ErrorLevel, levelForStatus(http.StatusBadGateway))
}
