package catalog_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-showroom/internal/catalog"
	"github.com/noah-isme/backend-showroom/internal/resilience"
)

type snapshotResponse struct {
	Data catalog.Snapshot `json:"data"`
}

type servicesResponse struct {
	Data []catalog.RegistrationService `json:"data"`
}

func TestCatalogHandlers(t *testing.T) {
	fetcher := &fakeFetcher{snap: sampleSnapshot(1_000_000_000)}
	fetcher.snap.RegistrationServices = []catalog.RegistrationService{{Label: "Đăng ký tại nhà"}}
	clk := &clock{now: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)}
	svc := newCatalogService(t, fetcher, nil, clk)
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: svc})

	var generation int64
	t.Run("snapshot", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Snapshot(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp snapshotResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data.Versions, 1)
		generation = resp.Data.Generation
		require.Equal(t, strconv.FormatInt(generation, 10), rec.Header().Get("X-Catalog-Generation"))
	})

	t.Run("refresh", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/refresh", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data struct {
				Generation int64 `json:"generation"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Greater(t, resp.Data.Generation, generation)
	})

	t.Run("registration services", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.RegistrationServices(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/registration-services?q=nh%C3%A0", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp servicesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
	})
}

func TestCatalogHandlersErrors(t *testing.T) {
	clk := &clock{now: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)}
	fetcher := &fakeFetcher{err: errors.New("db down")}
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Fetcher: fetcher,
		Policy:  resilience.Policy{MaxAttempts: 1},
		Now:     clk.Now,
	})
	require.NoError(t, err)
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: svc})

	rec := httptest.NewRecorder()
	handler.Snapshot(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "CATALOG_UNAVAILABLE")

	missing := catalog.NewHandler(catalog.HandlerConfig{})
	rec = httptest.NewRecorder()
	missing.Refresh(rec, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/refresh", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
