package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-intel/internal/layers"
	"github.com/joeblew999/plat-intel/internal/logging"
)

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServerRoutes(t *testing.T) {
	s, err := New(Config{Host: "localhost", Port: "0", Logger: &logging.Nop})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, http.StatusOK, get(t, s, "/health").Code)

	rec := get(t, s, "/viewer")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="`+ContainerID+`"`)

	assert.Equal(t, http.StatusFound, get(t, s, "/").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/nope").Code)

	rec = get(t, s, "/api/v1/tables")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "snapshots")
	assert.Contains(t, rec.Body.String(), "prefs")

	spec := s.OpenAPI()
	require.NotNil(t, spec)
	assert.Contains(t, spec.Paths, "/api/v1/map/data/earthquakes")
	assert.Contains(t, spec.Paths, "/api/v1/viewer/stream")
}

func TestServerPollsFeedsIntoArchive(t *testing.T) {
	quakes := []map[string]any{
		{"id": "q1", "lat": 35.6, "lon": 139.7, "magnitude": 6.1, "time": time.Now().Add(-time.Hour)},
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(quakes)
	}))
	t.Cleanup(upstream.Close)

	file := filepath.Join(t.TempDir(), "feeds.yaml")
	require.NoError(t, os.WriteFile(file, []byte(fmt.Sprintf(`
feeds:
  - kind: earthquakes
    url: %s/quakes
    schedule: "@every 1h"
`, upstream.URL)), 0o644))

	s, err := New(Config{FeedsFile: file, Logger: &logging.Nop})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.StartFeeds(context.Background()))

	require.Eventually(t, func() bool {
		for _, l := range s.Engine().LayerSnapshot() {
			if l.ID == layers.Earthquakes {
				return l.DataCount == 1
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		counts, err := s.services.Archive.Counts(context.Background())
		return err == nil && counts["earthquakes"] == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServerRejectsBadFeedsFile(t *testing.T) {
	_, err := New(Config{FeedsFile: filepath.Join(t.TempDir(), "missing.yaml"), Logger: &logging.Nop})
	assert.Error(t, err)
}
