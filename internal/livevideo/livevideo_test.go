package livevideo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starfederation/datastar-go/datastar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-intel/internal/errors"
	"github.com/joeblew999/plat-intel/internal/logging"
)

func upstream(t *testing.T, ids map[string]string, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"videoId": ids[r.URL.Query().Get("channel")]})
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newService(endpoint string, fallbacks map[string]string) *Service {
	log := logging.Nop
	return New(Config{Endpoint: endpoint, Fallbacks: fallbacks, Logger: &log})
}

func TestLookupLiveThenCached(t *testing.T) {
	srv, hits := upstream(t, map[string]string{"bloomberg": "abc123"}, http.StatusOK)
	s := newService(srv.URL, nil)

	st, err := s.Lookup(context.Background(), "bloomberg")
	require.NoError(t, err)
	assert.Equal(t, Status{Channel: "bloomberg", VideoID: "abc123", Live: true, Source: SourceLive}, st)

	st, err = s.Lookup(context.Background(), "bloomberg")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, st.Source)
	assert.Equal(t, "abc123", st.VideoID)
	assert.Equal(t, int32(1), hits.Load())

	s.Forget("bloomberg")
	_, err = s.Lookup(context.Background(), "bloomberg")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestLookupFallbackOnFailure(t *testing.T) {
	srv, hits := upstream(t, nil, http.StatusBadGateway)
	s := newService(srv.URL, map[string]string{"sky": "static-sky"})

	st, err := s.Lookup(context.Background(), "sky")
	require.NoError(t, err)
	assert.Equal(t, Status{Channel: "sky", VideoID: "static-sky", Source: SourceFallback}, st)

	// failures are not cached
	_, err = s.Lookup(context.Background(), "sky")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestLookupEmptyIDUsesFallbackOrOffline(t *testing.T) {
	srv, hits := upstream(t, map[string]string{}, http.StatusOK)
	s := newService(srv.URL, map[string]string{"dw": "static-dw"})

	st, err := s.Lookup(context.Background(), "dw")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, st.Source)
	assert.Equal(t, "static-dw", st.VideoID)

	st, err = s.Lookup(context.Background(), "unknown")
	require.NoError(t, err)
	assert.True(t, st.Offline)
	assert.False(t, st.Live)
	assert.Empty(t, st.VideoID)
	assert.Equal(t, SourceNone, st.Source)

	// an empty answer is cached like any other
	_, err = s.Lookup(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestLookupWithoutEndpoint(t *testing.T) {
	s := newService("", map[string]string{"france24": "f24"})

	st, err := s.Lookup(context.Background(), "france24")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, st.Source)

	_, err = s.Lookup(context.Background(), "  ")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestLookupUnreachableUpstream(t *testing.T) {
	log := logging.Nop
	s := New(Config{
		Endpoint: "http://127.0.0.1:1/live",
		Client:   &http.Client{Timeout: 200 * time.Millisecond},
		Logger:   &log,
	})
	st, err := s.Lookup(context.Background(), "aljazeera")
	require.NoError(t, err)
	assert.True(t, st.Offline)
}

type recordingSink struct{ scripts []string }

func (r *recordingSink) ExecuteScript(script string, _ ...datastar.ExecuteScriptOption) error {
	r.scripts = append(r.scripts, script)
	return nil
}

func TestScriptPlayer(t *testing.T) {
	sink := &recordingSink{}
	p, err := NewScriptPlayer(sink, "live-player")
	require.NoError(t, err)

	require.NoError(t, p.Play())
	require.NoError(t, p.Mute())
	require.NoError(t, p.LoadByID(`x"y`))
	require.NoError(t, p.CueByID("cue1"))
	assert.ErrorIs(t, p.LoadByID(""), errors.ErrInvalidInput)

	require.Len(t, sink.scripts, 4)
	assert.Equal(t, `window.intelPlayers?.["live-player"]?.playVideo();`, sink.scripts[0])
	assert.Equal(t, `window.intelPlayers?.["live-player"]?.mute();`, sink.scripts[1])
	assert.Equal(t, `window.intelPlayers?.["live-player"]?.loadVideoById("x\"y");`, sink.scripts[2])
	assert.Contains(t, sink.scripts[3], `cueVideoById("cue1")`)

	require.NoError(t, p.Destroy())
	require.NoError(t, p.Destroy())
	require.NoError(t, p.Pause())
	require.NoError(t, p.Unmute())
	assert.Len(t, sink.scripts, 5)
	assert.Contains(t, sink.scripts[4], "destroy()")
}

func TestNewScriptPlayerValidates(t *testing.T) {
	_, err := NewScriptPlayer(nil, "x")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	_, err = NewScriptPlayer(&recordingSink{}, "")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
