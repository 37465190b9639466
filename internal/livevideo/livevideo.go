// Package livevideo resolves the current live stream id of a news channel.
//
// Ids come from an upstream lookup endpoint and are cached per channel. When
// the upstream fails or reports no stream, a static per-channel id is used;
// with neither the channel is offline.
package livevideo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-intel/internal/errors"
	"github.com/joeblew999/plat-intel/internal/expcache"
	"github.com/joeblew999/plat-intel/internal/logging"
)

const (
	// DefaultTTL is how long a looked-up id is reused.
	DefaultTTL = 5 * time.Minute
	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout = 10 * time.Second

	maxBody = 64 << 10
)

// Source names where a Status came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
	SourceNone     Source = "none"
)

// Status is the resolved stream of one channel.
type Status struct {
	Channel string `json:"channel" doc:"Channel name"`
	VideoID string `json:"videoId,omitempty" doc:"Video id to play"`
	Live    bool   `json:"live" doc:"Whether the id came from the live lookup"`
	Offline bool   `json:"offline" doc:"Whether no id is available at all"`
	Source  Source `json:"source" doc:"Where the id came from" enum:"live,cache,fallback,none"`
}

// Config configures a Service.
type Config struct {
	// Endpoint is queried as GET {Endpoint}?channel=<name>. Empty disables
	// the live lookup.
	Endpoint string
	TTL      time.Duration
	// Fallbacks maps channel names to static video ids.
	Fallbacks map[string]string
	Client    *http.Client
	Logger    *zerolog.Logger
}

// Service looks up live video ids.
type Service struct {
	cfg   Config
	log   *zerolog.Logger
	cache *expcache.Cache[string, string]
}

// New creates a Service.
func New(cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultTimeout}
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Component("livevideo")
	}
	return &Service{
		cfg:   cfg,
		log:   log,
		cache: expcache.New[string, string](cfg.TTL, 0),
	}
}

// Lookup resolves the stream of channel. Upstream failures are logged and
// answered from the fallback table; only an empty channel name is an error.
func (s *Service) Lookup(ctx context.Context, channel string) (Status, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return Status{}, errors.NewValidationError("channel", channel, "channel is required")
	}
	st := Status{Channel: channel}

	if s.cfg.Endpoint != "" {
		source := SourceLive
		id, cached := s.cache.Get(channel)
		if cached {
			source = SourceCache
		} else {
			var err error
			id, err = s.cache.GetOrLoad(ctx, channel, func(ctx context.Context) (string, error) {
				return s.fetch(ctx, channel)
			})
			if err != nil {
				s.log.Warn().Err(err).Str("channel", channel).Msg("live video lookup failed")
			}
		}
		if id != "" {
			st.VideoID, st.Live, st.Source = id, true, source
			return st, nil
		}
	}

	if id := s.cfg.Fallbacks[channel]; id != "" {
		st.VideoID, st.Source = id, SourceFallback
		return st, nil
	}
	st.Offline, st.Source = true, SourceNone
	return st, nil
}

// Forget drops the cached id of channel.
func (s *Service) Forget(channel string) {
	s.cache.Delete(channel)
}

func (s *Service) fetch(ctx context.Context, channel string) (string, error) {
	u, err := url.Parse(s.cfg.Endpoint)
	if err != nil {
		return "", errors.NewConfigError("livevideo", "invalid endpoint", err)
	}
	q := u.Query()
	q.Set("channel", channel)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.WrapResource("create", "request", u.String(), err)
	}
	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return "", errors.NewFetchError("livevideo", u.String(), 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewFetchError("livevideo", u.String(), resp.StatusCode, nil)
	}
	var body struct {
		VideoID string `json:"videoId"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
		return "", errors.NewFetchError("livevideo", u.String(), 0, err)
	}
	return strings.TrimSpace(body.VideoID), nil
}
