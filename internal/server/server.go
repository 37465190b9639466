// Package server assembles the map engine, its collaborators and the HTTP
// surface.
package server

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-intel/internal/api"
	"github.com/joeblew999/plat-intel/internal/api/viewer"
	"github.com/joeblew999/plat-intel/internal/banner"
	"github.com/joeblew999/plat-intel/internal/db"
	"github.com/joeblew999/plat-intel/internal/feeds"
	"github.com/joeblew999/plat-intel/internal/layers"
	"github.com/joeblew999/plat-intel/internal/livevideo"
	"github.com/joeblew999/plat-intel/internal/logging"
	"github.com/joeblew999/plat-intel/internal/mapengine"
	"github.com/joeblew999/plat-intel/internal/overlay"
	"github.com/joeblew999/plat-intel/internal/service"
	"github.com/joeblew999/plat-intel/internal/store"
	"github.com/joeblew999/plat-intel/internal/story"
	"github.com/joeblew999/plat-intel/internal/templates"
)

// ContainerID is the DOM id of the overlay element in the viewer page.
const ContainerID = "deckgl-overlay"

//go:embed page/viewer.html
var viewerPage []byte

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string // Empty keeps the archive in memory
	WebDir  string // Optional web/ directory overriding the embedded page and fragments

	Variant   layers.Variant
	Zoom      float64
	View      mapengine.View
	TimeRange mapengine.TimeRange
	// Layers overrides the variant's default layer flags.
	Layers *layers.Flags

	FeedsFile    string
	LiveEndpoint string
	LiveChannels []string
	Fallbacks    map[string]string

	Logger *zerolog.Logger
}

// Server is the plat-intel HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	log      *zerolog.Logger
	db       *sql.DB
	bus      *service.EventBus
	services *api.Services
	viewer   *viewer.Handler
	renderer *templates.Renderer
}

// New creates a server. Only the engine is mandatory: a database that fails
// to open falls back to in-memory preferences with no archive.
func New(cfg Config) (*Server, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.Component("server")
	}
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("plat-intel API", api.Version)
	humaConfig.Info.Description = "Live geopolitical map engine: layer state, overlay markers, feeds, and story cards."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())
	humaAPI := humago.New(mux, humaConfig)

	renderer, err := newRenderer(cfg.WebDir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		log:      log,
		bus:      service.NewEventBus(),
		renderer: renderer,
	}
	if err := s.init(); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.routes()
	return s, nil
}

func newRenderer(webDir string) (*templates.Renderer, error) {
	if webDir != "" {
		dir := filepath.Join(webDir, "templates", "fragments")
		if _, err := os.Stat(dir); err == nil {
			return templates.New(dir)
		}
	}
	return templates.New("")
}

func (s *Server) init() error {
	ctx := context.Background()
	cfg := s.config

	var prefs banner.PrefStore
	var archive *store.Archive
	conn, err := db.Open(ctx, db.Config{DataDir: cfg.DataDir})
	if err != nil {
		s.log.Warn().Err(err).Msg("duckdb unavailable, preferences kept in memory")
		prefs = store.NewMemoryPrefs()
	} else {
		s.db = conn
		prefs = store.NewSQLPrefs(conn)
		archive = store.NewArchive(conn, store.ArchiveOptions{Logger: logging.Component("archive")})
	}

	flags := layers.Defaults(cfg.Variant)
	if cfg.Layers != nil {
		flags = *cfg.Layers
	}
	container, err := overlay.NewContainer(ContainerID)
	if err != nil {
		return err
	}
	deck := viewer.NewDeck()
	engineCfg := mapengine.Config{
		Initial: mapengine.Initial{
			Zoom:      cfg.Zoom,
			View:      cfg.View,
			TimeRange: cfg.TimeRange,
			Layers:    flags,
		},
		Variant: cfg.Variant,
		Surface: deck,
		Bus:     s.bus,
		Logger:  logging.Component("mapengine"),
	}
	if archive != nil {
		engineCfg.Archive = archive
	}
	engine, err := mapengine.New(container, engineCfg)
	if err != nil {
		if archive != nil {
			_ = archive.Close()
		}
		return err
	}
	s.services = &api.Services{
		Engine:  engine,
		Archive: archive,
		DB:      s.db,
		DataDir: cfg.DataDir,
		Story:   &story.Renderer{Logger: logging.Component("story")},
	}

	live := livevideo.New(livevideo.Config{
		Endpoint:  cfg.LiveEndpoint,
		Fallbacks: cfg.Fallbacks,
		Logger:    logging.Component("livevideo"),
	})
	bn := banner.New(prefs)
	s.services.Live, s.services.Banner = live, bn

	if cfg.FeedsFile != "" {
		fc, err := feeds.Load(cfg.FeedsFile)
		if err != nil {
			return err
		}
		s.services.Feeds = feeds.New(fc, engine, feeds.Options{Logger: logging.Component("feeds")})
	}

	v, err := viewer.New(viewer.Config{
		Engine:   engine,
		Bus:      s.bus,
		Deck:     deck,
		Renderer: s.renderer,
		Live:     live,
		Banner:   bn,
		Feeds:    s.services.Feeds,
		Channels: cfg.LiveChannels,
		Logger:   logging.Component("viewer"),
	})
	if err != nil {
		return err
	}
	if err := v.Panels().Initialize(ctx); err != nil {
		return err
	}
	s.viewer = v
	return nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Engine returns the map engine.
func (s *Server) Engine() *mapengine.Engine {
	if s.services == nil {
		return nil
	}
	return s.services.Engine
}

// OpenAPI returns the OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// StartFeeds polls every feed once and then on its schedule.
func (s *Server) StartFeeds(ctx context.Context) error {
	p := s.services.Feeds
	if p == nil {
		return nil
	}
	if err := p.RunOnce(ctx); err != nil {
		s.log.Warn().Err(err).Msg("initial feed refresh")
	}
	return p.Start()
}

// Close stops the feeds, destroys the engine and flushes the archive.
func (s *Server) Close() error {
	if s.services != nil {
		if s.services.Feeds != nil {
			s.services.Feeds.Stop()
		}
		if s.viewer != nil {
			if err := s.viewer.Panels().Teardown(); err != nil {
				s.log.Warn().Err(err).Msg("panel teardown")
			}
		}
		s.services.Engine.Destroy()
		if s.services.Archive != nil {
			if err := s.services.Archive.Close(); err != nil {
				s.log.Warn().Err(err).Msg("archive close")
			}
		}
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	api.RegisterRoutes(s.humaAPI, s.services)
	s.viewer.RegisterRoutes(s.humaAPI)

	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/viewer", http.StatusFound)
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	if s.config.WebDir != "" {
		path := filepath.Join(s.config.WebDir, "templates", "viewer.html")
		if _, err := os.Stat(path); err == nil {
			http.ServeFile(w, r, path)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(viewerPage)
}
