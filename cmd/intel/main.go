package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-intel/internal/api"
	"github.com/joeblew999/plat-intel/internal/layers"
	"github.com/joeblew999/plat-intel/internal/logging"
	"github.com/joeblew999/plat-intel/internal/mapengine"
	"github.com/joeblew999/plat-intel/internal/server"
)

// Options defines all CLI flags and env vars for the intel server.
// Flags: --host, --port, --data-dir, --web-dir, --variant, --zoom, --view, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_VARIANT, ...
type Options struct {
	Host          string `doc:"Host to bind to" default:"0.0.0.0"`
	Port          int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir       string `doc:"Directory for the DuckDB archive; empty keeps it in memory" default:".data"`
	WebDir        string `doc:"Optional web/ directory overriding the embedded viewer"`
	Variant       string `doc:"Layer catalog variant (full, tech)" default:"full"`
	Zoom          int    `doc:"Initial zoom; 0 keeps the view preset"`
	View          string `doc:"Initial camera preset" default:"global"`
	TimeRange     string `doc:"Initial trailing window (1h, 6h, 24h, 48h, 7d, all)" default:"7d"`
	Layers        string `doc:"YAML file with initial layer flags"`
	Feeds         string `doc:"YAML file with feed definitions"`
	LiveEndpoint  string `doc:"Live video lookup endpoint"`
	LiveChannels  string `doc:"Comma separated live channels" default:"bloomberg,sky,dw"`
	LiveFallbacks string `doc:"Comma separated channel=videoId fallbacks"`
	LogLevel      string `doc:"Log level (trace, debug, info, warn, error)" default:"info"`
	LogFormat     string `doc:"Log format (json, console, auto)" default:"auto"`
}

func newServer(opts *Options) (*server.Server, error) {
	logging.Configure(&logging.Config{Level: opts.LogLevel, Format: opts.LogFormat, Output: "stderr"})

	variant, err := layers.ParseVariant(opts.Variant)
	if err != nil {
		return nil, err
	}
	cfg := server.Config{
		Host:         opts.Host,
		Port:         fmt.Sprintf("%d", opts.Port),
		DataDir:      opts.DataDir,
		WebDir:       opts.WebDir,
		Variant:      variant,
		Zoom:         float64(opts.Zoom),
		View:         mapengine.View(opts.View),
		TimeRange:    mapengine.TimeRange(opts.TimeRange),
		FeedsFile:    opts.Feeds,
		LiveEndpoint: opts.LiveEndpoint,
		LiveChannels: splitList(opts.LiveChannels),
		Fallbacks:    map[string]string{},
	}
	for _, kv := range splitList(opts.LiveFallbacks) {
		if ch, id, ok := strings.Cut(kv, "="); ok {
			cfg.Fallbacks[strings.TrimSpace(ch)] = strings.TrimSpace(id)
		}
	}
	if opts.Layers != "" {
		data, err := os.ReadFile(opts.Layers)
		if err != nil {
			return nil, fmt.Errorf("read layers file: %w", err)
		}
		var flags layers.Flags
		if err := yaml.Unmarshal(data, &flags); err != nil {
			return nil, fmt.Errorf("parse layers file: %w", err)
		}
		cfg.Layers = &flags
	}
	return server.New(cfg)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var httpServer *http.Server
		var srv *server.Server

		hooks.OnStart(func() {
			log := logging.Component("main")
			var err error
			srv, err = newServer(opts)
			if err != nil {
				log.Fatal().Err(err).Msg("server setup")
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-intel API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := srv.StartFeeds(context.Background()); err != nil {
				log.Error().Err(err).Msg("feeds not started")
			}

			httpServer = &http.Server{Addr: addr, Handler: srv, ReadHeaderTimeout: 10 * time.Second}
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("server error")
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if httpServer != nil {
				_ = httpServer.Shutdown(ctx)
			}
			if srv != nil {
				_ = srv.Close()
			}
		})
	})

	cli.Root().Use = "intel"
	cli.Root().Short = "Live geopolitical intelligence map server"
	cli.Root().Version = api.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.DataDir, opts.Feeds = "", ""
			srv, err := newServer(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Run()
}
