package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/rosterd/internal/api"
	"github.com/obsidianstack/rosterd/internal/config"
	"github.com/obsidianstack/rosterd/internal/grpcsrv"
	"github.com/obsidianstack/rosterd/internal/metrics"
	"github.com/obsidianstack/rosterd/internal/store"
	"github.com/obsidianstack/rosterd/internal/ws"
)

const (
	streamPath        = "/ws/stream"
	readHeaderTimeout = 10 * time.Second
)

// serveCmd starts the rosterd server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the roster server",
	Long: `Start the rosterd HTTP server.

Without -c the built-in defaults are used (127.0.0.1:3030, /v1/student).
ROSTERD_LISTEN_ADDR and ROSTERD_HTTP_PORT override the bind address and port.
When a config file is given it is watched: log_level and max_body_bytes take
effect on save, other fields need a restart.

The server runs until interrupted (Ctrl+C) or it receives SIGTERM.

Example:
  rosterd serve
  rosterd serve -c /etc/rosterd/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (optional)")
}

func runServe(cmd *cobra.Command, args []string) error {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	level.Set(cfg.Server.Level())

	logger.Info("config loaded",
		"config", configFile,
		"http_addr", cfg.Server.HTTPAddr(),
		"grpc_port", cfg.Server.GRPCPort,
		"route_prefix", cfg.Server.RoutePrefix,
		"max_body_bytes", cfg.Server.MaxBodyBytes,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, configFile, level, logger)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// app is the wired set of components behind one HTTP handler.
type app struct {
	store   *store.Store
	api     *api.Handler
	metrics *metrics.Registry
	hub     *ws.Hub
	handler http.Handler
}

// newApp builds the store and everything that serves it. The store is created
// here once and shared by pointer with every component.
func newApp(cfg config.ServerConfig, logger *slog.Logger) *app {
	a := &app{store: store.New()}
	a.metrics = metrics.New(a.store.Len)
	a.api = api.New(a.store,
		api.WithPrefix(cfg.RoutePrefix),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithRecorder(a.metrics),
		api.WithLogger(logger),
	)

	mux := http.NewServeMux()
	mux.Handle("/", a.api)
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, a.metrics)
	}
	if cfg.Stream.Enabled {
		a.hub = ws.New(a.store, cfg.Stream.Interval)
		mux.Handle(streamPath, a.hub)
	}
	a.handler = api.Wrap(mux, logger)
	return a
}

// apply takes the hot-reloadable fields from a reloaded config.
func (a *app) apply(cfg config.ServerConfig, level *slog.LevelVar) {
	level.Set(cfg.Level())
	a.api.SetMaxBodyBytes(cfg.MaxBodyBytes)
	slog.Info("config applied",
		"log_level", cfg.LogLevel,
		"max_body_bytes", cfg.MaxBodyBytes,
	)
}

// run serves until ctx is cancelled or a listener fails, then shuts down.
func run(ctx context.Context, cfg *config.Config, configPath string, level *slog.LevelVar, logger *slog.Logger) error {
	s := cfg.Server
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a := newApp(s, logger)
	if a.hub != nil {
		go a.hub.Run(ctx)
	}

	if configPath != "" {
		go func() {
			if err := config.Watch(ctx, configPath, func(updated *config.Config) {
				a.apply(updated.Server, level)
			}); err != nil {
				logger.Error("config watcher stopped", "err", err)
			}
		}()
	}

	// Bind synchronously so a taken port fails the command.
	ln, err := net.Listen("tcp", s.HTTPAddr())
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.HTTPAddr(), err)
	}

	errCh := make(chan error, 2)

	var grpcSrv *grpcsrv.Server
	if s.GRPCPort != 0 {
		glis, err := net.Listen("tcp", s.GRPCAddr())
		if err != nil {
			ln.Close()
			return fmt.Errorf("failed to bind %s: %w", s.GRPCAddr(), err)
		}
		grpcSrv = grpcsrv.New()
		go func() {
			if err := grpcSrv.Serve(glis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.Error("server stopped", "err", runErr)
	}

	logger.Info("rosterd shutting down")
	// Stops the hub and the config watcher; hijacked WebSocket connections
	// are not covered by http.Server.Shutdown.
	cancel()
	if grpcSrv != nil {
		grpcSrv.Drain()
	}

	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "timeout", timeout.String(), "err", err)
	}
	if grpcSrv != nil {
		grpcSrv.Stop(shutdownCtx)
	}

	logger.Info("shutdown complete")
	return runErr
}
