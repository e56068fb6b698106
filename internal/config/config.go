package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultListenAddr      = "127.0.0.1"
	DefaultHTTPPort        = 3030
	DefaultRoutePrefix     = "/v1/student"
	DefaultMaxBodyBytes    = 16 * 1024
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMetricsPath     = "/metrics"
	DefaultStreamInterval  = 5 * time.Second
)

// ReservedPaths are served by rosterd itself and cannot be used for the
// record routes or metrics.
var ReservedPaths = []string{"/", "/healthz", "/ws/stream"}

// Environment variables that override the bind address and port.
const (
	EnvListenAddr = "ROSTERD_LISTEN_ADDR"
	EnvHTTPPort   = "ROSTERD_HTTP_PORT"
)

// Config holds the configuration parsed from the `server:` section of the file.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// ListenAddr is the host or IP the HTTP and gRPC listeners bind to.
	ListenAddr string `yaml:"listen_addr"`

	// HTTPPort is the port the record API, metrics and stream listen on.
	HTTPPort int `yaml:"http_port"`

	// GRPCPort is the port for the gRPC health service. Zero disables it.
	GRPCPort int `yaml:"grpc_port"`

	// RoutePrefix is the exact path the four record verbs are bound to.
	RoutePrefix string `yaml:"route_prefix"`

	// MaxBodyBytes caps request bodies; larger bodies are rejected with 413.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Metrics MetricsConfig `yaml:"metrics"`
	Stream  StreamConfig  `yaml:"stream"`
}

// MetricsConfig controls the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// StreamConfig controls the WebSocket record stream.
type StreamConfig struct {
	Enabled bool `yaml:"enabled"`

	// Interval is how often every connected client receives the full record set.
	Interval time.Duration `yaml:"interval"`
}

// HTTPAddr returns the host:port the HTTP server listens on.
func (s ServerConfig) HTTPAddr() string {
	return net.JoinHostPort(s.ListenAddr, strconv.Itoa(s.HTTPPort))
}

// GRPCAddr returns the host:port the gRPC server listens on.
func (s ServerConfig) GRPCAddr() string {
	return net.JoinHostPort(s.ListenAddr, strconv.Itoa(s.GRPCPort))
}

// Level returns the slog level for LogLevel. Unknown values map to info;
// validate rejects them before this is reached.
func (s ServerConfig) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given, with
// environment overrides applied.
func Default() (*Config, error) {
	cfg := defaults()
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      DefaultListenAddr,
			HTTPPort:        DefaultHTTPPort,
			RoutePrefix:     DefaultRoutePrefix,
			MaxBodyBytes:    DefaultMaxBodyBytes,
			LogLevel:        DefaultLogLevel,
			ShutdownTimeout: DefaultShutdownTimeout,
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    DefaultMetricsPath,
			},
			Stream: StreamConfig{
				Enabled:  true,
				Interval: DefaultStreamInterval,
			},
		},
	}
}

// applyEnv overrides the bind address and port from the environment.
func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv(EnvHTTPPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s %q is not a port number", EnvHTTPPort, v)
		}
		cfg.Server.HTTPPort = port
	}
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if s.GRPCPort < 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [0, 65535]", s.GRPCPort)
	}
	if s.GRPCPort != 0 && s.GRPCPort == s.HTTPPort {
		return fmt.Errorf("server.grpc_port must differ from server.http_port")
	}
	if !strings.HasPrefix(s.RoutePrefix, "/") {
		return fmt.Errorf("server.route_prefix %q must start with /", s.RoutePrefix)
	}
	if reserved(s.RoutePrefix) {
		return fmt.Errorf("server.route_prefix %q is reserved", s.RoutePrefix)
	}
	if s.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	if s.Metrics.Enabled {
		if !strings.HasPrefix(s.Metrics.Path, "/") {
			return fmt.Errorf("server.metrics.path %q must start with /", s.Metrics.Path)
		}
		if reserved(s.Metrics.Path) {
			return fmt.Errorf("server.metrics.path %q is reserved", s.Metrics.Path)
		}
		if s.Metrics.Path == s.RoutePrefix {
			return fmt.Errorf("server.metrics.path must differ from server.route_prefix")
		}
	}
	if s.Stream.Enabled && s.Stream.Interval <= 0 {
		return fmt.Errorf("server.stream.interval must be positive when the stream is enabled")
	}
	return nil
}

func reserved(path string) bool {
	for _, p := range ReservedPaths {
		if path == p {
			return true
		}
	}
	return false
}
