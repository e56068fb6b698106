package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Server section absent; everything falls back to defaults.
	p := writeConfig(t, `other: {}
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.ListenAddr != DefaultListenAddr {
		t.Errorf("listen_addr: got %q, want %q", s.ListenAddr, DefaultListenAddr)
	}
	if s.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", s.HTTPPort, DefaultHTTPPort)
	}
	if s.GRPCPort != 0 {
		t.Errorf("grpc_port: got %d, want 0", s.GRPCPort)
	}
	if s.RoutePrefix != DefaultRoutePrefix {
		t.Errorf("route_prefix: got %q, want %q", s.RoutePrefix, DefaultRoutePrefix)
	}
	if s.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("max_body_bytes: got %d, want %d", s.MaxBodyBytes, DefaultMaxBodyBytes)
	}
	if !s.Metrics.Enabled || s.Metrics.Path != DefaultMetricsPath {
		t.Errorf("metrics: got %+v, want enabled at %s", s.Metrics, DefaultMetricsPath)
	}
	if !s.Stream.Enabled || s.Stream.Interval != DefaultStreamInterval {
		t.Errorf("stream: got %+v, want enabled every %v", s.Stream, DefaultStreamInterval)
	}
	if s.Level() != slog.LevelInfo {
		t.Errorf("Level: got %v, want info", s.Level())
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  listen_addr: 0.0.0.0
  http_port: 9091
  grpc_port: 9092
  route_prefix: /v2/roster
  max_body_bytes: 1024
  log_level: debug
  shutdown_timeout: 3s
  metrics:
    enabled: false
  stream:
    interval: 250ms
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPAddr() != "0.0.0.0:9091" {
		t.Errorf("HTTPAddr: got %q, want 0.0.0.0:9091", s.HTTPAddr())
	}
	if s.GRPCAddr() != "0.0.0.0:9092" {
		t.Errorf("GRPCAddr: got %q, want 0.0.0.0:9092", s.GRPCAddr())
	}
	if s.RoutePrefix != "/v2/roster" {
		t.Errorf("route_prefix: got %q", s.RoutePrefix)
	}
	if s.MaxBodyBytes != 1024 {
		t.Errorf("max_body_bytes: got %d, want 1024", s.MaxBodyBytes)
	}
	if s.Level() != slog.LevelDebug {
		t.Errorf("Level: got %v, want debug", s.Level())
	}
	if s.ShutdownTimeout != 3*time.Second {
		t.Errorf("shutdown_timeout: got %v, want 3s", s.ShutdownTimeout)
	}
	if s.Metrics.Enabled {
		t.Error("metrics.enabled: got true, want false")
	}
	// Fields left out of a nested block keep their defaults.
	if !s.Stream.Enabled {
		t.Error("stream.enabled: got false, want default true")
	}
	if s.Stream.Interval != 250*time.Millisecond {
		t.Errorf("stream.interval: got %v, want 250ms", s.Stream.Interval)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvListenAddr, "10.0.0.5")
	t.Setenv(EnvHTTPPort, "4040")
	p := writeConfig(t, `server:
  listen_addr: 127.0.0.1
  http_port: 3030
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Server.HTTPAddr(); got != "10.0.0.5:4040" {
		t.Errorf("HTTPAddr: got %q, want 10.0.0.5:4040", got)
	}
}

func TestLoad_BadEnvPort(t *testing.T) {
	t.Setenv(EnvHTTPPort, "http")
	p := writeConfig(t, "server: {}\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for non-numeric port override, got nil")
	}
}

func TestDefault(t *testing.T) {
	t.Setenv(EnvHTTPPort, "8181")
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if cfg.Server.HTTPPort != 8181 {
		t.Errorf("http_port: got %d, want 8181", cfg.Server.HTTPPort)
	}
	if cfg.Server.RoutePrefix != DefaultRoutePrefix {
		t.Errorf("route_prefix: got %q, want %q", cfg.Server.RoutePrefix, DefaultRoutePrefix)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"port out of range":     "server:\n  http_port: 70000\n",
		"negative grpc port":    "server:\n  grpc_port: -1\n",
		"grpc equals http":      "server:\n  http_port: 5000\n  grpc_port: 5000\n",
		"prefix without slash":  "server:\n  route_prefix: v1/student\n",
		"root prefix":           "server:\n  route_prefix: /\n",
		"health prefix":         "server:\n  route_prefix: /healthz\n",
		"stream prefix":         "server:\n  route_prefix: /ws/stream\n",
		"metrics on health":     "server:\n  metrics:\n    path: /healthz\n",
		"zero body cap":         "server:\n  max_body_bytes: 0\n",
		"unknown log level":     "server:\n  log_level: verbose\n",
		"metrics path clash":    "server:\n  metrics:\n    path: /v1/student\n",
		"zero stream interval":  "server:\n  stream:\n    interval: 0s\n",
		"negative shutdown":     "server:\n  shutdown_timeout: -1s\n",
		"metrics path no slash": "server:\n  metrics:\n    path: metrics\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestLoad_DisabledStreamIgnoresInterval(t *testing.T) {
	p := writeConfig(t, `server:
  stream:
    enabled: false
    interval: 0s
`)
	if _, err := Load(p); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	p := writeConfig(t, "server: [unclosed\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
