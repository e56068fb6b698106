// Package config loads the rosterd configuration from the `server:` section of
// a YAML file.
//
// Config fields:
//   - ListenAddr     : bind address (default 127.0.0.1, env ROSTERD_LISTEN_ADDR)
//   - HTTPPort       : REST API, metrics and stream port (default 3030, env ROSTERD_HTTP_PORT)
//   - GRPCPort       : gRPC health service port (default 0 = disabled)
//   - RoutePrefix    : path the record routes are bound to (default /v1/student)
//   - MaxBodyBytes   : request body cap (default 16 KiB)
//   - LogLevel       : debug|info|warn|error (default info)
//   - ShutdownTimeout: graceful shutdown bound (default 10s)
//   - Metrics        : Prometheus text exposition toggle and path
//   - Stream         : WebSocket broadcast toggle and interval
//
// Load(path) applies defaults before unmarshalling, then environment overrides,
// then validates. Default() returns the same configuration without a file.
// Watch(ctx, path, fn) reloads the file on change via fsnotify, watching the
// parent directory so rename-style saves are picked up.
package config
