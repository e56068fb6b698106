// Package api implements the rosterd HTTP surface.
//
// New(store, opts...) returns an http.Handler that serves, under a configurable
// route prefix (default /v1/student):
//
//	POST   <prefix>   {"name","branch"}   create or replace, 201
//	PUT    <prefix>   {"name","branch"}   same operation as POST, 201
//	DELETE <prefix>   {"name"}            remove, 200 even if absent
//	GET    <prefix>                       all records as {"name": "branch"}
//	GET    /healthz                       liveness and record count
//
// Bodies are capped (default 16 KiB, 413 when exceeded). Malformed JSON or a
// missing required field is a 400. Rejected requests never reach the store.
// Other verbs on the prefix get a 405, unknown paths a 404, both as JSON.
//
// The store-facing part lives in ops.go as plain functions returning an
// Outcome, so the HTTP layer only decodes, dispatches and encodes.
// Wrap adds request IDs, panic recovery and access logging.
package api
