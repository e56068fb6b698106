// Package ws streams the record set to WebSocket clients.
//
// Hub implements http.Handler for GET /ws/stream. A client receives the full
// record set right after connecting and again every interval. Each message is:
//
//	{"event": "records", "data": {"records": {"name": "branch", ...}, "generated_at": "RFC3339"}}
//
// Clients that fall behind (send buffer full) are disconnected. Run closes
// every connection when its context is cancelled.
package ws
