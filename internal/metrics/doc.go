// Package metrics keeps rosterd's request counters and exposes them, together
// with the live record count, in the Prometheus text exposition format.
//
// Families:
//
//	rosterd_records                          gauge, records held at scrape time
//	rosterd_operations_total{op}             counter, store operations applied
//	rosterd_rejected_requests_total{reason}  counter, requests refused before the store
//
// The families are built directly from prometheus/client_model types and
// written with prometheus/common/expfmt; there is no global registry.
package metrics
