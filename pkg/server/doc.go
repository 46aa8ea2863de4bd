// Package server exposes the evaluation service over HTTP.
//
// # Routes
//
//	GET  /healthz                          liveness
//	GET  /readyz                           readiness checks (definitions plus any added)
//	GET  /version                          build information
//	GET  /metrics                          Prometheus metrics (when configured)
//	GET  /v1/conditions                    definition names, trees and descriptions
//	POST /v1/conditions/{name}/evaluate    evaluate a definition
//	GET  /v1/runs                          journaled runs (?definition=&failed=&since=&until=&limit=&offset=)
//	GET  /v1/runs/{id}                     one journaled run with its events
//
// An evaluate request body is optional:
//
//	{"state": {"role": "admin"}, "mode": "parallel"}
//
// Every request gets an X-Request-ID, is logged with its latency and is
// protected by panic recovery.
package server
