// Package http exposes the scheduled service over HTTP.
//
// The router serves four read-only endpoints:
//
//	GET /healthz   liveness plus whether a run is in progress
//	GET /status    the most recent run report
//	GET /version   build information
//	GET /metrics   Prometheus exposition, when the exporter is enabled
//
// Errors are answered as RFC 7807 problem documents:
//
//	{
//	    "type": "/errors/not-found",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "no run has started yet",
//	    "instance": "/status"
//	}
//
// Handlers never trigger runs; runs come from the CLI or the cron scheduler.
package http
