// Package exporters provides HTTP and SSE exporters for metrics.
package exporters

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler returns the Prometheus metrics HTTP handler.
// It serves everything registered with the default registry.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
