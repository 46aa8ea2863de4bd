package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the collector's registry in OpenMetrics format. Scrapes
// are counted in promhttp_metric_handler_requests_total on the same
// registry, and a failing collector does not abort the scrape.
func (c *Collector) Handler() http.Handler {
	h := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
		Registry:          c.registry,
	})
	return promhttp.InstrumentMetricHandler(c.registry, h)
}
