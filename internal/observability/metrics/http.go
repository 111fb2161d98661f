package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics records server-side request duration and in-flight counts.
// Endpoints are labelled by route template, never by raw path, to keep
// cardinality bounded.
type HTTPMetrics struct {
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

// NewHTTPMetrics builds the HTTP instruments on the given meter provider.
func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "mediflow"
	}
	meter := provider.Meter(name + "/http")

	duration, err := meter.Float64Histogram("http.server.duration_ms")
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("http.server.in_flight")
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{duration: duration, inFlight: inFlight}, nil
}

// GinMiddleware measures every request passing through the engine.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := attribute.String("endpoint", routeTemplate(c))

		m.inFlight.Add(ctx, 1, metric.WithAttributes(FilterAttributes(endpoint)...))
		start := time.Now()
		c.Next()
		m.inFlight.Add(ctx, -1, metric.WithAttributes(FilterAttributes(endpoint)...))

		attrs := FilterAttributes(
			endpoint,
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
		m.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attrs...))
	}
}

func routeTemplate(c *gin.Context) string {
	if route := strings.TrimSpace(c.FullPath()); route != "" {
		return route
	}
	return "unmatched"
}
