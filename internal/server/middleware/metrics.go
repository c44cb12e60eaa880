package middleware

import (
	"errors"
	"reflect"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsConfig struct {
	Skipper     Skipper
	Namespace   string
	Buckets     []float64
	MetricsPath string
}

const (
	httpRequestsDuration = "http_request_duration_seconds"
	notFoundPath         = "/not-found"
)

var DefaultMetricsConfig = MetricsConfig{
	Skipper:   DefaultSkipper,
	Namespace: "crm",
	Buckets: []float64{
		0.001, // 1ms
		0.005,
		0.01, // 10ms
		0.025,
		0.05,
		0.1, // 100 ms
		0.25,
		0.5,
		1.0, // 1s
		2.5,
		5.0,
		10.0, // 10s
		30.0,
	},
	MetricsPath: "/metrics",
}

func isNotFoundHandler(handler echo.HandlerFunc) bool {
	return handler != nil && reflect.ValueOf(handler).Pointer() == reflect.ValueOf(echo.NotFoundHandler).Pointer()
}

// Metrics returns an echo middleware with default config for instrumentation.
func Metrics() echo.MiddlewareFunc {
	return MetricsWithConfig(DefaultMetricsConfig)
}

// MetricsWithConfig records a latency histogram per status, method and
// route template, and serves the registry on MetricsPath.
func MetricsWithConfig(config MetricsConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = DefaultSkipper
	}
	httpMetrics, err := registerHTTPMetrics(config)
	if err != nil {
		panic(err)
	}

	var promHandler echo.HandlerFunc
	if config.MetricsPath != "" {
		promHandler = echo.WrapHandler(promhttp.Handler())
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if promHandler != nil && req.URL.Path == config.MetricsPath {
				return promHandler(c)
			}
			if config.Skipper(c) {
				return next(c)
			}

			// route templates keep chat ids out of the label set
			path := c.Path()
			if isNotFoundHandler(c.Handler()) {
				path = notFoundPath
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := strconv.Itoa(c.Response().Status)
			httpMetrics.WithLabelValues(status, req.Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func registerHTTPMetrics(config MetricsConfig) (*prometheus.HistogramVec, error) {
	httpMetrics := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Name:      httpRequestsDuration,
		Help:      "Time spent serving a route.",
		Buckets:   config.Buckets,
	}, []string{"code", "method", "path"})
	err := prometheus.Register(httpMetrics)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
			return existing, nil
		}
	}
	return httpMetrics, err
}
