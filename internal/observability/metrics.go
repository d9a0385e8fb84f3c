package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics regroupe les collecteurs Prometheus de l'application.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	aggregationDuration *prometheus.HistogramVec
	supersededTotal     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gestion_http_requests_total",
			Help: "Requêtes HTTP par route et code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gestion_http_request_duration_seconds",
			Help:    "Durée des requêtes HTTP par route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		aggregationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gestion_aggregation_duration_seconds",
			Help:    "Durée chargement + agrégation par écran (tableau de bord, rapports).",
			Buckets: prometheus.DefBuckets,
		}, []string{"screen"}),
		supersededTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gestion_superseded_requests_total",
			Help: "Requêtes écartées car remplacées par une plus récente.",
		}, []string{"screen"}),
	}
	registry.MustRegister(m.requestsTotal, m.requestDuration, m.aggregationDuration, m.supersededTotal)
	return m
}

// Handler sert /metrics.
func (m *Metrics) Handler() fiber.Handler {
	if m == nil {
		return func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}
	}
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware compte et chronomètre chaque requête, étiquetée par le motif de route.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		route := c.Route().Path
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return err
	}
}

// ObserveAggregation mesure le temps passé par un écran entre le premier chargement et la réponse.
func (m *Metrics) ObserveAggregation(screen string, start time.Time) {
	if m == nil {
		return
	}
	m.aggregationDuration.WithLabelValues(screen).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Superseded(screen string) {
	if m == nil {
		return
	}
	m.supersededTotal.WithLabelValues(screen).Inc()
}

func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}
