package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics счётчики доменных операций и HTTP
type Metrics struct {
	registry *prometheus.Registry

	OrdersCreated     prometheus.Counter
	OrderTransitions  *prometheus.CounterVec
	PaymentOperations *prometheus.CounterVec
	StockRejections   prometheus.Counter
	Requests          *prometheus.CounterVec
	LatencyMS         *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders successfully placed.",
		}),
		OrderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "orders",
			Name:      "status_transitions_total",
			Help:      "Order status transitions by source and target status.",
		}, []string{"from", "to"}),
		PaymentOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "payments",
			Name:      "operations_total",
			Help:      "Payment operations by kind and result.",
		}, []string{"operation", "result"}),
		StockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "orders",
			Name:      "stock_rejections_total",
			Help:      "Orders rejected for insufficient stock.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "backoffice",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "backoffice",
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
	}
	reg.MustRegister(m.OrdersCreated, m.OrderTransitions, m.PaymentOperations, m.StockRejections, m.Requests, m.LatencyMS)
	return m
}

// PaymentOp учитывает результат платёжной операции
func (m *Metrics) PaymentOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.PaymentOperations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware меряет запросы по шаблону маршрута
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	}
}
