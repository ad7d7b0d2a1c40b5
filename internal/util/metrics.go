package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_recorded_total",
		Help: "Total number of sales recorded",
	}, []string{"kind"})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of failed sale attempts",
	}, []string{"reason"})

	DebtAssignedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debt_assigned_total",
		Help: "Total number of debt assignments",
	})

	PaymentsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debt_payments_recorded_total",
		Help: "Total number of debt payments recorded",
	})

	PaymentsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debt_payments_rejected_total",
		Help: "Total number of rejected debt payments",
	}, []string{"reason"})

	StockDecrementsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_decrements_failed_total",
		Help: "Total number of failed stock decrements",
	}, []string{"reason"})

	StockDecrementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_decrement_latency_seconds",
		Help:    "Latency of conditional stock decrements",
		Buckets: prometheus.DefBuckets,
	})

	ReceiptsRenderedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipts_rendered_total",
		Help: "Total number of receipt tickets rendered",
	}, []string{"kind"})

	ReceiptsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipts_failed_total",
		Help: "Total number of failed receipt renders",
	}, []string{"kind"})

	ProductsRepricedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_repriced_total",
		Help: "Total number of products touched by bulk category repricing",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
