// Package metrics holds the Prometheus collectors of the tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_http_requests_total",
		Help: "HTTP requests by route template, method and status code",
	}, []string{"route", "method", "status"})

	ReportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_report_duration_seconds",
		Help:    "Time to load the snapshot and compute an analysis report",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"scope"})

	GradesImportedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_grades_imported_total",
		Help: "Grades inserted by CSV imports",
	})

	GradesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_grades_skipped_total",
		Help: "CSV rows rejected by imports",
	})
)
