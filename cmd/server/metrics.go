package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "adaptiveq_http_requests_total", Help: "Total HTTP requests by path and status"},
		[]string{"path", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "adaptiveq_http_request_duration_seconds", Help: "HTTP request duration by path"},
		[]string{"path"},
	)
	questionsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "adaptiveq_questions_generated_total", Help: "Questions generated; the source label is always \"generated\" (template fallbacks are not counted separately)"},
		[]string{"source"},
	)
	answersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "adaptiveq_answers_submitted_total", Help: "Answers submitted by correctness"},
		[]string{"correct"},
	)
	indexSize = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "adaptiveq_index_size", Help: "Number of vectors currently stored in the embedding index"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, questionsGenerated, answersSubmitted, indexSize)
}

// metricsHandler returns the /metrics endpoint.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}

func observeRequest(pattern string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(pattern, statusClass(status)).Inc()
	httpRequestDuration.WithLabelValues(pattern).Observe(d.Seconds())
}

// metricsPath collapses path segments that look like numeric or UUID-style
// ids to a constant placeholder, so the request-count label stays bounded
// regardless of how many documents or questions exist.
func metricsPath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segments[i] = ":id"
			continue
		}
		if strings.Count(seg, "-") >= 4 {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
