package core

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atelier-ai/atelier-ai/pkg/metrics"
)

type Metrics struct {
	apiResponseTime  *prometheus.HistogramVec
	apiErrorCounter  *prometheus.CounterVec
	chatRequestTime  *prometheus.HistogramVec
	chatError        *prometheus.CounterVec
	toolGenerateTime *prometheus.HistogramVec
	toolError        *prometheus.CounterVec
}

func NewMetrics(ns, system string) *Metrics {
	// setup metric
	metrics.SetupMetricsManager(ns, system, prometheus.DefaultRegisterer.(*prometheus.Registry))

	m := &Metrics{
		apiResponseTime:  metrics.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter:  metrics.NewCounterVec("api_error", []string{"method", "api", "status"}),
		chatRequestTime:  metrics.NewHistogramVec("chat_request_time", []string{"provider"}),
		chatError:        metrics.NewCounterVec("chat_error", []string{"provider"}),
		toolGenerateTime: metrics.NewHistogramVec("tool_generate_time", []string{"tool"}),
		toolError:        metrics.NewCounterVec("tool_error", []string{"tool"}),
	}

	return m
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ChatRequestTimer(provider string) *prometheus.Timer {
	return prometheus.NewTimer(m.chatRequestTime.WithLabelValues(provider))
}

func (m *Metrics) ChatErrorInc(provider string) {
	m.chatError.WithLabelValues(provider).Inc()
}

func (m *Metrics) ToolGenerateTimer(tool string) *prometheus.Timer {
	return prometheus.NewTimer(m.toolGenerateTime.WithLabelValues(tool))
}

func (m *Metrics) ToolErrorInc(tool string) {
	m.toolError.WithLabelValues(tool).Inc()
}
