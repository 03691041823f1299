package observability

import (
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

type MetricsConfig struct {
	Enabled bool
}

// Metrics holds the service's collectors. A nil *Metrics is valid and drops
// every observation, so callers never check whether metrics are on.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	stageLatency  *HistogramVec
	pipelineRuns  *CounterVec
	chatStreams   *CounterVec
	extractedDocs *CounterVec
	artifacts     *CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current is the process-wide instance, nil until Init runs with metrics enabled.
func Current() *Metrics { return instance }

func Init(log *logger.Logger, cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("cw_api_requests_total", "API requests by method, route and status.", "method", "route", "status"),
		apiLatency: NewHistogramVec("cw_api_request_duration_seconds", "API request latency.",
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 120}, "method", "route"),
		apiInflight: NewGauge("cw_api_inflight_requests", "In-flight API requests."),

		stageLatency:  NewHistogramVec("cw_pipeline_stage_duration_seconds", "Agent pipeline stage latency.", nil, "stage", "status"),
		pipelineRuns:  NewCounterVec("cw_pipeline_runs_total", "Pipeline runs by final state.", "state"),
		chatStreams:   NewCounterVec("cw_chat_answers_total", "Chat answers by delivery and outcome.", "delivery", "outcome"),
		extractedDocs: NewCounterVec("cw_extracted_files_total", "Extracted attachments by technique and status.", "technique", "status"),
		artifacts:     NewCounterVec("cw_artifacts_generated_total", "Study artifacts generated by mode and outcome.", "mode", "outcome"),
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflight(delta int) {
	if m == nil {
		return
	}
	m.apiInflight.Add(float64(delta))
}

func (m *Metrics) ObserveStage(stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageLatency.Observe(dur.Seconds(), stage, status)
}

func (m *Metrics) IncPipelineRun(state string) {
	if m == nil {
		return
	}
	m.pipelineRuns.Inc(state)
}

// IncChatAnswer counts one answer by delivery (buffered, stream) and stored
// turn status. Failures are counted under delivery "error" with the error kind.
func (m *Metrics) IncChatAnswer(delivery, outcome string) {
	if m == nil {
		return
	}
	m.chatStreams.Inc(delivery, outcome)
}

func (m *Metrics) IncExtractedFile(technique, status string) {
	if m == nil {
		return
	}
	if technique == "" {
		technique = "none"
	}
	m.extractedDocs.Inc(technique, status)
}

func (m *Metrics) IncArtifact(mode, outcome string) {
	if m == nil {
		return
	}
	m.artifacts.Inc(mode, outcome)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	type writer interface{ WritePrometheus(io.Writer) error }
	for _, c := range []writer{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.stageLatency, m.pipelineRuns, m.chatStreams, m.extractedDocs, m.artifacts,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

// StatusLabel renders an HTTP status for use as a label value.
func StatusLabel(code int) string { return strconv.Itoa(code) }
