package observability

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Second)
	m.ObserveStage("SOLVE", "ok", time.Second)
	m.IncChatAnswer("stream", "partial")
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("status: want=503 got=%d", rec.Code)
	}
}

func TestPrometheusExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/chat", "200", 30*time.Millisecond)
	m.ObserveStage("VALIDATE", "ok", 700*time.Millisecond)
	m.ObserveStage("VALIDATE", "ok", 3*time.Second)
	m.IncExtractedFile("", "skipped")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`cw_api_requests_total{method="POST",route="/api/chat",status="200"} 1`,
		`cw_pipeline_stage_duration_seconds_bucket{stage="VALIDATE",status="ok",le="1"} 1`,
		`cw_pipeline_stage_duration_seconds_count{stage="VALIDATE",status="ok"} 2`,
		`cw_extracted_files_total{technique="none",status="skipped"} 1`,
		"# TYPE cw_api_inflight_requests gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q in:\n%s", want, out)
		}
	}
	if got := m.stageLatency.Count("VALIDATE", "ok"); got != 2 {
		t.Fatalf("count: want=2 got=%d", got)
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`, ""})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labels: got=%s", got)
	}
}

func TestParseHeaders(t *testing.T) {
	h := ParseHeaders(" api-key = abc , broken, =v")
	if len(h) != 1 || h["api-key"] != "abc" {
		t.Fatalf("headers: got=%v", h)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty: want=nil")
	}
}
