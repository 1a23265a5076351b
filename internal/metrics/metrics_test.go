package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDetectorFinished(t *testing.T) {
	c := NewCollector()
	c.DetectorFinished("single_bidder", time.Second, 4, nil)
	c.DetectorFinished("single_bidder", time.Second, 0, errors.New("boom"))

	if got := testutil.ToFloat64(c.DetectorRuns.WithLabelValues("single_bidder", "success")); got != 1 {
		t.Fatalf("expected one successful run, got %v", got)
	}
	if got := testutil.ToFloat64(c.DetectorRuns.WithLabelValues("single_bidder", "failure")); got != 1 {
		t.Fatalf("expected one failed run, got %v", got)
	}
	if got := testutil.ToFloat64(c.DetectorFlags.WithLabelValues("single_bidder")); got != 4 {
		t.Fatalf("a failed run must keep the last flag count, got %v", got)
	}
}

func TestIngestFinished(t *testing.T) {
	c := NewCollector()
	c.IngestFinished("philgeps_awards", 100, 3, time.Second, nil)
	c.IngestFinished("philgeps_awards", 50, 1, time.Second, nil)

	if got := testutil.ToFloat64(c.IngestRecords.WithLabelValues("philgeps_awards")); got != 150 {
		t.Fatalf("expected 150 records, got %v", got)
	}
	if got := testutil.ToFloat64(c.IngestSkipped.WithLabelValues("philgeps_awards")); got != 4 {
		t.Fatalf("expected 4 skipped, got %v", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	c := NewCollector()
	c.ObserveHTTP("GET", "/api/analytics/stats", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `kwenta_http_requests_total{method="GET",route="/api/analytics/stats",status="200"} 1`) {
		t.Fatalf("metric missing from output:\n%s", body)
	}
}
