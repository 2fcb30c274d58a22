package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/freeindiatools/freetools/internal/session"
)

// Collectorはsession.Observerインターフェースを満たすことを検証
func TestCollector_ImplementsSessionObserver(t *testing.T) {
	var _ session.Observer = (*Collector)(nil)
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// counterValue は指定名のカウンタ値を取得するヘルパー。
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for k, v := range labels {
				matched := false
				for _, lp := range m.GetLabel() {
					if lp.GetName() == k && lp.GetValue() == v {
						matched = true
					}
				}
				if !matched {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

// TestSessionPublished_RecordsByRole はセッション公開がロール別に記録されることを検証する。
func TestSessionPublished_RecordsByRole(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SessionPublished("user")
	c.SessionPublished("user")
	c.SessionPublished("admin")
	c.SessionPublished("") // absentはrole=noneとして記録される

	if v := counterValue(t, reg, "freetools_session_published_total", map[string]string{"role": "user"}); v != 2 {
		t.Errorf("session_published_total{role=user} = %v, want 2", v)
	}
	if v := counterValue(t, reg, "freetools_session_published_total", map[string]string{"role": "admin"}); v != 1 {
		t.Errorf("session_published_total{role=admin} = %v, want 1", v)
	}
	if v := counterValue(t, reg, "freetools_session_published_total", map[string]string{"role": "none"}); v != 1 {
		t.Errorf("session_published_total{role=none} = %v, want 1", v)
	}
}

// TestStaleMergeDropped_IncrementsCounter は破棄カウンタが増加することを検証する。
func TestStaleMergeDropped_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.StaleMergeDropped()
	c.StaleMergeDropped()

	if v := counterValue(t, reg, "freetools_stale_merge_dropped_total", nil); v != 2 {
		t.Errorf("stale_merge_dropped_total = %v, want 2", v)
	}
}

// TestProfileFetchFailed_IncrementsCounter はフォールバックカウンタが増加することを検証する。
func TestProfileFetchFailed_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ProfileFetchFailed()

	if v := counterValue(t, reg, "freetools_profile_fetch_fail_total", nil); v != 1 {
		t.Errorf("profile_fetch_fail_total = %v, want 1", v)
	}
}

// TestRecordLogin_RecordsByMethod はログインがメソッド別に記録されることを検証する。
func TestRecordLogin_RecordsByMethod(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("password")
	c.RecordLogin("google")
	c.RecordLogin("google")

	if v := counterValue(t, reg, "freetools_logins_total", map[string]string{"method": "google"}); v != 2 {
		t.Errorf("logins_total{method=google} = %v, want 2", v)
	}
}

// TestRecordToolSubmission_RecordsByCategory は投稿がカテゴリ別に記録されることを検証する。
func TestRecordToolSubmission_RecordsByCategory(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordToolSubmission("design")

	if v := counterValue(t, reg, "freetools_tool_submissions_total", map[string]string{"category": "design"}); v != 1 {
		t.Errorf("tool_submissions_total{category=design} = %v, want 1", v)
	}
}

func TestRecordValidationFailure_RecordsByForm(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordValidationFailure("signup")
	c.RecordValidationFailure("signup")
	c.RecordValidationFailure("tool_submission")

	if v := counterValue(t, reg, "freetools_validation_failures_total", map[string]string{"form": "signup"}); v != 2 {
		t.Errorf("validation_failures_total{form=signup} = %v, want 2", v)
	}
	if v := counterValue(t, reg, "freetools_validation_failures_total", map[string]string{"form": "tool_submission"}); v != 1 {
		t.Errorf("validation_failures_total{form=tool_submission} = %v, want 1", v)
	}
}

// TestRecordHTTPStatus_RecordsByCode はステータスコード別に記録されることを検証する。
func TestRecordHTTPStatus_RecordsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	if v := counterValue(t, reg, "freetools_http_status_total", map[string]string{"status_code": "200"}); v != 2 {
		t.Errorf("http_status_total{status_code=200} = %v, want 2", v)
	}
}

// TestRecordRequestLatency_Observes はレイテンシが記録されることを検証する。
func TestRecordRequestLatency_Observes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(42 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == "freetools_request_latency_seconds" {
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 1 {
				t.Errorf("latency sample count = %d, want 1", count)
			}
			return
		}
	}
	t.Error("freetools_request_latency_seconds metric not found")
}

// TestHandler_ServesMetrics は/metricsエンドポイントがスクレイプ可能なことを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordSignup()

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read metrics response: %v", err)
	}
	if !strings.Contains(string(body), "freetools_signups_total 1") {
		t.Errorf("metrics output missing signups counter:\n%s", string(body))
	}
}
