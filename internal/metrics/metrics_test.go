package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric はレジストリから指定名・ラベルに一致するメトリクスを探す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	got := make(map[string]string)
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range labels {
		if got[k] != v {
			return false
		}
	}
	return true
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestNewCollector_DoubleRegisterPanics は同一レジストリへの二重登録がpanicすることを検証する。
func TestNewCollector_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	_ = NewCollector(reg)
}

// TestCounters_Increment は認証・クリーンアップのカウンタが増加することを検証する。
func TestCounters_Increment(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSignup()
	c.RecordSignup()
	c.RecordLoginFailure()
	c.RecordSessionsCleaned(5)
	c.RecordSessionsCleaned(0)

	tests := []struct {
		name string
		want float64
	}{
		{"fitlog_signups_total", 2},
		{"fitlog_login_failures_total", 1},
		{"fitlog_sessions_cleaned_total", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := findMetric(t, reg, tt.name, nil)
			if m == nil {
				t.Fatalf("%s metric not found", tt.name)
			}
			if got := m.GetCounter().GetValue(); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

// TestRecordActivity_LabelsByKind は活動記録が種別ラベルごとに集計されることを検証する。
func TestRecordActivity_LabelsByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordActivity("meal")
	c.RecordActivity("meal")
	c.RecordActivity("workout")

	meal := findMetric(t, reg, "fitlog_activity_logged_total", map[string]string{"kind": "meal"})
	if meal == nil || meal.GetCounter().GetValue() != 2 {
		t.Errorf("meal count = %v, want 2", meal.GetCounter().GetValue())
	}
	workout := findMetric(t, reg, "fitlog_activity_logged_total", map[string]string{"kind": "workout"})
	if workout == nil || workout.GetCounter().GetValue() != 1 {
		t.Errorf("workout count = %v, want 1", workout.GetCounter().GetValue())
	}
	if weight := findMetric(t, reg, "fitlog_activity_logged_total", map[string]string{"kind": "weight"}); weight != nil {
		t.Error("weight series should not exist before any weight is logged")
	}
}

// TestMiddleware_RecordsRoutePattern はルートパターン単位でHTTPメトリクスが記録されることを検証する。
func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	r := chi.NewRouter()
	r.Use(c.Middleware())
	r.Get("/api/progress-photos/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})

	for _, path := range []string{"/api/progress-photos/a", "/api/progress-photos/b", "/api/dashboard"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	photo := findMetric(t, reg, "fitlog_http_requests_total", map[string]string{
		"route":       "/api/progress-photos/{id}",
		"method":      "GET",
		"status_code": "404",
	})
	if photo == nil {
		t.Fatal("expected series for /api/progress-photos/{id}")
	}
	if got := photo.GetCounter().GetValue(); got != 2 {
		t.Errorf("photo requests = %v, want 2", got)
	}

	dashboard := findMetric(t, reg, "fitlog_http_requests_total", map[string]string{
		"route":       "/api/dashboard",
		"status_code": "200",
	})
	if dashboard == nil {
		t.Fatal("expected series for /api/dashboard with implicit 200")
	}

	hist := findMetric(t, reg, "fitlog_http_request_duration_seconds", map[string]string{"route": "/api/dashboard"})
	if hist == nil || hist.GetHistogram().GetSampleCount() != 1 {
		t.Error("expected one duration observation for /api/dashboard")
	}
}

// TestRecordHTTPRequest_Direct はミドルウェアを介さない記録を検証する。
func TestRecordHTTPRequest_Direct(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("/api/login", http.MethodPost, http.StatusUnauthorized, 15*time.Millisecond)

	m := findMetric(t, reg, "fitlog_http_requests_total", map[string]string{"route": "/api/login", "status_code": "401"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Error("expected one /api/login 401 request")
	}
}
