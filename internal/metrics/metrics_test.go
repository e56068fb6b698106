package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

func scrape(t *testing.T, h http.Handler) map[string]*dto.MetricFamily {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rr.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}
	return mfs
}

// valueFor returns the counter value of the series whose label equals want.
func valueFor(t *testing.T, mf *dto.MetricFamily, want string) float64 {
	t.Helper()
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetValue() == want {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("%s: no series with label value %q", mf.GetName(), want)
	return 0
}

func TestServeHTTP_InitialFamilies(t *testing.T) {
	reg := New(func() int { return 0 })
	mfs := scrape(t, reg)

	for _, name := range []string{RecordsName, OperationsName, RejectedName} {
		if _, ok := mfs[name]; !ok {
			t.Errorf("family %s missing from exposition", name)
		}
	}
	if got := len(mfs[OperationsName].GetMetric()); got != 3 {
		t.Errorf("%s series: got %d, want 3", OperationsName, got)
	}
	if got := len(mfs[RejectedName].GetMetric()); got != 4 {
		t.Errorf("%s series: got %d, want 4", RejectedName, got)
	}
	if v := valueFor(t, mfs[OperationsName], OpUpsert); v != 0 {
		t.Errorf("upsert: got %v, want 0", v)
	}
}

func TestServeHTTP_CountsAndGauge(t *testing.T) {
	records := 7
	reg := New(func() int { return records })

	reg.ObserveOperation(OpUpsert)
	reg.ObserveOperation(OpUpsert)
	reg.ObserveOperation(OpList)
	reg.ObserveRejection(ReasonOversized)

	mfs := scrape(t, reg)

	if v := mfs[RecordsName].GetMetric()[0].GetGauge().GetValue(); v != 7 {
		t.Errorf("%s: got %v, want 7", RecordsName, v)
	}
	if v := valueFor(t, mfs[OperationsName], OpUpsert); v != 2 {
		t.Errorf("upsert: got %v, want 2", v)
	}
	if v := valueFor(t, mfs[OperationsName], OpList); v != 1 {
		t.Errorf("list: got %v, want 1", v)
	}
	if v := valueFor(t, mfs[OperationsName], OpRemove); v != 0 {
		t.Errorf("remove: got %v, want 0", v)
	}
	if v := valueFor(t, mfs[RejectedName], ReasonOversized); v != 1 {
		t.Errorf("oversized: got %v, want 1", v)
	}

	// The gauge is read at scrape time, not at construction.
	records = 2
	mfs = scrape(t, reg)
	if v := mfs[RecordsName].GetMetric()[0].GetGauge().GetValue(); v != 2 {
		t.Errorf("%s after change: got %v, want 2", RecordsName, v)
	}
}

func TestServeHTTP_NilRecordsFunc(t *testing.T) {
	mfs := scrape(t, New(nil))
	if v := mfs[RecordsName].GetMetric()[0].GetGauge().GetValue(); v != 0 {
		t.Errorf("%s: got %v, want 0", RecordsName, v)
	}
}

func TestServeHTTP_ContentType(t *testing.T) {
	rr := httptest.NewRecorder()
	New(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type: got %q, want text/plain", ct)
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	New(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

func TestConcurrentObserve(t *testing.T) {
	reg := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.ObserveOperation(OpRemove)
		}()
		go func() {
			defer wg.Done()
			reg.Gather()
		}()
	}
	wg.Wait()

	mfs := scrape(t, reg)
	if v := valueFor(t, mfs[OperationsName], OpRemove); v != 100 {
		t.Errorf("remove: got %v, want 100", v)
	}
}
