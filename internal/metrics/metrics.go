package metrics

import (
	"log/slog"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Operation label values.
const (
	OpUpsert = "upsert"
	OpRemove = "remove"
	OpList   = "list"
)

// Rejection reason label values.
const (
	ReasonMalformed = "malformed"
	ReasonOversized = "oversized"
	ReasonMethod    = "method"
	ReasonNotFound  = "not_found"
)

// Family names.
const (
	RecordsName    = "rosterd_records"
	OperationsName = "rosterd_operations_total"
	RejectedName   = "rosterd_rejected_requests_total"
)

// Recorder receives request outcomes from the API layer.
type Recorder interface {
	ObserveOperation(op string)
	ObserveRejection(reason string)
}

// Registry counts operations and rejections and renders them on demand.
// It is safe for concurrent use.
type Registry struct {
	records func() int

	mu       sync.Mutex
	ops      map[string]float64
	rejected map[string]float64
}

// New creates a Registry. records is called at every scrape to fill the
// rosterd_records gauge; nil reports zero.
func New(records func() int) *Registry {
	r := &Registry{
		records:  records,
		ops:      make(map[string]float64),
		rejected: make(map[string]float64),
	}
	// Known series start at zero so rate() works from the first scrape.
	for _, op := range []string{OpUpsert, OpRemove, OpList} {
		r.ops[op] = 0
	}
	for _, reason := range []string{ReasonMalformed, ReasonOversized, ReasonMethod, ReasonNotFound} {
		r.rejected[reason] = 0
	}
	return r
}

// ObserveOperation increments rosterd_operations_total{op}.
func (r *Registry) ObserveOperation(op string) {
	r.mu.Lock()
	r.ops[op]++
	r.mu.Unlock()
}

// ObserveRejection increments rosterd_rejected_requests_total{reason}.
func (r *Registry) ObserveRejection(reason string) {
	r.mu.Lock()
	r.rejected[reason]++
	r.mu.Unlock()
}

// Gather returns the current metric families sorted by name.
func (r *Registry) Gather() []*dto.MetricFamily {
	var n int
	if r.records != nil {
		n = r.records()
	}

	r.mu.Lock()
	ops := counterFamily(OperationsName, "Store operations applied, by operation.", "op", r.ops)
	rejected := counterFamily(RejectedName, "Requests rejected before reaching the store, by reason.", "reason", r.rejected)
	r.mu.Unlock()

	records := &dto.MetricFamily{
		Name: proto.String(RecordsName),
		Help: proto.String("Records currently held in memory."),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{
			Gauge: &dto.Gauge{Value: proto.Float64(float64(n))},
		}},
	}

	// Sorted by name: operations, records, rejected.
	return []*dto.MetricFamily{ops, records, rejected}
}

// ServeHTTP writes all families in the Prometheus text format.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodHead {
		return
	}

	enc := expfmt.NewEncoder(w, format)
	for _, mf := range r.Gather() {
		if err := enc.Encode(mf); err != nil {
			slog.Warn("metrics: encode failed", "family", mf.GetName(), "err", err)
			return
		}
	}
}

// counterFamily builds a counter family with one series per label value.
// Callers hold r.mu.
func counterFamily(name, help, label string, values map[string]float64) *dto.MetricFamily {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	metrics := make([]*dto.Metric, 0, len(keys))
	for _, k := range keys {
		metrics = append(metrics, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: proto.String(label), Value: proto.String(k)}},
			Counter: &dto.Counter{Value: proto.Float64(values[k])},
		})
	}
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: metrics,
	}
}
