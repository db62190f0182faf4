// Package metrics is a small, dependency-free collector that renders in
// Prometheus text exposition format. It covers the handful of counters and
// histograms the download pipeline needs without pulling in client_golang.
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Default is the process-wide collector.
var Default = NewRegistry()

// Registry aggregates counters, gauges, and histograms.
type Registry struct {
	counters   sync.Map // key -> *Counter
	gauges     sync.Map // key -> *Gauge
	histograms sync.Map // key -> *Histogram
	startTime  time.Time
}

func NewRegistry() *Registry {
	return &Registry{startTime: time.Now()}
}

// Uptime returns how long the registry has been running.
func (r *Registry) Uptime() time.Duration {
	return time.Since(r.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Add(n int64)  { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Inc()         { g.value.Add(1) }
func (g *Gauge) Dec()         { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks the distribution of observed values.
type Histogram struct {
	name    string
	help    string
	labels  string
	mu      sync.Mutex
	count   int64
	sum     float64
	buckets []bucket
}

type bucket struct {
	le    float64
	count int64
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i := range h.buckets {
		if v <= h.buckets[i].le {
			h.buckets[i].count++
		}
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Counter returns or creates a counter with the given name and label set.
func (r *Registry) Counter(name, help, labels string) *Counter {
	key := name + "{" + labels + "}"
	if v, ok := r.counters.Load(key); ok {
		return v.(*Counter)
	}
	c := &Counter{name: name, help: help, labels: labels}
	actual, _ := r.counters.LoadOrStore(key, c)
	return actual.(*Counter)
}

// Gauge returns or creates a gauge.
func (r *Registry) Gauge(name, help, labels string) *Gauge {
	key := name + "{" + labels + "}"
	if v, ok := r.gauges.Load(key); ok {
		return v.(*Gauge)
	}
	g := &Gauge{name: name, help: help, labels: labels}
	actual, _ := r.gauges.LoadOrStore(key, g)
	return actual.(*Gauge)
}

// Histogram returns or creates a histogram with the given buckets.
func (r *Registry) Histogram(name, help, labels string, buckets []float64) *Histogram {
	key := name + "{" + labels + "}"
	if v, ok := r.histograms.Load(key); ok {
		return v.(*Histogram)
	}
	sort.Float64s(buckets)
	hb := make([]bucket, len(buckets))
	for i, b := range buckets {
		hb[i] = bucket{le: b}
	}
	h := &Histogram{name: name, help: help, labels: labels, buckets: hb}
	actual, _ := r.histograms.LoadOrStore(key, h)
	return actual.(*Histogram)
}

// Export renders the registry in Prometheus text format.
func (r *Registry) Export() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP linklift_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE linklift_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "linklift_uptime_seconds %d\n\n", int64(r.Uptime().Seconds()))

	helpWritten := make(map[string]bool)
	r.counters.Range(func(_, value any) bool {
		c := value.(*Counter)
		if !helpWritten[c.name] {
			fmt.Fprintf(&sb, "# HELP %s %s\n", c.name, c.help)
			fmt.Fprintf(&sb, "# TYPE %s counter\n", c.name)
			helpWritten[c.name] = true
		}
		writeSample(&sb, c.name, c.labels, fmt.Sprintf("%d", c.Value()))
		return true
	})

	helpWritten = make(map[string]bool)
	r.gauges.Range(func(_, value any) bool {
		g := value.(*Gauge)
		if !helpWritten[g.name] {
			fmt.Fprintf(&sb, "# HELP %s %s\n", g.name, g.help)
			fmt.Fprintf(&sb, "# TYPE %s gauge\n", g.name)
			helpWritten[g.name] = true
		}
		writeSample(&sb, g.name, g.labels, fmt.Sprintf("%d", g.Value()))
		return true
	})

	r.histograms.Range(func(_, value any) bool {
		h := value.(*Histogram)
		h.mu.Lock()
		defer h.mu.Unlock()

		fmt.Fprintf(&sb, "# HELP %s %s\n", h.name, h.help)
		fmt.Fprintf(&sb, "# TYPE %s histogram\n", h.name)
		for _, b := range h.buckets {
			le := fmt.Sprintf("%g", b.le)
			if math.IsInf(b.le, 1) {
				le = "+Inf"
			}
			labels := fmt.Sprintf("le=%q", le)
			if h.labels != "" {
				labels = h.labels + "," + labels
			}
			writeSample(&sb, h.name+"_bucket", labels, fmt.Sprintf("%d", b.count))
		}
		writeSample(&sb, h.name+"_count", h.labels, fmt.Sprintf("%d", h.count))
		writeSample(&sb, h.name+"_sum", h.labels, fmt.Sprintf("%f", h.sum))
		return true
	})

	return sb.String()
}

func writeSample(sb *strings.Builder, name, labels, value string) {
	if labels != "" {
		fmt.Fprintf(sb, "%s{%s} %s\n", name, labels, value)
	} else {
		fmt.Fprintf(sb, "%s %s\n", name, value)
	}
}

// Handler serves the registry over HTTP.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		fmt.Fprint(w, r.Export())
	}
}

// --- Pipeline metrics ---

var (
	LinksReceived = Default.Counter("linklift_links_total", "Links received from the messaging surface", "")

	RequestsDone     = Default.Counter("linklift_requests_total", "Requests by terminal outcome", `outcome="done"`)
	RequestsFallback = Default.Counter("linklift_requests_total", "Requests by terminal outcome", `outcome="fallback"`)
	RequestsRejected = Default.Counter("linklift_requests_total", "Requests by terminal outcome", `outcome="rejected"`)
	RequestsFailed   = Default.Counter("linklift_requests_total", "Requests by terminal outcome", `outcome="failed"`)

	RequestsInFlight = Default.Gauge("linklift_requests_in_flight", "Requests currently in the pipeline", "")

	ExtractSeconds = Default.Histogram("linklift_extract_seconds", "Extraction latency in seconds", "",
		[]float64{0.5, 1, 2, 5, 10, 30, 60, 120})
	FetchBytes = Default.Histogram("linklift_fetch_bytes", "Size of fetched media payloads", "",
		[]float64{1 << 20, 5 << 20, 10 << 20, 25 << 20, 50 << 20, 100 << 20, math.Inf(1)})
)

// PlatformCounter returns the per-platform link counter.
func PlatformCounter(platform string) *Counter {
	return Default.Counter("linklift_platform_links_total", "Links received by platform",
		fmt.Sprintf("platform=%q", platform))
}
