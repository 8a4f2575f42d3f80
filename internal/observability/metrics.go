package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	latencyTotal map[string]time.Duration
	started      time.Time
}

// Counter is one labeled count in a snapshot.
type Counter struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	UptimeSeconds int64     `json:"uptime_seconds"`
	Requests      []Counter `json:"requests"`
	Errors        []Counter `json:"errors"`
	// AvgLatencyMS is keyed by "path|method".
	AvgLatencyMS map[string]float64 `json:"avg_latency_ms"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
		started:      time.Now(),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal[path+"|"+method] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Snapshot copies the current counters, sorted by key.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{AvgLatencyMS: map[string]float64{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	perRoute := make(map[string]int64, len(m.latencyTotal))
	for key, count := range m.requestCount {
		perRoute[routeOf(key)] += count
	}
	avg := make(map[string]float64, len(m.latencyTotal))
	for route, total := range m.latencyTotal {
		if n := perRoute[route]; n > 0 {
			avg[route] = float64(total.Microseconds()) / 1000 / float64(n)
		}
	}

	return Snapshot{
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
		Requests:      counters(m.requestCount),
		Errors:        counters(m.errorCount),
		AvgLatencyMS:  avg,
	}
}

func counters(src map[string]int64) []Counter {
	out := make([]Counter, 0, len(src))
	for key, count := range src {
		out = append(out, Counter{Key: key, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// routeOf strips the trailing status from a request key.
func routeOf(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '|' {
			return key[:i]
		}
	}
	return key
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
