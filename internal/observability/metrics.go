package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the gateway.
type Metrics struct {
	mu               sync.Mutex
	requestCount     map[string]int64
	errorCount       map[string]int64
	forwardCount     map[string]int64
	upstreamFailures map[string]int64
	forwardLatency   map[string]time.Duration
}

// Snapshot is a point-in-time copy of the counters, safe to serialize.
type Snapshot struct {
	Requests         map[string]int64 `json:"requests"`
	Errors           map[string]int64 `json:"errors"`
	Forwarded        map[string]int64 `json:"forwarded"`
	UpstreamFailures map[string]int64 `json:"upstream_failures"`
	AvgForwardMillis map[string]int64 `json:"avg_forward_ms"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:     make(map[string]int64),
		errorCount:       make(map[string]int64),
		forwardCount:     make(map[string]int64),
		upstreamFailures: make(map[string]int64),
		forwardLatency:   make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for inbound requests.
func (m *Metrics) RecordRequest(path, method string, status int) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
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

// RecordForward counts one backend call for a route along with its latency.
func (m *Metrics) RecordForward(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := route + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forwardCount[key]++
	m.forwardLatency[route] += duration
}

// RecordUpstreamFailure counts a backend call that produced no usable response.
func (m *Metrics) RecordUpstreamFailure(route string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upstreamFailures[route]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Requests:         copyCounts(m.requestCount),
		Errors:           copyCounts(m.errorCount),
		Forwarded:        copyCounts(m.forwardCount),
		UpstreamFailures: copyCounts(m.upstreamFailures),
		AvgForwardMillis: make(map[string]int64, len(m.forwardLatency)),
	}

	perRoute := make(map[string]int64)
	for key, n := range m.forwardCount {
		perRoute[routeOf(key)] += n
	}
	for route, total := range m.forwardLatency {
		if n := perRoute[route]; n > 0 {
			snap.AvgForwardMillis[route] = total.Milliseconds() / n
		}
	}
	return snap
}

// Routes lists every route that has been forwarded at least once, sorted.
func (s Snapshot) Routes() []string {
	routes := make([]string, 0, len(s.AvgForwardMillis))
	for route := range s.AvgForwardMillis {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	return routes
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

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
