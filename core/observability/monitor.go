// Package observability keeps in-process request statistics for the engine.
package observability

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Route keys used for responses that never reached a handler
const (
	KeyNotFound   = "unmatched"
	KeyBadRequest = "malformed"
)

// Upper bounds of the latency buckets, the last bucket is unbounded
var bucketBounds = [...]time.Duration{
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	5 * time.Second,
	10 * time.Second,
}

const numBuckets = len(bucketBounds) + 1

// Thresholds for Bottlenecks
const (
	slowRouteThreshold = 100 * time.Millisecond
	errorRateThreshold = 0.05
)

// Monitor aggregates per-route request counts, status classes and
// latencies. All methods are safe for concurrent use.
type Monitor struct {
	enabled atomic.Bool
	routes  sync.Map // string -> *routeMetrics

	totalRequests atomic.Uint64
	totalDuration atomic.Uint64
}

type routeMetrics struct {
	count         atomic.Uint64
	clientErrors  atomic.Uint64
	serverErrors  atomic.Uint64
	totalDuration atomic.Uint64
	minDuration   atomic.Uint64
	maxDuration   atomic.Uint64
	buckets       [numBuckets]atomic.Uint64
}

// RouteStats is a point-in-time copy of one route's metrics
type RouteStats struct {
	Route        string
	Count        uint64
	ClientErrors uint64
	ServerErrors uint64
	Min          time.Duration
	Max          time.Duration
	Avg          time.Duration
	Buckets      [numBuckets]uint64
}

// Bottleneck is a route whose latency or error rate stands out
type Bottleneck struct {
	Type     string
	Location string
	Severity int
	Impact   float64
	Details  string
}

// NewMonitor creates an enabled monitor
func NewMonitor() *Monitor {
	m := &Monitor{}
	m.enabled.Store(true)
	return m
}

// SetEnabled turns recording on or off
func (m *Monitor) SetEnabled(on bool) {
	m.enabled.Store(on)
}

// RecordRequest records one response for route
func (m *Monitor) RecordRequest(route string, status int, d time.Duration) {
	if m == nil || !m.enabled.Load() {
		return
	}

	val, ok := m.routes.Load(route)
	if !ok {
		val, _ = m.routes.LoadOrStore(route, &routeMetrics{})
	}
	rm := val.(*routeMetrics)

	rm.count.Add(1)
	switch {
	case status >= 500:
		rm.serverErrors.Add(1)
	case status >= 400:
		rm.clientErrors.Add(1)
	}

	ns := uint64(d.Nanoseconds())
	rm.totalDuration.Add(ns)
	updateMinMax(rm, ns)
	rm.buckets[bucketFor(d)].Add(1)

	m.totalRequests.Add(1)
	m.totalDuration.Add(ns)
}

// TotalRequests returns the number of recorded responses
func (m *Monitor) TotalRequests() uint64 {
	return m.totalRequests.Load()
}

func updateMinMax(rm *routeMetrics, d uint64) {
	for {
		min := rm.minDuration.Load()
		if min != 0 && d >= min {
			break
		}
		if rm.minDuration.CompareAndSwap(min, d) {
			break
		}
	}
	for {
		max := rm.maxDuration.Load()
		if d <= max {
			break
		}
		if rm.maxDuration.CompareAndSwap(max, d) {
			break
		}
	}
}

func bucketFor(d time.Duration) int {
	for i, bound := range bucketBounds {
		if d < bound {
			return i
		}
	}
	return numBuckets - 1
}

// Snapshot returns the stats of every route, sorted by route key
func (m *Monitor) Snapshot() []RouteStats {
	var out []RouteStats
	m.routes.Range(func(key, value any) bool {
		rm := value.(*routeMetrics)
		s := RouteStats{
			Route:        key.(string),
			Count:        rm.count.Load(),
			ClientErrors: rm.clientErrors.Load(),
			ServerErrors: rm.serverErrors.Load(),
			Min:          time.Duration(rm.minDuration.Load()),
			Max:          time.Duration(rm.maxDuration.Load()),
		}
		if s.Count > 0 {
			s.Avg = time.Duration(rm.totalDuration.Load() / s.Count)
		}
		for i := range rm.buckets {
			s.Buckets[i] = rm.buckets[i].Load()
		}
		out = append(out, s)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	return out
}

// Bottlenecks flags slow routes and routes with a high server error rate
func (m *Monitor) Bottlenecks() []Bottleneck {
	var out []Bottleneck
	for _, s := range m.Snapshot() {
		if s.Count == 0 {
			continue
		}
		if s.Avg > slowRouteThreshold {
			out = append(out, Bottleneck{
				Type:     "latency",
				Location: s.Route,
				Severity: 8,
				Impact:   float64(s.Avg) / float64(slowRouteThreshold) * 100,
				Details:  fmt.Sprintf("high latency (%v avg)", s.Avg),
			})
		}
		rate := float64(s.ServerErrors) / float64(s.Count)
		if s.ServerErrors > 0 && rate > errorRateThreshold {
			out = append(out, Bottleneck{
				Type:     "errors",
				Location: s.Route,
				Severity: 10,
				Impact:   rate * 100,
				Details:  fmt.Sprintf("%.1f%% error rate", rate*100),
			})
		}
	}
	return out
}

// LogSummary writes one line per route plus any bottlenecks
func (m *Monitor) LogSummary(log zerolog.Logger) {
	if m == nil {
		return
	}
	for _, s := range m.Snapshot() {
		log.Info().
			Str("route", s.Route).
			Uint64("count", s.Count).
			Uint64("client_errors", s.ClientErrors).
			Uint64("server_errors", s.ServerErrors).
			Dur("min", s.Min).
			Dur("avg", s.Avg).
			Dur("max", s.Max).
			Msg("route stats")
	}
	for _, b := range m.Bottlenecks() {
		log.Warn().
			Str("type", b.Type).
			Str("route", b.Location).
			Int("severity", b.Severity).
			Msg(b.Details)
	}
}
