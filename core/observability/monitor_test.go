package observability

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_RecordRequest(t *testing.T) {
	m := NewMonitor()

	m.RecordRequest("GET /echo/*rest", 200, 10*time.Millisecond)
	m.RecordRequest("GET /echo/*rest", 200, 20*time.Millisecond)
	m.RecordRequest("GET /echo/*rest", 500, 30*time.Millisecond)
	m.RecordRequest(KeyNotFound, 404, time.Microsecond)

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "GET /echo/*rest", snap[0].Route)
	assert.Equal(t, KeyNotFound, snap[1].Route)

	echo := snap[0]
	assert.Equal(t, uint64(3), echo.Count)
	assert.Equal(t, uint64(1), echo.ServerErrors)
	assert.Equal(t, uint64(0), echo.ClientErrors)
	assert.Equal(t, 10*time.Millisecond, echo.Min)
	assert.Equal(t, 30*time.Millisecond, echo.Max)
	assert.Equal(t, 20*time.Millisecond, echo.Avg)
	assert.Equal(t, uint64(3), echo.Buckets[3]) // [10ms, 50ms)

	assert.Equal(t, uint64(1), snap[1].ClientErrors)
	assert.Equal(t, uint64(1), snap[1].Buckets[0])
	assert.Equal(t, uint64(4), m.TotalRequests())
}

func TestMonitor_Disabled(t *testing.T) {
	m := NewMonitor()
	m.SetEnabled(false)
	m.RecordRequest("GET /", 200, time.Millisecond)
	assert.Empty(t, m.Snapshot())

	var nilMonitor *Monitor
	assert.NotPanics(t, func() { nilMonitor.RecordRequest("GET /", 200, 0) })
}

func TestMonitor_Bottlenecks(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 10; i++ {
		m.RecordRequest("GET /slow", 200, 150*time.Millisecond)
		m.RecordRequest("GET /fast", 200, time.Millisecond)
	}
	m.RecordRequest("POST /files/*name", 500, time.Millisecond)

	found := map[string]string{}
	for _, b := range m.Bottlenecks() {
		found[b.Location] = b.Type
	}
	assert.Equal(t, map[string]string{
		"GET /slow":         "latency",
		"POST /files/*name": "errors",
	}, found)
}

func TestMonitor_Concurrent(t *testing.T) {
	m := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordRequest("GET /", 200, time.Duration(j)*time.Microsecond)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(800), m.Snapshot()[0].Count)
}

func TestMonitor_LogSummary(t *testing.T) {
	var buf bytes.Buffer
	m := NewMonitor()
	m.RecordRequest("GET /", 200, time.Millisecond)
	m.LogSummary(zerolog.New(&buf))
	assert.Contains(t, buf.String(), `"route":"GET /"`)
	assert.Contains(t, buf.String(), `"message":"route stats"`)
}

func BenchmarkRecordRequest(b *testing.B) {
	m := NewMonitor()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordRequest("GET /echo/*rest", 200, 10*time.Millisecond)
	}
}
