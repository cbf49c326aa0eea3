package pools

import (
	"sync"
	"sync/atomic"
)

// Resetter is implemented by objects that can be reused after Reset
type Resetter interface {
	Reset()
}

// ConnectionPool recycles per-connection state such as read buffers
type ConnectionPool[T Resetter] struct {
	pool sync.Pool
	gets atomic.Uint64
	puts atomic.Uint64
	news atomic.Uint64
}

// ConnectionPoolStats contains connection pool statistics
type ConnectionPoolStats struct {
	Gets    uint64  `json:"gets"`
	Puts    uint64  `json:"puts"`
	News    uint64  `json:"news"`
	HitRate float64 `json:"hit_rate"`
}

// NewConnectionPool creates a new connection pool
func NewConnectionPool[T Resetter](newFunc func() T) *ConnectionPool[T] {
	cp := &ConnectionPool[T]{}
	cp.pool.New = func() any {
		cp.news.Add(1)
		return newFunc()
	}
	return cp
}

// Get retrieves an object from the pool
func (cp *ConnectionPool[T]) Get() T {
	cp.gets.Add(1)
	return cp.pool.Get().(T)
}

// Put resets obj and returns it to the pool
func (cp *ConnectionPool[T]) Put(obj T) {
	obj.Reset()
	cp.puts.Add(1)
	cp.pool.Put(obj)
}

// Stats returns pool statistics. HitRate is the share of Gets served
// by a recycled object.
func (cp *ConnectionPool[T]) Stats() ConnectionPoolStats {
	g := cp.gets.Load()
	n := cp.news.Load()
	s := ConnectionPoolStats{Gets: g, Puts: cp.puts.Load(), News: n}
	if g > 0 && n <= g {
		s.HitRate = float64(g-n) / float64(g)
	}
	return s
}
