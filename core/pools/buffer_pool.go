package pools

import (
	"sync"
	"sync/atomic"
)

// Buffer pool size classes
const (
	SmallBufferSize  = 1 * 1024  // response heads
	MediumBufferSize = 8 * 1024  // typical compressed echo bodies
	LargeBufferSize  = 64 * 1024 // large compressed bodies
)

// BufferPool hands out byte slices in three size classes.
// Buffers that grew past LargeBufferSize are dropped on Put.
type BufferPool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool

	smallHits  atomic.Uint64
	mediumHits atomic.Uint64
	largeHits  atomic.Uint64
	oversized  atomic.Uint64
	totalGets  atomic.Uint64
	totalPuts  atomic.Uint64
}

func newClass(size int) sync.Pool {
	return sync.Pool{
		New: func() any {
			buf := make([]byte, 0, size)
			return &buf
		},
	}
}

// NewBufferPool creates a new buffer pool
func NewBufferPool() *BufferPool {
	return &BufferPool{
		small:  newClass(SmallBufferSize),
		medium: newClass(MediumBufferSize),
		large:  newClass(LargeBufferSize),
	}
}

// Get returns an empty buffer with capacity for at least estimatedSize
// bytes when estimatedSize fits a size class.
func (bp *BufferPool) Get(estimatedSize int) *[]byte {
	bp.totalGets.Add(1)

	switch {
	case estimatedSize <= SmallBufferSize:
		bp.smallHits.Add(1)
		return bp.small.Get().(*[]byte)
	case estimatedSize <= MediumBufferSize:
		bp.mediumHits.Add(1)
		return bp.medium.Get().(*[]byte)
	case estimatedSize <= LargeBufferSize:
		bp.largeHits.Add(1)
		return bp.large.Get().(*[]byte)
	default:
		bp.oversized.Add(1)
		buf := make([]byte, 0, estimatedSize)
		return &buf
	}
}

// Put returns a buffer to the class matching its capacity
func (bp *BufferPool) Put(buf *[]byte) {
	if buf == nil {
		return
	}
	*buf = (*buf)[:0]

	switch c := cap(*buf); {
	case c < SmallBufferSize:
		return
	case c < MediumBufferSize:
		bp.small.Put(buf)
	case c < LargeBufferSize:
		bp.medium.Put(buf)
	case c <= LargeBufferSize:
		bp.large.Put(buf)
	default:
		return
	}
	bp.totalPuts.Add(1)
}

// Stats returns buffer pool statistics
func (bp *BufferPool) Stats() BufferStats {
	total := bp.totalGets.Load()
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(bp.smallHits.Load()+bp.mediumHits.Load()+bp.largeHits.Load()) / float64(total)
	}
	return BufferStats{
		SmallHits:  bp.smallHits.Load(),
		MediumHits: bp.mediumHits.Load(),
		LargeHits:  bp.largeHits.Load(),
		Oversized:  bp.oversized.Load(),
		TotalGets:  total,
		TotalPuts:  bp.totalPuts.Load(),
		HitRate:    hitRate,
	}
}

// BufferStats contains buffer pool statistics
type BufferStats struct {
	SmallHits  uint64
	MediumHits uint64
	LargeHits  uint64
	Oversized  uint64
	TotalGets  uint64
	TotalPuts  uint64
	HitRate    float64
}

var globalBufferPool = NewBufferPool()

// AcquireBuffer gets a buffer from the global pool
func AcquireBuffer(estimatedSize int) *[]byte {
	return globalBufferPool.Get(estimatedSize)
}

// ReleaseBuffer returns a buffer to the global pool
func ReleaseBuffer(buf *[]byte) {
	globalBufferPool.Put(buf)
}

// GetBufferStats returns statistics for the global buffer pool
func GetBufferStats() BufferStats {
	return globalBufferPool.Stats()
}
