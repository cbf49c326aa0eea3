package pools

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPool_SizeClasses(t *testing.T) {
	bp := NewBufferPool()

	tests := []struct {
		size   int
		minCap int
	}{
		{0, SmallBufferSize},
		{SmallBufferSize, SmallBufferSize},
		{SmallBufferSize + 1, MediumBufferSize},
		{LargeBufferSize, LargeBufferSize},
		{LargeBufferSize + 1, LargeBufferSize + 1},
	}
	for _, tt := range tests {
		buf := bp.Get(tt.size)
		require.NotNil(t, buf)
		assert.Empty(t, *buf)
		assert.GreaterOrEqual(t, cap(*buf), tt.minCap, "size %d", tt.size)
		bp.Put(buf)
	}

	stats := bp.Stats()
	assert.Equal(t, uint64(5), stats.TotalGets)
	assert.Equal(t, uint64(2), stats.SmallHits)
	assert.Equal(t, uint64(1), stats.MediumHits)
	assert.Equal(t, uint64(1), stats.LargeHits)
	assert.Equal(t, uint64(1), stats.Oversized)
	assert.Equal(t, uint64(4), stats.TotalPuts)
	assert.InDelta(t, 0.8, stats.HitRate, 1e-9)
}

func TestBufferPool_PutResetsLength(t *testing.T) {
	bp := NewBufferPool()
	buf := bp.Get(10)
	*buf = append(*buf, "dirty"...)
	bp.Put(buf)
	assert.Empty(t, *buf)

	bp.Put(nil)
	tiny := make([]byte, 0, 16)
	bp.Put(&tiny)
	assert.Equal(t, uint64(1), bp.Stats().TotalPuts)
}

func TestBufferPool_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf := AcquireBuffer(i * 512)
				*buf = append(*buf, byte(i))
				assert.Equal(t, byte(i), (*buf)[0])
				ReleaseBuffer(buf)
			}
		}(i)
	}
	wg.Wait()
	assert.GreaterOrEqual(t, GetBufferStats().TotalGets, uint64(1600))
}

func BenchmarkBufferPool(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := AcquireBuffer(256)
			*buf = append(*buf, "HTTP/1.1 200 OK\r\n"...)
			ReleaseBuffer(buf)
		}
	})
}
