package core

import (
	"encoding/json"
	"fmt"

	"github.com/searchktools/mini-server/core/pools"
)

// PoolStats represents statistics for the engine's pools and connections
type PoolStats struct {
	ActiveConnections int                       `json:"active_connections"`
	TotalConnections  uint64                    `json:"total_connections"`
	Connection        pools.ConnectionPoolStats `json:"connection"`
	Buffers           BufferPoolStats           `json:"buffers"`
}

type BufferPoolStats struct {
	Small     uint64  `json:"small"`
	Medium    uint64  `json:"medium"`
	Large     uint64  `json:"large"`
	Oversized uint64  `json:"oversized"`
	HitRate   float64 `json:"hit_rate"`
}

// GetPoolStats returns statistics for all memory pools
func (e *Engine) GetPoolStats() PoolStats {
	buf := pools.GetBufferStats()
	return PoolStats{
		ActiveConnections: e.ActiveConnections(),
		TotalConnections:  e.totalConns.Load(),
		Connection:        e.connPool.Stats(),
		Buffers: BufferPoolStats{
			Small:     buf.SmallHits,
			Medium:    buf.MediumHits,
			Large:     buf.LargeHits,
			Oversized: buf.Oversized,
			HitRate:   buf.HitRate,
		},
	}
}

// String returns a JSON representation of pool stats
func (ps PoolStats) String() string {
	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return fmt.Sprintf("error marshaling stats: %v", err)
	}
	return string(data)
}
