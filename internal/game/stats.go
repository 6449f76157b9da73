package game

import (
	"sync/atomic"
	"time"
)

// StatsSnapshot is a read-only view of one tick's timings and the
// server's current connection counts, published for an out-of-scope
// dashboard to poll. The shape is this project's own addition — the
// wire spec only requires that such a snapshot exist and not block the
// tick — grounded on the teacher's GameActor.gameStateJSON atomic.Value
// publish-on-tick pattern (game/game_actor.go), adapted from a
// JSON-marshalled blob to a plain struct since there is no HTTP handler
// in this core to serve JSON to.
type StatsSnapshot struct {
	TickNumber       uint64
	LastTick         time.Duration
	AvgTick          time.Duration
	MaxTick          time.Duration
	TickOverruns     uint64
	DrainDuration    time.Duration
	BroadcastDuration time.Duration
	// FlushDuration is always zero: the flush of per-viewer batches runs
	// inside the broadcast pass and is counted in BroadcastDuration.
	FlushDuration    time.Duration
	ConnectionCount  int
	PlayerCount      int
	DirtyPlayerCount int
}

// statsPublisher tracks the running average/max tick time and exposes
// the latest snapshot atomically. Reads never block the tick; the
// publisher is a plain struct rather than atomic.Value of StatsSnapshot
// directly so Get always returns a consistent copy without requiring
// StatsSnapshot to be immutable-by-convention.
type statsPublisher struct {
	value atomic.Pointer[StatsSnapshot]

	tickNumber uint64
	totalTick  time.Duration
	maxTick    time.Duration
	overruns   uint64
}

func newStatsPublisher() *statsPublisher {
	p := &statsPublisher{}
	p.value.Store(&StatsSnapshot{})
	return p
}

func (p *statsPublisher) record(last, drain, broadcast, flush time.Duration, budget time.Duration, connCount, playerCount, dirtyCount int) {
	p.tickNumber++
	p.totalTick += last
	if last > p.maxTick {
		p.maxTick = last
	}
	if last > budget {
		p.overruns++
	}
	avg := p.totalTick / time.Duration(p.tickNumber)
	p.value.Store(&StatsSnapshot{
		TickNumber:        p.tickNumber,
		LastTick:          last,
		AvgTick:           avg,
		MaxTick:           p.maxTick,
		TickOverruns:      p.overruns,
		DrainDuration:     drain,
		BroadcastDuration: broadcast,
		FlushDuration:     flush,
		ConnectionCount:   connCount,
		PlayerCount:       playerCount,
		DirtyPlayerCount:  dirtyCount,
	})
}

func (p *statsPublisher) Get() StatsSnapshot {
	return *p.value.Load()
}
