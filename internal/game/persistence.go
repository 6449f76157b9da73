package game

import (
	"log/slog"

	"github.com/cgrimes21/dyewars/internal/ids"
)

// PersistenceSink is the narrow, optional interface the core submits
// player-state writes to (spec §6). The core never blocks on it: the
// default implementation is a no-op, and AsyncSink hands writes to a
// bounded channel drained by an external goroutine, dropping the new
// write when the channel is full rather than ever blocking the tick that
// calls it.
type PersistenceSink interface {
	SavePosition(id ids.PlayerID, x, y int16)
	UpdateStats(id ids.PlayerID, level, exp int64)
}

// NoopSink discards every write. It is the default sink so the server
// runs with no persistence backend configured.
type NoopSink struct{}

func (NoopSink) SavePosition(ids.PlayerID, int16, int16)  {}
func (NoopSink) UpdateStats(ids.PlayerID, int64, int64)   {}

type positionWrite struct {
	id   ids.PlayerID
	x, y int16
}

type statsWrite struct {
	id         ids.PlayerID
	level, exp int64
}

// AsyncSink queues writes onto bounded channels and hands them to
// whatever goroutine calls Run, which is expected to forward them to an
// external store. If a channel is full, the new write is dropped and
// logged, rather than blocking the submitting tick; writes already
// queued are kept.
type AsyncSink struct {
	positions chan positionWrite
	stats     chan statsWrite
	log       *slog.Logger
}

// NewAsyncSink builds a sink with the given per-channel buffer size.
func NewAsyncSink(bufSize int, log *slog.Logger) *AsyncSink {
	return &AsyncSink{
		positions: make(chan positionWrite, bufSize),
		stats:     make(chan statsWrite, bufSize),
		log:       log,
	}
}

func (s *AsyncSink) SavePosition(id ids.PlayerID, x, y int16) {
	select {
	case s.positions <- positionWrite{id, x, y}:
	default:
		s.log.Warn("persistence sink: dropping position write, channel full", "player_id", uint64(id))
	}
}

func (s *AsyncSink) UpdateStats(id ids.PlayerID, level, exp int64) {
	select {
	case s.stats <- statsWrite{id, level, exp}:
	default:
		s.log.Warn("persistence sink: dropping stats write, channel full", "player_id", uint64(id))
	}
}

// Run drains both channels until ctx-style cancellation is signalled by
// closing done, forwarding each write to savePos/saveStats. It is meant
// to run on a goroutine external to the game thread, per spec §6's "the
// sink's thread is external."
func (s *AsyncSink) Run(done <-chan struct{}, savePos func(ids.PlayerID, int16, int16), saveStats func(ids.PlayerID, int64, int64)) {
	for {
		select {
		case w := <-s.positions:
			savePos(w.id, w.x, w.y)
		case w := <-s.stats:
			saveStats(w.id, w.level, w.exp)
		case <-done:
			return
		}
	}
}
