package game

import (
	"log/slog"
	"runtime/debug"

	"github.com/cgrimes21/dyewars/internal/ids"
	"github.com/cgrimes21/dyewars/internal/wire"
)

// OnPlayerMoved is invoked synchronously, on the game thread, after a
// move or turn commits. Per spec §9, script hooks must never suspend
// the tick, so implementations must be non-blocking; invokeOnPlayerMoved
// additionally recovers from panics so a misbehaving hook cannot bring
// down the server.
type OnPlayerMoved func(id ids.PlayerID, x, y int16, facing wire.Direction)

func noopOnPlayerMoved(ids.PlayerID, int16, int16, wire.Direction) {}

// invokeOnPlayerMoved calls hook and recovers from any panic, logging it
// instead of propagating — grounded on the teacher's pervasive
// recover-and-log-with-stack pattern around actor Receive methods
// (server/connection_handler.go's defer/recover block).
func invokeOnPlayerMoved(hook OnPlayerMoved, log *slog.Logger, id ids.PlayerID, x, y int16, facing wire.Direction) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in OnPlayerMoved hook", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	hook(id, x, y, facing)
}
