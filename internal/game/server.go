// Package game implements the tick loop and accept loop that own every
// piece of authoritative state (spec §4.11): the listening socket, the
// client manager, the player registry, and the world. It is grounded on
// the teacher's GameActor (lguibr/pongo, game/game_actor.go) for the
// single-owner-goroutine-drives-everything shape, adapted from an actor
// mailbox loop to a plain tick loop driven by internal/queue.ActionQueue
// since this core has no actor runtime.
package game

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cgrimes21/dyewars/internal/clients"
	"github.com/cgrimes21/dyewars/internal/config"
	"github.com/cgrimes21/dyewars/internal/conn"
	"github.com/cgrimes21/dyewars/internal/ids"
	"github.com/cgrimes21/dyewars/internal/player"
	"github.com/cgrimes21/dyewars/internal/protocol"
	"github.com/cgrimes21/dyewars/internal/queue"
	"github.com/cgrimes21/dyewars/internal/registry"
	"github.com/cgrimes21/dyewars/internal/wire"
)

// SpawnFunc decides where and facing which way a newly joined player
// appears. The default spawns everyone at the world's center facing
// south; a real deployment would override this with something smarter.
type SpawnFunc func(cfg config.Config) (x, y int16, facing wire.Direction)

func defaultSpawn(cfg config.Config) (int16, int16, wire.Direction) {
	return cfg.WorldWidth / 2, cfg.WorldHeight / 2, wire.DirSouth
}

// Option configures a Server at construction.
type Option func(*Server)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithPersistenceSink overrides the default NoopSink.
func WithPersistenceSink(sink PersistenceSink) Option {
	return func(s *Server) { s.sink = sink }
}

// WithOnPlayerMoved installs a scripting hook invoked after every
// committed move or turn.
func WithOnPlayerMoved(hook OnPlayerMoved) Option {
	return func(s *Server) { s.onPlayerMoved = hook }
}

// WithSpawnFunc overrides the default spawn placement strategy.
func WithSpawnFunc(fn SpawnFunc) Option {
	return func(s *Server) { s.spawn = fn }
}

// connPinger is the subset of clients.Conn the tick loop's ping cadence
// needs beyond the base interface; internal/conn.Connection satisfies it.
// Declared locally (rather than widening clients.Conn) so that interface
// stays minimal for anything that only ever needs to receive frames.
type connPinger interface {
	SendPing(time.Time)
	MissedPings() int
	Close()
}

// Server owns every piece of authoritative state: the listening socket,
// the client manager, the player registry, and the world. Exactly one
// goroutine (the tick loop, inside ListenAndServe) ever reads or mutates
// registry, world, or per-player fields, satisfying the game-domain
// ownership rule in spec §5.
type Server struct {
	cfg config.Config
	log *slog.Logger

	listener net.Listener
	clients  *clients.Manager
	registry *registry.Registry
	world    *World
	actions  *queue.ActionQueue

	sink          PersistenceSink
	onPlayerMoved OnPlayerMoved
	spawn         SpawnFunc
	stats         *statsPublisher

	nextClientID atomic.Uint64

	shutdownOnce      sync.Once
	shutdownRequested chan struct{}
	stopped           chan struct{}
}

// New builds a Server ready to run. It performs no I/O until
// ListenAndServe is called.
func New(cfg config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:               cfg,
		log:               slog.Default(),
		clients:           clients.New(),
		registry:          registry.New(),
		world:             NewWorld(cfg),
		actions:           queue.New(cfg.ActionQueueSize),
		sink:              NoopSink{},
		onPlayerMoved:     noopOnPlayerMoved,
		spawn:             defaultSpawn,
		stats:             newStatsPublisher(),
		shutdownRequested: make(chan struct{}),
		stopped:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the latest published tick snapshot.
func (s *Server) Stats() StatsSnapshot { return s.stats.Get() }

// ListenAndServe binds the listening socket, runs the accept loop and
// the tick loop, and blocks until ctx is cancelled or Shutdown is
// called. It always returns after a full shutdown sequence has run.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.listener = ln

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.acceptLoop(runCtx)
	}()

	s.runTickLoop(runCtx)

	cancel()
	_ = ln.Close()
	s.broadcastShutdown()
	s.drainConnections()
	wg.Wait()
	close(s.stopped)
	return nil
}

// Shutdown requests a graceful stop and waits for ListenAndServe to
// finish its drain-and-close sequence, or for ctx to expire first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownRequested) })
	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("accept error", "error", err)
			continue
		}
		clientID := ids.ClientID(s.nextClientID.Add(1))
		c := conn.New(clientID, nc, s.cfg, s.actions, s.log)
		s.clients.Register(c)
		go c.Run(ctx, s.join, func(playerID ids.PlayerID) {
			s.clients.Unregister(clientID)
			if playerID != ids.NoPlayer {
				s.actions.Push(queue.Disconnect(clientID, "connection closed"))
			}
		})
	}
}

// join round-trips a handshake into the tick loop, which is the only
// goroutine allowed to allocate a Player.
func (s *Server) join(ctx context.Context, clientID ids.ClientID) (queue.JoinResult, error) {
	reply := make(chan queue.JoinResult, 1)
	s.actions.Push(queue.Join(clientID, reply))
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return queue.JoinResult{}, ctx.Err()
	}
}

// runTickLoop is the fixed-rate game loop (spec §4.11). It measures its
// own elapsed time with time.Now/time.Since, both monotonic, and never
// sleeps based on wall-clock time; an overrun tick is recorded but never
// causes a catch-up sleep.
func (s *Server) runTickLoop(ctx context.Context) {
	period := s.cfg.TickPeriod()
	nextPingAt := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdownRequested:
			return
		default:
		}

		tickStart := time.Now()

		drainStart := time.Now()
		for _, cmd := range s.actions.Drain() {
			s.applyCommand(cmd)
		}
		drainDur := time.Since(drainStart)

		broadcastStart := time.Now()
		dirtyCount := s.runBroadcastPass()
		broadcastDur := time.Since(broadcastStart)

		if !tickStart.Before(nextPingAt) {
			s.sendPings()
			nextPingAt = tickStart.Add(s.cfg.PingInterval)
		}

		elapsed := time.Since(tickStart)
		s.stats.record(elapsed, drainDur, broadcastDur, 0, s.cfg.TickBudget, s.clients.Len(), s.registry.Len(), dirtyCount)

		if remaining := period - elapsed; remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// applyCommand executes one drained command. It is the only place that
// mutates the registry or world in response to client input.
func (s *Server) applyCommand(cmd queue.Command) {
	switch cmd.Kind {
	case queue.KindJoin:
		s.handleJoin(cmd)
	case queue.KindMove:
		s.handleMove(cmd)
	case queue.KindTurn:
		s.handleTurn(cmd)
	case queue.KindInteract:
		// Reserved opcode space; combat/interaction systems are a
		// documented non-goal of this core.
	case queue.KindPong:
		// RTT is measured and recorded directly on the connection's I/O
		// goroutine (internal/conn); the tick loop has nothing to do.
	case queue.KindDisconnect:
		s.disconnectClient(cmd.ClientID)
	case queue.KindCustom:
		if cmd.Custom != nil {
			cmd.Custom()
		}
	}
}

func (s *Server) handleJoin(cmd queue.Command) {
	x, y, facing := s.spawn(s.cfg)
	pid := s.registry.CreatePlayer(cmd.ClientID, x, y, facing)
	if err := s.world.Spatial.Add(pid, x, y); err != nil {
		s.log.Error("spatial add failed for new player", "player_id", uint64(pid), "error", err)
	}
	s.world.Visibility.Join(pid)
	s.registry.MarkDirty(pid)
	if cmd.JoinReply != nil {
		cmd.JoinReply <- queue.JoinResult{PlayerID: pid, X: x, Y: y, Facing: facing}
	}
}

func (s *Server) handleMove(cmd queue.Command) {
	p := s.registry.GetByClient(cmd.ClientID)
	if p == nil {
		return
	}
	rules := player.MovementRules{
		BaseCooldown:   s.cfg.MoveCooldown,
		FloorCooldown:  s.cfg.MinEffectiveCooldown,
		PingCompFullMs: s.cfg.PingCompFullMs,
	}
	pingMs := s.pingMsFor(cmd.ClientID)
	isBlocked := func(x, y int16) bool {
		occupied := false
		s.world.Spatial.ForEachInRange(x, y, 0, func(id ids.PlayerID) {
			if id != p.ID {
				occupied = true
			}
		})
		return occupied
	}

	result := p.AttemptMove(time.Now(), cmd.MoveDirection, cmd.MoveFacing, s.world.Map, rules, pingMs, isBlocked)
	if result == player.Success {
		if err := s.world.Spatial.Update(p.ID, p.X, p.Y); err != nil {
			s.log.Error("spatial update failed", "player_id", uint64(p.ID), "error", err)
		}
		s.registry.MarkDirty(p.ID)
		invokeOnPlayerMoved(s.onPlayerMoved, s.log, p.ID, p.X, p.Y, p.Facing)
		s.sink.SavePosition(p.ID, p.X, p.Y)
		return
	}
	c := s.clients.Get(cmd.ClientID)
	if c == nil {
		return
	}
	if result == player.WrongFacing {
		c.Send(protocol.FacingCorrection(p.Facing))
		return
	}
	c.Send(protocol.PositionCorrection(p.X, p.Y, p.Facing))
}

func (s *Server) handleTurn(cmd queue.Command) {
	p := s.registry.GetByClient(cmd.ClientID)
	if p == nil {
		return
	}
	facing, result := p.AttemptTurn(cmd.TurnDirection)
	if result == player.Success {
		s.registry.MarkDirty(p.ID)
		invokeOnPlayerMoved(s.onPlayerMoved, s.log, p.ID, p.X, p.Y, p.Facing)
		return
	}
	if c := s.clients.Get(cmd.ClientID); c != nil {
		c.Send(protocol.FacingCorrection(facing))
	}
}

func (s *Server) pingMsFor(clientID ids.ClientID) int64 {
	c := s.clients.Get(clientID)
	if c == nil {
		return 0
	}
	if reporter, ok := c.(interface{ RTT() time.Duration }); ok {
		return reporter.RTT().Milliseconds()
	}
	return 0
}

func (s *Server) disconnectClient(clientID ids.ClientID) {
	p := s.registry.GetByClient(clientID)
	if p == nil {
		return
	}
	pid := p.ID
	observers := s.world.Visibility.ObserversOf(pid)
	s.world.Visibility.RemovePlayer(pid)
	if err := s.world.Spatial.Remove(pid); err != nil {
		s.log.Error("spatial remove failed", "player_id", uint64(pid), "error", err)
	}
	if _, err := s.registry.Remove(pid); err != nil {
		s.log.Error("registry remove failed", "player_id", uint64(pid), "error", err)
	}
	if len(observers) == 0 {
		return
	}
	frame := protocol.LeftGame(pid)
	snapshot := s.clients.Snapshot()
	for _, obsID := range observers {
		obs := s.registry.Get(obsID)
		if obs == nil {
			continue
		}
		if c := snapshot[obs.ClientID]; c != nil {
			c.Send(frame)
		}
	}
}

// runBroadcastPass implements spec §4.11 step 2-3: for every dirty
// player, compute who now sees it and who it now sees, accumulate
// per-viewer spatial batches, and flush them in one pass. It returns the
// number of players processed, for the stats snapshot.
func (s *Server) runBroadcastPass() int {
	dirty := s.registry.DrainDirty()
	if len(dirty) == 0 {
		return 0
	}

	viewerBatches := make(map[ids.ClientID][]protocol.SpatialEntry)
	leftNotices := make(map[ids.ClientID][]ids.PlayerID)

	for _, d := range dirty {
		p := s.registry.Get(d)
		if p == nil {
			continue
		}

		candidates := make(map[ids.PlayerID]struct{})
		s.world.Spatial.ForEachInRange(p.X, p.Y, s.cfg.ViewRange, func(otherID ids.PlayerID) {
			if otherID == d {
				return
			}
			other := s.registry.Get(otherID)
			if other == nil {
				return
			}
			candidates[otherID] = struct{}{}
			viewerBatches[other.ClientID] = append(viewerBatches[other.ClientID], protocol.SpatialEntry{
				ID: d, X: p.X, Y: p.Y, Facing: p.Facing,
			})
		})

		entered, left := s.world.Visibility.Update(d, candidates)
		for _, e := range entered {
			ep := s.registry.Get(e)
			if ep == nil {
				continue
			}
			viewerBatches[p.ClientID] = append(viewerBatches[p.ClientID], protocol.SpatialEntry{
				ID: e, X: ep.X, Y: ep.Y, Facing: ep.Facing,
			})
		}
		if len(left) > 0 {
			leftNotices[p.ClientID] = append(leftNotices[p.ClientID], left...)
		}
	}

	snapshot := s.clients.Snapshot()
	for clientID, entries := range viewerBatches {
		c := snapshot[clientID]
		if c == nil {
			continue
		}
		for _, pkt := range protocol.BatchPlayerSpatial(entries, s.cfg.MaxBatchEntries) {
			c.Send(pkt)
		}
	}
	for clientID, gone := range leftNotices {
		c := snapshot[clientID]
		if c == nil {
			continue
		}
		for _, pid := range gone {
			c.Send(protocol.LeftGame(pid))
		}
	}
	return len(dirty)
}

func (s *Server) sendPings() {
	snapshot := s.clients.Snapshot()
	now := time.Now()
	for _, c := range snapshot {
		pinger, ok := c.(connPinger)
		if !ok {
			continue
		}
		if pinger.MissedPings() > s.cfg.PingLossLimit {
			s.log.Info("ping timeout, closing connection", "client_id", uint64(c.ClientID()))
			pinger.Close()
			continue
		}
		pinger.SendPing(now)
	}
}

func (s *Server) broadcastShutdown() {
	frame := protocol.ServerShutdown(protocol.ShutdownRestart)
	s.clients.ForEach(func(c clients.Conn) { c.Send(frame) })
}

// drainConnections waits, bounded by cfg.ShutdownDrainTimeout, for
// in-flight send queues to empty out on their own as connections notice
// the shutdown frame and the listener closing; anything still registered
// after the deadline is force-closed.
func (s *Server) drainConnections() {
	deadline := time.Now().Add(s.cfg.ShutdownDrainTimeout)
	for time.Now().Before(deadline) && s.clients.Len() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	s.clients.ForEach(func(c clients.Conn) { c.Close() })
}
