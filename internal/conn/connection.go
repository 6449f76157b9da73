// Package conn implements the per-socket connection state machine (spec
// §4.8): Handshaking -> Active -> Closing, a framed read loop feeding the
// shared action queue, and a sequential per-connection send loop. It is
// grounded on the teacher's ConnectionHandlerActor (lguibr/pongo,
// server/connection_handler.go) — the read-loop-goroutine-plus-error-
// propagation shape is the same, adapted from a WebSocket/JSON/actor
// transport to a raw TCP/binary-frame transport with no actor runtime:
// the action queue takes the place of the actor mailbox as the hand-off
// into the domain that owns game state.
package conn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cgrimes21/dyewars/internal/config"
	"github.com/cgrimes21/dyewars/internal/ids"
	"github.com/cgrimes21/dyewars/internal/protocol"
	"github.com/cgrimes21/dyewars/internal/queue"
	"github.com/cgrimes21/dyewars/internal/wire"
)

// State is the connection's lifecycle phase.
type State int32

const (
	StateHandshaking State = iota
	StateActive
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "Handshaking"
	case StateActive:
		return "Active"
	case StateClosing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// Connection owns one accepted socket. Every exported method is safe to
// call from any goroutine; the read loop and write loop are each owned
// by exactly one goroutine, per the spec's "never interleave two packet
// writes" rule.
type Connection struct {
	id     ids.ClientID
	nc     net.Conn
	cfg    config.Config
	actions *queue.ActionQueue
	log    *slog.Logger

	state atomic.Int32

	sendCh    chan []byte
	stopWrite chan struct{}
	closeOnce sync.Once
	closed    chan struct{}

	violations     atomic.Int32
	invalidPackets atomic.Int64
	bytesIn        atomic.Int64
	bytesOut       atomic.Int64

	rtt rttTracker
}

// New builds a Connection wrapping an accepted socket. It does not start
// any goroutines; call Run to begin the handshake and read/write loops.
func New(id ids.ClientID, nc net.Conn, cfg config.Config, actions *queue.ActionQueue, log *slog.Logger) *Connection {
	c := &Connection{
		id:      id,
		nc:      nc,
		cfg:     cfg,
		actions: actions,
		log:     log.With("client_id", uint64(id), "remote_addr", nc.RemoteAddr().String()),
		sendCh:    make(chan []byte, cfg.SendQueueSize),
		stopWrite: make(chan struct{}),
		closed:    make(chan struct{}),
	}
	return c
}

// ClientID implements clients.Conn.
func (c *Connection) ClientID() ids.ClientID { return c.id }

// State reports the connection's current lifecycle phase.
func (c *Connection) State() State { return State(c.state.Load()) }

// Send enqueues a pre-framed buffer for the write loop to deliver. If the
// send queue is full, the newest frame is dropped rather than blocking
// the caller (typically the game thread) — per spec §7's capacity-error
// policy of shedding non-critical outbound traffic for a slow reader
// instead of stalling the tick.
func (c *Connection) Send(frame []byte) {
	if c.State() == StateClosing {
		return
	}
	select {
	case c.sendCh <- frame:
	default:
		c.log.Warn("send queue full, dropping frame")
	}
}

// Violations reports the current protocol-violation count, for tests and
// stats.
func (c *Connection) Violations() int { return int(c.violations.Load()) }

// InvalidPackets reports the current invalid-packet count.
func (c *Connection) InvalidPackets() int64 { return c.invalidPackets.Load() }

// RTT returns the current smoothed round-trip time estimate.
func (c *Connection) RTT() time.Duration { return c.rtt.smoothed() }

// Done returns a channel closed once the connection has fully shut down.
func (c *Connection) Done() <-chan struct{} { return c.closed }

// Close forces the underlying socket closed, unblocking a pending read
// in the handshake or active loop so Run can proceed through its normal
// shutdown sequence. Safe to call multiple times and from any goroutine;
// used by the game server to close out active connections at shutdown.
func (c *Connection) Close() {
	_ = c.nc.Close()
}

// JoinFunc allocates a Player for a handshaking connection and returns
// its spawn state. It abstracts the action-queue round trip into the
// game thread so Run doesn't need to know about queue.JoinResult wiring
// details beyond pushing the command.
type JoinFunc func(ctx context.Context, client ids.ClientID) (queue.JoinResult, error)

// Run drives the connection through Handshaking, Active, and Closing. It
// blocks until the connection is fully shut down. join is invoked once,
// after a valid handshake frame is received, to obtain the assigned
// Player; onClose is invoked exactly once as Run returns, with the
// connection's final state and the allocated PlayerID if any was
// assigned (ids.NoPlayer otherwise), so the caller can clean up registry
// and spatial state.
func (c *Connection) Run(ctx context.Context, join JoinFunc, onClose func(ids.PlayerID)) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop()
	}()

	playerID, err := c.handshake(ctx, join)
	if err != nil {
		c.log.Info("handshake failed", "error", err)
		c.beginClosing()
	} else {
		c.activeLoop()
	}

	c.beginClosing()
	close(c.stopWrite)
	wg.Wait()
	_ = c.nc.Close()
	close(c.closed)
	if onClose != nil {
		onClose(playerID)
	}
}

func (c *Connection) beginClosing() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
	})
}

// handshake reads frames until a valid C_Handshake_Request arrives, the
// handshake timeout elapses, or the violation budget is exhausted.
func (c *Connection) handshake(ctx context.Context, join JoinFunc) (ids.PlayerID, error) {
	deadline := time.Now().Add(c.cfg.HandshakeTimeout)
	for {
		if time.Now().After(deadline) {
			return ids.NoPlayer, fmt.Errorf("handshake timeout")
		}
		_ = c.nc.SetReadDeadline(deadline)
		payload, err := wire.ReadFrame(c.nc)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return ids.NoPlayer, fmt.Errorf("handshake timeout")
			}
			var pe *wire.ProtocolError
			if errors.As(err, &pe) {
				if c.countViolation(c.cfg.MaxHeaderViolations) {
					return ids.NoPlayer, fmt.Errorf("handshake violation budget exceeded: %w", pe)
				}
				continue
			}
			return ids.NoPlayer, err
		}
		c.bytesIn.Add(int64(wire.HeaderLen + len(payload)))

		op, cursor, err := wire.Parse(payload)
		if err != nil || op != wire.OpHandshakeRequest {
			if c.countViolation(c.cfg.MaxHeaderViolations) {
				return ids.NoPlayer, fmt.Errorf("handshake violation budget exceeded: wrong opcode")
			}
			continue
		}
		if err := wire.CheckFixedSize(op, len(payload)); err != nil {
			if c.countViolation(c.cfg.MaxHeaderViolations) {
				return ids.NoPlayer, fmt.Errorf("handshake violation budget exceeded: %w", err)
			}
			continue
		}

		hs, err := protocol.DecodeHandshake(cursor)
		if err != nil {
			if c.countViolation(c.cfg.MaxHeaderViolations) {
				return ids.NoPlayer, fmt.Errorf("handshake violation budget exceeded: %w", err)
			}
			continue
		}
		if hs.Version != c.cfg.HandshakeVersion || hs.ClientMagic != c.cfg.HandshakeMagic {
			return ids.NoPlayer, fmt.Errorf("handshake mismatch: version=%#x magic=%#x", hs.Version, hs.ClientMagic)
		}

		_ = c.nc.SetReadDeadline(time.Time{})
		result, err := join(ctx, c.id)
		if err != nil {
			return ids.NoPlayer, fmt.Errorf("join failed: %w", err)
		}

		c.state.Store(int32(StateActive))
		c.Send(protocol.HandshakeAccepted())
		c.Send(protocol.Welcome(result.PlayerID, result.X, result.Y, result.Facing))
		return result.PlayerID, nil
	}
}

// countViolation increments the violation counter and reports whether it
// has now exceeded limit.
func (c *Connection) countViolation(limit int) bool {
	return int(c.violations.Add(1)) > limit
}

// activeLoop is the full framed packet loop for an Active connection.
func (c *Connection) activeLoop() {
	idleDeadline := c.cfg.PingInterval * time.Duration(c.cfg.PingLossLimit+1)
	for c.State() == StateActive {
		_ = c.nc.SetReadDeadline(time.Now().Add(idleDeadline))
		payload, err := wire.ReadFrame(c.nc)
		if err != nil {
			var pe *wire.ProtocolError
			if errors.As(err, &pe) {
				c.invalidPackets.Add(1)
				c.log.Warn("invalid frame", "error", pe)
				if c.countViolation(c.cfg.MaxActiveHeaderViolations) {
					c.log.Info("closing connection: protocol violation budget exceeded")
					return
				}
				continue
			}
			c.log.Info("closing connection: read error", "error", err)
			return
		}
		c.bytesIn.Add(int64(wire.HeaderLen + len(payload)))
		recvAt := time.Now()

		op, cursor, err := wire.Parse(payload)
		if err == nil {
			err = wire.CheckFixedSize(op, len(payload))
		}
		if err != nil {
			c.invalidPackets.Add(1)
			c.log.Warn("invalid payload size", "error", err)
			if c.countViolation(c.cfg.MaxActiveHeaderViolations) {
				c.log.Info("closing connection: protocol violation budget exceeded")
				return
			}
			continue
		}

		if op == wire.OpClientPingRequest {
			timestamp, _ := cursor.ReadU32()
			c.Send(protocol.PongResponse(timestamp))
			continue
		}
		if op == wire.OpDisconnectRequest {
			c.log.Info("client requested disconnect")
			return
		}

		cmd, ok, err := protocol.DecodeCommand(c.id, op, cursor, recvAt)
		if err != nil {
			c.invalidPackets.Add(1)
			c.log.Warn("undecodable command", "error", err)
			if c.countViolation(c.cfg.MaxActiveHeaderViolations) {
				c.log.Info("closing connection: protocol violation budget exceeded")
				return
			}
			continue
		}
		if op == wire.OpPongResponse {
			c.rtt.recordPong(cmd.PongTimestamp, recvAt, c.cfg.RTTClampMinMs, c.cfg.RTTClampMaxMs, c.cfg.RTTSampleWindow)
		}
		if ok {
			c.actions.Push(cmd)
		}
	}
}

// writeLoop serializes every outbound frame for this connection, so two
// writes are never interleaved on the wire. On stopWrite it drains
// whatever is already buffered, best-effort, per spec §4.8's "Closing:
// send queue is drained best-effort" rule, then returns. sendCh is never
// closed, so concurrent Send calls from the game thread can never race
// against a send-on-closed-channel panic.
func (c *Connection) writeLoop() {
	for {
		select {
		case frame := <-c.sendCh:
			if !c.write(frame) {
				return
			}
		case <-c.stopWrite:
			c.drainSendQueue()
			return
		}
	}
}

func (c *Connection) drainSendQueue() {
	for {
		select {
		case frame := <-c.sendCh:
			c.write(frame)
		default:
			return
		}
	}
}

func (c *Connection) write(frame []byte) bool {
	if _, err := c.nc.Write(frame); err != nil {
		c.log.Info("write error, closing", "error", err)
		c.beginClosing()
		return false
	}
	c.bytesOut.Add(int64(len(frame)))
	return true
}

// SendPing builds and enqueues S_Ping_Request carrying the current
// timestamp, and records the send time for RTT measurement against the
// matching C_Pong_Response. Called by the game thread on its ping
// cadence, per spec §4.11 step 4.
func (c *Connection) SendPing(now time.Time) {
	ts := uint32(now.UnixMilli())
	c.rtt.recordPing(ts, now)
	c.Send(protocol.PingRequest(ts))
}

// MissedPings reports how many consecutive pings have gone unanswered,
// for the game thread's ping-loss disconnect policy.
func (c *Connection) MissedPings() int {
	return c.rtt.missedPings()
}
