package conn_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgrimes21/dyewars/internal/config"
	"github.com/cgrimes21/dyewars/internal/conn"
	"github.com/cgrimes21/dyewars/internal/ids"
	"github.com/cgrimes21/dyewars/internal/queue"
	"github.com/cgrimes21/dyewars/internal/wire"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clientHandshakeFrame(t *testing.T, cfg config.Config) []byte {
	t.Helper()
	w := wire.NewWriter(8)
	w.WriteU8(byte(wire.OpHandshakeRequest))
	w.WriteU16(cfg.HandshakeVersion)
	w.WriteU32(cfg.HandshakeMagic)
	frame, err := wire.EncodeFrame(w.Bytes())
	require.NoError(t, err)
	return frame
}

func readOpcode(t *testing.T, r io.Reader) wire.Opcode {
	t.Helper()
	payload, err := wire.ReadFrame(r)
	require.NoError(t, err)
	op, _, err := wire.Parse(payload)
	require.NoError(t, err)
	return op
}

func successfulJoin(result queue.JoinResult) conn.JoinFunc {
	return func(ctx context.Context, client ids.ClientID) (queue.JoinResult, error) {
		return result, nil
	}
}

func TestHandshakeSuccessSendsAcceptedThenWelcome(t *testing.T) {
	cfg := config.FastConfig()
	server, client := net.Pipe()
	defer client.Close()

	actions := queue.New(4)
	c := conn.New(1, server, cfg, actions, discardLogger())

	var closedPlayer ids.PlayerID
	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), successfulJoin(queue.JoinResult{PlayerID: 9, X: 1, Y: 2, Facing: wire.DirSouth}), func(p ids.PlayerID) {
			closedPlayer = p
			close(done)
		})
	}()

	_, err := client.Write(clientHandshakeFrame(t, cfg))
	require.NoError(t, err)

	assert.Equal(t, wire.OpHandshakeAccepted, readOpcode(t, client))
	assert.Equal(t, wire.OpWelcome, readOpcode(t, client))

	client.Close()
	<-done
	assert.EqualValues(t, 9, closedPlayer)
}

func TestHandshakeWrongMagicCloses(t *testing.T) {
	cfg := config.FastConfig()
	server, client := net.Pipe()
	defer client.Close()

	actions := queue.New(4)
	c := conn.New(2, server, cfg, actions, discardLogger())

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), successfulJoin(queue.JoinResult{}), func(ids.PlayerID) { close(done) })
	}()

	w := wire.NewWriter(8)
	w.WriteU8(byte(wire.OpHandshakeRequest))
	w.WriteU16(cfg.HandshakeVersion)
	w.WriteU32(0xBADBAD00)
	frame, err := wire.EncodeFrame(w.Bytes())
	require.NoError(t, err)
	_, err = client.Write(frame)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close after magic mismatch")
	}
}

func TestHandshakeTimeoutCloses(t *testing.T) {
	cfg := config.FastConfig()
	server, client := net.Pipe()
	defer client.Close()

	actions := queue.New(4)
	c := conn.New(3, server, cfg, actions, discardLogger())

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), successfulJoin(queue.JoinResult{}), func(ids.PlayerID) { close(done) })
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close after handshake timeout")
	}
}

func TestActiveLoopEnqueuesMoveCommand(t *testing.T) {
	cfg := config.FastConfig()
	server, client := net.Pipe()
	defer client.Close()

	actions := queue.New(4)
	c := conn.New(4, server, cfg, actions, discardLogger())

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), successfulJoin(queue.JoinResult{PlayerID: 1}), func(ids.PlayerID) { close(done) })
	}()

	_, err := client.Write(clientHandshakeFrame(t, cfg))
	require.NoError(t, err)
	readOpcode(t, client)
	readOpcode(t, client)

	w := wire.NewWriter(4)
	w.WriteU8(byte(wire.OpMoveRequest))
	w.WriteU8(byte(wire.DirEast))
	w.WriteU8(byte(wire.DirEast))
	frame, err := wire.EncodeFrame(w.Bytes())
	require.NoError(t, err)
	_, err = client.Write(frame)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return actions.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	drained := actions.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, queue.KindMove, drained[0].Kind)
	assert.Equal(t, wire.DirEast, drained[0].MoveDirection)

	client.Close()
	<-done
}

func TestActivePingPongRoundTrip(t *testing.T) {
	cfg := config.FastConfig()
	server, client := net.Pipe()
	defer client.Close()

	actions := queue.New(4)
	c := conn.New(5, server, cfg, actions, discardLogger())

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), successfulJoin(queue.JoinResult{PlayerID: 1}), func(ids.PlayerID) { close(done) })
	}()

	_, err := client.Write(clientHandshakeFrame(t, cfg))
	require.NoError(t, err)
	readOpcode(t, client)
	readOpcode(t, client)

	w := wire.NewWriter(8)
	w.WriteU8(byte(wire.OpClientPingRequest))
	w.WriteU32(12345)
	frame, err := wire.EncodeFrame(w.Bytes())
	require.NoError(t, err)
	_, err = client.Write(frame)
	require.NoError(t, err)

	assert.Equal(t, wire.OpServerPongResponse, readOpcode(t, client))

	client.Close()
	<-done
}
