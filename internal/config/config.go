// Package config holds all configurable parameters for the DyeWars game
// server, grouped by concern the way a production deployment would tune
// them independently.
package config

import "time"

// Config holds every tunable of the simulation, network, and protocol
// layers. Fields are grouped by concern; every magic number elsewhere in
// the server should trace back to one of these.
type Config struct {
	// Listening
	ListenAddr string // TCP address to accept connections on, e.g. ":8080"

	// Timing
	TickRate  int           // Simulation ticks per second
	TickBudget time.Duration // Soft deadline per tick before an overrun is recorded

	// World
	WorldWidth  int16
	WorldHeight int16
	ViewRange   int16 // Chebyshev radius defining who can see whom

	// Movement
	MoveCooldown         time.Duration // Base cooldown between two accepted moves
	MinEffectiveCooldown time.Duration // Floor below which ping leniency cannot reduce the cooldown
	PingCompFullMs       int64         // ping_ms at/above which leniency is fully applied

	// Handshake / protocol
	HandshakeTimeout       time.Duration
	HandshakeVersion       uint16
	HandshakeMagic         uint32
	MaxHeaderViolations    int // Handshaking-phase magic-byte violations tolerated before force close
	MaxActiveHeaderViolations int // Active-phase violations tolerated before "protocol violation" close

	// Ping / RTT
	PingInterval    time.Duration
	PingLossLimit   int // consecutive missed pongs before "ping timeout" disconnect
	RTTSampleWindow int // rolling window size for RTT smoothing
	RTTClampMinMs   int64
	RTTClampMaxMs   int64

	// Queues
	ActionQueueSize     int
	SendQueueSize       int
	MaxBatchEntries     int // S_Batch_Player_Spatial entries per packet (wire cap 255)

	// Shutdown
	ShutdownDrainTimeout time.Duration
}

// DefaultConfig returns the configuration DyeWars ships with.
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8080",

		TickRate:   20,
		TickBudget: 50 * time.Millisecond,

		WorldWidth:  512,
		WorldHeight: 512,
		ViewRange:   5,

		MoveCooldown:         200 * time.Millisecond,
		MinEffectiveCooldown: 80 * time.Millisecond,
		PingCompFullMs:       250,

		HandshakeTimeout:          5 * time.Second,
		HandshakeVersion:          0x0001,
		HandshakeMagic:            0x44594557, // "DYEW"
		MaxHeaderViolations:       3,
		MaxActiveHeaderViolations: 8,

		PingInterval:    10 * time.Second,
		PingLossLimit:   3,
		RTTSampleWindow: 5,
		RTTClampMinMs:   0,
		RTTClampMaxMs:   5000,

		ActionQueueSize: 4096,
		SendQueueSize:   256,
		MaxBatchEntries: 255,

		ShutdownDrainTimeout: 3 * time.Second,
	}
}

// FastConfig returns a configuration with a shrunk world and a faster tick
// period, used by tests that need a game loop to settle quickly.
func FastConfig() Config {
	cfg := DefaultConfig()
	cfg.WorldWidth = 32
	cfg.WorldHeight = 32
	cfg.ViewRange = 3
	cfg.TickRate = 100
	cfg.TickBudget = 10 * time.Millisecond
	cfg.MoveCooldown = 20 * time.Millisecond
	cfg.MinEffectiveCooldown = 5 * time.Millisecond
	cfg.HandshakeTimeout = 500 * time.Millisecond
	cfg.PingInterval = 200 * time.Millisecond
	cfg.ShutdownDrainTimeout = 200 * time.Millisecond
	return cfg
}

// TickPeriod returns the duration of a single tick derived from TickRate.
func (c Config) TickPeriod() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// CellSize returns the spatial hash cell size derived from ViewRange, per
// the reference recommendation of 2*VIEW_RANGE+1.
func (c Config) CellSize() int {
	return 2*int(c.ViewRange) + 1
}
