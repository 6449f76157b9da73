// Command server runs the DyeWars authoritative game server: it binds
// the configured TCP listener, drives the tick loop, and shuts down
// gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cgrimes21/dyewars/internal/config"
	"github.com/cgrimes21/dyewars/internal/game"
	"github.com/cgrimes21/dyewars/internal/ids"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	cfg := config.DefaultConfig()
	if addr := os.Getenv("DYEWARS_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}

	sink := game.NewAsyncSink(256, log)
	srv := game.New(cfg,
		game.WithLogger(log),
		game.WithPersistenceSink(sink),
	)

	sinkDone := make(chan struct{})
	go func() {
		sink.Run(sinkDone,
			func(id ids.PlayerID, x, y int16) {
				log.Debug("persist position", "player_id", uint64(id), "x", x, "y", y)
			},
			func(id ids.PlayerID, level, exp int64) {
				log.Debug("persist stats", "player_id", uint64(id), "level", level, "exp", exp)
			},
		)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("dyewars starting", "listen_addr", cfg.ListenAddr, "tick_rate", cfg.TickRate, "world_width", cfg.WorldWidth, "world_height", cfg.WorldHeight)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx)
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownDrainTimeout+2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown did not complete cleanly", "error", err)
	}
	close(sinkDone)

	if err := <-errCh; err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("dyewars stopped")
}
