package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Meet/internal/adapters/http"
	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/directory"
	"github.com/dkeye/Meet/internal/directory/memdir"
	"github.com/dkeye/Meet/internal/directory/redisdir"
	"github.com/dkeye/Meet/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var dir directory.Directory
	if cfg.RedisAddr != "" {
		dir, err = redisdir.New(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("directory unavailable")
		}
	} else {
		log.Warn().Msg("no redis_addr configured, using in-memory directory (single process only)")
		dir = memdir.New()
	}
	defer dir.Close()

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	reg := app.NewRegistry()
	orch := &app.Orchestrator{
		Registry:         reg,
		Rooms:            app.NewRooms(),
		Directory:        dir,
		Relayer:          &app.Relay{Registry: reg, Metrics: m},
		Policy:           app.SimplePolicy{},
		Metrics:          m,
		DirectoryTimeout: cfg.DirectoryTimeout,
	}

	r := router.SetupRouter(ctx, cfg, orch, dir, promReg)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Meet signaling server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
