package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilal/nocturne-agent/internal/config"
	"github.com/bilal/nocturne-agent/internal/health"
	"github.com/bilal/nocturne-agent/internal/logger"
	"github.com/bilal/nocturne-agent/internal/monitor"
	"github.com/bilal/nocturne-agent/internal/session"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Init logger
	logger.Init(cfg.Logging)
	log.Info().Str("addr", cfg.Server.Addr()).Msg("starting nocturne agent")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//------------------------------------------
	// START HEALTH SERVER
	//------------------------------------------
	healthSrv := health.New(cfg.Health.Addr)

	go func() {
		if err := healthSrv.Serve(); err != nil {
			log.Error().Err(err).Msg("health server stopped")
		}
	}()

	//------------------------------------------
	// START SESSION SERVER
	//------------------------------------------
	sessions := session.NewServer(session.Options{
		Addr:          cfg.Server.Addr(),
		ReadBufferMax: cfg.Server.ReadBufferMax,
		WriteTimeout:  cfg.Server.WriteTimeout,
	})
	if err := sessions.Listen(); err != nil {
		log.Error().Err(err).Msg("cannot bind display port")
		os.Exit(1)
	}

	sessionsDone := make(chan struct{})
	go func() {
		defer close(sessionsDone)
		if err := sessions.Serve(ctx); err != nil {
			log.Error().Err(err).Msg("session server failed")
			stop()
		}
	}()

	//------------------------------------------
	// START MONITOR
	//------------------------------------------
	mon := monitor.New(cfg, monitor.DefaultSources(cfg), sessions, healthSrv)
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		mon.Run(ctx)
	}()
	healthSrv.SetRunning(true)

	//------------------------------------------
	// WAIT FOR SHUTDOWN SIGNAL
	//------------------------------------------
	<-ctx.Done()
	log.Warn().Msg("shutdown signal received")
	healthSrv.SetRunning(false)

	//------------------------------------------
	// SHUTDOWN SEQUENCE
	//------------------------------------------
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	log.Info().Msg("stopping monitor...")
	wait(shutdownCtx, monitorDone, "monitor")

	log.Info().Msg("stopping session server...")
	wait(shutdownCtx, sessionsDone, "session server")

	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("health server shutdown")
	}

	log.Info().Msg("agent stopped cleanly")
}

func wait(ctx context.Context, done <-chan struct{}, what string) {
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Str("component", what).Msg("shutdown timed out")
	}
}
