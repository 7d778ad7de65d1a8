package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftoverlay/go/internal/bootstrap"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open runtime")
	}

	services, err := setupServices(ctx, rt)
	if err != nil {
		rt.Close(context.Background())
		log.Fatal().Err(err).Msg("failed to set up services")
	}

	if err := services.Controller.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start admin controller")
	}

	gatewayDone := make(chan struct{})
	go func() {
		defer close(gatewayDone)
		services.Gateway.Start(ctx)
	}()

	server := setupServer(cfg.Admin.Port, services)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("admin server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("admin server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("admin server shutdown failed")
	}

	services.Controller.Close(shutdownCtx)
	cancel()
	<-gatewayDone

	services.Close()
	rt.Close(shutdownCtx)
	log.Info().Msg("admin shutdown complete")
}
