package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftoverlay/go/internal/bootstrap"
	"github.com/mcdev12/draftoverlay/go/internal/draft/gateway"
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

	ch, err := rt.OpenChannel(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open channel")
	}

	log.Info().
		Str("transport", cfg.Broadcast.Transport).
		Str("store", cfg.Store.Backend).
		Str("port", cfg.Gateway.Port).
		Msg("starting draft gateway")

	// The admin runs elsewhere, so state requests are answered from the store.
	gatewayService := gateway.NewService(gateway.DefaultConfig(), ch, gateway.NewStoreStateProvider(rt.Store))

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"service":     "draft-gateway",
			"channel":     ch.Name(),
			"connections": gatewayService.Stats().TotalConnections,
		})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Gateway.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		gatewayService.Start(ctx)
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stops the relay and closes every socket.
	cancel()
	<-done

	if err := ch.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close channel handle")
	}
	rt.Close(shutdownCtx)

	log.Info().Msg("draft gateway shutdown complete")
}
