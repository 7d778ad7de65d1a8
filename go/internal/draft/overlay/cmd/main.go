package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftoverlay/go/internal/bootstrap"
	"github.com/mcdev12/draftoverlay/go/internal/broadcast"
	"github.com/mcdev12/draftoverlay/go/internal/draft/overlay"
	"github.com/mcdev12/draftoverlay/go/internal/reference"
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

	dataset, err := reference.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load reference data")
	}

	clock := clockwork.NewRealClock()
	var (
		overlays []*overlay.Reconstructor
		channels []broadcast.Channel
	)
	for _, name := range cfg.Overlay.Kinds {
		kind, err := overlay.ParseKind(name)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid overlay kind")
		}

		// One handle per surface, like separate browser windows.
		ch, err := rt.OpenChannel(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open channel")
		}
		channels = append(channels, ch)

		ov := overlay.New(overlay.Config{Kind: kind, Settings: cfg.Draft}, overlay.Deps{
			Dataset: dataset,
			Store:   rt.Store,
			Channel: ch,
			Clock:   clock,
		})
		ov.OnChange(func(v overlay.ViewState) {
			log.Debug().
				Str("overlay", string(v.Kind)).
				Int("pick_index", v.CurrentPickIndex).
				Int("team_id", v.CurrentTeamID).
				Str("clock", v.Clock).
				Msg("view changed")
		})
		if err := ov.Mount(ctx); err != nil {
			log.Fatal().Err(err).Str("overlay", name).Msg("failed to mount overlay")
		}
		overlays = append(overlays, ov)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Overlay.Port),
		Handler:      overlay.Routes(overlays...),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Int("overlays", len(overlays)).Msg("overlay server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("overlay server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("overlay server shutdown failed")
	}

	for _, ov := range overlays {
		if err := ov.Unmount(); err != nil {
			log.Warn().Err(err).Str("overlay", string(ov.Kind())).Msg("failed to unmount overlay")
		}
	}
	for _, ch := range channels {
		if err := ch.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close channel handle")
		}
	}
	cancel()
	rt.Close(shutdownCtx)
	log.Info().Msg("overlay shutdown complete")
}
