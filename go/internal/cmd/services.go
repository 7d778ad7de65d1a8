package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftoverlay/go/internal/bootstrap"
	"github.com/mcdev12/draftoverlay/go/internal/broadcast"
	"github.com/mcdev12/draftoverlay/go/internal/draft/admin"
	"github.com/mcdev12/draftoverlay/go/internal/draft/gateway"
	"github.com/mcdev12/draftoverlay/go/internal/draft/service"
	"github.com/mcdev12/draftoverlay/go/internal/reference"
)

type Services struct {
	Controller *admin.Controller
	Admin      *service.Service
	Gateway    *gateway.Service

	adminCh   broadcast.Channel
	gatewayCh broadcast.Channel
}

func setupServices(ctx context.Context, rt *bootstrap.Runtime) (*Services, error) {
	// Dataset → Controller → RPC service, with the WebSocket bridge on its own handle.
	dataset, err := reference.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}

	adminCh, err := rt.OpenChannel(ctx)
	if err != nil {
		return nil, err
	}

	ctrl, err := admin.NewController(ctx, admin.Config{Settings: rt.Config.Draft}, admin.Deps{
		Dataset: dataset,
		Store:   rt.Store,
		Channel: adminCh,
		Clock:   clockwork.NewRealClock(),
	})
	if err != nil {
		adminCh.Close()
		return nil, fmt.Errorf("failed to create admin controller: %w", err)
	}

	gatewayCh, err := rt.OpenChannel(ctx)
	if err != nil {
		adminCh.Close()
		return nil, err
	}

	return &Services{
		Controller: ctrl,
		Admin:      service.NewService(ctrl),
		Gateway:    gateway.NewService(gateway.DefaultConfig(), gatewayCh, gateway.NewControllerStateProvider(ctrl)),
		adminCh:    adminCh,
		gatewayCh:  gatewayCh,
	}, nil
}

// Close releases the channel handles. The controller must already be closed.
func (s *Services) Close() {
	for _, ch := range []broadcast.Channel{s.gatewayCh, s.adminCh} {
		if err := ch.Close(); err != nil {
			log.Error().Err(err).Str("channel", ch.Name()).Msg("failed to close channel handle")
		}
	}
}
