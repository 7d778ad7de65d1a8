// Package service exposes the admin controller's operator actions as a Connect
// RPC API. Messages are plain JSON structs; there is no generated protobuf code.
package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftoverlay/go/internal/draft/admin"
	"github.com/mcdev12/draftoverlay/go/internal/draft/order"
	"github.com/mcdev12/draftoverlay/go/internal/models"
	"github.com/mcdev12/draftoverlay/go/internal/snapshot"
)

// Controller defines what the service layer needs from the admin controller.
type Controller interface {
	Snapshot() snapshot.Snapshot
	StorageHealthy() bool
	AdvancePick(ctx context.Context) error
	RetreatPick(ctx context.Context) error
	DraftPlayer(ctx context.Context, name string) error
	UndoPick(ctx context.Context) error
	ResetDraft(ctx context.Context)
	SetTimerRunning(ctx context.Context, running bool)
	ResetTimer(ctx context.Context)
	SetDraftOrder(ctx context.Context, newOrder []int) error
	SaveDefaultOrder(ctx context.Context, newOrder []int) error
	DefaultOrder(ctx context.Context) []int
	SetDefaultDuration(ctx context.Context, secs int) error
	ToggleView(ctx context.Context, showBestAvailable bool)
	SetFilters(ctx context.Context, search, position string) error
	AvailablePlayers() []models.Player
}

var _ Controller = (*admin.Controller)(nil)

// Service implements AdminService.
type Service struct {
	ctrl Controller
}

// NewService creates a new admin service
func NewService(ctrl Controller) *Service {
	return &Service{ctrl: ctrl}
}

func (s *Service) state() *connect.Response[StateResponse] {
	snap := s.ctrl.Snapshot()
	resp := &StateResponse{State: snap, StorageHealthy: s.ctrl.StorageHealthy()}
	if i := snap.CurrentPickIndex; i >= 0 && i < len(snap.DraftOrder) {
		resp.CurrentTeamID = snap.DraftOrder[i]
	}
	return connect.NewResponse(resp)
}

// GetState returns the authoritative state.
func (s *Service) GetState(_ context.Context, _ *connect.Request[Empty]) (*connect.Response[StateResponse], error) {
	return s.state(), nil
}

func (s *Service) AdvancePick(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[StateResponse], error) {
	if err := s.ctrl.AdvancePick(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

func (s *Service) RetreatPick(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[StateResponse], error) {
	if err := s.ctrl.RetreatPick(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

// DraftPlayer drafts a player by name for the team on the clock.
func (s *Service) DraftPlayer(ctx context.Context, req *connect.Request[DraftPlayerRequest]) (*connect.Response[StateResponse], error) {
	if req.Msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("name is required"))
	}
	if err := s.ctrl.DraftPlayer(ctx, req.Msg.Name); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

func (s *Service) UndoPick(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[StateResponse], error) {
	if err := s.ctrl.UndoPick(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

func (s *Service) ResetDraft(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[StateResponse], error) {
	s.ctrl.ResetDraft(ctx)
	return s.state(), nil
}

func (s *Service) SetTimerRunning(ctx context.Context, req *connect.Request[SetTimerRunningRequest]) (*connect.Response[StateResponse], error) {
	s.ctrl.SetTimerRunning(ctx, req.Msg.Running)
	return s.state(), nil
}

func (s *Service) ResetTimer(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[StateResponse], error) {
	s.ctrl.ResetTimer(ctx)
	return s.state(), nil
}

// SetDraftOrder replaces the live order. Validation failures come back as
// InvalidArgument with every bad slot listed in the message.
func (s *Service) SetDraftOrder(ctx context.Context, req *connect.Request[SetDraftOrderRequest]) (*connect.Response[StateResponse], error) {
	if err := s.ctrl.SetDraftOrder(ctx, req.Msg.Order); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

func (s *Service) SetDefaultDuration(ctx context.Context, req *connect.Request[SetDefaultDurationRequest]) (*connect.Response[StateResponse], error) {
	if err := s.ctrl.SetDefaultDuration(ctx, req.Msg.Seconds); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

func (s *Service) SaveDefaultOrder(ctx context.Context, req *connect.Request[SaveDefaultOrderRequest]) (*connect.Response[DefaultOrderResponse], error) {
	if err := s.ctrl.SaveDefaultOrder(ctx, req.Msg.Order); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DefaultOrderResponse{Order: s.ctrl.DefaultOrder(ctx)}), nil
}

func (s *Service) GetDefaultOrder(ctx context.Context, _ *connect.Request[Empty]) (*connect.Response[DefaultOrderResponse], error) {
	return connect.NewResponse(&DefaultOrderResponse{Order: s.ctrl.DefaultOrder(ctx)}), nil
}

func (s *Service) ToggleView(ctx context.Context, req *connect.Request[ToggleViewRequest]) (*connect.Response[StateResponse], error) {
	s.ctrl.ToggleView(ctx, req.Msg.ShowBestAvailable)
	return s.state(), nil
}

func (s *Service) SetFilters(ctx context.Context, req *connect.Request[SetFiltersRequest]) (*connect.Response[ListAvailablePlayersResponse], error) {
	if err := s.ctrl.SetFilters(ctx, req.Msg.Search, req.Msg.Position); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ListAvailablePlayersResponse{Players: s.ctrl.AvailablePlayers()}), nil
}

// ListAvailablePlayers returns undrafted players matching the saved filters.
func (s *Service) ListAvailablePlayers(_ context.Context, _ *connect.Request[Empty]) (*connect.Response[ListAvailablePlayersResponse], error) {
	return connect.NewResponse(&ListAvailablePlayersResponse{Players: s.ctrl.AvailablePlayers()}), nil
}

// toConnectError maps controller errors onto Connect codes. Rejected actions
// leave the draft untouched, so none of these are internal failures.
func toConnectError(err error) error {
	var verr *order.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, admin.ErrInvalidDuration),
		errors.Is(err, admin.ErrInvalidPosition):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, admin.ErrUnknownPlayer):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, admin.ErrLastPick),
		errors.Is(err, admin.ErrFirstPick),
		errors.Is(err, admin.ErrAlreadyDrafted),
		errors.Is(err, admin.ErrPickAlreadyMade),
		errors.Is(err, admin.ErrNothingToUndo):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, admin.ErrControllerClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		log.Error().Err(err).Msg("unexpected admin error")
		return connect.NewError(connect.CodeInternal, err)
	}
}
