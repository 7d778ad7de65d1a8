package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// AdminServiceName is the fully-qualified name of the admin service.
const AdminServiceName = "draftoverlay.v1.AdminService"

// Procedure paths, one per RPC.
const (
	GetStateProcedure             = "/" + AdminServiceName + "/GetState"
	AdvancePickProcedure          = "/" + AdminServiceName + "/AdvancePick"
	RetreatPickProcedure          = "/" + AdminServiceName + "/RetreatPick"
	DraftPlayerProcedure          = "/" + AdminServiceName + "/DraftPlayer"
	UndoPickProcedure             = "/" + AdminServiceName + "/UndoPick"
	ResetDraftProcedure           = "/" + AdminServiceName + "/ResetDraft"
	SetTimerRunningProcedure      = "/" + AdminServiceName + "/SetTimerRunning"
	ResetTimerProcedure           = "/" + AdminServiceName + "/ResetTimer"
	SetDraftOrderProcedure        = "/" + AdminServiceName + "/SetDraftOrder"
	SetDefaultDurationProcedure   = "/" + AdminServiceName + "/SetDefaultDuration"
	SaveDefaultOrderProcedure     = "/" + AdminServiceName + "/SaveDefaultOrder"
	GetDefaultOrderProcedure      = "/" + AdminServiceName + "/GetDefaultOrder"
	ToggleViewProcedure           = "/" + AdminServiceName + "/ToggleView"
	SetFiltersProcedure           = "/" + AdminServiceName + "/SetFilters"
	ListAvailablePlayersProcedure = "/" + AdminServiceName + "/ListAvailablePlayers"
)

func unary[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts []connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// NewAdminServiceHandler builds an HTTP handler for svc. It returns the path to
// mount it on, the way generated Connect handlers do.
func NewAdminServiceHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	unary(mux, GetStateProcedure, svc.GetState, opts)
	unary(mux, AdvancePickProcedure, svc.AdvancePick, opts)
	unary(mux, RetreatPickProcedure, svc.RetreatPick, opts)
	unary(mux, DraftPlayerProcedure, svc.DraftPlayer, opts)
	unary(mux, UndoPickProcedure, svc.UndoPick, opts)
	unary(mux, ResetDraftProcedure, svc.ResetDraft, opts)
	unary(mux, SetTimerRunningProcedure, svc.SetTimerRunning, opts)
	unary(mux, ResetTimerProcedure, svc.ResetTimer, opts)
	unary(mux, SetDraftOrderProcedure, svc.SetDraftOrder, opts)
	unary(mux, SetDefaultDurationProcedure, svc.SetDefaultDuration, opts)
	unary(mux, SaveDefaultOrderProcedure, svc.SaveDefaultOrder, opts)
	unary(mux, GetDefaultOrderProcedure, svc.GetDefaultOrder, opts)
	unary(mux, ToggleViewProcedure, svc.ToggleView, opts)
	unary(mux, SetFiltersProcedure, svc.SetFilters, opts)
	unary(mux, ListAvailablePlayersProcedure, svc.ListAvailablePlayers, opts)

	return "/" + AdminServiceName + "/", mux
}
