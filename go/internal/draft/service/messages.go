package service

import (
	"github.com/mcdev12/draftoverlay/go/internal/models"
	"github.com/mcdev12/draftoverlay/go/internal/snapshot"
)

// Empty is the request of every action that takes no arguments.
type Empty struct{}

// StateResponse is returned by GetState and by every action that changes state.
type StateResponse struct {
	State          snapshot.Snapshot `json:"state"`
	CurrentTeamID  int               `json:"currentTeamId"`
	StorageHealthy bool              `json:"storageHealthy"`
}

type DraftPlayerRequest struct {
	Name string `json:"name"`
}

type SetTimerRunningRequest struct {
	Running bool `json:"running"`
}

type SetDraftOrderRequest struct {
	Order []int `json:"order"`
}

type SetDefaultDurationRequest struct {
	Seconds int `json:"seconds"`
}

type SaveDefaultOrderRequest struct {
	Order []int `json:"order"`
}

type DefaultOrderResponse struct {
	Order []int `json:"order"`
}

type ToggleViewRequest struct {
	ShowBestAvailable bool `json:"showBestAvailable"`
}

type SetFiltersRequest struct {
	Search   string `json:"search"`
	Position string `json:"position"`
}

type ListAvailablePlayersResponse struct {
	Players []models.Player `json:"players"`
}
