package gateway

import (
	"context"
	"errors"

	"github.com/mcdev12/draftoverlay/go/internal/snapshot"
)

// ErrNoState means there is nothing to serve yet.
var ErrNoState = errors.New("no draft state available")

// StateProvider supplies the state served by StateHandler.
type StateProvider interface {
	DraftState(ctx context.Context) (*DraftStateResponse, error)
}

// DraftStateResponse is the persisted snapshot plus what a fresh overlay
// would otherwise have to derive.
type DraftStateResponse struct {
	snapshot.Snapshot
	CurrentTeamID  int    `json:"currentTeamId"`
	StorageHealthy bool   `json:"storageHealthy"`
	Source         string `json:"source"`
}

func newDraftStateResponse(snap snapshot.Snapshot, healthy bool, source string) *DraftStateResponse {
	resp := &DraftStateResponse{Snapshot: snap, StorageHealthy: healthy, Source: source}
	if i := snap.CurrentPickIndex; i >= 0 && i < len(snap.DraftOrder) {
		resp.CurrentTeamID = snap.DraftOrder[i]
	}
	return resp
}

// SnapshotSource is what the admin controller exposes.
type SnapshotSource interface {
	Snapshot() snapshot.Snapshot
	StorageHealthy() bool
}

// ControllerStateProvider serves the live admin state. Use it when the
// gateway runs inside the admin process.
type ControllerStateProvider struct {
	src SnapshotSource
}

// NewControllerStateProvider creates a provider backed by the admin.
func NewControllerStateProvider(src SnapshotSource) *ControllerStateProvider {
	return &ControllerStateProvider{src: src}
}

// DraftState returns the admin's current state.
func (p *ControllerStateProvider) DraftState(_ context.Context) (*DraftStateResponse, error) {
	return newDraftStateResponse(p.src.Snapshot(), p.src.StorageHealthy(), "admin"), nil
}

// StoreStateProvider serves the last persisted snapshot. It may lag the admin
// by the save debounce.
type StoreStateProvider struct {
	store *snapshot.Store
}

// NewStoreStateProvider creates a provider that reads store.
func NewStoreStateProvider(store *snapshot.Store) *StoreStateProvider {
	return &StoreStateProvider{store: store}
}

// DraftState loads the saved snapshot.
func (p *StoreStateProvider) DraftState(ctx context.Context) (*DraftStateResponse, error) {
	snap, ok := p.store.LoadState(ctx)
	if !ok {
		return nil, ErrNoState
	}
	return newDraftStateResponse(*snap, p.store.Healthy(), "store"), nil
}
