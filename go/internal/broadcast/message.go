// Package broadcast is the fire-and-forget bus the admin and the overlays talk over.
//
// Every surface opens a Channel on the same name. A message published on one
// handle reaches every other handle on that name; the publisher never hears its
// own messages. Order is kept per sender, nothing is replayed to late subscribers.
package broadcast

import "github.com/mcdev12/draftoverlay/go/internal/models"

// DefaultChannelName is shared by every surface of one deployment.
const DefaultChannelName = "draft-overlay"

// MessageType is the wire tag of a Message.
type MessageType string

const (
	TypeStateUpdate   MessageType = "STATE_UPDATE"
	TypePlayerDrafted MessageType = "PLAYER_DRAFTED"
	TypeUndoPick      MessageType = "UNDO_PICK"
	TypeDraftReset    MessageType = "DRAFT_RESET"
	TypeToggleView    MessageType = "TOGGLE_VIEW"
	TypeRequestState  MessageType = "REQUEST_STATE"
)

// Message is one of the types in this file. The set is closed.
type Message interface {
	Type() MessageType
	isMessage()
}

// StateUpdate carries authoritative state. Nil fields were not sent and must be
// left unchanged by receivers. The admin always sends every field.
type StateUpdate struct {
	CurrentTeamID     *int            `json:"currentTeamId,omitempty"`
	CurrentPickIndex  *int            `json:"currentPickIndex,omitempty"`
	TimerSeconds      *int            `json:"timerSeconds,omitempty"`
	IsTimerRunning    *bool           `json:"isTimerRunning,omitempty"`
	DraftOrder        []int           `json:"draftOrder,omitempty"`
	Players           []models.Player `json:"players,omitempty"`
	SelectedPlayer    *models.Pick    `json:"selectedPlayer,omitempty"`
	DraftHistory      []models.Pick   `json:"draftHistory"`
	ShowBestAvailable *bool           `json:"showBestAvailable,omitempty"`
}

// PlayerDrafted announces a completed pick.
type PlayerDrafted struct {
	Pick      models.Pick `json:"selectedPlayer"`
	PickIndex int         `json:"pickIndex"`
}

// UndoPick reverses the pick at PickIndex.
type UndoPick struct {
	Player    models.Player `json:"player"`
	PickIndex int           `json:"pickIndex"`
}

// DraftReset clears the draft back to the first pick.
type DraftReset struct{}

// ToggleView switches the info panel between best available and team history.
type ToggleView struct {
	ShowBestAvailable bool `json:"showBestAvailable"`
}

// RequestState asks the admin to re-send a full StateUpdate.
type RequestState struct{}

func (StateUpdate) Type() MessageType   { return TypeStateUpdate }
func (PlayerDrafted) Type() MessageType { return TypePlayerDrafted }
func (UndoPick) Type() MessageType      { return TypeUndoPick }
func (DraftReset) Type() MessageType    { return TypeDraftReset }
func (ToggleView) Type() MessageType    { return TypeToggleView }
func (RequestState) Type() MessageType  { return TypeRequestState }

func (StateUpdate) isMessage()   {}
func (PlayerDrafted) isMessage() {}
func (UndoPick) isMessage()      {}
func (DraftReset) isMessage()    {}
func (ToggleView) isMessage()    {}
func (RequestState) isMessage()  {}

// IntPtr and BoolPtr help build partial StateUpdates.
func IntPtr(v int) *int { return &v }

func BoolPtr(v bool) *bool { return &v }
