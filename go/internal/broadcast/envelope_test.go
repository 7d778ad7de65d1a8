package broadcast

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/draftoverlay/go/internal/models"
)

func TestEncodeDecodeEachType(t *testing.T) {
	pick := models.Pick{
		TeamID:    3,
		PickIndex: 2,
		Player:    models.Player{Name: "Cam Ward", Position: models.PositionQB, Drafted: true},
		Timestamp: time.Date(2025, 8, 30, 19, 0, 0, 0, time.UTC),
	}

	msgs := []Message{
		StateUpdate{CurrentTeamID: IntPtr(4), CurrentPickIndex: IntPtr(3), DraftHistory: []models.Pick{pick}},
		PlayerDrafted{Pick: pick, PickIndex: 2},
		UndoPick{Player: pick.Player, PickIndex: 2},
		DraftReset{},
		ToggleView{ShowBestAvailable: true},
		RequestState{},
	}

	for _, msg := range msgs {
		t.Run(string(msg.Type()), func(t *testing.T) {
			data, err := Encode("sender-a", 7, msg)
			require.NoError(t, err)

			env, got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, msg.Type(), env.Type)
			assert.Equal(t, "sender-a", env.Sender)
			assert.Equal(t, uint64(7), env.Seq)
			assert.Equal(t, msg, got)
		})
	}
}

func TestDecodePartialStateUpdate(t *testing.T) {
	_, msg, err := Decode([]byte(`{"type":"STATE_UPDATE","payload":{"timerSeconds":42}}`))
	require.NoError(t, err)

	u, ok := msg.(StateUpdate)
	require.True(t, ok)
	require.NotNil(t, u.TimerSeconds)
	assert.Equal(t, 42, *u.TimerSeconds)
	assert.Nil(t, u.CurrentTeamID)
	assert.Nil(t, u.IsTimerRunning)
	assert.Nil(t, u.DraftOrder)
	assert.Nil(t, u.DraftHistory)
}

func TestDecodeEmptyHistoryIsPresent(t *testing.T) {
	_, msg, err := Decode([]byte(`{"type":"STATE_UPDATE","payload":{"draftHistory":[]}}`))
	require.NoError(t, err)
	u := msg.(StateUpdate)
	assert.NotNil(t, u.DraftHistory)
	assert.Empty(t, u.DraftHistory)
}

func TestDecodeMessagesWithoutPayload(t *testing.T) {
	_, msg, err := Decode([]byte(`{"type":"DRAFT_RESET"}`))
	require.NoError(t, err)
	assert.Equal(t, DraftReset{}, msg)

	_, msg, err = Decode([]byte(`{"type":"REQUEST_STATE","payload":{}}`))
	require.NoError(t, err)
	assert.Equal(t, RequestState{}, msg)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `nope`, ErrMalformed},
		{"missing type", `{"payload":{}}`, ErrMalformed},
		{"unknown type", `{"type":"CONFETTI","payload":{}}`, ErrUnknownType},
		{"bad payload", `{"type":"TOGGLE_VIEW","payload":"yes"}`, ErrMalformed},
		{"missing payload", `{"type":"PLAYER_DRAFTED"}`, ErrMalformed},
		{"drafted without player", `{"type":"PLAYER_DRAFTED","payload":{"pickIndex":1}}`, ErrMalformed},
		{"undo with negative index", `{"type":"UNDO_PICK","payload":{"player":{"name":"x"},"pickIndex":-1}}`, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, msg, err := Decode([]byte(tt.data))
			assert.Nil(t, msg)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestEncodeNil(t *testing.T) {
	_, err := Encode("a", 1, nil)
	assert.ErrorIs(t, err, ErrMalformed)
}
