package overlay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/draftoverlay/go/internal/models"
)

func TestRoutes(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(Routes(f.ov))
	t.Cleanup(srv.Close)

	get := func(path string, out any) int {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		if out != nil && resp.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
		}
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get("/healthz", nil))

	var list struct {
		Overlays []string `json:"overlays"`
	}
	require.Equal(t, http.StatusOK, get("/overlays", &list))
	assert.Equal(t, []string{"display"}, list.Overlays)

	var view ViewState
	require.Equal(t, http.StatusOK, get("/overlays/display", &view))
	assert.Equal(t, KindDisplay, view.Kind)
	assert.Equal(t, 1, view.CurrentTeamID)
	assert.Equal(t, "2:00", view.Clock)

	var best []models.Player
	require.Equal(t, http.StatusOK, get("/overlays/display/best-available?n=3", &best))
	assert.Len(t, best, 3)

	var history []models.HistoricalPick
	require.Equal(t, http.StatusOK, get("/overlays/display/team-history", &history))
	assert.NotEmpty(t, history)

	var next []models.Team
	require.Equal(t, http.StatusOK, get("/overlays/display/next-teams", &next))
	assert.Len(t, next, 2)

	assert.Equal(t, http.StatusNotFound, get("/overlays/board", nil))
	assert.Equal(t, http.StatusBadRequest, get("/overlays/scoreboard", nil))
	assert.Equal(t, http.StatusBadRequest, get("/overlays/display/best-available?n=-1", nil))
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"display", "board", "info_panel", "best_available"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, Kind(s), k)
	}
	_, err := ParseKind("ticker")
	assert.Error(t, err)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "0:00", FormatClock(0))
	assert.Equal(t, "0:00", FormatClock(-3))
	assert.Equal(t, "0:09", FormatClock(9))
	assert.Equal(t, "10:00", FormatClock(600))
}
