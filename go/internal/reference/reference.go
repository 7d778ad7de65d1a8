// Package reference holds the static, read-only datasets the draft runs against:
// the league's teams, the draft-eligible player pool and last season's results.
package reference

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/draftoverlay/go/internal/models"
)

//go:embed data/*.yaml
var dataFS embed.FS

const (
	teamsFile   = "data/teams.yaml"
	playersFile = "data/players_2025.yaml"
	historyFile = "data/history_2024.yaml"
)

// Dataset is the loaded reference data. It is never mutated after Load.
type Dataset struct {
	teams     []models.Team
	teamsByID map[int]models.Team
	players   []models.Player
	history   []models.HistoricalPick
	season    int
}

type teamsDoc struct {
	Teams []models.Team `yaml:"teams"`
}

type playersDoc struct {
	Players []models.Player `yaml:"players"`
}

type historyDoc struct {
	Season int                     `yaml:"season"`
	Picks  []models.HistoricalPick `yaml:"picks"`
}

// Load reads and validates the embedded datasets.
func Load() (*Dataset, error) {
	var td teamsDoc
	if err := decode(teamsFile, &td); err != nil {
		return nil, err
	}
	var pd playersDoc
	if err := decode(playersFile, &pd); err != nil {
		return nil, err
	}
	var hd historyDoc
	if err := decode(historyFile, &hd); err != nil {
		return nil, err
	}
	return New(td.Teams, pd.Players, hd.Season, hd.Picks)
}

// New builds a Dataset from already-parsed records and validates it.
func New(teams []models.Team, players []models.Player, season int, history []models.HistoricalPick) (*Dataset, error) {
	ds := &Dataset{
		teams:     make([]models.Team, 0, len(teams)),
		teamsByID: make(map[int]models.Team, len(teams)),
		players:   make([]models.Player, 0, len(players)),
		history:   make([]models.HistoricalPick, 0, len(history)),
		season:    season,
	}

	for _, t := range teams {
		if _, dup := ds.teamsByID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate team id %d", t.ID)
		}
		t.Colors = compactColors(t.Colors)
		ds.teamsByID[t.ID] = t
		ds.teams = append(ds.teams, t)
	}

	seen := make(map[string]struct{}, len(players))
	for _, p := range players {
		if p.Name == "" {
			return nil, fmt.Errorf("player with empty name")
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("duplicate player %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		pos, err := models.ParsePosition(string(p.Position))
		if err != nil {
			return nil, fmt.Errorf("player %q: %w", p.Name, err)
		}
		p.Position = pos
		p.Drafted = false
		ds.players = append(ds.players, p)
	}

	for _, h := range history {
		if _, ok := ds.teamsByID[h.TeamID]; !ok {
			return nil, fmt.Errorf("historical pick %q references unknown team %d", h.Player, h.TeamID)
		}
		ds.history = append(ds.history, h)
	}

	return ds, nil
}

func decode(name string, out any) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func compactColors(colors []string) []string {
	out := colors[:0:0]
	for _, c := range colors {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Teams returns the league's teams in id order.
func (d *Dataset) Teams() []models.Team {
	out := make([]models.Team, len(d.teams))
	copy(out, d.teams)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Team looks up a team by id.
func (d *Dataset) Team(id int) (models.Team, bool) {
	t, ok := d.teamsByID[id]
	return t, ok
}

// HasTeam reports whether id is a known team.
func (d *Dataset) HasTeam(id int) bool {
	_, ok := d.teamsByID[id]
	return ok
}

// FreshPlayers returns a new copy of the player pool with every player undrafted.
func (d *Dataset) FreshPlayers() []models.Player {
	return models.ClonePlayers(d.players)
}

// Season is the year of the historical results.
func (d *Dataset) Season() int {
	return d.season
}

// HistoryForTeam returns a team's historical picks ordered by round, then pick.
func (d *Dataset) HistoryForTeam(teamID int) []models.HistoricalPick {
	var out []models.HistoricalPick
	for _, h := range d.history {
		if h.TeamID == teamID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].Pick < out[j].Pick
	})
	return out
}
