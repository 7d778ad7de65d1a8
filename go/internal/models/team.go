package models

// Team is a fantasy team in the league.
type Team struct {
	ID     int      `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	Owner  string   `json:"owner" yaml:"owner"`
	Logo   string   `json:"logo" yaml:"logo"`
	Colors []string `json:"colors" yaml:"colors"`
}

// PrimaryColor returns the first brand color, or an empty string.
func (t Team) PrimaryColor() string {
	if len(t.Colors) == 0 {
		return ""
	}
	return t.Colors[0]
}
