// Package roster holds the static auction seed: the ordered pool of players
// going under the hammer and the franchises bidding for them.
package roster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSeed is wrapped by every Validate failure.
var ErrInvalidSeed = errors.New("invalid roster seed")

// Role is a playing-role category.
type Role string

const (
	RoleBatsman      Role = "Batsman"
	RoleBowler       Role = "Bowler"
	RoleAllRounder   Role = "All-rounder"
	RoleWicketKeeper Role = "Wicket-keeper"
)

// ParseRole normalises free-form role text. Unknown roles are kept verbatim.
func ParseRole(s string) Role {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	switch key {
	case "batsman", "batter":
		return RoleBatsman
	case "bowler":
		return RoleBowler
	case "allrounder":
		return RoleAllRounder
	case "wicketkeeper", "keeper", "wk":
		return RoleWicketKeeper
	}
	return Role(strings.TrimSpace(s))
}

// Stats are display-only career numbers.
type Stats struct {
	Matches    int     `yaml:"matches" json:"matches"`
	Runs       int     `yaml:"runs,omitempty" json:"runs,omitempty"`
	Wickets    int     `yaml:"wickets,omitempty" json:"wickets,omitempty"`
	StrikeRate float64 `yaml:"strike_rate,omitempty" json:"strikeRate,omitempty"`
	Economy    float64 `yaml:"economy,omitempty" json:"economy,omitempty"`
	BattingAvg float64 `yaml:"batting_avg,omitempty" json:"battingAvg,omitempty"`
	BowlingAvg float64 `yaml:"bowling_avg,omitempty" json:"bowlingAvg,omitempty"`
}

// Player is an auction lot. Players are immutable once loaded.
type Player struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Role         Role   `yaml:"role" json:"role"`
	Country      string `yaml:"country" json:"country"`
	PhotoURL     string `yaml:"photo_url,omitempty" json:"photoUrl,omitempty"`
	BasePrice    int    `yaml:"base_price" json:"basePrice"` // lakh
	Age          int    `yaml:"age,omitempty" json:"age,omitempty"`
	PreviousTeam string `yaml:"previous_team,omitempty" json:"previousTeam,omitempty"`
	Stats        Stats  `yaml:"stats" json:"stats"`
	Set          int    `yaml:"set" json:"set"`
	SetName      string `yaml:"set_name,omitempty" json:"setName,omitempty"`
}

// Team is a bidding franchise as seeded. Budget is the opening purse.
type Team struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Logo         string `yaml:"logo,omitempty" json:"logo,omitempty"`
	PrimaryColor string `yaml:"primary_color" json:"primaryColor"`
	Budget       int    `yaml:"budget" json:"budget"` // lakh
}

// Seed is the full static input of one auction session.
type Seed struct {
	Players []Player `yaml:"players"`
	Teams   []Team   `yaml:"teams"`
}

// LoadFile reads and validates a YAML seed file.
func LoadFile(path string) (*Seed, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading roster file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML seed document.
func Parse(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing roster: %w", err)
	}
	for i := range s.Players {
		s.Players[i].Role = ParseRole(string(s.Players[i].Role))
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks seed invariants.
func (s *Seed) Validate() error {
	if len(s.Players) == 0 {
		return fmt.Errorf("%w: no players", ErrInvalidSeed)
	}
	if len(s.Teams) == 0 {
		return fmt.Errorf("%w: no teams", ErrInvalidSeed)
	}

	seen := make(map[string]struct{}, len(s.Players))
	for i, p := range s.Players {
		if p.ID == "" {
			return fmt.Errorf("%w: player %d has no id", ErrInvalidSeed, i)
		}
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("%w: duplicate player id %q", ErrInvalidSeed, p.ID)
		}
		seen[p.ID] = struct{}{}
		// A zero opening bid would let the ladder stall on an open lot.
		if p.BasePrice <= 0 {
			return fmt.Errorf("%w: player %q base price must be positive", ErrInvalidSeed, p.ID)
		}
	}

	teams := make(map[string]struct{}, len(s.Teams))
	for i, t := range s.Teams {
		if t.ID == "" {
			return fmt.Errorf("%w: team %d has no id", ErrInvalidSeed, i)
		}
		if _, ok := teams[t.ID]; ok {
			return fmt.Errorf("%w: duplicate team id %q", ErrInvalidSeed, t.ID)
		}
		teams[t.ID] = struct{}{}
		if t.Budget < 0 {
			return fmt.Errorf("%w: team %q budget is negative", ErrInvalidSeed, t.ID)
		}
	}
	return nil
}

// Player returns the seeded player with the given id.
func (s *Seed) Player(id string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// Team returns the seeded team with the given id.
func (s *Seed) Team(id string) (Team, bool) {
	for _, t := range s.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}
