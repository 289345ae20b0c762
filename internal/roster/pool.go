package roster

import (
	"fmt"
	"sort"
	"strings"
)

// SetSummary describes one display group of players.
type SetSummary struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SetLabel is the display name of a player's set.
func (p Player) SetLabel() string {
	if p.SetName != "" {
		return p.SetName
	}
	return fmt.Sprintf("Set %d", p.Set)
}

// Sets returns the distinct sets among players in ascending order. The name
// of a set is taken from its first player.
func Sets(players []Player) []SetSummary {
	index := make(map[int]int)
	var out []SetSummary
	for _, p := range players {
		if i, ok := index[p.Set]; ok {
			out[i].Count++
			continue
		}
		index[p.Set] = len(out)
		out = append(out, SetSummary{ID: p.Set, Name: p.SetLabel(), Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Filter returns the players whose name or role contains query
// (case-insensitive). A non-nil set restricts the result to that set.
func Filter(players []Player, query string, set *int) []Player {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Player
	for _, p := range players {
		if set != nil && p.Set != *set {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(string(p.Role)), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}
