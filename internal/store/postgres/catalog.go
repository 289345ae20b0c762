package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/auction-room/internal/roster"
	"github.com/jensholdgaard/auction-room/internal/store"
)

type teamRow struct {
	ID           string `db:"id"`
	Position     int    `db:"position"`
	Name         string `db:"name"`
	Logo         string `db:"logo"`
	PrimaryColor string `db:"primary_color"`
	Budget       int    `db:"budget"`
}

type playerRow struct {
	ID           string `db:"id"`
	Position     int    `db:"position"`
	Name         string `db:"name"`
	Role         string `db:"role"`
	Country      string `db:"country"`
	PhotoURL     string `db:"photo_url"`
	BasePrice    int    `db:"base_price"`
	Age          int    `db:"age"`
	PreviousTeam string `db:"previous_team"`
	SetNumber    int    `db:"set_number"`
	SetName      string `db:"set_name"`
	Stats        []byte `db:"stats"`
}

// CatalogRepo implements store.CatalogRepository with sqlx.
type CatalogRepo struct {
	db *sqlx.DB
}

// NewCatalogRepo returns a new CatalogRepo.
func NewCatalogRepo(db *sqlx.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) Load(ctx context.Context) (*roster.Seed, error) {
	var teams []teamRow
	if err := r.db.SelectContext(ctx, &teams,
		`SELECT id, position, name, logo, primary_color, budget FROM teams ORDER BY position`); err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	var players []playerRow
	if err := r.db.SelectContext(ctx, &players,
		`SELECT id, position, name, role, country, photo_url, base_price, age,
		        previous_team, set_number, set_name, stats
		 FROM players ORDER BY position`); err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	if len(teams) == 0 && len(players) == 0 {
		return nil, store.ErrEmptyCatalog
	}

	seed := &roster.Seed{
		Players: make([]roster.Player, 0, len(players)),
		Teams:   make([]roster.Team, 0, len(teams)),
	}
	for _, t := range teams {
		seed.Teams = append(seed.Teams, roster.Team{
			ID:           t.ID,
			Name:         t.Name,
			Logo:         t.Logo,
			PrimaryColor: t.PrimaryColor,
			Budget:       t.Budget,
		})
	}
	for _, p := range players {
		player := roster.Player{
			ID:           p.ID,
			Name:         p.Name,
			Role:         roster.Role(p.Role),
			Country:      p.Country,
			PhotoURL:     p.PhotoURL,
			BasePrice:    p.BasePrice,
			Age:          p.Age,
			PreviousTeam: p.PreviousTeam,
			Set:          p.SetNumber,
			SetName:      p.SetName,
		}
		if err := json.Unmarshal(p.Stats, &player.Stats); err != nil {
			return nil, fmt.Errorf("decoding stats of player %s: %w", p.ID, err)
		}
		seed.Players = append(seed.Players, player)
	}
	return seed, nil
}

func (r *CatalogRepo) Save(ctx context.Context, seed *roster.Seed) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM players`); err != nil {
		return fmt.Errorf("clearing players: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM teams`); err != nil {
		return fmt.Errorf("clearing teams: %w", err)
	}

	for i, t := range seed.Teams {
		row := teamRow{
			ID:           t.ID,
			Position:     i,
			Name:         t.Name,
			Logo:         t.Logo,
			PrimaryColor: t.PrimaryColor,
			Budget:       t.Budget,
		}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO teams (id, position, name, logo, primary_color, budget)
			 VALUES (:id, :position, :name, :logo, :primary_color, :budget)`, row); err != nil {
			return fmt.Errorf("inserting team %s: %w", t.ID, err)
		}
	}

	for i, p := range seed.Players {
		stats, err := json.Marshal(p.Stats)
		if err != nil {
			return fmt.Errorf("encoding stats of player %s: %w", p.ID, err)
		}
		row := playerRow{
			ID:           p.ID,
			Position:     i,
			Name:         p.Name,
			Role:         string(p.Role),
			Country:      p.Country,
			PhotoURL:     p.PhotoURL,
			BasePrice:    p.BasePrice,
			Age:          p.Age,
			PreviousTeam: p.PreviousTeam,
			SetNumber:    p.Set,
			SetName:      p.SetName,
			Stats:        stats,
		}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO players (id, position, name, role, country, photo_url, base_price, age,
			                      previous_team, set_number, set_name, stats)
			 VALUES (:id, :position, :name, :role, :country, :photo_url, :base_price, :age,
			         :previous_team, :set_number, :set_name, :stats)`, row); err != nil {
			return fmt.Errorf("inserting player %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}
