package entstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jensholdgaard/auction-room/internal/roster"
	"github.com/jensholdgaard/auction-room/internal/store"
)

// CatalogRepo implements store.CatalogRepository using database/sql.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a new CatalogRepo.
func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) Load(ctx context.Context) (*roster.Seed, error) {
	seed := &roster.Seed{}

	teamRows, err := r.db.QueryContext(ctx,
		`SELECT id, name, logo, primary_color, budget FROM teams ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer teamRows.Close()
	for teamRows.Next() {
		var t roster.Team
		if err := teamRows.Scan(&t.ID, &t.Name, &t.Logo, &t.PrimaryColor, &t.Budget); err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		seed.Teams = append(seed.Teams, t)
	}
	if err := teamRows.Err(); err != nil {
		return nil, err
	}

	playerRows, err := r.db.QueryContext(ctx,
		`SELECT id, name, role, country, photo_url, base_price, age,
		        previous_team, set_number, set_name, stats
		 FROM players ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer playerRows.Close()
	for playerRows.Next() {
		var p roster.Player
		var stats []byte
		if err := playerRows.Scan(&p.ID, &p.Name, &p.Role, &p.Country, &p.PhotoURL, &p.BasePrice, &p.Age,
			&p.PreviousTeam, &p.Set, &p.SetName, &stats); err != nil {
			return nil, fmt.Errorf("scanning player row: %w", err)
		}
		if err := json.Unmarshal(stats, &p.Stats); err != nil {
			return nil, fmt.Errorf("decoding stats of player %s: %w", p.ID, err)
		}
		seed.Players = append(seed.Players, p)
	}
	if err := playerRows.Err(); err != nil {
		return nil, err
	}

	if len(seed.Teams) == 0 && len(seed.Players) == 0 {
		return nil, store.ErrEmptyCatalog
	}
	return seed, nil
}

func (r *CatalogRepo) Save(ctx context.Context, seed *roster.Seed) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{`DELETE FROM players`, `DELETE FROM teams`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clearing catalog: %w", err)
		}
	}

	for i, t := range seed.Teams {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO teams (id, position, name, logo, primary_color, budget)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, i, t.Name, t.Logo, t.PrimaryColor, t.Budget,
		); err != nil {
			return fmt.Errorf("inserting team %s: %w", t.ID, err)
		}
	}

	for i, p := range seed.Players {
		stats, err := json.Marshal(p.Stats)
		if err != nil {
			return fmt.Errorf("encoding stats of player %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO players (id, position, name, role, country, photo_url, base_price, age,
			                      previous_team, set_number, set_name, stats)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			p.ID, i, p.Name, string(p.Role), p.Country, p.PhotoURL, p.BasePrice, p.Age,
			p.PreviousTeam, p.Set, p.SetName, stats,
		); err != nil {
			return fmt.Errorf("inserting player %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}
