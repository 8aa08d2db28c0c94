package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/fbocquet/pronos/internal/domain"
	_ "modernc.org/sqlite"
)

// formatTimestamp converts time.Time to SQLite-compatible UTC ISO8601 string
// The Z suffix ensures the Go sqlite driver parses it back as UTC
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

//go:embed schema.sql
var schema string

// Store provides database access
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable foreign keys, WAL mode for better performance, and busy timeout for concurrency
	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	// Create tables
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Team methods ---

// UpsertTeam creates or updates a team by provider external ID and
// fills in the local ID
func (s *Store) UpsertTeam(ctx context.Context, t *domain.Team) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (external_id, name, short_name, sport)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			name = excluded.name,
			short_name = excluded.short_name
	`, t.ExternalID, t.Name, t.ShortName, t.Sport)
	if err != nil {
		return err
	}

	// Always query for the ID (LastInsertId unreliable with ON CONFLICT)
	return s.db.QueryRowContext(ctx, "SELECT id FROM teams WHERE external_id = ?", t.ExternalID).Scan(&t.ID)
}

// GetTeamByID returns a team by ID
func (s *Store) GetTeamByID(ctx context.Context, id int64) (*domain.Team, error) {
	var t domain.Team
	var shortName sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, name, short_name, sport FROM teams WHERE id = ?
	`, id).Scan(&t.ID, &t.ExternalID, &t.Name, &shortName, &t.Sport)
	if err != nil {
		return nil, err
	}
	t.ShortName = shortName.String
	return &t, nil
}

// ListTeams returns all teams, optionally filtered by sport
func (s *Store) ListTeams(ctx context.Context, sport string) ([]domain.Team, error) {
	query := "SELECT id, external_id, name, short_name, sport FROM teams"
	var args []interface{}
	if sport != "" {
		query += " WHERE sport = ?"
		args = append(args, sport)
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		var t domain.Team
		var shortName sql.NullString
		if err := rows.Scan(&t.ID, &t.ExternalID, &t.Name, &shortName, &t.Sport); err != nil {
			return nil, err
		}
		t.ShortName = shortName.String
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// --- Competition methods ---

// CreateCompetition inserts a competition and fills in its ID
func (s *Store) CreateCompetition(ctx context.Context, c *domain.Competition) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO competitions (name, sport, provider_league_id, season, close_score_enabled, close_score_tolerance)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.Name, c.Sport, c.ProviderLeagueID, c.Season, c.CloseScoreEnabled, c.CloseScoreTolerance)
	if err != nil {
		return fmt.Errorf("creating competition: %w", err)
	}
	c.ID, _ = result.LastInsertId()
	return nil
}

// GetCompetitionByID returns a competition by ID
func (s *Store) GetCompetitionByID(ctx context.Context, id int64) (*domain.Competition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, sport, provider_league_id, season, close_score_enabled, close_score_tolerance, created_at
		FROM competitions WHERE id = ?
	`, id)
	return scanCompetition(row)
}

// ListCompetitions returns all competitions
func (s *Store) ListCompetitions(ctx context.Context) ([]domain.Competition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, sport, provider_league_id, season, close_score_enabled, close_score_tolerance, created_at
		FROM competitions ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comps []domain.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, err
		}
		comps = append(comps, *c)
	}
	return comps, rows.Err()
}

// UpdateCompetitionCloseScore updates the rugby close-score configuration
func (s *Store) UpdateCompetitionCloseScore(ctx context.Context, id int64, enabled bool, tolerance int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE competitions SET close_score_enabled = ?, close_score_tolerance = ? WHERE id = ?
	`, enabled, tolerance, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("competition not found: %d", id)
	}
	return nil
}
