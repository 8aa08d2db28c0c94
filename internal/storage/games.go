package storage

import (
	"context"
	"time"

	"github.com/fbocquet/pronos/internal/domain"
)

const gameSummarySelect = `
	SELECT g.id, g.competition_id, c.name, c.sport,
		ht.name, at.name, g.kickoff, g.status, g.home_score, g.away_score, g.minute
	FROM games g
	JOIN competitions c ON g.competition_id = c.id
	JOIN teams ht ON g.home_team_id = ht.id
	JOIN teams at ON g.away_team_id = at.id
`

// GameFilter narrows game listings
type GameFilter struct {
	CompetitionID int64
	Status        string
	From          *time.Time
	To            *time.Time
	Limit         int
	BeforeID      int64
}

// UpsertGame creates or updates a game by provider external ID and
// fills in the local ID. Reconciliation target for the live sync.
func (s *Store) UpsertGame(ctx context.Context, g *domain.Game) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (external_id, competition_id, home_team_id, away_team_id, kickoff, status, home_score, away_score, minute, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			kickoff = excluded.kickoff,
			status = excluded.status,
			home_score = excluded.home_score,
			away_score = excluded.away_score,
			minute = excluded.minute,
			updated_at = excluded.updated_at
	`, g.ExternalID, g.CompetitionID, g.HomeTeamID, g.AwayTeamID,
		formatTimestamp(g.Kickoff), g.Status, g.HomeScore, g.AwayScore, g.Minute,
		formatTimestamp(time.Now()))
	if err != nil {
		return err
	}

	// Always query for the ID (LastInsertId unreliable with ON CONFLICT)
	return s.db.QueryRowContext(ctx, "SELECT id FROM games WHERE external_id = ?", g.ExternalID).Scan(&g.ID)
}

// GetGameByID returns a game by ID
func (s *Store) GetGameByID(ctx context.Context, id int64) (*domain.Game, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, competition_id, home_team_id, away_team_id,
			kickoff, status, home_score, away_score, minute, updated_at
		FROM games WHERE id = ?
	`, id)
	return scanGame(row)
}

// GetGameByExternalID returns a game by its provider ID
func (s *Store) GetGameByExternalID(ctx context.Context, externalID int64) (*domain.Game, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, competition_id, home_team_id, away_team_id,
			kickoff, status, home_score, away_score, minute, updated_at
		FROM games WHERE external_id = ?
	`, externalID)
	return scanGame(row)
}

// GetGameSummaryByID returns a game with competition and team names
func (s *Store) GetGameSummaryByID(ctx context.Context, id int64) (*domain.GameSummary, error) {
	row := s.db.QueryRowContext(ctx, gameSummarySelect+" WHERE g.id = ?", id)
	return scanGameSummary(row)
}

// ListGames returns games matching the filter, newest kickoff first,
// with cursor pagination on the game ID
func (s *Store) ListGames(ctx context.Context, filter GameFilter) ([]domain.GameSummary, error) {
	query := gameSummarySelect + " WHERE 1=1"
	var args []interface{}

	if filter.CompetitionID != 0 {
		query += " AND g.competition_id = ?"
		args = append(args, filter.CompetitionID)
	}
	if filter.Status != "" {
		query += " AND g.status = ?"
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		query += " AND g.kickoff >= ?"
		args = append(args, formatTimestamp(*filter.From))
	}
	if filter.To != nil {
		query += " AND g.kickoff <= ?"
		args = append(args, formatTimestamp(*filter.To))
	}
	if filter.BeforeID != 0 {
		query += " AND g.id < ?"
		args = append(args, filter.BeforeID)
	}

	query += " ORDER BY g.kickoff DESC, g.id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []domain.GameSummary
	for rows.Next() {
		g, err := scanGameSummary(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

// ListLiveGames returns all games currently in play
func (s *Store) ListLiveGames(ctx context.Context) ([]domain.GameSummary, error) {
	rows, err := s.db.QueryContext(ctx, gameSummarySelect+`
		WHERE g.status = ? ORDER BY g.kickoff
	`, domain.StatusLive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []domain.GameSummary
	for rows.Next() {
		g, err := scanGameSummary(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

// ListUpcomingGames returns scheduled games kicking off after now,
// soonest first
func (s *Store) ListUpcomingGames(ctx context.Context, competitionID int64, limit int) ([]domain.GameSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	query := gameSummarySelect + " WHERE g.status = ? AND g.kickoff > ?"
	args := []interface{}{domain.StatusScheduled, formatTimestamp(time.Now())}
	if competitionID != 0 {
		query += " AND g.competition_id = ?"
		args = append(args, competitionID)
	}
	query += " ORDER BY g.kickoff LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []domain.GameSummary
	for rows.Next() {
		g, err := scanGameSummary(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}
