package storage

import (
	"context"
	"time"

	"github.com/fbocquet/pronos/internal/domain"
)

const betSummarySelect = `
	SELECT b.id, b.user_id, u.username, b.game_id, ht.name, at.name,
		g.kickoff, g.status, b.predicted_home, b.predicted_away,
		g.home_score, g.away_score, b.points
	FROM bets b
	JOIN users u ON b.user_id = u.id
	JOIN games g ON b.game_id = g.id
	JOIN teams ht ON g.home_team_id = ht.id
	JOIN teams at ON g.away_team_id = at.id
`

// PlaceBet creates or replaces a user's prediction for a game.
// Updating an existing bet clears its points and exactness; they are
// recomputed when the game next reconciles. Kickoff enforcement
// happens in the API layer, which also holds the clock.
func (s *Store) PlaceBet(ctx context.Context, userID, gameID int64, predictedHome, predictedAway int) (*domain.Bet, error) {
	now := formatTimestamp(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bets (user_id, game_id, predicted_home, predicted_away, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, game_id) DO UPDATE SET
			predicted_home = excluded.predicted_home,
			predicted_away = excluded.predicted_away,
			points = NULL,
			is_exact = FALSE,
			updated_at = excluded.updated_at
	`, userID, gameID, predictedHome, predictedAway, now, now)
	if err != nil {
		return nil, err
	}
	return s.GetBet(ctx, userID, gameID)
}

// GetBet returns a user's bet for a game
func (s *Store) GetBet(ctx context.Context, userID, gameID int64) (*domain.Bet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, game_id, predicted_home, predicted_away, points, is_exact, created_at, updated_at
		FROM bets WHERE user_id = ? AND game_id = ?
	`, userID, gameID)
	return scanBet(row)
}

// ListBetsForGame returns all bets on a game (exposed by the API only
// once the game has kicked off)
func (s *Store) ListBetsForGame(ctx context.Context, gameID int64) ([]domain.BetSummary, error) {
	rows, err := s.db.QueryContext(ctx, betSummarySelect+`
		WHERE b.game_id = ? ORDER BY u.username
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBetSummaries(rows)
}

// ListUserBets returns a user's bets, most recent kickoff first, with
// cursor pagination on the bet ID
func (s *Store) ListUserBets(ctx context.Context, userID int64, limit int, beforeID int64) ([]domain.BetSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	query := betSummarySelect + " WHERE b.user_id = ?"
	args := []interface{}{userID}
	if beforeID != 0 {
		query += " AND b.id < ?"
		args = append(args, beforeID)
	}
	query += " ORDER BY g.kickoff DESC, b.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBetSummaries(rows)
}

// ListRawBetsForGame returns the bare bet rows on a game, for rescoring
func (s *Store) ListRawBetsForGame(ctx context.Context, gameID int64) ([]domain.Bet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, game_id, predicted_home, predicted_away, points, is_exact, created_at, updated_at
		FROM bets WHERE game_id = ?
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, *b)
	}
	return bets, rows.Err()
}

// SetBetPoints stores the computed award for a bet along with whether
// the prediction matched the score exactly at scoring time
func (s *Store) SetBetPoints(ctx context.Context, betID int64, points int, isExact bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE bets SET points = ?, is_exact = ? WHERE id = ?`, points, isExact, betID)
	return err
}

func collectBetSummaries(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]domain.BetSummary, error) {
	var bets []domain.BetSummary
	for rows.Next() {
		b, err := scanBetSummary(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, *b)
	}
	return bets, rows.Err()
}
