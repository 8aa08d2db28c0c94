package storage

import (
	"context"
	"time"

	"github.com/fbocquet/pronos/internal/domain"
)

// JoinCompetition enrolls a user in a competition. Joining twice is a no-op.
func (s *Store) JoinCompetition(ctx context.Context, competitionID, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO competition_users (competition_id, user_id)
		VALUES (?, ?)
		ON CONFLICT(competition_id, user_id) DO NOTHING
	`, competitionID, userID)
	return err
}

// IsMember reports whether a user has joined a competition
func (s *Store) IsMember(ctx context.Context, competitionID, userID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM competition_users WHERE competition_id = ? AND user_id = ?
	`, competitionID, userID).Scan(&count)
	return count > 0, err
}

// ListMembers returns a competition's members with their aggregates
func (s *Store) ListMembers(ctx context.Context, competitionID int64) ([]domain.CompetitionUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cu.competition_id, cu.user_id, u.username, cu.points, cu.exact_count, cu.bet_count, cu.joined_at
		FROM competition_users cu
		JOIN users u ON cu.user_id = u.id
		WHERE cu.competition_id = ?
		ORDER BY cu.points DESC, cu.exact_count DESC, u.username
	`, competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.CompetitionUser
	for rows.Next() {
		var m domain.CompetitionUser
		if err := rows.Scan(&m.CompetitionID, &m.UserID, &m.Username, &m.Points,
			&m.ExactCount, &m.BetCount, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ApplyScoreDelta adjusts a member's aggregates after a bet is
// (re)scored. Deltas may be negative when a live score regresses, so
// repeated reconciliation of the same final score is a no-op overall.
func (s *Store) ApplyScoreDelta(ctx context.Context, competitionID, userID int64, pointsDelta, exactDelta, betDelta int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE competition_users
		SET points = points + ?, exact_count = exact_count + ?, bet_count = bet_count + ?
		WHERE competition_id = ? AND user_id = ?
	`, pointsDelta, exactDelta, betDelta, competitionID, userID)
	return err
}

// LeaderboardFilter narrows the leaderboard computation
type LeaderboardFilter struct {
	CompetitionID int64
	Period        string // all, day, week, month, year
	Limit         int
}

// getTimePeriodBounds returns start and end times for a given period (rolling windows)
func getTimePeriodBounds(period string) (start, end time.Time) {
	now := time.Now()
	end = now
	switch period {
	case "day":
		start = now.Add(-24 * time.Hour)
	case "week":
		start = now.Add(-7 * 24 * time.Hour)
	case "month":
		start = now.Add(-30 * 24 * time.Hour)
	case "year":
		start = now.Add(-365 * 24 * time.Hour)
	default: // "all"
		start = time.Time{}
		end = now.Add(100 * 365 * 24 * time.Hour)
	}
	return
}

// Leaderboard aggregates scored bets per user over the period, most
// points first. Exact scores are counted by comparing the prediction
// against the stored result, not by the award value, so the rugby
// close bonus does not inflate the tie-break.
func (s *Store) Leaderboard(ctx context.Context, filter LeaderboardFilter) ([]domain.CompetitionUser, error) {
	start, end := getTimePeriodBounds(filter.Period)

	query := `
		SELECT u.id, u.username,
			COALESCE(SUM(b.points), 0) as points,
			COUNT(CASE WHEN b.predicted_home = g.home_score AND b.predicted_away = g.away_score THEN 1 END) as exact_count,
			COUNT(b.id) as bet_count
		FROM bets b
		JOIN users u ON b.user_id = u.id
		JOIN games g ON b.game_id = g.id
		WHERE b.points IS NOT NULL AND g.kickoff >= ? AND g.kickoff <= ?
	`
	args := []interface{}{formatTimestamp(start), formatTimestamp(end)}

	if filter.CompetitionID != 0 {
		query += " AND g.competition_id = ?"
		args = append(args, filter.CompetitionID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += `
		GROUP BY u.id, u.username
		ORDER BY points DESC, exact_count DESC, bet_count ASC, u.username
		LIMIT ?
	`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.CompetitionUser
	for rows.Next() {
		var m domain.CompetitionUser
		if err := rows.Scan(&m.UserID, &m.Username, &m.Points, &m.ExactCount, &m.BetCount); err != nil {
			return nil, err
		}
		m.CompetitionID = filter.CompetitionID
		members = append(members, m)
	}
	return members, rows.Err()
}
