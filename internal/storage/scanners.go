package storage

import (
	"database/sql"
	"time"

	"github.com/fbocquet/pronos/internal/domain"
)

// Null scanner helpers - reduce repetitive nil-checking code

func scanNullTime(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

func scanNullInt64ToIntPtr(ni sql.NullInt64) *int {
	if ni.Valid {
		v := int(ni.Int64)
		return &v
	}
	return nil
}

// scanner is an interface satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// scanCompetition scans a competition row from the database
func scanCompetition(row scanner) (*domain.Competition, error) {
	var c domain.Competition
	err := row.Scan(&c.ID, &c.Name, &c.Sport, &c.ProviderLeagueID, &c.Season,
		&c.CloseScoreEnabled, &c.CloseScoreTolerance, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// scanGame scans a game row from the database
func scanGame(row scanner) (*domain.Game, error) {
	var g domain.Game
	var homeScore, awayScore sql.NullInt64
	err := row.Scan(&g.ID, &g.ExternalID, &g.CompetitionID, &g.HomeTeamID, &g.AwayTeamID,
		&g.Kickoff, &g.Status, &homeScore, &awayScore, &g.Minute, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.HomeScore = scanNullInt64ToIntPtr(homeScore)
	g.AwayScore = scanNullInt64ToIntPtr(awayScore)
	return &g, nil
}

// scanGameSummary scans a game joined with competition and team names
func scanGameSummary(row scanner) (*domain.GameSummary, error) {
	var g domain.GameSummary
	var homeScore, awayScore sql.NullInt64
	err := row.Scan(&g.ID, &g.CompetitionID, &g.CompetitionName, &g.Sport,
		&g.HomeTeam, &g.AwayTeam, &g.Kickoff, &g.Status, &homeScore, &awayScore, &g.Minute)
	if err != nil {
		return nil, err
	}
	g.HomeScore = scanNullInt64ToIntPtr(homeScore)
	g.AwayScore = scanNullInt64ToIntPtr(awayScore)
	return &g, nil
}

// scanBet scans a bet row from the database
func scanBet(row scanner) (*domain.Bet, error) {
	var b domain.Bet
	var points sql.NullInt64
	err := row.Scan(&b.ID, &b.UserID, &b.GameID, &b.PredictedHome, &b.PredictedAway,
		&points, &b.IsExact, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Points = scanNullInt64ToIntPtr(points)
	return &b, nil
}

// scanBetSummary scans a bet joined with user, game and team names
func scanBetSummary(row scanner) (*domain.BetSummary, error) {
	var b domain.BetSummary
	var homeScore, awayScore, points sql.NullInt64
	err := row.Scan(&b.ID, &b.UserID, &b.Username, &b.GameID, &b.HomeTeam, &b.AwayTeam,
		&b.Kickoff, &b.GameStatus, &b.PredictedHome, &b.PredictedAway,
		&homeScore, &awayScore, &points)
	if err != nil {
		return nil, err
	}
	b.HomeScore = scanNullInt64ToIntPtr(homeScore)
	b.AwayScore = scanNullInt64ToIntPtr(awayScore)
	b.Points = scanNullInt64ToIntPtr(points)
	return &b, nil
}

// scanUser scans a user row from the database
func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	u.LastLogin = scanNullTime(lastLogin)
	return &u, nil
}
