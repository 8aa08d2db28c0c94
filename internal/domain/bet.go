package domain

import "time"

// Bet is a user's score prediction for a game, placed before kickoff.
// Points stays nil until the game has a score to compare against.
// IsExact records whether the last scoring pass matched the score
// exactly; aggregate reversals delta against it, since the game row
// may have moved on (or lost its score) since the bet was scored.
type Bet struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	GameID        int64     `json:"game_id"`
	PredictedHome int       `json:"predicted_home"`
	PredictedAway int       `json:"predicted_away"`
	Points        *int      `json:"points,omitempty"`
	IsExact       bool      `json:"is_exact,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BetSummary is a bet with display context (only exposed once the
// game has kicked off)
type BetSummary struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Username      string    `json:"username"`
	GameID        int64     `json:"game_id"`
	HomeTeam      string    `json:"home_team"`
	AwayTeam      string    `json:"away_team"`
	Kickoff       time.Time `json:"kickoff"`
	GameStatus    string    `json:"game_status"`
	PredictedHome int       `json:"predicted_home"`
	PredictedAway int       `json:"predicted_away"`
	HomeScore     *int      `json:"home_score,omitempty"`
	AwayScore     *int      `json:"away_score,omitempty"`
	Points        *int      `json:"points,omitempty"`
}

// CompetitionUser is a user's membership in a competition with the
// running aggregates used for standings
type CompetitionUser struct {
	CompetitionID int64     `json:"competition_id"`
	UserID        int64     `json:"user_id"`
	Username      string    `json:"username"`
	Points        int       `json:"points"`
	ExactCount    int       `json:"exact_count"`
	BetCount      int       `json:"bet_count"`
	JoinedAt      time.Time `json:"joined_at"`
}

// StandingsEntry is a ranked row of a competition leaderboard
type StandingsEntry struct {
	Rank       int    `json:"rank"`
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	Points     int    `json:"points"`
	ExactCount int    `json:"exact_count"`
	BetCount   int    `json:"bet_count"`
}
