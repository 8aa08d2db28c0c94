package domain

import "time"

// Sport constants
const (
	SportFootball = "football"
	SportRugby    = "rugby"
)

// ValidSport reports whether s is a supported sport
func ValidSport(s string) bool {
	return s == SportFootball || s == SportRugby
}

// Game status constants
const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusFinished  = "finished"
	StatusPostponed = "postponed"
	StatusCancelled = "cancelled"
)

// Team represents a club pulled from the score provider
type Team struct {
	ID         int64  `json:"id"`
	ExternalID int64  `json:"external_id"`
	Name       string `json:"name"`
	ShortName  string `json:"short_name,omitempty"`
	Sport      string `json:"sport"`
}

// Competition groups fixtures and the users predicting them.
// CloseScoreTolerance only applies to rugby competitions with
// CloseScoreEnabled set.
type Competition struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Sport               string    `json:"sport"`
	ProviderLeagueID    int64     `json:"provider_league_id"`
	Season              int       `json:"season"`
	CloseScoreEnabled   bool      `json:"close_score_enabled"`
	CloseScoreTolerance int       `json:"close_score_tolerance"`
	CreatedAt           time.Time `json:"created_at"`
}

// Game represents a fixture between two teams
type Game struct {
	ID            int64     `json:"id"`
	ExternalID    int64     `json:"external_id"`
	CompetitionID int64     `json:"competition_id"`
	HomeTeamID    int64     `json:"home_team_id"`
	AwayTeamID    int64     `json:"away_team_id"`
	Kickoff       time.Time `json:"kickoff"`
	Status        string    `json:"status"`
	HomeScore     *int      `json:"home_score,omitempty"`
	AwayScore     *int      `json:"away_score,omitempty"`
	Minute        int       `json:"minute,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Started reports whether betting on the game is closed
func (g *Game) Started(now time.Time) bool {
	return !now.Before(g.Kickoff)
}

// HasScore reports whether the provider has delivered a score
func (g *Game) HasScore() bool {
	return g.HomeScore != nil && g.AwayScore != nil
}

// GameSummary is a game with team and competition names for display
type GameSummary struct {
	ID              int64     `json:"id"`
	CompetitionID   int64     `json:"competition_id"`
	CompetitionName string    `json:"competition_name"`
	Sport           string    `json:"sport"`
	HomeTeam        string    `json:"home_team"`
	AwayTeam        string    `json:"away_team"`
	Kickoff         time.Time `json:"kickoff"`
	Status          string    `json:"status"`
	HomeScore       *int      `json:"home_score,omitempty"`
	AwayScore       *int      `json:"away_score,omitempty"`
	Minute          int       `json:"minute,omitempty"`
}
