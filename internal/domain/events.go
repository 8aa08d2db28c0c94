package domain

import "time"

// Event types for SSE/WebSocket notifications
const (
	EventGameUpdate   = "game_update"
	EventGameFinished = "game_finished"
	EventBetScored    = "bet_scored"
	EventSyncComplete = "sync_complete"
)

// Event represents a real-time notification relayed to browsers.
// Delivery is best effort; clients treat events as refresh hints.
type Event struct {
	Type      string      `json:"event"`
	GameID    int64       `json:"game_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// GameUpdateEvent is sent when a game's score, minute or status changes
type GameUpdateEvent struct {
	Game GameSummary `json:"game"`
}

// GameFinishedEvent is sent when a game reaches its final score
type GameFinishedEvent struct {
	Game GameSummary `json:"game"`
}

// BetScoredEvent is sent when a user's bet is (re)scored
type BetScoredEvent struct {
	UserID int64 `json:"user_id"`
	GameID int64 `json:"game_id"`
	Points int   `json:"points"`
}

// SyncCompleteEvent is sent after a provider sync pass
type SyncCompleteEvent struct {
	CompetitionID int64 `json:"competition_id"`
	GamesUpdated  int   `json:"games_updated"`
	BetsScored    int   `json:"bets_scored"`
}
