package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fbocquet/pronos/internal/domain"
)

// PlaceBetRequest is the request body for placing or updating a bet
type PlaceBetRequest struct {
	PredictedHome int `json:"predicted_home"`
	PredictedAway int `json:"predicted_away"`
}

// handlePlaceBet creates or updates the caller's prediction for a game.
// Bets close at kickoff and require competition membership.
func (r *Router) handlePlaceBet(w http.ResponseWriter, req *http.Request) {
	claims := r.getAuthClaims(req)
	gameID, err := parseID(req, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}

	var body PlaceBetRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.PredictedHome < 0 || body.PredictedAway < 0 {
		writeError(w, http.StatusBadRequest, "predicted scores must be non-negative")
		return
	}

	game, err := r.store.GetGameByID(req.Context(), gameID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if game.Started(time.Now()) || game.Status != domain.StatusScheduled {
		writeError(w, http.StatusConflict, "betting is closed for this game")
		return
	}

	member, err := r.store.IsMember(req.Context(), game.CompetitionID, claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !member {
		writeError(w, http.StatusForbidden, "join the competition before betting")
		return
	}

	bet, err := r.store.PlaceBet(req.Context(), claims.UserID, gameID, body.PredictedHome, body.PredictedAway)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

// handleGetMyBets returns the caller's bets
func (r *Router) handleGetMyBets(w http.ResponseWriter, req *http.Request) {
	claims := r.getAuthClaims(req)

	limit := parseLimit(req, 20, 100)
	beforeID := parseBeforeID(req)

	bets, err := r.store.ListUserBets(req.Context(), claims.UserID, limit, beforeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if bets == nil {
		bets = []domain.BetSummary{}
	}
	writeJSON(w, http.StatusOK, bets)
}

// handleGetGameBets returns everyone's bets on a game. Predictions
// stay hidden until kickoff so opponents cannot copy them.
func (r *Router) handleGetGameBets(w http.ResponseWriter, req *http.Request) {
	gameID, err := parseID(req, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}

	game, err := r.store.GetGameByID(req.Context(), gameID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !game.Started(time.Now()) {
		writeError(w, http.StatusForbidden, "bets are hidden until kickoff")
		return
	}

	bets, err := r.store.ListBetsForGame(req.Context(), gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if bets == nil {
		bets = []domain.BetSummary{}
	}
	writeJSON(w, http.StatusOK, bets)
}
