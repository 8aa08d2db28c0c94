package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fbocquet/pronos/internal/domain"
	"github.com/fbocquet/pronos/internal/scoring"
	"github.com/fbocquet/pronos/internal/storage"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseID parses an ID from the URL path
func parseID(req *http.Request, param string) (int64, error) {
	idStr := req.PathValue(param)
	return strconv.ParseInt(idStr, 10, 64)
}

// handleGetCompetitions returns all competitions
func (r *Router) handleGetCompetitions(w http.ResponseWriter, req *http.Request) {
	comps, err := r.store.ListCompetitions(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if comps == nil {
		comps = []domain.Competition{}
	}
	writeJSON(w, http.StatusOK, comps)
}

// handleGetCompetition returns a single competition
func (r *Router) handleGetCompetition(w http.ResponseWriter, req *http.Request) {
	id, err := parseID(req, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid competition id")
		return
	}

	comp, err := r.store.GetCompetitionByID(req.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "competition not found")
		return
	}
	writeJSON(w, http.StatusOK, comp)
}

// handleGetStandings returns the ranked members of a competition
func (r *Router) handleGetStandings(w http.ResponseWriter, req *http.Request) {
	id, err := parseID(req, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid competition id")
		return
	}

	if _, err := r.store.GetCompetitionByID(req.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "competition not found")
		return
	}

	members, err := r.store.ListMembers(req.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := scoring.Standings(members)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"competition_id": id,
		"standings":      entries,
	})
}

// handleGetCompetitionGames returns a competition's games
func (r *Router) handleGetCompetitionGames(w http.ResponseWriter, req *http.Request) {
	id, err := parseID(req, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid competition id")
		return
	}

	filter := storage.GameFilter{
		CompetitionID: id,
		Limit:         parseLimit(req, 20, 100),
		BeforeID:      parseBeforeID(req),
	}
	if status := req.URL.Query().Get("status"); status != "" {
		if !validateStatus(status) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		filter.Status = status
	}

	games, err := r.store.ListGames(req.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if games == nil {
		games = []domain.GameSummary{}
	}
	writeJSON(w, http.StatusOK, games)
}

// handleJoinCompetition enrolls the authenticated user in a competition
func (r *Router) handleJoinCompetition(w http.ResponseWriter, req *http.Request) {
	claims := r.getAuthClaims(req)
	id, err := parseID(req, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid competition id")
		return
	}

	if _, err := r.store.GetCompetitionByID(req.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "competition not found")
		return
	}

	if err := r.store.JoinCompetition(req.Context(), id, claims.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "joined"})
}

// handleGetGames returns games with optional filters
func (r *Router) handleGetGames(w http.ResponseWriter, req *http.Request) {
	// upcoming=true short-circuits the generic filters: scheduled
	// games with a future kickoff, soonest first
	if req.URL.Query().Get("upcoming") == "true" {
		var competitionID int64
		if c := req.URL.Query().Get("competition_id"); c != "" {
			id, err := strconv.ParseInt(c, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid competition_id")
				return
			}
			competitionID = id
		}
		games, err := r.store.ListUpcomingGames(req.Context(), competitionID, parseLimit(req, 20, 100))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if games == nil {
			games = []domain.GameSummary{}
		}
		writeJSON(w, http.StatusOK, games)
		return
	}

	filter := storage.GameFilter{
		Limit:    parseLimit(req, 20, 100),
		BeforeID: parseBeforeID(req),
	}

	if status := req.URL.Query().Get("status"); status != "" {
		if !validateStatus(status) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		filter.Status = status
	}

	// Date filters (RFC3339 format)
	if sd := req.URL.Query().Get("start_date"); sd != "" {
		t, err := time.Parse(time.RFC3339, sd)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date format, use RFC3339")
			return
		}
		filter.From = &t
	}
	if ed := req.URL.Query().Get("end_date"); ed != "" {
		t, err := time.Parse(time.RFC3339, ed)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date format, use RFC3339")
			return
		}
		filter.To = &t
	}

	games, err := r.store.ListGames(req.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if games == nil {
		games = []domain.GameSummary{}
	}
	writeJSON(w, http.StatusOK, games)
}

// handleGetLiveGames returns all games currently in play
func (r *Router) handleGetLiveGames(w http.ResponseWriter, req *http.Request) {
	games, err := r.store.ListLiveGames(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if games == nil {
		games = []domain.GameSummary{}
	}
	writeJSON(w, http.StatusOK, games)
}

// handleGetGame returns a single game with team and competition names
func (r *Router) handleGetGame(w http.ResponseWriter, req *http.Request) {
	id, err := parseID(req, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}

	game, err := r.store.GetGameSummaryByID(req.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// handleGetLeaderboard returns top users by points over a period,
// globally or for one competition
func (r *Router) handleGetLeaderboard(w http.ResponseWriter, req *http.Request) {
	period := req.URL.Query().Get("period")
	if period == "" {
		period = "all"
	}
	if !validatePeriod(period) {
		writeError(w, http.StatusBadRequest, "invalid period: must be all, day, week, month, or year")
		return
	}

	filter := storage.LeaderboardFilter{
		Period: period,
		Limit:  parseLimit(req, 50, 100),
	}
	if c := req.URL.Query().Get("competition_id"); c != "" {
		id, err := strconv.ParseInt(c, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid competition_id")
			return
		}
		filter.CompetitionID = id
	}

	rows, err := r.store.Leaderboard(req.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := scoring.Standings(rows)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"period":      period,
		"leaderboard": entries,
	})
}

// handleGetTeams returns teams, optionally filtered by sport
func (r *Router) handleGetTeams(w http.ResponseWriter, req *http.Request) {
	sport := req.URL.Query().Get("sport")
	if sport != "" && sport != domain.SportFootball && sport != domain.SportRugby {
		writeError(w, http.StatusBadRequest, "invalid sport")
		return
	}

	teams, err := r.store.ListTeams(req.Context(), sport)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if teams == nil {
		teams = []domain.Team{}
	}
	writeJSON(w, http.StatusOK, teams)
}

// handleGetTeam returns a single team
func (r *Router) handleGetTeam(w http.ResponseWriter, req *http.Request) {
	id, err := parseID(req, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return
	}

	team, err := r.store.GetTeamByID(req.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "team not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// handleHealth reports liveness and the number of connected
// WebSocket clients
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"ws_clients": r.wsHub.ClientCount(),
	})
}
