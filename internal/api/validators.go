package api

import (
	"net/http"
	"strconv"

	"github.com/fbocquet/pronos/internal/domain"
)

// parseLimit parses the limit query parameter with bounds
func parseLimit(req *http.Request, def, max int) int {
	raw := req.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// parseBeforeID parses the before_id cursor for pagination
func parseBeforeID(req *http.Request) int64 {
	raw := req.URL.Query().Get("before_id")
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0
	}
	return id
}

var validStatuses = map[string]bool{
	domain.StatusScheduled: true,
	domain.StatusLive:      true,
	domain.StatusFinished:  true,
	domain.StatusPostponed: true,
	domain.StatusCancelled: true,
}

// validateStatus checks that a status filter is a known game status
func validateStatus(status string) bool {
	return validStatuses[status]
}

var validPeriods = map[string]bool{
	"all":   true,
	"day":   true,
	"week":  true,
	"month": true,
	"year":  true,
}

// validatePeriod checks that a leaderboard period is valid
func validatePeriod(period string) bool {
	return validPeriods[period]
}
