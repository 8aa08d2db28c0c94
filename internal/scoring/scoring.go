// Package scoring implements the point award rule for predictions
// and the standings ordering built on top of it.
package scoring

import (
	"sort"

	"github.com/fbocquet/pronos/internal/domain"
)

// Point awards
const (
	PointsExact   = 3
	PointsOutcome = 1
	PointsMiss    = 0
)

// Rules carries the per-competition scoring configuration
type Rules struct {
	Sport               string
	CloseScoreEnabled   bool
	CloseScoreTolerance int
}

// RulesFor extracts the scoring rules from a competition
func RulesFor(c *domain.Competition) Rules {
	return Rules{
		Sport:               c.Sport,
		CloseScoreEnabled:   c.CloseScoreEnabled,
		CloseScoreTolerance: c.CloseScoreTolerance,
	}
}

// outcome collapses a score pair to -1 (away win), 0 (draw), 1 (home win)
func outcome(home, away int) int {
	switch {
	case home > away:
		return 1
	case home < away:
		return -1
	default:
		return 0
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Award returns the points earned by a prediction against an actual
// score. Exact score pays 3, correct outcome pays 1, anything else 0.
// Rugby competitions with close scoring enabled upgrade a correct
// outcome to 3 when both per-team differences are within the
// tolerance. The close rule never awards points for a wrong outcome.
func Award(predHome, predAway, actualHome, actualAway int, rules Rules) int {
	if predHome == actualHome && predAway == actualAway {
		return PointsExact
	}

	if outcome(predHome, predAway) != outcome(actualHome, actualAway) {
		return PointsMiss
	}

	if rules.Sport == domain.SportRugby && rules.CloseScoreEnabled &&
		abs(predHome-actualHome) <= rules.CloseScoreTolerance &&
		abs(predAway-actualAway) <= rules.CloseScoreTolerance {
		return PointsExact
	}

	return PointsOutcome
}

// Standings orders competition members into ranked entries: points
// descending, then exact scores descending, then fewest bets, then
// username. Members with identical points and exact counts share a rank.
func Standings(members []domain.CompetitionUser) []domain.StandingsEntry {
	sorted := make([]domain.CompetitionUser, len(members))
	copy(sorted, members)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.ExactCount != b.ExactCount {
			return a.ExactCount > b.ExactCount
		}
		if a.BetCount != b.BetCount {
			return a.BetCount < b.BetCount
		}
		return a.Username < b.Username
	})

	entries := make([]domain.StandingsEntry, 0, len(sorted))
	rank := 0
	for i, m := range sorted {
		if i == 0 || m.Points != sorted[i-1].Points || m.ExactCount != sorted[i-1].ExactCount {
			rank = i + 1
		}
		entries = append(entries, domain.StandingsEntry{
			Rank:       rank,
			UserID:     m.UserID,
			Username:   m.Username,
			Points:     m.Points,
			ExactCount: m.ExactCount,
			BetCount:   m.BetCount,
		})
	}
	return entries
}
