package livescore

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fbocquet/pronos/internal/bus"
	"github.com/fbocquet/pronos/internal/config"
	"github.com/fbocquet/pronos/internal/domain"
	"github.com/fbocquet/pronos/internal/scoring"
	"github.com/fbocquet/pronos/internal/storage"
)

// Syncer polls the score provider and reconciles fixtures into the
// database, rescoring bets whenever a game's score or status changes.
type Syncer struct {
	cfg    *config.Config
	store  *storage.Store
	client *Client
	bus    *bus.Bus

	done chan struct{}
	wg   sync.WaitGroup
}

// SyncResult summarizes one reconciliation pass over a competition
type SyncResult struct {
	CompetitionID int64
	GamesSeen     int
	GamesUpdated  int
	BetsScored    int
}

// NewSyncer creates a syncer. The bus may be nil (CLI one-shot sync).
func NewSyncer(cfg *config.Config, store *storage.Store, client *Client, b *bus.Bus) *Syncer {
	return &Syncer{
		cfg:    cfg,
		store:  store,
		client: client,
		bus:    b,
		done:   make(chan struct{}),
	}
}

// Start begins the poll loop
func (s *Syncer) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.pollLoop(ctx)
}

// Stop halts polling and waits for the current pass to finish
func (s *Syncer) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *Syncer) pollLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.Server.PollInterval)
	defer ticker.Stop()

	// Initial sync
	s.syncAll(ctx)

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncAll(ctx)
		}
	}
}

// syncAll reconciles every competition
func (s *Syncer) syncAll(ctx context.Context) {
	comps, err := s.store.ListCompetitions(ctx)
	if err != nil {
		log.Printf("Error listing competitions: %v", err)
		return
	}

	for i := range comps {
		if _, err := s.SyncCompetition(ctx, &comps[i]); err != nil {
			log.Printf("Error syncing %s: %v", comps[i].Name, err)
		}
	}
}

// SyncCompetition fetches the competition's fixtures from the provider
// and reconciles them: teams and games are upserted, and any game whose
// score or status moved has its bets rescored. Safe to call repeatedly;
// reconciling an unchanged fixture is a no-op.
func (s *Syncer) SyncCompetition(ctx context.Context, comp *domain.Competition) (*SyncResult, error) {
	fixtures, err := s.client.Fixtures(ctx, comp.ProviderLeagueID, comp.Season)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{CompetitionID: comp.ID, GamesSeen: len(fixtures)}

	for _, fx := range fixtures {
		updated, scored, err := s.reconcileFixture(ctx, comp, fx)
		if err != nil {
			log.Printf("Error reconciling fixture %d: %v", fx.ID, err)
			continue
		}
		if updated {
			result.GamesUpdated++
		}
		result.BetsScored += scored
	}

	s.publish(domain.Event{
		Type:      domain.EventSyncComplete,
		Timestamp: time.Now().UTC(),
		Data: domain.SyncCompleteEvent{
			CompetitionID: comp.ID,
			GamesUpdated:  result.GamesUpdated,
			BetsScored:    result.BetsScored,
		},
	})

	return result, nil
}

// reconcileFixture upserts one fixture and rescores its bets if the
// observable state moved. Returns whether the game changed and how
// many bets were (re)scored.
func (s *Syncer) reconcileFixture(ctx context.Context, comp *domain.Competition, fx Fixture) (bool, int, error) {
	home := &domain.Team{ExternalID: fx.Home.ID, Name: fx.Home.Name, ShortName: fx.Home.ShortName, Sport: comp.Sport}
	away := &domain.Team{ExternalID: fx.Away.ID, Name: fx.Away.Name, ShortName: fx.Away.ShortName, Sport: comp.Sport}
	if err := s.store.UpsertTeam(ctx, home); err != nil {
		return false, 0, err
	}
	if err := s.store.UpsertTeam(ctx, away); err != nil {
		return false, 0, err
	}

	// Prior state, if any, for change detection and exact-count deltas
	prior, err := s.store.GetGameByExternalID(ctx, fx.ID)
	if err != nil {
		prior = nil // first sighting
	}

	game := &domain.Game{
		ExternalID:    fx.ID,
		CompetitionID: comp.ID,
		HomeTeamID:    home.ID,
		AwayTeamID:    away.ID,
		Kickoff:       fx.Kickoff.UTC().Truncate(time.Second),
		Status:        MapStatus(fx.Status),
	}
	game.HomeScore = fx.HomeScore
	game.AwayScore = fx.AwayScore
	if fx.Minute != nil {
		game.Minute = *fx.Minute
	}

	if prior != nil && !gameChanged(prior, game) {
		game.ID = prior.ID
		return false, 0, nil
	}

	if err := s.store.UpsertGame(ctx, game); err != nil {
		return false, 0, err
	}

	scored := 0
	if game.HasScore() {
		scored, err = s.rescoreGame(ctx, comp, game)
		if err != nil {
			return true, 0, err
		}
	}

	if prior != nil {
		summary, err := s.store.GetGameSummaryByID(ctx, game.ID)
		if err == nil {
			eventType := domain.EventGameUpdate
			var data interface{} = domain.GameUpdateEvent{Game: *summary}
			if game.Status == domain.StatusFinished && prior.Status != domain.StatusFinished {
				eventType = domain.EventGameFinished
				data = domain.GameFinishedEvent{Game: *summary}
			}
			s.publish(domain.Event{
				Type:      eventType,
				GameID:    game.ID,
				Timestamp: time.Now().UTC(),
				Data:      data,
			})
		}
	}

	return true, scored, nil
}

// rescoreGame recomputes the award for every bet on the game. The rule
// is pure, so recomputation from the current score is idempotent;
// aggregate rows absorb the difference against the previously stored
// award as a delta. Reversals read the exactness recorded on the bet
// itself rather than the stored game row: the provider may have
// retracted or rewritten the score since the bet was last scored.
func (s *Syncer) rescoreGame(ctx context.Context, comp *domain.Competition, game *domain.Game) (int, error) {
	rules := scoring.RulesFor(comp)
	bets, err := s.store.ListRawBetsForGame(ctx, game.ID)
	if err != nil {
		return 0, err
	}

	scored := 0
	for _, bet := range bets {
		points := scoring.Award(bet.PredictedHome, bet.PredictedAway, *game.HomeScore, *game.AwayScore, rules)
		exact := isExact(&bet, game)
		if bet.Points != nil && *bet.Points == points && bet.IsExact == exact {
			continue
		}

		if err := s.store.SetBetPoints(ctx, bet.ID, points, exact); err != nil {
			return scored, err
		}

		pointsDelta := points
		betDelta := 1
		exactDelta := boolToInt(exact)
		if bet.Points != nil {
			pointsDelta -= *bet.Points
			betDelta = 0
			exactDelta -= boolToInt(bet.IsExact)
		}
		if err := s.store.ApplyScoreDelta(ctx, comp.ID, bet.UserID, pointsDelta, exactDelta, betDelta); err != nil {
			return scored, err
		}

		s.publish(domain.Event{
			Type:      domain.EventBetScored,
			GameID:    game.ID,
			Timestamp: time.Now().UTC(),
			Data:      domain.BetScoredEvent{UserID: bet.UserID, GameID: game.ID, Points: points},
		})
		scored++
	}
	return scored, nil
}

func (s *Syncer) publish(event domain.Event) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}

// gameChanged reports whether the provider state differs from the
// stored one in any way a user can observe
func gameChanged(prior, next *domain.Game) bool {
	return prior.Status != next.Status ||
		!intPtrEqual(prior.HomeScore, next.HomeScore) ||
		!intPtrEqual(prior.AwayScore, next.AwayScore) ||
		prior.Minute != next.Minute ||
		!prior.Kickoff.Equal(next.Kickoff)
}

// isExact reports whether the bet matches the game's score exactly.
// A nil game or missing score is never exact.
func isExact(bet *domain.Bet, game *domain.Game) bool {
	if game == nil || !game.HasScore() {
		return false
	}
	return bet.PredictedHome == *game.HomeScore && bet.PredictedAway == *game.AwayScore
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
