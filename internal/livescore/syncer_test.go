package livescore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fbocquet/pronos/internal/config"
	"github.com/fbocquet/pronos/internal/domain"
	"github.com/fbocquet/pronos/internal/storage"
)

// fakeProvider serves a mutable fixture list as the score API would
type fakeProvider struct {
	mu       sync.Mutex
	fixtures []Fixture
	requests int
	lastKey  string
}

func (p *fakeProvider) set(fixtures ...Fixture) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fixtures = fixtures
}

func (p *fakeProvider) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.requests++
		p.lastKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"fixtures": p.fixtures})
	}
}

func intPtr(n int) *int { return &n }

func newTestSyncer(t *testing.T, provider *fakeProvider) (*Syncer, *storage.Store, *domain.Competition) {
	t.Helper()

	srv := httptest.NewServer(provider.handler())
	t.Cleanup(srv.Close)

	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	comp := &domain.Competition{
		Name:                "Top 14",
		Sport:               domain.SportRugby,
		ProviderLeagueID:    16,
		Season:              2025,
		CloseScoreEnabled:   true,
		CloseScoreTolerance: 3,
	}
	if err := store.CreateCompetition(context.Background(), comp); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.Server.PollInterval = time.Minute
	client := NewClient(config.ProviderConfig{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		Timeout:   5 * time.Second,
		UserAgent: "pronos-test",
	})

	return NewSyncer(cfg, store, client, nil), store, comp
}

func scheduledFixture(kickoff time.Time) Fixture {
	return Fixture{
		ID:      500,
		Kickoff: kickoff,
		Status:  "NS",
		Home:    TeamRef{ID: 1, Name: "Toulouse", ShortName: "ST"},
		Away:    TeamRef{ID: 2, Name: "La Rochelle", ShortName: "SR"},
	}
}

func TestSyncCompetition_CreatesGamesAndTeams(t *testing.T) {
	provider := &fakeProvider{}
	syncer, store, comp := newTestSyncer(t, provider)
	ctx := context.Background()

	provider.set(scheduledFixture(time.Now().Add(24 * time.Hour)))

	result, err := syncer.SyncCompetition(ctx, comp)
	if err != nil {
		t.Fatalf("SyncCompetition: %v", err)
	}
	if result.GamesSeen != 1 || result.GamesUpdated != 1 {
		t.Errorf("result = %+v", result)
	}
	if provider.lastKey != "test-key" {
		t.Errorf("API key header = %q", provider.lastKey)
	}

	teams, err := store.ListTeams(ctx, domain.SportRugby)
	if err != nil {
		t.Fatal(err)
	}
	if len(teams) != 2 {
		t.Fatalf("got %d teams", len(teams))
	}

	game, err := store.GetGameByExternalID(ctx, 500)
	if err != nil {
		t.Fatalf("game not created: %v", err)
	}
	if game.Status != domain.StatusScheduled {
		t.Errorf("status = %q", game.Status)
	}
}

func TestSyncCompetition_UnchangedIsNoop(t *testing.T) {
	provider := &fakeProvider{}
	syncer, _, comp := newTestSyncer(t, provider)
	ctx := context.Background()

	provider.set(scheduledFixture(time.Date(2026, 3, 7, 20, 0, 0, 0, time.UTC)))

	if _, err := syncer.SyncCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}
	result, err := syncer.SyncCompetition(ctx, comp)
	if err != nil {
		t.Fatal(err)
	}
	if result.GamesUpdated != 0 {
		t.Errorf("second pass updated %d games, want 0", result.GamesUpdated)
	}
}

func TestSyncCompetition_ScoresBets(t *testing.T) {
	provider := &fakeProvider{}
	syncer, store, comp := newTestSyncer(t, provider)
	ctx := context.Background()

	kickoff := time.Now().Add(-2 * time.Hour).UTC().Truncate(time.Second)
	provider.set(scheduledFixture(kickoff))
	if _, err := syncer.SyncCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}

	game, err := store.GetGameByExternalID(ctx, 500)
	if err != nil {
		t.Fatal(err)
	}

	alice, _ := store.CreateUser(ctx, "alice", "hash", false)
	bob, _ := store.CreateUser(ctx, "bob", "hash", false)
	carol, _ := store.CreateUser(ctx, "carol", "hash", false)
	for _, u := range []*domain.User{alice, bob, carol} {
		if err := store.JoinCompetition(ctx, comp.ID, u.ID); err != nil {
			t.Fatal(err)
		}
	}

	// alice exact, bob close (rugby tolerance 3), carol wrong outcome
	if _, err := store.PlaceBet(ctx, alice.ID, game.ID, 22, 17); err != nil {
		t.Fatal(err)
	}
	if _, err := store.PlaceBet(ctx, bob.ID, game.ID, 20, 15); err != nil {
		t.Fatal(err)
	}
	if _, err := store.PlaceBet(ctx, carol.ID, game.ID, 10, 30); err != nil {
		t.Fatal(err)
	}

	// Full time: 22-17
	fx := scheduledFixture(kickoff)
	fx.Status = "FT"
	fx.HomeScore = intPtr(22)
	fx.AwayScore = intPtr(17)
	provider.set(fx)

	result, err := syncer.SyncCompetition(ctx, comp)
	if err != nil {
		t.Fatal(err)
	}
	if result.BetsScored != 3 {
		t.Errorf("BetsScored = %d, want 3", result.BetsScored)
	}

	wantPoints := map[int64]int{alice.ID: 3, bob.ID: 3, carol.ID: 0}
	for userID, want := range wantPoints {
		bet, err := store.GetBet(ctx, userID, game.ID)
		if err != nil {
			t.Fatal(err)
		}
		if bet.Points == nil || *bet.Points != want {
			t.Errorf("user %d points = %v, want %d", userID, bet.Points, want)
		}
	}

	members, err := store.ListMembers(ctx, comp.ID)
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]domain.CompetitionUser{}
	for _, m := range members {
		byName[m.Username] = m
	}
	if m := byName["alice"]; m.Points != 3 || m.ExactCount != 1 || m.BetCount != 1 {
		t.Errorf("alice aggregates = %+v", m)
	}
	// bob earned 3 via the close rule but did not predict the exact score
	if m := byName["bob"]; m.Points != 3 || m.ExactCount != 0 || m.BetCount != 1 {
		t.Errorf("bob aggregates = %+v", m)
	}
	if m := byName["carol"]; m.Points != 0 || m.BetCount != 1 {
		t.Errorf("carol aggregates = %+v", m)
	}
}

func TestSyncCompetition_RescoreIsIdempotent(t *testing.T) {
	provider := &fakeProvider{}
	syncer, store, comp := newTestSyncer(t, provider)
	ctx := context.Background()

	kickoff := time.Now().Add(-3 * time.Hour).UTC().Truncate(time.Second)
	provider.set(scheduledFixture(kickoff))
	if _, err := syncer.SyncCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}
	game, _ := store.GetGameByExternalID(ctx, 500)

	alice, _ := store.CreateUser(ctx, "alice", "hash", false)
	if err := store.JoinCompetition(ctx, comp.ID, alice.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.PlaceBet(ctx, alice.ID, game.ID, 20, 10); err != nil {
		t.Fatal(err)
	}

	// Live 20-10: exact for now
	live := scheduledFixture(kickoff)
	live.Status = "2H"
	live.Minute = intPtr(55)
	live.HomeScore = intPtr(20)
	live.AwayScore = intPtr(10)
	provider.set(live)
	if _, err := syncer.SyncCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}

	// Final 25-10: the exact match regresses to a close/outcome award
	final := live
	final.Status = "FT"
	final.Minute = intPtr(80)
	final.HomeScore = intPtr(25)
	provider.set(final)
	if _, err := syncer.SyncCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}

	// Re-syncing the same final score must change nothing
	if _, err := syncer.SyncCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}

	bet, err := store.GetBet(ctx, alice.ID, game.ID)
	if err != nil {
		t.Fatal(err)
	}
	// 20-10 vs 25-10: home diff 5 > tolerance 3, so outcome only
	if bet.Points == nil || *bet.Points != 1 {
		t.Errorf("points = %v, want 1", bet.Points)
	}

	members, err := store.ListMembers(ctx, comp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 {
		t.Fatal("expected one member")
	}
	m := members[0]
	if m.Points != 1 || m.ExactCount != 0 || m.BetCount != 1 {
		t.Errorf("aggregates after rescore = %d points, %d exact, %d bets", m.Points, m.ExactCount, m.BetCount)
	}
}

func TestSyncCompetition_ScoreRetraction(t *testing.T) {
	provider := &fakeProvider{}
	syncer, store, comp := newTestSyncer(t, provider)
	ctx := context.Background()

	kickoff := time.Now().Add(-3 * time.Hour).UTC().Truncate(time.Second)
	provider.set(scheduledFixture(kickoff))
	if _, err := syncer.SyncCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}
	game, _ := store.GetGameByExternalID(ctx, 500)

	alice, _ := store.CreateUser(ctx, "alice", "hash", false)
	if err := store.JoinCompetition(ctx, comp.ID, alice.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.PlaceBet(ctx, alice.ID, game.ID, 20, 10); err != nil {
		t.Fatal(err)
	}

	// Live 20-10: scored as exact
	live := scheduledFixture(kickoff)
	live.Status = "2H"
	live.Minute = intPtr(50)
	live.HomeScore = intPtr(20)
	live.AwayScore = intPtr(10)
	provider.set(live)
	if _, err := syncer.SyncCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}

	// The provider pulls the score entirely, then publishes a
	// different final. The retraction upserts the game without a
	// score, so no rescore happens in between.
	retracted := scheduledFixture(kickoff)
	retracted.Status = "2H"
	retracted.Minute = intPtr(60)
	provider.set(retracted)
	if _, err := syncer.SyncCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}

	final := scheduledFixture(kickoff)
	final.Status = "FT"
	final.Minute = intPtr(80)
	final.HomeScore = intPtr(30)
	final.AwayScore = intPtr(10)
	provider.set(final)
	if _, err := syncer.SyncCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}

	bet, err := store.GetBet(ctx, alice.ID, game.ID)
	if err != nil {
		t.Fatal(err)
	}
	// 20-10 vs 30-10: outcome only, no longer exact
	if bet.Points == nil || *bet.Points != 1 {
		t.Errorf("points = %v, want 1", bet.Points)
	}
	if bet.IsExact {
		t.Error("bet still marked exact after non-exact final")
	}

	members, err := store.ListMembers(ctx, comp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 {
		t.Fatal("expected one member")
	}
	m := members[0]
	if m.Points != 1 || m.ExactCount != 0 || m.BetCount != 1 {
		t.Errorf("aggregates after retraction = %d points, %d exact, %d bets", m.Points, m.ExactCount, m.BetCount)
	}
}

func TestSyncCompetition_ExactBecomesClose(t *testing.T) {
	provider := &fakeProvider{}
	syncer, store, comp := newTestSyncer(t, provider)
	ctx := context.Background()

	kickoff := time.Now().Add(-3 * time.Hour).UTC().Truncate(time.Second)
	provider.set(scheduledFixture(kickoff))
	if _, err := syncer.SyncCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}
	game, _ := store.GetGameByExternalID(ctx, 500)

	alice, _ := store.CreateUser(ctx, "alice", "hash", false)
	if err := store.JoinCompetition(ctx, comp.ID, alice.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.PlaceBet(ctx, alice.ID, game.ID, 20, 15); err != nil {
		t.Fatal(err)
	}

	// Live 20-15: exact, 3 points
	live := scheduledFixture(kickoff)
	live.Status = "2H"
	live.Minute = intPtr(60)
	live.HomeScore = intPtr(20)
	live.AwayScore = intPtr(15)
	provider.set(live)
	if _, err := syncer.SyncCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}

	// Final 22-17: still 3 points via the close rule, but no longer
	// exact. The award is unchanged so only the exactness moves.
	final := live
	final.Status = "FT"
	final.Minute = intPtr(80)
	final.HomeScore = intPtr(22)
	final.AwayScore = intPtr(17)
	provider.set(final)
	if _, err := syncer.SyncCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}

	bet, err := store.GetBet(ctx, alice.ID, game.ID)
	if err != nil {
		t.Fatal(err)
	}
	if bet.Points == nil || *bet.Points != 3 {
		t.Errorf("points = %v, want 3", bet.Points)
	}
	if bet.IsExact {
		t.Error("bet still marked exact after close final")
	}

	members, err := store.ListMembers(ctx, comp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 {
		t.Fatal("expected one member")
	}
	m := members[0]
	if m.Points != 3 || m.ExactCount != 0 || m.BetCount != 1 {
		t.Errorf("aggregates after close final = %d points, %d exact, %d bets", m.Points, m.ExactCount, m.BetCount)
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"NS", domain.StatusScheduled},
		{"1H", domain.StatusLive},
		{"HT", domain.StatusLive},
		{"FT", domain.StatusFinished},
		{"AET", domain.StatusFinished},
		{"PST", domain.StatusPostponed},
		{"CANC", domain.StatusCancelled},
		{"???", domain.StatusScheduled},
	}
	for _, tt := range tests {
		if got := MapStatus(tt.code); got != tt.want {
			t.Errorf("MapStatus(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(config.ProviderConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	if _, err := client.Fixtures(context.Background(), 1, 2025); err == nil {
		t.Error("expected error on 429 response")
	}
}
