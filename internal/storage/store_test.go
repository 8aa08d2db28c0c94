package storage

import (
	"context"
	"testing"
	"time"

	"github.com/fbocquet/pronos/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// seedGame inserts a competition, two teams and one game, returning them
func seedGame(t *testing.T, store *Store, kickoff time.Time) (*domain.Competition, *domain.Game) {
	t.Helper()
	ctx := context.Background()

	comp := &domain.Competition{
		Name:             "Ligue 1",
		Sport:            domain.SportFootball,
		ProviderLeagueID: 61,
		Season:           2025,
	}
	if err := store.CreateCompetition(ctx, comp); err != nil {
		t.Fatal(err)
	}

	home := &domain.Team{ExternalID: 80, Name: "Lyon", ShortName: "OL", Sport: domain.SportFootball}
	away := &domain.Team{ExternalID: 81, Name: "Marseille", ShortName: "OM", Sport: domain.SportFootball}
	if err := store.UpsertTeam(ctx, home); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertTeam(ctx, away); err != nil {
		t.Fatal(err)
	}

	game := &domain.Game{
		ExternalID:    9001,
		CompetitionID: comp.ID,
		HomeTeamID:    home.ID,
		AwayTeamID:    away.ID,
		Kickoff:       kickoff,
		Status:        domain.StatusScheduled,
	}
	if err := store.UpsertGame(ctx, game); err != nil {
		t.Fatal(err)
	}
	return comp, game
}

func intPtr(n int) *int { return &n }

func TestUserLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "alice", "hash", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == 0 {
		t.Error("user ID not assigned")
	}
	if user.LastLogin != nil {
		t.Error("new user should have no last_login")
	}

	if _, err := store.CreateUser(ctx, "alice", "other", false); err == nil {
		t.Error("duplicate username should fail")
	}

	if err := store.UpdateUserLastLogin(ctx, user.ID); err != nil {
		t.Fatalf("UpdateUserLastLogin: %v", err)
	}
	got, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.LastLogin == nil {
		t.Error("last_login not recorded")
	}

	if err := store.DeleteUser(ctx, "alice"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := store.DeleteUser(ctx, "alice"); err == nil {
		t.Error("deleting a missing user should fail")
	}
}

func TestUpsertTeam_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	team := &domain.Team{ExternalID: 42, Name: "Toulouse", Sport: domain.SportRugby}
	if err := store.UpsertTeam(ctx, team); err != nil {
		t.Fatal(err)
	}
	firstID := team.ID

	renamed := &domain.Team{ExternalID: 42, Name: "Stade Toulousain", ShortName: "ST", Sport: domain.SportRugby}
	if err := store.UpsertTeam(ctx, renamed); err != nil {
		t.Fatal(err)
	}
	if renamed.ID != firstID {
		t.Errorf("upsert changed ID: %d -> %d", firstID, renamed.ID)
	}

	got, err := store.GetTeamByID(ctx, firstID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Stade Toulousain" {
		t.Errorf("name = %q after upsert", got.Name)
	}
}

func TestUpsertGame_Reconciles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	kickoff := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	_, game := seedGame(t, store, kickoff)

	// Provider reports the game live with a score
	game.Status = domain.StatusLive
	game.HomeScore = intPtr(1)
	game.AwayScore = intPtr(0)
	game.Minute = 37
	if err := store.UpsertGame(ctx, game); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetGameByID(ctx, game.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusLive {
		t.Errorf("status = %q", got.Status)
	}
	if !got.HasScore() || *got.HomeScore != 1 || *got.AwayScore != 0 {
		t.Errorf("score = %v-%v", got.HomeScore, got.AwayScore)
	}
	if got.Minute != 37 {
		t.Errorf("minute = %d", got.Minute)
	}
	if !got.Kickoff.Equal(kickoff) {
		t.Errorf("kickoff = %v, want %v", got.Kickoff, kickoff)
	}
}

func TestGameSummaryAndFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	comp, game := seedGame(t, store, time.Now().Add(2*time.Hour))

	summary, err := store.GetGameSummaryByID(ctx, game.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.HomeTeam != "Lyon" || summary.AwayTeam != "Marseille" {
		t.Errorf("teams = %q vs %q", summary.HomeTeam, summary.AwayTeam)
	}
	if summary.CompetitionName != "Ligue 1" {
		t.Errorf("competition = %q", summary.CompetitionName)
	}

	games, err := store.ListGames(ctx, GameFilter{CompetitionID: comp.ID, Status: domain.StatusScheduled})
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 1 {
		t.Fatalf("ListGames returned %d games", len(games))
	}

	upcoming, err := store.ListUpcomingGames(ctx, comp.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(upcoming) != 1 {
		t.Errorf("ListUpcomingGames returned %d games", len(upcoming))
	}

	live, err := store.ListLiveGames(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(live) != 0 {
		t.Errorf("no game should be live yet, got %d", len(live))
	}
}

func TestPlaceBet_UpdateClearsPoints(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, game := seedGame(t, store, time.Now().Add(time.Hour))
	user, err := store.CreateUser(ctx, "bob", "hash", false)
	if err != nil {
		t.Fatal(err)
	}

	bet, err := store.PlaceBet(ctx, user.ID, game.ID, 2, 1)
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if bet.PredictedHome != 2 || bet.PredictedAway != 1 {
		t.Errorf("prediction = %d-%d", bet.PredictedHome, bet.PredictedAway)
	}

	if err := store.SetBetPoints(ctx, bet.ID, 3, true); err != nil {
		t.Fatal(err)
	}

	// Changing the prediction resets the award
	updated, err := store.PlaceBet(ctx, user.ID, game.ID, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if updated.ID != bet.ID {
		t.Errorf("update created a new bet: %d -> %d", bet.ID, updated.ID)
	}
	if updated.Points != nil {
		t.Errorf("points = %d after update, want nil", *updated.Points)
	}
	if updated.IsExact {
		t.Error("is_exact still set after update")
	}
}

func TestListBetsForGame(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, game := seedGame(t, store, time.Now().Add(-time.Hour))
	alice, _ := store.CreateUser(ctx, "alice", "hash", false)
	bob, _ := store.CreateUser(ctx, "bob", "hash", false)

	if _, err := store.PlaceBet(ctx, alice.ID, game.ID, 2, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := store.PlaceBet(ctx, bob.ID, game.ID, 0, 0); err != nil {
		t.Fatal(err)
	}

	bets, err := store.ListBetsForGame(ctx, game.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(bets) != 2 {
		t.Fatalf("got %d bets", len(bets))
	}
	if bets[0].Username != "alice" || bets[1].Username != "bob" {
		t.Errorf("order = %s, %s", bets[0].Username, bets[1].Username)
	}
	if bets[0].HomeTeam != "Lyon" {
		t.Errorf("home team = %q", bets[0].HomeTeam)
	}
}

func TestMembershipAndDeltas(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	comp, _ := seedGame(t, store, time.Now())
	user, _ := store.CreateUser(ctx, "carol", "hash", false)

	member, err := store.IsMember(ctx, comp.ID, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if member {
		t.Error("not yet a member")
	}

	if err := store.JoinCompetition(ctx, comp.ID, user.ID); err != nil {
		t.Fatal(err)
	}
	// Joining twice is a no-op
	if err := store.JoinCompetition(ctx, comp.ID, user.ID); err != nil {
		t.Fatal(err)
	}

	if err := store.ApplyScoreDelta(ctx, comp.ID, user.ID, 3, 1, 1); err != nil {
		t.Fatal(err)
	}
	// A rescore that downgrades the award applies a negative delta
	if err := store.ApplyScoreDelta(ctx, comp.ID, user.ID, -2, -1, 0); err != nil {
		t.Fatal(err)
	}

	members, err := store.ListMembers(ctx, comp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 {
		t.Fatalf("got %d members", len(members))
	}
	m := members[0]
	if m.Points != 1 || m.ExactCount != 0 || m.BetCount != 1 {
		t.Errorf("aggregates = %d points, %d exact, %d bets", m.Points, m.ExactCount, m.BetCount)
	}
}

func TestLeaderboard(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, game := seedGame(t, store, time.Now().Add(-2*time.Hour))
	alice, _ := store.CreateUser(ctx, "alice", "hash", false)
	bob, _ := store.CreateUser(ctx, "bob", "hash", false)

	// Final score 2-1
	game.Status = domain.StatusFinished
	game.HomeScore = intPtr(2)
	game.AwayScore = intPtr(1)
	if err := store.UpsertGame(ctx, game); err != nil {
		t.Fatal(err)
	}

	aliceBet, _ := store.PlaceBet(ctx, alice.ID, game.ID, 2, 1)
	bobBet, _ := store.PlaceBet(ctx, bob.ID, game.ID, 1, 0)
	if err := store.SetBetPoints(ctx, aliceBet.ID, 3, true); err != nil {
		t.Fatal(err)
	}
	if err := store.SetBetPoints(ctx, bobBet.ID, 1, false); err != nil {
		t.Fatal(err)
	}

	rows, err := store.Leaderboard(ctx, LeaderboardFilter{Period: "all"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0].Username != "alice" || rows[0].Points != 3 || rows[0].ExactCount != 1 {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[1].Username != "bob" || rows[1].Points != 1 || rows[1].ExactCount != 0 {
		t.Errorf("second row = %+v", rows[1])
	}

	// A day-long window still includes a game played two hours ago
	rows, err = store.Leaderboard(ctx, LeaderboardFilter{Period: "day"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("period=day returned %d rows", len(rows))
	}
}
