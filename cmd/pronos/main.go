// pronos - sports prediction server and tools
package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/klauspost/compress/gzhttp"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/fbocquet/pronos/internal/api"
	"github.com/fbocquet/pronos/internal/auth"
	"github.com/fbocquet/pronos/internal/bus"
	"github.com/fbocquet/pronos/internal/config"
	"github.com/fbocquet/pronos/internal/domain"
	"github.com/fbocquet/pronos/internal/livescore"
	"github.com/fbocquet/pronos/internal/storage"
)

//go:embed systemd/*
var systemdFiles embed.FS

var version = "dev"

const defaultConfigPath = "/etc/pronos/config.yml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		cmdInit(os.Args[2:])
	case "serve":
		cmdServe(os.Args[2:])
	case "sync":
		cmdSync(os.Args[2:])
	case "games":
		cmdGames(os.Args[2:])
	case "competitions":
		cmdCompetitions(os.Args[2:])
	case "leaderboard":
		cmdLeaderboard(os.Args[2:])
	case "user":
		cmdUser(os.Args[2:])
	case "version":
		fmt.Printf("pronos %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: pronos <command> [options] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init [--no-systemd] [--user pronos] Bootstrap system (create user, dirs, config)")
	fmt.Println("  serve                               Start the prediction server")
	fmt.Println("  sync [--competition N]              Run one score sync pass and exit")
	fmt.Println("  games [--status S] [--recent N]     Show games (default: 20 most recent)")
	fmt.Println("  competitions list                   Show configured competitions")
	fmt.Println("  competitions add --name <name> --sport <football|rugby> --league N --season YYYY")
	fmt.Println("                                      Add a competition to track")
	fmt.Println("  competitions bonus <id> [--disable] [--tolerance N]")
	fmt.Println("                                      Configure the rugby close-score bonus")
	fmt.Println("  leaderboard [--competition N] [--period P] [--top N]")
	fmt.Println("                                      Show top predictors (default: 20)")
	fmt.Println("  user add [--admin] <username>       Add a user (prompts for password)")
	fmt.Println("  user remove <username>              Remove a user")
	fmt.Println("  user list                           List all users")
	fmt.Println("  user reset <username>               Reset a user's password")
	fmt.Println("  user admin <username>               Toggle admin status for a user")
	fmt.Println("  version                             Show version")
	fmt.Println("  help                                Show this help")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --config <path>    Path to configuration file (default /etc/pronos/config.yml)")
	fmt.Println("  --url <url>        Base URL of the pronos server (default: derived from config)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  sudo pronos init")
	fmt.Println("  pronos serve --config /etc/pronos/config.yml")
	fmt.Println("  pronos competitions add --name 'Ligue 1' --sport football --league 61 --season 2025")
	fmt.Println("  pronos competitions add --name 'Top 14' --sport rugby --league 16 --season 2025")
	fmt.Println("  pronos games --status live")
	fmt.Println("  pronos user add --admin myuser")
}

// cmdServe starts the prediction server
func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	// Determine config path
	cfgPath := *configPath
	if cfgPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			cfgPath = defaultConfigPath
		} else {
			log.Fatalf("No config file found at %s. Use --config to specify a config file.", defaultConfigPath)
		}
	}

	// Load configuration
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Pronos %s starting...", version)

	// Initialize storage
	store, err := storage.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()
	log.Printf("Database initialized at %s", cfg.Database.Path)

	// Start the in-process event bus
	eventBus, err := bus.New()
	if err != nil {
		log.Fatalf("Failed to start event bus: %v", err)
	}
	defer eventBus.Close()

	// Start the live score syncer
	client := livescore.NewClient(cfg.Provider)
	syncer := livescore.NewSyncer(cfg, store, client, eventBus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncer.Start(ctx)
	log.Printf("Score syncer started, polling every %v", cfg.Server.PollInterval)

	// Create auth service
	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	if cfg.Auth.JWTSecret == "" {
		log.Printf("Warning: No JWT secret configured. Auth tokens will use an empty secret.")
	}

	// Create HTTP router
	router := api.NewRouter(store, eventBus, authService, cfg.Server.StaticDir)
	if err := router.StartEventRelay(); err != nil {
		log.Fatalf("Failed to start event relay: %v", err)
	}
	if cfg.Server.StaticDir != "" {
		log.Printf("Serving static files from %s", cfg.Server.StaticDir)
	}

	// Start HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      gzhttp.GzipHandler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE and WebSocket connections stay open
		IdleTimeout:  60 * time.Second,
	}

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for signal or error
	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case err := <-serverErr:
		log.Fatalf("HTTP server error: %v", err)
	}

	// Sequential shutdown
	log.Println("Shutting down HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Stopping score syncer...")
	syncer.Stop()

	cancel()
	log.Println("Shutdown complete")
}

// cmdSync runs a single sync pass against the score provider
func cmdSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	competitionID := fs.Int64("competition", 0, "sync only this competition")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.New(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	var comps []domain.Competition
	if *competitionID != 0 {
		comp, err := store.GetCompetitionByID(ctx, *competitionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: competition %d not found\n", *competitionID)
			os.Exit(1)
		}
		comps = []domain.Competition{*comp}
	} else {
		comps, err = store.ListCompetitions(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list competitions: %v\n", err)
			os.Exit(1)
		}
	}

	if len(comps) == 0 {
		fmt.Println("No competitions configured. Add one with: pronos competitions add")
		return
	}

	client := livescore.NewClient(cfg.Provider)
	syncer := livescore.NewSyncer(cfg, store, client, nil)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMPETITION\tGAMES\tUPDATED\tBETS SCORED")
	fmt.Fprintln(w, "-----------\t-----\t-------\t-----------")

	for i := range comps {
		result, err := syncer.SyncCompetition(ctx, &comps[i])
		if err != nil {
			fmt.Fprintf(w, "%s\tERROR: %v\t\t\n", comps[i].Name, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", comps[i].Name, result.GamesSeen, result.GamesUpdated, result.BetsScored)
	}

	w.Flush()
}

// CLI helper variables
var (
	baseURL = "http://localhost:8080"
	dbPath  string
)

// loadCLIConfigFromFlags loads config using pre-parsed flag values
func loadCLIConfigFromFlags(configPath, url string) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config from %s: %v\n", configPath, err)
		dbPath = "/var/lib/pronos/pronos.db"
		if url != "" {
			baseURL = url
		}
		return nil
	}

	dbPath = cfg.Database.Path
	// Derive URL from config, but allow --url flag to override
	if url != "" {
		baseURL = url
	} else {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	}
	return cfg
}

func loadCLIConfig(args []string) (*config.Config, []string) {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the pronos server")
	fs.Parse(args)

	cfg := loadCLIConfigFromFlags(*configPath, *url)
	return cfg, fs.Args()
}

func cmdGames(args []string) {
	fs := flag.NewFlagSet("games", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the pronos server")
	status := fs.String("status", "", "filter by status (scheduled, live, finished)")
	limit := fs.Int("recent", 20, "number of games to show")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	path := fmt.Sprintf("/api/games?limit=%d", *limit)
	if *status != "" {
		path += "&status=" + *status
	}

	var games []domain.GameSummary
	if err := getJSON(path, &games); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMPETITION\tGAME\tKICKOFF\tSCORE\tSTATUS")
	fmt.Fprintln(w, "--\t-----------\t----\t-------\t-----\t------")

	for _, g := range games {
		score := "-"
		if g.HomeScore != nil && g.AwayScore != nil {
			score = fmt.Sprintf("%d-%d", *g.HomeScore, *g.AwayScore)
		}
		status := g.Status
		if g.Status == domain.StatusLive && g.Minute > 0 {
			status = fmt.Sprintf("live %d'", g.Minute)
		}
		fmt.Fprintf(w, "%d\t%s\t%s - %s\t%s\t%s\t%s\n",
			g.ID, g.CompetitionName, g.HomeTeam, g.AwayTeam,
			g.Kickoff.Local().Format("2006-01-02 15:04"), score, status)
	}

	w.Flush()
}

// cmdCompetitions dispatches competition subcommands
func cmdCompetitions(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: competitions subcommand required: list, add, bonus\n")
		os.Exit(1)
	}

	subCmd := args[0]
	cfg, remaining := loadCLIConfig(args[1:])
	_ = cfg // cfg may be nil if config loading failed

	store, err := storage.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	switch subCmd {
	case "list":
		if err := cmdCompetitionsList(ctx, store); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "add":
		if err := cmdCompetitionsAdd(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "bonus":
		if err := cmdCompetitionsBonus(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown competitions command: %s (use: list, add, bonus)\n", subCmd)
		os.Exit(1)
	}
}

func cmdCompetitionsList(ctx context.Context, store *storage.Store) error {
	comps, err := store.ListCompetitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list competitions: %w", err)
	}

	if len(comps) == 0 {
		fmt.Println("No competitions configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSPORT\tLEAGUE\tSEASON\tCLOSE-SCORE BONUS")
	fmt.Fprintln(w, "--\t----\t-----\t------\t------\t-----------------")

	for _, c := range comps {
		bonus := "off"
		if c.CloseScoreEnabled {
			bonus = fmt.Sprintf("within %d", c.CloseScoreTolerance)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n",
			c.ID, c.Name, c.Sport, c.ProviderLeagueID, c.Season, bonus)
	}
	return w.Flush()
}

func cmdCompetitionsAdd(ctx context.Context, store *storage.Store, args []string) error {
	fs := flag.NewFlagSet("competitions add", flag.ExitOnError)
	name := fs.String("name", "", "competition name")
	sport := fs.String("sport", "", "sport (football or rugby)")
	leagueID := fs.Int64("league", 0, "provider league ID")
	season := fs.Int("season", 0, "season year")
	closeScore := fs.Bool("close-score", false, "enable the rugby close-score bonus")
	tolerance := fs.Int("tolerance", 3, "close-score tolerance in points")
	fs.Parse(args)

	if *name == "" || *sport == "" || *leagueID == 0 || *season == 0 {
		return fmt.Errorf("usage: pronos competitions add --name <name> --sport <football|rugby> --league N --season YYYY")
	}
	if !domain.ValidSport(*sport) {
		return fmt.Errorf("unknown sport %q (use football or rugby)", *sport)
	}
	if *closeScore && *sport != domain.SportRugby {
		return fmt.Errorf("the close-score bonus only applies to rugby competitions")
	}

	comp := &domain.Competition{
		Name:                *name,
		Sport:               *sport,
		ProviderLeagueID:    *leagueID,
		Season:              *season,
		CloseScoreEnabled:   *closeScore,
		CloseScoreTolerance: *tolerance,
	}
	if err := store.CreateCompetition(ctx, comp); err != nil {
		return fmt.Errorf("failed to create competition: %w", err)
	}

	fmt.Printf("Competition '%s' created (id %d)\n", comp.Name, comp.ID)
	fmt.Println("Run 'pronos sync' to fetch its fixtures.")
	return nil
}

func cmdCompetitionsBonus(ctx context.Context, store *storage.Store, args []string) error {
	fs := flag.NewFlagSet("competitions bonus", flag.ExitOnError)
	disable := fs.Bool("disable", false, "turn the bonus off")
	tolerance := fs.Int("tolerance", 3, "close-score tolerance in points")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 1 {
		return fmt.Errorf("usage: pronos competitions bonus <id> [--disable] [--tolerance N]")
	}
	id, err := strconv.ParseInt(remaining[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid competition id: %s", remaining[0])
	}

	comp, err := store.GetCompetitionByID(ctx, id)
	if err != nil {
		return fmt.Errorf("competition %d not found", id)
	}
	if !*disable && comp.Sport != domain.SportRugby {
		return fmt.Errorf("the close-score bonus only applies to rugby competitions")
	}

	if err := store.UpdateCompetitionCloseScore(ctx, id, !*disable, *tolerance); err != nil {
		return fmt.Errorf("failed to update competition: %w", err)
	}

	if *disable {
		fmt.Printf("Close-score bonus disabled for '%s'\n", comp.Name)
	} else {
		fmt.Printf("Close-score bonus enabled for '%s' (tolerance %d)\n", comp.Name, *tolerance)
	}
	fmt.Println("Already-scored games keep their points until the next score update.")
	return nil
}

func cmdLeaderboard(args []string) {
	fs := flag.NewFlagSet("leaderboard", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the pronos server")
	competitionID := fs.Int64("competition", 0, "restrict to a competition")
	period := fs.String("period", "all", "time period (all, day, week, month, year)")
	limit := fs.Int("top", 20, "number of entries to show")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	path := fmt.Sprintf("/api/leaderboard?period=%s&limit=%d", *period, *limit)
	if *competitionID != 0 {
		path += fmt.Sprintf("&competition_id=%d", *competitionID)
	}

	var response struct {
		Leaderboard []domain.StandingsEntry `json:"leaderboard"`
	}
	if err := getJSON(path, &response); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tUSER\tPOINTS\tEXACT\tBETS")
	fmt.Fprintln(w, "----\t----\t------\t-----\t----")

	for _, entry := range response.Leaderboard {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n",
			entry.Rank, entry.Username, entry.Points, entry.ExactCount, entry.BetCount)
	}

	w.Flush()
}

// cmdUser handles user subcommands
func cmdUser(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: user subcommand required: add, remove, list, reset, admin\n")
		os.Exit(1)
	}

	subCmd := args[0]
	cfg, remaining := loadCLIConfig(args[1:])
	_ = cfg // cfg may be nil if config loading failed

	store, err := storage.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	switch subCmd {
	case "add":
		if err := cmdUserAdd(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "remove":
		if err := cmdUserRemove(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "list":
		if err := cmdUserList(ctx, store); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "reset":
		if err := cmdUserReset(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "admin":
		if err := cmdUserAdmin(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown user command: %s (use: add, remove, list, reset, admin)\n", subCmd)
		os.Exit(1)
	}
}

// promptPassword reads and confirms a password from the terminal
func promptPassword() (string, error) {
	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(password), nil
}

func cmdUserAdd(ctx context.Context, store *storage.Store, args []string) error {
	fs := flag.NewFlagSet("user add", flag.ExitOnError)
	isAdmin := fs.Bool("admin", false, "create as admin user")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 1 {
		return fmt.Errorf("usage: pronos user add [--admin] <username>")
	}

	username := remaining[0]

	// Check if user already exists
	if _, err := store.GetUserByUsername(ctx, username); err == nil {
		return fmt.Errorf("user '%s' already exists", username)
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err := store.CreateUser(ctx, username, hash, *isAdmin); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	roleStr := "user"
	if *isAdmin {
		roleStr = "admin"
	}
	fmt.Printf("User '%s' created successfully (role: %s)\n", username, roleStr)
	return nil
}

func cmdUserRemove(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: pronos user remove <username>")
	}
	username := args[0]

	if err := store.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}

	fmt.Printf("User '%s' removed\n", username)
	return nil
}

func cmdUserList(ctx context.Context, store *storage.Store) error {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tLAST_LOGIN")
	fmt.Fprintln(w, "--------\t----\t----------")

	for _, user := range users {
		role := "user"
		if user.IsAdmin {
			role = "admin"
		}
		lastLogin := "never"
		if user.LastLogin != nil {
			lastLogin = user.LastLogin.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", user.Username, role, lastLogin)
	}
	return w.Flush()
}

func cmdUserReset(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: pronos user reset <username>")
	}
	username := args[0]

	user, err := store.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user not found: %s", username)
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := store.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	fmt.Printf("Password reset for '%s'\n", username)
	return nil
}

func cmdUserAdmin(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: pronos user admin <username>")
	}
	username := args[0]

	user, err := store.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user not found: %s", username)
	}

	newAdminStatus := !user.IsAdmin
	if err := store.UpdateUserAdmin(ctx, user.ID, newAdminStatus); err != nil {
		return fmt.Errorf("failed to update admin status: %w", err)
	}

	if newAdminStatus {
		fmt.Printf("User '%s' is now an admin\n", username)
	} else {
		fmt.Printf("User '%s' is no longer an admin\n", username)
	}
	return nil
}

func getJSON(path string, target interface{}) error {
	url := baseURL + path
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	noSystemd := fs.Bool("no-systemd", false, "skip systemd unit installation")
	userName := fs.String("user", "pronos", "service user name")
	fs.Parse(args)

	if os.Getuid() != 0 {
		fmt.Fprintf(os.Stderr, "Error: pronos init must be run as root\n")
		os.Exit(1)
	}

	// Bail out if already initialized
	if _, err := os.Stat(defaultConfigPath); err == nil {
		fmt.Printf("Pronos is already initialized (%s exists).\n", defaultConfigPath)
		fmt.Println("To re-initialize, remove the config file first.")
		return
	}

	sysUser := *userName
	useSd := !*noSystemd && detectSystemd()

	// 1. Create service user/group if they don't exist
	if _, err := user.Lookup(sysUser); err != nil {
		fmt.Printf("Creating service user '%s'...\n", sysUser)
		cmd := exec.Command("useradd", "-r", "-s", "/usr/sbin/nologin", sysUser)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating user: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Printf("Service user '%s' already exists\n", sysUser)
	}

	// Look up the user for chown
	u, err := user.Lookup(sysUser)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error looking up user '%s': %v\n", sysUser, err)
		os.Exit(1)
	}
	uid, _ := strconv.Atoi(u.Uid)
	gid, _ := strconv.Atoi(u.Gid)

	// 2. Create directories
	dirs := []string{"/etc/pronos", "/var/lib/pronos/web"}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", dir, err)
			os.Exit(1)
		}
		if err := os.Chown(dir, uid, gid); err != nil {
			fmt.Fprintf(os.Stderr, "Error chowning %s: %v\n", dir, err)
			os.Exit(1)
		}
		fmt.Printf("Directory: %s\n", dir)
	}
	// Also chown /var/lib/pronos itself
	os.Chown("/var/lib/pronos", uid, gid)

	// 3. Install default config.yml
	defaultCfg := &config.Config{
		Server: config.ServerConfig{
			ListenAddr:   "127.0.0.1",
			HTTPPort:     8080,
			PollInterval: 60 * time.Second,
			StaticDir:    "/var/lib/pronos/web",
		},
		Database: config.DatabaseConfig{
			Path: "/var/lib/pronos/pronos.db",
		},
	}
	if err := config.Save(defaultConfigPath, defaultCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}
	os.Chown(defaultConfigPath, uid, gid)
	fmt.Printf("Config: %s\n", defaultConfigPath)

	// 4. Install systemd unit if enabled
	if useSd {
		data, err := systemdFiles.ReadFile("systemd/pronos.service")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading embedded unit: %v\n", err)
			os.Exit(1)
		}
		// Replace User= and Group= with the configured service user
		content := string(data)
		if sysUser != "pronos" {
			content = strings.ReplaceAll(content, "User=pronos", "User="+sysUser)
			content = strings.ReplaceAll(content, "Group=pronos", "Group="+sysUser)
		}
		dest := filepath.Join("/etc/systemd/system", "pronos.service")
		if err := os.WriteFile(dest, []byte(content), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", dest, err)
			os.Exit(1)
		}
		fmt.Printf("Systemd: %s\n", dest)

		fmt.Println("Running systemctl daemon-reload...")
		systemctlRun("daemon-reload")

		fmt.Println("Enabling pronos.service...")
		systemctlRun("enable", "pronos.service")
	} else {
		fmt.Println("Systemd: skipped")
	}

	// 5. Print next steps
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  1. Edit %s with your provider API key and JWT secret\n", defaultConfigPath)
	fmt.Println("  2. Add competitions: sudo pronos competitions add --name 'Ligue 1' --sport football --league 61 --season 2025")
	fmt.Println("  3. Add users: sudo pronos user add --admin myuser")
	if useSd {
		fmt.Println("  4. Start pronos: sudo systemctl start pronos")
	} else {
		fmt.Println("  4. Start pronos: pronos serve")
	}
}

// detectSystemd reports whether the host runs systemd
func detectSystemd() bool {
	if _, err := os.Stat("/run/systemd/system"); err == nil {
		return true
	}
	return false
}

func systemctlRun(args ...string) {
	cmd := exec.Command("systemctl", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: systemctl %s failed: %v\n", strings.Join(args, " "), err)
	}
}
