package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fbocquet/pronos/internal/auth"
	"github.com/fbocquet/pronos/internal/bus"
	"github.com/fbocquet/pronos/internal/storage"
)

// Router holds the HTTP routes and dependencies
type Router struct {
	mux       *http.ServeMux
	store     *storage.Store
	bus       *bus.Bus
	wsHub     *WebSocketHub
	auth      *auth.Service
	staticDir string
}

// NewRouter creates a new HTTP router
func NewRouter(store *storage.Store, eventBus *bus.Bus, authService *auth.Service, staticDir string) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		store:     store,
		bus:       eventBus,
		wsHub:     NewWebSocketHub(),
		auth:      authService,
		staticDir: staticDir,
	}

	// Auth routes
	r.mux.HandleFunc("POST /api/auth/login", r.handleLogin)
	r.mux.HandleFunc("POST /api/auth/logout", r.handleLogout)
	r.mux.HandleFunc("GET /api/auth/check", r.handleAuthCheck)
	r.mux.HandleFunc("POST /api/auth/change-password", r.requireAuth(r.handleChangePassword))

	// Competition routes
	r.mux.HandleFunc("GET /api/competitions", r.handleGetCompetitions)
	r.mux.HandleFunc("GET /api/competitions/{id}", r.handleGetCompetition)
	r.mux.HandleFunc("GET /api/competitions/{id}/standings", r.handleGetStandings)
	r.mux.HandleFunc("GET /api/competitions/{id}/games", r.handleGetCompetitionGames)
	r.mux.HandleFunc("POST /api/competitions/{id}/join", r.requireAuth(r.handleJoinCompetition))

	// Game routes
	r.mux.HandleFunc("GET /api/games", r.handleGetGames)
	r.mux.HandleFunc("GET /api/games/live", r.handleGetLiveGames)
	r.mux.HandleFunc("GET /api/games/{id}", r.handleGetGame)
	r.mux.HandleFunc("GET /api/games/{id}/bets", r.handleGetGameBets)

	// Team routes
	r.mux.HandleFunc("GET /api/teams", r.handleGetTeams)
	r.mux.HandleFunc("GET /api/teams/{id}", r.handleGetTeam)

	// Bet routes
	r.mux.HandleFunc("PUT /api/games/{id}/bet", r.requireAuth(r.handlePlaceBet))
	r.mux.HandleFunc("GET /api/bets", r.requireAuth(r.handleGetMyBets))

	// Leaderboard
	r.mux.HandleFunc("GET /api/leaderboard", r.handleGetLeaderboard)

	// User management routes (admin only)
	r.mux.HandleFunc("GET /api/users", r.requireAdmin(r.handleListUsers))
	r.mux.HandleFunc("POST /api/users", r.requireAdmin(r.handleCreateUser))
	r.mux.HandleFunc("DELETE /api/users/{username}", r.requireAdmin(r.handleDeleteUser))

	// Live relays
	r.mux.HandleFunc("GET /api/events", r.handleEvents)
	r.mux.HandleFunc("GET /ws", r.handleWebSocket)

	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)

	// Static files - only serve if staticDir is configured
	if staticDir != "" {
		r.mux.HandleFunc("GET /", r.handleStatic)
	}

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// CORS headers for API
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// StartEventRelay begins forwarding bus events to WebSocket clients
// and starts the hub loop. SSE connections subscribe individually.
func (r *Router) StartEventRelay() error {
	go r.wsHub.Run()

	_, err := r.bus.Subscribe(bus.SubjectAll, func(data []byte) {
		r.wsHub.BroadcastRaw(data)
	})
	return err
}

// handleStatic serves static files from the configured directory
// For SPA support, serves index.html for any path that doesn't match a file
func (r *Router) handleStatic(w http.ResponseWriter, req *http.Request) {
	path := filepath.Clean(req.URL.Path)
	if path == "/" {
		path = "/index.html"
	}

	fullPath := filepath.Join(r.staticDir, path)

	// Security: ensure the path is within staticDir
	absStaticDir, _ := filepath.Abs(r.staticDir)
	absPath, _ := filepath.Abs(fullPath)
	if !strings.HasPrefix(absPath, absStaticDir) {
		http.NotFound(w, req)
		return
	}

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		// SPA fallback: serve index.html for unknown paths
		fullPath = filepath.Join(r.staticDir, "index.html")
		if _, err := os.Stat(fullPath); err != nil {
			http.NotFound(w, req)
			return
		}
	}

	http.ServeFile(w, req, fullPath)
}
