package livescore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fbocquet/pronos/internal/config"
	"github.com/fbocquet/pronos/internal/domain"
)

// Client fetches fixtures from the external score provider
type Client struct {
	HTTP         *http.Client
	BaseURL      string
	APIKey       string
	UserAgent    string
	RequestDelay time.Duration
}

// NewClient creates a provider client from configuration
func NewClient(cfg config.ProviderConfig) *Client {
	return &Client{
		HTTP:         &http.Client{Timeout: cfg.Timeout},
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		UserAgent:    cfg.UserAgent,
		RequestDelay: cfg.RequestDelay,
	}
}

// TeamRef identifies a team in a provider fixture
type TeamRef struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// Fixture is the provider's view of a game
type Fixture struct {
	ID        int64     `json:"id"`
	Kickoff   time.Time `json:"date"`
	Status    string    `json:"status"`
	Minute    *int      `json:"minute"`
	Home      TeamRef   `json:"home"`
	Away      TeamRef   `json:"away"`
	HomeScore *int      `json:"home_score"`
	AwayScore *int      `json:"away_score"`
}

type fixturesResponse struct {
	Fixtures []Fixture `json:"fixtures"`
}

// Fixtures fetches all fixtures for a league and season
func (c *Client) Fixtures(ctx context.Context, leagueID int64, season int) ([]Fixture, error) {
	if c.RequestDelay > 0 {
		time.Sleep(c.RequestDelay)
	}

	endpoint := fmt.Sprintf("%s/fixtures?%s", c.BaseURL, url.Values{
		"league": {fmt.Sprint(leagueID)},
		"season": {fmt.Sprint(season)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET /fixtures failed: %d body=%s", resp.StatusCode, string(body))
	}

	var parsed fixturesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding fixtures: %w", err)
	}
	return parsed.Fixtures, nil
}

// MapStatus converts a provider status code to a domain game status
func MapStatus(code string) string {
	switch code {
	case "NS", "TBD":
		return domain.StatusScheduled
	case "1H", "HT", "2H", "ET", "BT", "P", "LIVE":
		return domain.StatusLive
	case "FT", "AET", "PEN":
		return domain.StatusFinished
	case "PST", "SUSP", "INT":
		return domain.StatusPostponed
	case "CANC", "ABD", "AWD", "WO":
		return domain.StatusCancelled
	default:
		return domain.StatusScheduled
	}
}
