package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/showdex/internal/storage"
)

// DefaultBaseURL is the public PokeAPI pokemon endpoint.
const DefaultBaseURL = "https://pokeapi.co/api/v2/pokemon"

// ErrNotFound is returned for species PokeAPI does not know.
var ErrNotFound = errors.New("species not found")

// Client looks up species sprites and types.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *storage.Cache
	logger     *zap.Logger
}

// NewClient creates a PokeAPI client. rps <= 0 disables rate limiting; a
// nil cache disables caching.
func NewClient(baseURL string, rps float64, cache *storage.Cache, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	// Reuse connections, lookups come in pairs
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
		limiter: rate.NewLimiter(limit, 1),
		cache:   cache,
		logger:  logger.Named("pokeapi"),
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// GetSpecies returns the sprite and types of a species id such as
// "mr-mime". Results are cached.
func (c *Client) GetSpecies(ctx context.Context, id string) (*Species, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil, ErrNotFound
	}

	cacheKey := "pokemon:" + id
	var cached Species
	if c.cache.GetJSON(ctx, cacheKey, &cached) {
		c.logger.Debug("Species cache hit", zap.String("id", id))
		return &cached, nil
	}

	body, err := c.doRequest(ctx, c.baseURL+"/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var resp pokemonResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse species %s: %w", id, err)
	}
	species := resp.species(id)

	if err := c.cache.SetJSON(ctx, cacheKey, species); err != nil {
		c.logger.Warn("Failed to cache species", zap.String("id", id), zap.Error(err))
	}
	return species, nil
}

// doRequest makes a rate-limited GET to PokeAPI.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("PokeAPI error %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
