package replay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/showdex/internal/battlelog"
	"github.com/showdex/internal/storage"
)

// ErrNoLog is returned for pages without an embedded battle log.
var ErrNoLog = errors.New("replay page has no battle log")

// Client is the replay scraper client.
type Client struct {
	httpClient *http.Client
	cache      *storage.Cache
	logger     *zap.Logger
}

// NewClient creates a new replay client. cache may be nil.
func NewClient(cache *storage.Cache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
		logger:     logger.Named("replay"),
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Fetch downloads a replay page and extracts its log.
func (c *Client) Fetch(ctx context.Context, url string) (*Replay, error) {
	cacheKey := "replay:" + url
	var cached Replay
	if c.cache.GetJSON(ctx, cacheKey, &cached) {
		c.logger.Debug("Replay cache hit", zap.String("url", url))
		return &cached, nil
	}

	c.logger.Info("Fetching replay", zap.String("url", url))
	replay, err := c.scrape(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetJSON(ctx, cacheKey, replay); err != nil {
		c.logger.Warn("Failed to cache replay", zap.Error(err))
	}
	return replay, nil
}

// scrape reads the log from the page's battle-log-data script block.
func (c *Client) scrape(ctx context.Context, url string) (*Replay, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) showdex")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code error: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	raw := doc.Find("script.battle-log-data").First().Text()
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoLog
	}

	buf := battlelog.NewBuffer(battlelog.DefaultCapacity)
	buf.Append(raw)

	return &Replay{
		URL:   url,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Lines: buf.Lines(),
	}, nil
}

// Turns replays the log and reports, at every |turn| line, what the
// opponent of side had shown so far. Turns before the first switch-in are
// skipped.
func Turns(lines []string, side string) []TurnSummary {
	prefix := battlelog.OpponentPrefix(side)
	seen := make([]string, 0, len(lines))

	var out []TurnSummary
	for _, line := range lines {
		seen = append(seen, line)

		rest, ok := strings.CutPrefix(line, "|turn|")
		if !ok {
			continue
		}
		turn, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			continue
		}
		if op := battlelog.SummarizeOpponent(seen, prefix); op != nil {
			out = append(out, TurnSummary{Turn: turn, Opponent: op})
		}
	}
	return out
}
