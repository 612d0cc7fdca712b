package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/showdex/internal/services/ai"
	"github.com/showdex/internal/suggest"
)

// Transport delivers an envelope and waits for its reply.
type Transport interface {
	Send(ctx context.Context, env Envelope) (Reply, error)
}

// Suggester is the part of the suggestion service a LocalTransport needs.
type Suggester interface {
	Suggest(ctx context.Context, req suggest.Request) (suggest.Result, error)
}

// LocalTransport answers envelopes with an in-process suggestion service.
type LocalTransport struct {
	service Suggester
	logger  *zap.Logger
}

// NewLocalTransport creates a LocalTransport.
func NewLocalTransport(service Suggester, logger *zap.Logger) *LocalTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalTransport{service: service, logger: logger.Named("local")}
}

// Send implements Transport. Service errors become Reply.Error; Send itself
// never fails.
func (t *LocalTransport) Send(ctx context.Context, env Envelope) (Reply, error) {
	return Answer(ctx, t.service, env, t.logger), nil
}

// Answer runs env through service and packs the outcome into a Reply. The
// battle summary is kept even when the provider failed.
func Answer(ctx context.Context, service Suggester, env Envelope, logger *zap.Logger) Reply {
	res, err := service.Suggest(ctx, suggest.Request{Payload: env.Payload, Opponent: env.Opponent})

	reply := Reply{
		ID:            env.ID,
		Room:          env.Room,
		Suggestion:    res.Suggestion,
		BattleSummary: res.Summary,
		Provider:      res.Provider,
	}
	if err != nil {
		logger.Warn("Suggestion failed", zap.String("room", env.Room), zap.Error(err))
		reply.Error = ai.UserMessage(err)
	}
	return reply
}

// HTTPTransport posts envelopes to a remote showdex server.
type HTTPTransport struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPTransport creates a transport for the server at baseURL.
func NewHTTPTransport(baseURL string, httpClient *http.Client) *HTTPTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPTransport{
		endpoint:   strings.TrimRight(baseURL, "/") + "/api/suggest",
		httpClient: httpClient,
	}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, env Envelope) (Reply, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, fmt.Errorf("suggest endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var reply Reply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return Reply{}, fmt.Errorf("failed to parse reply: %w", err)
	}
	return reply, nil
}
