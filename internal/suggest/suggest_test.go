package suggest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/showdex/internal/battlelog"
	"github.com/showdex/internal/config"
	"github.com/showdex/internal/services/ai"
	"github.com/showdex/internal/storage"
)

const payload = `{"active":[{"moves":[{"move":"Spikes"},{"move":"Gyro Ball"}]}],"side":{"id":"p1","pokemon":[{"ident":"p1: Ferrothorn","details":"Ferrothorn, M","condition":"352/352","active":true}]}}`

type staticSettings storage.Settings

func (s staticSettings) Get() storage.Settings { return storage.Settings(s) }

type fakeGenerator struct {
	mu      sync.Mutex
	answers []string
	err     error
	block   bool
	calls   int
	prompts []string
}

func (g *fakeGenerator) Name() string { return "Fake" }

func (g *fakeGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, user)
	call := g.calls
	g.mu.Unlock()

	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if g.err != nil {
		return "", g.err
	}
	if call > len(g.answers) {
		return g.answers[len(g.answers)-1], nil
	}
	return g.answers[call-1], nil
}

// instantTimer fires immediately and records every requested delay.
type instantTimer struct {
	delays []time.Duration
	c      chan time.Time
}

func (t *instantTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

func newService(settings storage.Settings, gen *fakeGenerator, opts Options) (*Service, *int) {
	built := 0
	factory := func(context.Context, storage.Settings) (ai.Generator, error) {
		built++
		return gen, nil
	}
	if opts.Timer == nil {
		opts.Timer = &instantTimer{}
	}
	return New(staticSettings(settings), factory, opts, zap.NewNop()), &built
}

func TestSuggest_NoBattleData(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"Atacar: Hurricane\nPor qué: x"}}
	svc, built := newService(storage.Settings{Provider: config.ProviderGemini, GeminiAPIKey: "k"}, gen, Options{})

	res, err := svc.Suggest(context.Background(), Request{Payload: "not json"})
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Zero(t, *built)
}

func TestSuggest_DataOnlyProvider(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"unused answer"}}
	svc, built := newService(storage.Settings{Provider: config.ProviderNone}, gen, Options{})

	op := &battlelog.OpponentSummary{Details: "Noivern, M", SpeciesID: "noivern", Moves: []string{"Hurricane"}}
	res, err := svc.Suggest(context.Background(), Request{Payload: payload, Opponent: op})
	require.NoError(t, err)

	assert.Empty(t, res.Suggestion)
	require.NotNil(t, res.Summary)
	assert.Equal(t, "ferrothorn", res.Summary.OurActive.SpeciesID)
	require.NotNil(t, res.Summary.OpponentActive)
	assert.Equal(t, "noivern", res.Summary.OpponentActive.SpeciesID)
	assert.Equal(t, []string{"Hurricane"}, res.Summary.OpponentMoves)
	assert.Zero(t, *built, "no provider call for data-only")
}

func TestSuggest_MissingKey(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"unused answer"}}
	svc, built := newService(storage.Settings{Provider: config.ProviderOpenRouter, GeminiAPIKey: "other"}, gen, Options{})

	res, err := svc.Suggest(context.Background(), Request{Payload: payload})
	assert.ErrorIs(t, err, ai.ErrMissingAPIKey)
	assert.Contains(t, err.Error(), "OpenRouter")
	assert.NotNil(t, res.Summary)
	assert.Zero(t, *built)
}

func TestSuggest_EmptyProviderMeansGemini(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"unused answer"}}
	svc, _ := newService(storage.Settings{}, gen, Options{})

	_, err := svc.Suggest(context.Background(), Request{Payload: payload})
	var keyErr *ai.MissingKeyError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "Gemini", keyErr.Provider)
}

func TestSuggest_Success(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"Usar: Spikes\nPor qué: Castiga los cambios."}}
	svc, _ := newService(storage.Settings{Provider: config.ProviderGemini, GeminiAPIKey: "k"}, gen, Options{MaxRetries: 2})

	op := &battlelog.OpponentSummary{Details: "Noivern, M", Moves: []string{}}
	res, err := svc.Suggest(context.Background(), Request{Payload: payload, Opponent: op})
	require.NoError(t, err)

	assert.Equal(t, "Usar: Spikes\nPor qué: Castiga los cambios.", res.Suggestion)
	assert.Equal(t, "Fake", res.Provider)
	assert.Equal(t, 1, res.Attempts)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], payload)
	assert.Contains(t, gen.prompts[0], "ninguno visto aún")
}

func TestSuggest_RetriesDegenerateAnswers(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"", ai.FallbackText, "Cambiar a: Toxapex\nPor qué: Resiste."}}
	timer := &instantTimer{}
	svc, _ := newService(storage.Settings{Provider: config.ProviderGemini, GeminiAPIKey: "k"}, gen, Options{
		MaxRetries: 2,
		RetryDelay: 2500 * time.Millisecond,
		Timer:      timer,
	})

	res, err := svc.Suggest(context.Background(), Request{Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, "Cambiar a: Toxapex\nPor qué: Resiste.", res.Suggestion)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []time.Duration{2500 * time.Millisecond, 2500 * time.Millisecond}, timer.delays)
}

func TestNew_DefaultsRetries(t *testing.T) {
	svc := New(staticSettings{}, nil, Options{}, nil)
	assert.Equal(t, DefaultTimeout, svc.timeout)
	assert.Equal(t, DefaultMaxRetries, svc.policy.MaxRetries)
	assert.Equal(t, DefaultRetryDelay, svc.policy.Delay)
}

func TestSuggest_NoRetries(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"corto"}}
	svc, _ := newService(storage.Settings{Provider: config.ProviderGemini, GeminiAPIKey: "k"}, gen, Options{MaxRetries: NoRetries})

	res, err := svc.Suggest(context.Background(), Request{Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, "corto", res.Suggestion)
	assert.Equal(t, 1, gen.calls)
}

func TestSuggest_ExhaustedKeepsLastText(t *testing.T) {
	gen := &fakeGenerator{answers: []string{"corto"}}
	svc, _ := newService(storage.Settings{Provider: config.ProviderGemini, GeminiAPIKey: "k"}, gen, Options{MaxRetries: 2})

	res, err := svc.Suggest(context.Background(), Request{Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, "corto", res.Suggestion)
	assert.Equal(t, 3, gen.calls)
}

func TestSuggest_ProviderErrorNotRetried(t *testing.T) {
	apiErr := &ai.APIError{Provider: "Fake", StatusCode: 500, Body: "boom"}
	gen := &fakeGenerator{err: apiErr}
	svc, _ := newService(storage.Settings{Provider: config.ProviderGemini, GeminiAPIKey: "k"}, gen, Options{MaxRetries: 2})

	_, err := svc.Suggest(context.Background(), Request{Payload: payload})
	assert.True(t, errors.Is(err, apiErr))
	assert.Equal(t, 1, gen.calls)
}

func TestSuggest_AttemptTimeout(t *testing.T) {
	gen := &fakeGenerator{block: true}
	svc, _ := newService(storage.Settings{Provider: config.ProviderGemini, GeminiAPIKey: "k"}, gen, Options{
		Timeout:    20 * time.Millisecond,
		MaxRetries: 2,
	})

	_, err := svc.Suggest(context.Background(), Request{Payload: payload})
	var timeoutErr *ai.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 20*time.Millisecond, timeoutErr.After)
	assert.Equal(t, 1, gen.calls)
}

func TestProviderFactory(t *testing.T) {
	factory := ProviderFactory(ai.Options{GeminiBaseURL: "http://127.0.0.1:1"})

	g, err := factory(context.Background(), storage.Settings{Provider: config.ProviderOpenRouter, OpenRouterAPIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, "OpenRouter", g.Name())

	g, err = factory(context.Background(), storage.Settings{Provider: config.ProviderGemini, GeminiAPIKey: "AIza"})
	require.NoError(t, err)
	assert.Equal(t, "Gemini", g.Name())
}
