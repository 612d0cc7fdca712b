package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/showdex/internal/battlelog"
	"github.com/showdex/internal/config"
)

func TestBuildUserPrompt(t *testing.T) {
	plain := BuildUserPrompt(`{"rqid":1}`, nil)
	assert.True(t, strings.HasPrefix(plain, "Estado de batalla (JSON):\n\n{\"rqid\":1}"))
	assert.NotContains(t, plain, "Rival activo")
	assert.True(t, strings.HasSuffix(plain, "mantén la respuesta corta y completa."))

	withRival := BuildUserPrompt(`{}`, &battlelog.OpponentSummary{
		Details: "Noivern, M", SpeciesID: "noivern", Moves: []string{"Hurricane", "Draco Meteor"},
	})
	assert.Contains(t, withRival, "Rival activo: Noivern. Movimientos que ha usado hasta ahora: Hurricane, Draco Meteor.")

	noMoves := BuildUserPrompt(`{}`, &battlelog.OpponentSummary{Details: "Toxapex, F", Moves: []string{}})
	assert.Contains(t, noMoves, "Rival activo: Toxapex. Movimientos que ha usado hasta ahora: ninguno visto aún.")
}

func TestIsFailedSuggestion(t *testing.T) {
	assert.True(t, IsFailedSuggestion(""))
	assert.True(t, IsFailedSuggestion("   \n "))
	assert.True(t, IsFailedSuggestion(FallbackText))
	assert.True(t, IsFailedSuggestion("Atacar"))
	assert.True(t, IsFailedSuggestion("123456789"))
	assert.False(t, IsFailedSuggestion("1234567890"))
	assert.False(t, IsFailedSuggestion("Atacar: Hurricane\nPor qué: Es super efectivo."))
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))

	limited := UserMessage(&APIError{Provider: "OpenRouter", StatusCode: 429, Body: `{"error":{"message":"Provider returned error","metadata":{"raw":"model is temporarily rate-limited upstream"}}}`})
	assert.True(t, strings.HasPrefix(limited, "Límite de uso alcanzado (429)."))
	assert.Contains(t, limited, "Espera un minuto")

	plainLimit := UserMessage(&APIError{Provider: "Gemini", StatusCode: 429, Body: "quota"})
	assert.Equal(t, "Límite de uso alcanzado (429). Los modelos gratis comparten cuota.", plainLimit)

	long := strings.Repeat("x", 500)
	generic := UserMessage(fmt.Errorf("wrapped: %w", &APIError{Provider: "OpenRouter", StatusCode: 500, Body: long}))
	assert.Contains(t, generic, "OpenRouter API error: 500 - ")
	assert.Less(t, len(generic), 300)

	assert.Equal(t, "Falta API Key de Gemini. Abre la configuración del overlay y añade tu clave.",
		UserMessage(&MissingKeyError{Provider: "Gemini"}))
	assert.Equal(t, "La solicitud tardó más de 15 segundos. Usa Actualizar para intentar de nuevo.",
		UserMessage(&TimeoutError{After: 15 * time.Second}))

	assert.True(t, errors.Is(&MissingKeyError{}, ErrMissingAPIKey))
	assert.True(t, errors.Is(&TimeoutError{}, ErrTimeout))
}

func newOpenRouter(t *testing.T, handler http.HandlerFunc) *OpenRouterClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenRouterClient("sk-test", server.URL, "", server.Client(), zap.NewNop())
}

func TestOpenRouter_Success(t *testing.T) {
	client := newOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultOpenRouterModel, req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, MaxOutputTokens, req.MaxTokens)

		fmt.Fprint(w, `{"choices":[{"message":{"content":"  Atacar: Hurricane\nPor qué: Es super efectivo.  "}}]}`)
	})

	text, err := client.Generate(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "Atacar: Hurricane\nPor qué: Es super efectivo.", text)
}

func TestOpenRouter_EmptyContentIsFallback(t *testing.T) {
	client := newOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	})

	text, err := client.Generate(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, FallbackText, text)
}

func TestOpenRouter_HTTPError(t *testing.T) {
	client := newOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limit exceeded"}}`)
	})

	_, err := client.Generate(context.Background(), "sys", "user")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.RateLimited())
	assert.Equal(t, "OpenRouter", apiErr.Provider)
}

func TestOpenRouter_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	client := newOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, "sys", "user")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGemini_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Usar: Spikes\nPor qué: Castiga los cambios."}]}}]}`)
	}))
	defer server.Close()

	client, err := NewGeminiClient(context.Background(), "AIza-test", "", server.URL, server.Client(), zap.NewNop())
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), SystemPrompt, "user")
	require.NoError(t, err)
	assert.Equal(t, "Usar: Spikes\nPor qué: Castiga los cambios.", text)
}

func TestGemini_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "", "", nil, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewGenerator(t *testing.T) {
	ctx := context.Background()

	g, err := NewGenerator(ctx, config.ProviderOpenRouter, "sk", "", Options{})
	require.NoError(t, err)
	assert.Equal(t, "OpenRouter", g.Name())

	_, err = NewGenerator(ctx, config.ProviderOpenRouter, "", "", Options{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	g, err = NewGenerator(ctx, config.ProviderGemini, "AIza", "", Options{GeminiBaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.Equal(t, "Gemini", g.Name())

	_, err = NewGenerator(ctx, "claude", "k", "", Options{})
	assert.Error(t, err)
}
