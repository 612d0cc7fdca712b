package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Errors surfaced to the overlay.
var (
	ErrMissingAPIKey = errors.New("missing API key")
	ErrTimeout       = errors.New("request timed out")
)

// errorBodyLimit bounds how much of a provider error body is shown.
const errorBodyLimit = 200

// APIError is a non-2xx answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %d - %s", e.Provider, e.StatusCode, truncate(e.Body, errorBodyLimit))
}

// RateLimited reports a 429 answer.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// MissingKeyError names the provider whose key is not configured.
type MissingKeyError struct {
	Provider string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("Falta API Key de %s. Abre la configuración del overlay y añade tu clave.", e.Provider)
}

func (e *MissingKeyError) Unwrap() error { return ErrMissingAPIKey }

// TimeoutError carries the bound that was exceeded.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("La solicitud tardó más de %d segundos. Usa Actualizar para intentar de nuevo.", int(e.After.Seconds()))
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// UserMessage turns any suggestion error into the text shown in the overlay.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RateLimited() {
		return rateLimitMessage(apiErr.Body)
	}

	var keyErr *MissingKeyError
	if errors.As(err, &keyErr) {
		return keyErr.Error()
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Error()
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Error al llamar a la API"
}

func rateLimitMessage(body string) string {
	msg := "Límite de uso alcanzado (429). Los modelos gratis comparten cuota."

	var parsed errorBody
	if json.Unmarshal([]byte(body), &parsed) == nil {
		raw := parsed.Metadata.Raw
		if raw == "" {
			raw = parsed.Error.Metadata.Raw
		}
		if raw == "" {
			raw = parsed.Error.Message
		}
		if strings.Contains(raw, "rate-limited") || strings.Contains(raw, "rate limit") {
			msg += " Espera un minuto e inténtalo de nuevo. Si pasa seguido, en OpenRouter puedes añadir tu propia clave del proveedor para tener tu cuota: openrouter.ai/settings/integrations"
		}
	}
	return msg
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
