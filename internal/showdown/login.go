package showdown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrLoginRejected is returned when the login server refuses the credentials.
var ErrLoginRejected = errors.New("showdown login rejected")

type loginResponse struct {
	ActionSuccess bool   `json:"actionsuccess"`
	Assertion     string `json:"assertion"`
}

// assertion trades a challstr for a login assertion. Without a password
// it asks for an assertion of an unregistered name.
func (c *Client) assertion(ctx context.Context, challstr string) (string, error) {
	form := url.Values{"challstr": {challstr}}
	if c.opts.Pass != "" {
		form.Set("act", "login")
		form.Set("name", c.opts.User)
		form.Set("pass", c.opts.Pass)
	} else {
		form.Set("act", "getassertion")
		form.Set("userid", toID(c.opts.User))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.LoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login server returned %d", resp.StatusCode)
	}

	text := strings.TrimSpace(string(body))
	if c.opts.Pass == "" {
		if text == "" || strings.HasPrefix(text, ";") {
			return "", ErrLoginRejected
		}
		return text, nil
	}

	// JSON answers are prefixed with "]" to defeat XSSI
	var parsed loginResponse
	if err := json.Unmarshal([]byte(strings.TrimPrefix(text, "]")), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse login response: %w", err)
	}
	if !parsed.ActionSuccess || parsed.Assertion == "" || strings.HasPrefix(parsed.Assertion, ";") {
		return "", ErrLoginRejected
	}
	return parsed.Assertion, nil
}

// toID lowercases name and keeps only ASCII letters and digits.
func toID(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
