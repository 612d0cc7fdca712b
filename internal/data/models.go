package data

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Model is an OpenRouter model offered in the configuration form.
type Model struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var (
	models     []Model
	modelsOnce sync.Once
	modelsErr  error
)

// LoadModels parses the embedded OpenRouter catalogue once.
func LoadModels() ([]Model, error) {
	modelsOnce.Do(func() {
		raw, err := assets.ReadFile("assets/models.json")
		if err != nil {
			modelsErr = fmt.Errorf("failed to read model catalogue: %w", err)
			return
		}
		if err := json.Unmarshal(raw, &models); err != nil {
			modelsErr = fmt.Errorf("failed to parse model catalogue: %w", err)
		}
	})
	return models, modelsErr
}

// GetModels returns the catalogue, or nil if it failed to load.
func GetModels() []Model {
	m, _ := LoadModels()
	return m
}

// FirstModel is the catalogue's first entry, used when the form leaves the
// model empty.
func FirstModel() string {
	if m := GetModels(); len(m) > 0 {
		return m[0].ID
	}
	return ""
}

// GetModelLabel returns the label for id, or id itself when unknown.
func GetModelLabel(id string) string {
	for _, m := range GetModels() {
		if m.ID == id {
			return m.Label
		}
	}
	return id
}
