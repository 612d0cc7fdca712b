// Package data provides static game data for Showdex.
package data

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed assets/*.json
var assets embed.FS

var (
	typeChart     map[string][]string // defending type -> types hitting it 2x
	typeChartOnce sync.Once
	typeChartErr  error
)

// LoadTypeChart parses the embedded weakness chart once.
func LoadTypeChart() (map[string][]string, error) {
	typeChartOnce.Do(func() {
		raw, err := assets.ReadFile("assets/typechart.json")
		if err != nil {
			typeChartErr = fmt.Errorf("failed to read type chart: %w", err)
			return
		}

		var chart map[string][]string
		if err := json.Unmarshal(raw, &chart); err != nil {
			typeChartErr = fmt.Errorf("failed to parse type chart: %w", err)
			return
		}
		typeChart = chart
	})
	return typeChart, typeChartErr
}

// Weaknesses returns the union of the types that hit any of types for 2x,
// in chart order of first appearance. Unknown types are ignored.
func Weaknesses(types []string) []string {
	chart, err := LoadTypeChart()
	if err != nil || len(types) == 0 {
		return []string{}
	}

	seen := make(map[string]bool)
	out := []string{}
	for _, t := range types {
		for _, w := range chart[strings.ToLower(t)] {
			if !seen[w] {
				seen[w] = true
				out = append(out, w)
			}
		}
	}
	return out
}

// IsType reports whether name is one of the eighteen types.
func IsType(name string) bool {
	chart, err := LoadTypeChart()
	if err != nil {
		return false
	}
	_, ok := chart[strings.ToLower(name)]
	return ok
}
