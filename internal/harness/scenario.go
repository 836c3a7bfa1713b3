// Package harness replays declarative sync scenarios: YAML files that
// seed the offline queue, script the gateway's per-item behavior, run
// engine cycles, and snapshot the resulting stats and queue state for
// golden-file comparison.
package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes one sync replay.
type Scenario struct {
	// Name identifies the scenario; the golden file is named after it.
	Name string `yaml:"name"`

	// Description documents intent; not used in execution.
	Description string `yaml:"description,omitempty"`

	// Online is the connectivity probe's answer for every cycle.
	Online bool `yaml:"online"`

	// Cycles is how many SyncNow passes to run (default 1).
	Cycles int `yaml:"cycles,omitempty"`

	// MaxAttempts overrides the engine's retry budget (default 3).
	MaxAttempts int `yaml:"maxAttempts,omitempty"`

	// Items are enqueued in order before the first cycle.
	Items []ScenarioItem `yaml:"items"`
}

// ScenarioItem is one seeded queue entry plus its scripted gateway
// outcome.
type ScenarioItem struct {
	Title   string         `yaml:"title"`
	Payload map[string]any `yaml:"payload"`

	// Outcome is one of upload, download, conflict, reject, error,
	// panic. Empty defaults to upload.
	Outcome string `yaml:"outcome,omitempty"`

	// ServerData is the server snapshot for download/conflict outcomes.
	ServerData map[string]any `yaml:"serverData,omitempty"`

	// Message is the rejection message for the reject outcome.
	Message string `yaml:"message,omitempty"`
}

// validOutcomes guards against typos in scenario files.
var validOutcomes = map[string]bool{
	"": true, "upload": true, "download": true,
	"conflict": true, "reject": true, "error": true, "panic": true,
}

// LoadScenario reads and checks one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if sc.Cycles == 0 {
		sc.Cycles = 1
	}
	for i, item := range sc.Items {
		if item.Title == "" {
			return nil, fmt.Errorf("scenario %s: item %d: title is required", path, i)
		}
		if !validOutcomes[item.Outcome] {
			return nil, fmt.Errorf("scenario %s: item %d: unknown outcome %q", path, i, item.Outcome)
		}
	}
	return &sc, nil
}
