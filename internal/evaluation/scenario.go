package evaluation

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrScenarioNotFound is returned for an unknown scenario id
var ErrScenarioNotFound = errors.New("scenario not found")

// TestScenario is a scripted customer: the lines they type and the items
// they expect to end up with
type TestScenario struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Turns       []string `yaml:"turns"`
	// Expect lists item names in the order they should be added
	Expect []string `yaml:"expect"`
}

type scenarioFile struct {
	Scenarios []*TestScenario `yaml:"scenarios"`
}

// LoadScenarios reads a YAML scenario file
func LoadScenarios(path string) ([]*TestScenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios %s: %w", path, err)
	}
	return ParseScenarios(data)
}

// ParseScenarios decodes scenarios and checks that ids are present and unique
func ParseScenarios(data []byte) ([]*TestScenario, error) {
	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios: %w", err)
	}

	seen := make(map[string]bool, len(file.Scenarios))
	for i, s := range file.Scenarios {
		if s.ID == "" {
			return nil, fmt.Errorf("scenario %d has no id", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate scenario id %q", s.ID)
		}
		if len(s.Turns) == 0 {
			return nil, fmt.Errorf("scenario %q has no turns", s.ID)
		}
		seen[s.ID] = true
		if s.Name == "" {
			s.Name = s.ID
		}
	}
	return file.Scenarios, nil
}
