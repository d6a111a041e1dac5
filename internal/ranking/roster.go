package ranking

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRoster reads the student population from a YAML file. The roster
// is an external collaborator's data; the engine only filters and ranks
// it.
func LoadRoster(path string) ([]Student, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}

	var doc struct {
		Students []struct {
			ID      string `yaml:"id"`
			Name    string `yaml:"name"`
			Grade   string `yaml:"grade"`
			Section string `yaml:"section"`
		} `yaml:"students"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing roster: %w", err)
	}

	students := make([]Student, 0, len(doc.Students))
	seen := make(map[string]bool, len(doc.Students))
	for _, s := range doc.Students {
		if s.ID == "" {
			return nil, fmt.Errorf("roster entry %q has empty id", s.Name)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate roster id %q", s.ID)
		}
		seen[s.ID] = true
		students = append(students, Student{
			ID:      s.ID,
			Name:    s.Name,
			Grade:   s.Grade,
			Section: s.Section,
		})
	}
	return students, nil
}
