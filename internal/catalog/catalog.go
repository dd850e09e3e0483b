// Package catalog loads the fixed set of activities the directory is seeded with.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/extracurricular/internal/domain"
)

//go:embed seed.yaml
var defaultSeed []byte

// ErrInvalidSeed wraps every validation failure reported by Parse.
var ErrInvalidSeed = errors.New("invalid seed catalog")

type seedFile struct {
	Activities []seedActivity `yaml:"activities"`
}

type seedActivity struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Schedule        string   `yaml:"schedule"`
	MaxParticipants int      `yaml:"max_participants"`
	Participants    []string `yaml:"participants"`
}

// Default returns the bundled school catalog.
func Default() ([]domain.Activity, error) {
	return Parse(defaultSeed)
}

// Load reads a catalog from path, falling back to the bundled one when path is empty.
func Load(path string) ([]domain.Activity, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) ([]domain.Activity, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if len(file.Activities) == 0 {
		return nil, fmt.Errorf("%w: no activities defined", ErrInvalidSeed)
	}

	seen := make(map[string]struct{}, len(file.Activities))
	out := make([]domain.Activity, 0, len(file.Activities))
	for i, a := range file.Activities {
		if strings.TrimSpace(a.Name) == "" {
			return nil, fmt.Errorf("%w: activity %d has no name", ErrInvalidSeed, i)
		}
		if _, dup := seen[a.Name]; dup {
			return nil, fmt.Errorf("%w: activity %q defined twice", ErrInvalidSeed, a.Name)
		}
		seen[a.Name] = struct{}{}
		if a.MaxParticipants < 0 {
			return nil, fmt.Errorf("%w: activity %q has negative max_participants", ErrInvalidSeed, a.Name)
		}

		emails := make(map[string]struct{}, len(a.Participants))
		for _, email := range a.Participants {
			if _, dup := emails[email]; dup {
				return nil, fmt.Errorf("%w: activity %q lists %s twice", ErrInvalidSeed, a.Name, email)
			}
			emails[email] = struct{}{}
		}

		out = append(out, domain.Activity{
			Name:            a.Name,
			Description:     a.Description,
			Schedule:        a.Schedule,
			MaxParticipants: a.MaxParticipants,
			Participants:    append([]string{}, a.Participants...),
		})
	}
	return out, nil
}
