package parser

import (
	"fmt"
	"strings"

	"github.com/section-speed/backend/internal/models"
)

// Registry holds all available extractors and provides auto-detection.
type Registry struct {
	extractors []Extractor
}

// Global registry instance
var globalRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		extractors: []Extractor{
			NewVerboseExtractor(),
			NewCompactExtractor(),
		},
	}
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Register adds a new extractor to the registry.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// ForMode returns the extractor for a fixed mode. For ExtractAuto it returns
// nil; callers detect per file with Detect.
func (r *Registry) ForMode(mode models.ExtractMode) (Extractor, error) {
	if mode == models.ExtractAuto {
		return nil, nil
	}
	for _, e := range r.extractors {
		if e.Mode() == mode {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no extractor for mode: %s", mode)
}

// Detect picks the first extractor whose CanParse accepts the text. Verbose
// is probed first: its marker is more specific than the compact token.
func (r *Registry) Detect(text string) (Extractor, error) {
	for _, e := range r.extractors {
		if e.CanParse(text) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no suitable extractor found")
}

// GetByName returns an extractor by its name.
func (r *Registry) GetByName(name string) (Extractor, error) {
	name = strings.ToLower(name)
	for _, e := range r.extractors {
		if strings.ToLower(e.Name()) == name {
			return e, nil
		}
	}
	return nil, fmt.Errorf("extractor not found: %s", name)
}
