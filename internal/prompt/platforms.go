package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// GenericPlatform is the profile used when no platform is selected.
const GenericPlatform = "GENERIC"

//go:embed profiles/platforms.yaml
var platformsYAML []byte

// Platform describes how posts are shaped for one social network.
type Platform struct {
	Code        string   `yaml:"code" json:"code"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Guidelines  []string `yaml:"guidelines" json:"guidelines"`
	MaxHashtags int      `yaml:"max_hashtags" json:"max_hashtags"`
	Emojis      bool     `yaml:"emojis" json:"emojis"`
}

type manifest struct {
	SchemaVersion string     `yaml:"schema_version"`
	Platforms     []Platform `yaml:"platforms"`
}

// ParsePlatforms decodes a platform manifest. Unknown keys are rejected and
// every profile needs a code and a name.
func ParsePlatforms(data []byte) ([]Platform, error) {
	var m manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse platform manifest: %w", err)
	}
	if m.SchemaVersion == "" {
		m.SchemaVersion = "v1"
	}
	if m.SchemaVersion != "v1" {
		return nil, fmt.Errorf("unsupported platform manifest schema version: %s", m.SchemaVersion)
	}

	for i, p := range m.Platforms {
		if p.Code == "" {
			return nil, fmt.Errorf("platform %d missing required field: code", i)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("platform %s missing required field: name", p.Code)
		}
	}
	return m.Platforms, nil
}

// Registry holds platform profiles indexed by code.
type Registry struct {
	platforms map[string]Platform
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{platforms: make(map[string]Platform)}
}

// LoadRegistry builds a registry from a manifest. Duplicate codes are an
// error.
func LoadRegistry(data []byte) (*Registry, error) {
	platforms, err := ParsePlatforms(data)
	if err != nil {
		return nil, err
	}

	r := NewRegistry()
	for _, p := range platforms {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	if _, ok := r.Get(GenericPlatform); !ok {
		return nil, fmt.Errorf("platform manifest must define %s", GenericPlatform)
	}
	return r, nil
}

// DefaultRegistry returns the registry built from the embedded manifest.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

var defaultRegistry = mustLoad(platformsYAML)

func mustLoad(data []byte) *Registry {
	r, err := LoadRegistry(data)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds a profile. A code can only be registered once.
func (r *Registry) Register(p Platform) error {
	if _, exists := r.platforms[p.Code]; exists {
		return fmt.Errorf("platform already registered: %s", p.Code)
	}
	r.platforms[p.Code] = p
	return nil
}

// Get returns the profile for code.
func (r *Registry) Get(code string) (Platform, bool) {
	p, ok := r.platforms[code]
	return p, ok
}

// Resolve returns the profile for code, falling back to the generic one for
// empty or unknown codes.
func (r *Registry) Resolve(code string) Platform {
	if p, ok := r.platforms[code]; ok {
		return p
	}
	return r.platforms[GenericPlatform]
}

// List returns every profile sorted by code.
func (r *Registry) List() []Platform {
	out := make([]Platform, 0, len(r.platforms))
	for _, p := range r.platforms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Count returns the number of registered profiles.
func (r *Registry) Count() int {
	return len(r.platforms)
}
