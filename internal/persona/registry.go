package persona

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/text/cases"

	"github.com/nao1215/cotestpilot/internal/model"
)

// DefaultPersonaName is the persona used when no tester identifiers
// are supplied.
const DefaultPersonaName = "Jason"

//go:embed testers.json
var builtinPersonas []byte

// Registry holds the known personas and answers lookups by name.
//
// Design decision: Personas are kept in a slice plus a folded-name index
// rather than a map alone. The slice preserves definition order, which
// determines resolution order when a biography search matches several
// personas; the index makes exact-name lookups cheap.
type Registry struct {
	personas []model.Persona
	byName   map[string]int

	folder cases.Caser
}

// NewRegistry creates a Registry populated with the built-in personas.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		byName: make(map[string]int),
		folder: cases.Fold(),
	}

	builtins, err := decodePersonas(builtinPersonas)
	if err != nil {
		return nil, fmt.Errorf("parse built-in personas: %w", err)
	}
	if err := r.Merge(builtins); err != nil {
		return nil, err
	}
	return r, nil
}

// testersFile is the persona file shape: {"testers": [{name, biography,
// prompt}]}.
type testersFile struct {
	Testers []model.Persona `json:"testers"`
}

// decodePersonas decodes a persona definition document. The canonical
// shape is the testers wrapper; a bare array of persona objects is also
// accepted.
func decodePersonas(data []byte) ([]model.Persona, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var personas []model.Persona
		if err := json.Unmarshal(trimmed, &personas); err != nil {
			return nil, err
		}
		return personas, nil
	}

	var file testersFile
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return nil, err
	}
	return file.Testers, nil
}

// Merge adds personas to the registry. A persona whose folded name
// matches an existing one replaces it in place, keeping its position
// in the resolution order.
func (r *Registry) Merge(personas []model.Persona) error {
	for _, p := range personas {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("persona %q: %w", p.Name, err)
		}

		key := r.folder.String(p.Name)
		if i, ok := r.byName[key]; ok {
			r.personas[i] = p
			continue
		}
		r.byName[key] = len(r.personas)
		r.personas = append(r.personas, p)
	}
	return nil
}

// LoadFile merges persona definitions from a JSON file. The file holds
// {"testers": [...]} with name, biography, and an optional prompt field
// per entry; a bare array of the same objects is also accepted.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided persona path is intentional
	if err != nil {
		return fmt.Errorf("read persona file: %w", err)
	}

	personas, err := decodePersonas(data)
	if err != nil {
		return fmt.Errorf("parse persona file %s: %w", path, err)
	}
	return r.Merge(personas)
}

// All returns the personas in definition order.
// The returned slice is a copy; mutating it does not affect the registry.
func (r *Registry) All() []model.Persona {
	out := make([]model.Persona, len(r.personas))
	copy(out, r.personas)
	return out
}

// Get returns the persona with the given name, compared case-insensitively.
func (r *Registry) Get(name string) (model.Persona, bool) {
	i, ok := r.byName[r.folder.String(name)]
	if !ok {
		return model.Persona{}, false
	}
	return r.personas[i], true
}

// Default returns the default persona. If the default was removed by a
// configuration merge, the first registered persona is used instead.
func (r *Registry) Default() model.Persona {
	if p, ok := r.Get(DefaultPersonaName); ok {
		return p
	}
	return r.personas[0]
}
