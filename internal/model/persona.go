package model

import "errors"

// ErrInvalidPersona is returned when a persona definition is missing
// required fields.
var ErrInvalidPersona = errors.New("invalid persona: name and biography are required")

// Persona is a named prompt profile representing a testing viewpoint,
// such as an accessibility specialist or a security tester.
// Personas are immutable once loaded; identity is the name
// (compared case-insensitively).
type Persona struct {
	// Name identifies the persona. Matching against caller-supplied
	// tester identifiers is case-insensitive.
	Name string `json:"name" yaml:"name"`

	// Biography describes the persona's expertise and background.
	// It is injected into the vision prompt and searched when resolving
	// free-text tester identifiers.
	Biography string `json:"biography" yaml:"biography"`

	// Prompt is an optional extra instruction appended to the vision
	// prompt for this persona only.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// Validate checks that the persona has the required fields.
func (p Persona) Validate() error {
	if p.Name == "" || p.Biography == "" {
		return ErrInvalidPersona
	}
	return nil
}
