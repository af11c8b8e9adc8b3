package model

// Bug is a single issue reported by the vision model.
// Bugs are produced by parsing model output and are not mutated afterwards;
// Normalize is called once during parsing.
type Bug struct {
	// Title is a brief description of the issue.
	Title string `json:"title"`

	// Severity is the impact level of the issue.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Description is a detailed explanation of the issue.
	Description string `json:"description,omitempty"`

	// WhyFix explains the importance and impact of the issue.
	WhyFix string `json:"why_fix,omitempty"`

	// HowToFix is the suggested resolution.
	HowToFix string `json:"how_to_fix,omitempty"`

	// Confidence is the model's confidence score in [0, 1].
	Confidence float64 `json:"confidence"`

	// RelatedContext is optional page context the model tied the issue to
	// (a selector, an asset URL, surrounding text).
	RelatedContext string `json:"related_context,omitempty"`

	// Persona is the name of the testing persona that reported the issue.
	Persona string `json:"persona,omitempty"`
}

// Normalize clamps the confidence score into [0, 1] and fills in the
// human-readable severity text. It returns the receiver for chaining
// during parsing.
func (b Bug) Normalize() Bug {
	if b.Confidence < 0 {
		b.Confidence = 0
	}
	if b.Confidence > 1 {
		b.Confidence = 1
	}
	b.SeverityText = b.Severity.String()
	return b
}
