package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nao1215/cotestpilot/internal/model"
)

// ErrNoJSONPayload is returned when the model response contains no
// recognizable JSON object or array.
var ErrNoJSONPayload = errors.New("no JSON payload in model response")

// flexString accepts a JSON string or number and stores it as a string.
// Vision models frequently return `"severity": 2` one call and
// `"severity": "high"` the next for the same prompt.
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	*s = flexString(strings.TrimSpace(string(data)))
	return nil
}

// flexFloat accepts a JSON number or a quoted number.
type flexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexFloat) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse confidence %q: %w", raw, err)
	}
	*f = flexFloat(v)
	return nil
}

// rawBug mirrors the JSON schema the prompt asks the model to produce,
// with forgiving field types.
type rawBug struct {
	Title          flexString `json:"title"`
	Severity       flexString `json:"severity"`
	Description    flexString `json:"description"`
	WhyFix         flexString `json:"why_fix"`
	HowToFix       flexString `json:"how_to_fix"`
	Confidence     flexFloat  `json:"confidence"`
	RelatedContext flexString `json:"related_context"`
}

// rawResponse is the top-level object form of the model response.
// Models occasionally rename the array to "issues" despite the schema
// in the prompt, so both keys are accepted. Elements stay raw so one
// garbled element can be skipped without losing the rest.
type rawResponse struct {
	Bugs   []json.RawMessage `json:"bugs"`
	Issues []json.RawMessage `json:"issues"`
}

// ParseBugs extracts structured bug reports from a model response.
//
// The response may be wrapped in markdown code fences and surrounded by
// prose; the JSON payload is located by scanning for the outermost object
// or array. {"bugs": [...]}, {"issues": [...]}, and a bare array are all
// accepted. Malformed elements are skipped; only a fully unparseable
// payload is an error. Bugs with confidence below minConfidence are
// dropped.
//
// An empty bug list is a valid response and returns (nil, nil): a page
// with no findings is the expected happy path, not an error.
func ParseBugs(raw string, minConfidence float64) ([]model.Bug, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, ErrNoJSONPayload
	}

	var elements []json.RawMessage
	if strings.HasPrefix(payload, "[") {
		if err := json.Unmarshal([]byte(payload), &elements); err != nil {
			return nil, fmt.Errorf("decode bug array: %w", err)
		}
	} else {
		var resp rawResponse
		if err := json.Unmarshal([]byte(payload), &resp); err != nil {
			return nil, fmt.Errorf("decode bug response: %w", err)
		}
		elements = resp.Bugs
		if len(elements) == 0 {
			elements = resp.Issues
		}
	}

	var bugs []model.Bug
	for _, element := range elements {
		var rb rawBug
		if err := json.Unmarshal(element, &rb); err != nil {
			// One garbled element must not discard the persona's
			// remaining findings.
			continue
		}
		if strings.TrimSpace(string(rb.Title)) == "" {
			continue
		}

		bug := model.Bug{
			Title:          string(rb.Title),
			Severity:       model.ParseSeverity(string(rb.Severity)),
			Description:    string(rb.Description),
			WhyFix:         string(rb.WhyFix),
			HowToFix:       string(rb.HowToFix),
			Confidence:     float64(rb.Confidence),
			RelatedContext: string(rb.RelatedContext),
		}.Normalize()

		if bug.Confidence < minConfidence {
			continue
		}
		bugs = append(bugs, bug)
	}
	return bugs, nil
}

// extractJSON strips markdown code fences and surrounding prose, returning
// the outermost JSON object or array in the text, or "" when none exists.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Strip a fenced block if the payload is wrapped in one.
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		// Skip the optional language tag on the opening fence.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			s = strings.TrimSpace(rest[:end])
		}
	}

	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	start := objStart
	closing := byte('}')
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
		closing = ']'
	}
	if start < 0 {
		return ""
	}

	end := strings.LastIndexByte(s, closing)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}
