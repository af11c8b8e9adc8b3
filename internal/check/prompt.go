package check

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nao1215/cotestpilot/internal/browser"
	"github.com/nao1215/cotestpilot/internal/model"
)

// promptInstructions is the fixed part of every analysis prompt.
// The severity scale and the JSON schema here must stay in sync with
// what the response parser accepts.
const promptInstructions = `You are reviewing a screenshot and the visible text of a web page for software bugs.

Report every issue you find. For each issue use this severity scale:
  0 = cosmetic: minor visual or text issue, no impact on functionality
  1 = low: minor inconvenience, core functionality still works
  2 = medium: significantly degrades the experience or partially breaks functionality
  3 = high: prevents core functionality or severely impacts users or the business

Respond with JSON only, using exactly this structure:
{
  "bugs": [
    {
      "title": "short description of the issue",
      "severity": 0,
      "description": "detailed explanation of what is wrong",
      "why_fix": "why this matters to users or the business",
      "how_to_fix": "suggested resolution",
      "confidence": 0.9,
      "related_context": "selector, URL, or text the issue relates to"
    }
  ]
}

Confidence is your certainty that this is a real bug, from 0.0 to 1.0.
If the page has no issues, respond with {"bugs": []}.
Do not invent issues to fill the list. Do not include anything outside the JSON.`

// PromptOptions carries the caller-supplied parts of the analysis prompt.
type PromptOptions struct {
	// MaxTextBytes truncates the page text included in the prompt so
	// oversized pages cannot blow the model's context budget. Zero means
	// no limit.
	MaxTextBytes int

	// Rules are named check rules the model must apply in addition to
	// the persona's own judgement. Rendered in name order.
	Rules map[string]string

	// CustomPrompt is free-form guidance appended after the persona and
	// rules blocks.
	CustomPrompt string
}

// BuildPrompt assembles the full analysis prompt for one persona and one
// captured page.
func BuildPrompt(p model.Persona, state *model.PageState, opts PromptOptions) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Adopt the following tester persona and review the page from their point of view.\n\n")
	fmt.Fprintf(&sb, "Persona: %s\n%s\n", p.Name, p.Biography)
	if p.Prompt != "" {
		fmt.Fprintf(&sb, "\nAdditional instructions for this persona:\n%s\n", p.Prompt)
	}

	if len(opts.Rules) > 0 {
		names := make([]string, 0, len(opts.Rules))
		for name := range opts.Rules {
			names = append(names, name)
		}
		sort.Strings(names)

		sb.WriteString("\nApply these additional check rules:\n")
		for i, name := range names {
			fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, name, opts.Rules[name])
		}
	}

	if opts.CustomPrompt != "" {
		fmt.Fprintf(&sb, "\n%s\n", opts.CustomPrompt)
	}

	sb.WriteString("\n")
	sb.WriteString(promptInstructions)

	fmt.Fprintf(&sb, "\n\nPage URL: %s\n", state.URL)
	if state.Title != "" {
		fmt.Fprintf(&sb, "Page title: %s\n", state.Title)
	}

	text := browser.TruncateText(state.Text, opts.MaxTextBytes)
	if text != "" {
		fmt.Fprintf(&sb, "\nVisible page text:\n%s\n", text)
	}

	return sb.String()
}
