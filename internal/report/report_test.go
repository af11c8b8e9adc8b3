package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/cotestpilot/internal/model"
)

// testResult returns a check result with bugs across severities.
func testResult() *model.CheckResult {
	result := model.NewCheckResult("https://example.com/checkout")
	result.Title = "Checkout"
	result.Label = "smoke"
	result.Timestamp = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	result.AddFindings(model.PersonaFindings{
		Persona: "Jason",
		Bugs: []model.Bug{
			model.Bug{
				Title:       "Pay button does nothing",
				Severity:    model.SeverityHigh,
				Description: "Clicking the pay button has no visible effect.",
				WhyFix:      "Users cannot complete purchases.",
				HowToFix:    "Wire the click handler to the payment endpoint.",
				Confidence:  0.95,
				Persona:     "Jason",
			}.Normalize(),
			model.Bug{
				Title:      "Inconsistent button casing",
				Severity:   model.SeverityCosmetic,
				Confidence: 0.8,
				Persona:    "Jason",
			}.Normalize(),
		},
	})
	return result
}

func TestJSONWriterWrite(t *testing.T) {
	t.Parallel()

	t.Run("compact output is valid json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		n, err := w.Write(testResult())
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != buf.Len() {
			t.Errorf("Write() n = %d, buffer has %d bytes", n, buf.Len())
		}

		var decoded model.CheckResult
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.URL != "https://example.com/checkout" {
			t.Errorf("decoded URL = %q", decoded.URL)
		}
		if decoded.HighCount != 1 || decoded.CosmeticCount != 1 {
			t.Errorf("decoded counts high=%d cosmetic=%d", decoded.HighCount, decoded.CosmeticCount)
		}
	})

	t.Run("pretty print produces indented output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.Write(testResult()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})

	t.Run("batch output is a json array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.WriteBatch([]*model.CheckResult{testResult(), testResult()}); err != nil {
			t.Fatalf("WriteBatch() error = %v", err)
		}

		var decoded []*model.CheckResult
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not a valid JSON array: %v", err)
		}
		if len(decoded) != 2 {
			t.Errorf("decoded %d results, want 2", len(decoded))
		}
	})
}

func TestFullJSONWriterIncludesVersion(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewFullJSONWriter(&buf, "1.2.3")

	if _, err := w.Write(testResult()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var wrapped JSONReport
	if err := json.Unmarshal(buf.Bytes(), &wrapped); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if wrapped.Version != "1.2.3" {
		t.Errorf("Version = %q, want 1.2.3", wrapped.Version)
	}
	if len(wrapped.Results) != 1 {
		t.Errorf("Results = %d, want 1", len(wrapped.Results))
	}
}

func TestSimpleWriterWrite(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewSimpleWriter(&buf, WithVerbose(true))

	if _, err := w.Write(testResult()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"COTESTPILOT CHECK REPORT",
		"https://example.com/checkout",
		"SEVERITY SUMMARY",
		"HIGH:     1",
		"COSMETIC: 1",
		"TOTAL:    2 bugs",
		"Pay button does nothing",
		"Reported by: Jason",
		"Users cannot complete purchases.",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestSimpleWriterNoBugs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewSimpleWriter(&buf)

	result := model.NewCheckResult("https://example.com")
	if _, err := w.Write(result); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "TOTAL:    0 bugs") {
		t.Errorf("output missing zero total: %s", output)
	}
	// The bugs section is skipped without findings unless showEmpty is set.
	if strings.Contains(output, "\nBUGS\n") {
		t.Error("output contains empty BUGS section")
	}
}

func TestMarkdownWriterWrite(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf)

	if _, err := w.Write(testResult()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"# coTestPilot Check Report",
		"## Severity Summary",
		"https://example.com/checkout",
		"Pay button does nothing",
		"pie",     // mermaid chart
		"CAUTION", // high severity alert
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestMarkdownWriterNoBugs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf)

	result := model.NewCheckResult("https://example.com")
	if _, err := w.Write(result); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "No bugs detected") {
		t.Errorf("output missing no-bugs note: %s", output)
	}
	if !strings.Contains(output, "TIP") {
		t.Errorf("output missing tip alert: %s", output)
	}
}

func TestHTMLWriterWrite(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewHTMLWriter(&buf)
	if err != nil {
		t.Fatalf("NewHTMLWriter() error = %v", err)
	}

	result := testResult()
	result.ScreenshotPath = result.ID + ".png"

	if _, err := w.Write(result); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"https://example.com/checkout",
		"Pay button does nothing",
		result.ScreenshotPath,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestHTMLWriterEscapesModelOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewHTMLWriter(&buf)
	if err != nil {
		t.Fatalf("NewHTMLWriter() error = %v", err)
	}

	result := model.NewCheckResult("https://example.com")
	result.AddFindings(model.PersonaFindings{
		Persona: "Jason",
		Bugs: []model.Bug{
			{Title: `<script>alert("xss")</script>`, Severity: model.SeverityLow, Confidence: 0.9},
		},
	})

	if _, err := w.Write(result); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if strings.Contains(buf.String(), `<script>alert`) {
		t.Error("model-supplied markup was not escaped")
	}
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewJSONWriter(&a), NewSimpleWriter(&b))

	if _, err := mw.Write(testResult()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if a.Len() == 0 || b.Len() == 0 {
		t.Error("MultiWriter did not write to all destinations")
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "short string unchanged",
			input:  "hello",
			maxLen: 10,
			want:   "hello",
		},
		{
			name:   "long string truncated with ellipsis",
			input:  "this is a very long string",
			maxLen: 10,
			want:   "this is...",
		},
		{
			name:   "tiny max length",
			input:  "hello",
			maxLen: 2,
			want:   "he",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := truncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
