package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/alterego-ai/alterego/internal/model"
)

// Renderer writes analysis reports as JSON, Markdown, and terminal summaries
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a new renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.AnalysisReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// RenderMarkdown writes the report as a Markdown document
func (r *Renderer) RenderMarkdown(report *model.AnalysisReport, path string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Privacy Analysis: %s\n\n", report.Subject)
	fmt.Fprintf(&b, "- **Source**: %s\n", report.Source)
	fmt.Fprintf(&b, "- **Analyzed**: %s\n", report.AnalyzedAt.Format("2006-01-02 15:04 UTC"))
	if report.LLM != nil && report.LLM.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s (%s)\n", report.LLM.Model, report.LLM.Provider)
	}
	fmt.Fprintf(&b, "- **Exposure Index**: %d/100 (%s)\n\n", report.Score.Index, report.Score.Level)

	if len(report.Attributes) > 0 {
		b.WriteString("## Inferred Attributes\n\n")
		b.WriteString("| Attribute | Estimate | Confidence | Evidence |\n")
		b.WriteString("|-----------|----------|------------|----------|\n")
		for _, attr := range report.Attributes {
			fmt.Fprintf(&b, "| %s | %s | %d/5 | %s |\n",
				attr.DisplayLabel(), attr.Estimate, attr.Confidence,
				strings.Join(attr.AnalysisPhrases, "; "))
		}
		b.WriteString("\n")

		for _, attr := range report.Attributes {
			if attr.Explanation == "" {
				continue
			}
			fmt.Fprintf(&b, "**%s**: %s\n\n", attr.DisplayLabel(), attr.Explanation)
		}
	} else {
		b.WriteString("No attributes were inferred from this document.\n\n")
	}

	if len(report.Suggestions) > 0 {
		b.WriteString("## Replacement Proposals\n\n")
		for _, attribute := range sortedKeys(report.Suggestions) {
			fmt.Fprintf(&b, "### %s\n\n", attribute)
			for _, entry := range report.Suggestions[attribute] {
				fmt.Fprintf(&b, "- `%s` → `%s`\n", entry.Original, entry.Suggestion)
			}
			b.WriteString("\n")
		}
	}

	if unverified := countUnverified(report.Validation); unverified > 0 {
		fmt.Fprintf(&b, "## Evidence Verification\n\n%d of %d cited phrases could not be located in the text.\n\n",
			unverified, len(report.Validation))
	}

	if len(report.Score.Signals) > 0 {
		b.WriteString("## Scoring Signals\n\n")
		for _, signal := range report.Score.Signals {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", signal.Type, signal.Severity, signal.Description)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\nGenerated by AlterEgo. The exposure index describes what a language model can infer from the text; it is not a guarantee of anonymity.\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// RenderSummary prints a short terminal summary
func (r *Renderer) RenderSummary(w io.Writer, report *model.AnalysisReport) {
	fmt.Fprintf(w, "\n%s\n", report.Subject)
	fmt.Fprintf(w, "Exposure: %d/100 (%s)\n", report.Score.Index, report.Score.Level)

	if len(report.Attributes) == 0 {
		fmt.Fprintln(w, "No attributes inferred.")
		return
	}

	for _, attr := range report.Attributes {
		fmt.Fprintf(w, "  %-20s %s (confidence %d/5)\n", attr.DisplayLabel(), attr.Estimate, attr.Confidence)
	}

	if unverified := countUnverified(report.Validation); unverified > 0 {
		fmt.Fprintf(w, "Warning: %d cited phrases not found in the text\n", unverified)
	}

	proposalCount := 0
	for _, entries := range report.Suggestions {
		proposalCount += len(entries)
	}
	if proposalCount > 0 {
		fmt.Fprintf(w, "%d replacement proposals available (run rephrase to apply)\n", proposalCount)
	}
}

func countUnverified(validation []model.PhraseValidation) int {
	count := 0
	for _, v := range validation {
		if !v.Found {
			count++
		}
	}
	return count
}

func sortedKeys(m map[string][]model.SuggestionEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
