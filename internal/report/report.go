// Package report serializes a diagnostic list into the requested output
// shape. Rendering is pure formatting: it cannot introduce or suppress
// diagnostics, and for a fixed diagnostic list every mode renders
// byte-identical output across runs.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"apitrace/internal/contract"
)

// Mode selects the output shape.
type Mode string

const (
	ModeText     Mode = "text"
	ModeJSON     Mode = "json"
	ModeMarkdown Mode = "markdown"
	ModeSummary  Mode = "summary"
)

// ParseMode validates an output-mode selector.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeText, ModeJSON, ModeMarkdown, ModeSummary:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown output mode %q (want text, json, markdown or summary)", s)
}

// Summary carries the counts machine consumers key on.
type Summary struct {
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
}

// Report is the rendered-report envelope. RunID identifies one
// invocation; the diagnostics array itself is deterministic for a fixed
// file tree.
type Report struct {
	RunID       string                `json:"run_id"`
	Root        string                `json:"root"`
	Summary     Summary               `json:"summary"`
	Diagnostics []contract.Diagnostic `json:"diagnostics"`
}

// New builds a report envelope over an already-sorted diagnostic list.
func New(root string, diags []contract.Diagnostic) *Report {
	errs, warns := contract.CountBySeverity(diags)
	if diags == nil {
		diags = []contract.Diagnostic{}
	}
	return &Report{
		RunID:       uuid.NewString(),
		Root:        root,
		Summary:     Summary{ErrorCount: errs, WarningCount: warns},
		Diagnostics: diags,
	}
}

// HasErrors reports whether the run should exit nonzero. Warnings alone
// never affect exit status.
func (r *Report) HasErrors() bool {
	return r.Summary.ErrorCount > 0
}

// Render produces the output string for the requested mode.
func (r *Report) Render(mode Mode) (string, error) {
	switch mode {
	case ModeText:
		return r.renderText(), nil
	case ModeJSON:
		return r.renderJSON()
	case ModeMarkdown:
		return r.renderMarkdown(), nil
	case ModeSummary:
		return r.renderSummary(), nil
	}
	return "", fmt.Errorf("unknown output mode %q", mode)
}

func (r *Report) renderJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data) + "\n", nil
}

func (r *Report) renderText() string {
	var b strings.Builder
	for _, d := range r.Diagnostics {
		b.WriteString(formatTextDiagnostic(d))
		b.WriteByte('\n')
	}
	if len(r.Diagnostics) > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(r.countsLine())
	b.WriteByte('\n')
	return b.String()
}

// renderSummary includes only errors and the counts.
func (r *Report) renderSummary() string {
	var b strings.Builder
	for _, d := range r.Diagnostics {
		if d.Severity != contract.SeverityError {
			continue
		}
		fmt.Fprintf(&b, "%s:%d: %s: %s\n", d.Primary.File, d.Primary.Line, d.Code, d.Message)
	}
	b.WriteString(r.countsLine())
	b.WriteByte('\n')
	return b.String()
}

func (r *Report) renderMarkdown() string {
	var b strings.Builder
	b.WriteString("# API contract validation\n\n")
	fmt.Fprintf(&b, "**%d errors, %d warnings** in `%s`\n\n",
		r.Summary.ErrorCount, r.Summary.WarningCount, r.Root)
	if len(r.Diagnostics) == 0 {
		b.WriteString("No findings.\n")
		return b.String()
	}
	b.WriteString("| Severity | Code | Location | Message | Suggestion |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, d := range r.Diagnostics {
		fmt.Fprintf(&b, "| %s | %s | %s:%d | %s | %s |\n",
			d.Severity, d.Code, d.Primary.File, d.Primary.Line,
			escapeCell(d.Message), escapeCell(d.Suggestion))
	}
	return b.String()
}

func (r *Report) countsLine() string {
	if r.Summary.ErrorCount == 0 && r.Summary.WarningCount == 0 {
		return "clean: 0 errors, 0 warnings"
	}
	return fmt.Sprintf("%d errors, %d warnings", r.Summary.ErrorCount, r.Summary.WarningCount)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
