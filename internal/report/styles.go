package report

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"apitrace/internal/contract"
)

// Semantic colors for the text renderer.
var (
	errorColor   = lipgloss.Color("#e53935") // Red
	warningColor = lipgloss.Color("#FFC107") // Yellow
	mutedColor   = lipgloss.Color("#6b7280") // Gray
)

var (
	errorStyle      = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	warningStyle    = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	locationStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	suggestionStyle = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
)

// formatTextDiagnostic renders one diagnostic for the text mode:
//
//	path/to/file.ts:42 error RouteNotFound: message
//	    related: other/file.tf:7
//	    suggestion: do the thing
func formatTextDiagnostic(d contract.Diagnostic) string {
	sevStyle := warningStyle
	if d.Severity == contract.SeverityError {
		sevStyle = errorStyle
	}
	out := fmt.Sprintf("%s %s %s: %s",
		locationStyle.Render(fmt.Sprintf("%s:%d", d.Primary.File, d.Primary.Line)),
		sevStyle.Render(string(d.Severity)),
		d.Code, d.Message)
	for _, rel := range d.Related {
		out += "\n    " + locationStyle.Render(fmt.Sprintf("related: %s:%d", rel.File, rel.Line))
	}
	if d.Suggestion != "" {
		out += "\n    " + suggestionStyle.Render("suggestion: "+d.Suggestion)
	}
	return out
}
