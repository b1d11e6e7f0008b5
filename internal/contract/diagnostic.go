package contract

import "sort"

// Severity tags a diagnostic as blocking or informational.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Code identifies the condition a diagnostic reports.
type Code string

const (
	// Parse-level conditions, localized to one file or record.
	CodeMalformedRouteDeclaration   Code = "MalformedRouteDeclaration"
	CodeAmbiguousFileClassification Code = "AmbiguousFileClassification"
	CodeUnreadableSourceFile        Code = "UnreadableSourceFile"

	// Cross-layer errors; these block a clean pass.
	CodeRouteNotFound        Code = "RouteNotFound"
	CodeParameterMismatch    Code = "ParameterMismatch"
	CodeMissingLambdaHandler Code = "MissingLambdaHandler"
	CodeAmbiguousRouteMatch  Code = "AmbiguousRouteMatch"

	// Cross-layer warnings; informational, never block.
	CodeOrphanedRoute           Code = "OrphanedRoute"
	CodePathParamNamingMismatch Code = "PathParamNamingMismatch"
	CodeNoUsableRecords         Code = "NoUsableRecords"
)

// Diagnostic is a structured, located, severity-tagged finding. Diagnostics
// are data: they flow through the pipeline and are never raised as errors.
type Diagnostic struct {
	Severity   Severity         `json:"severity"`
	Code       Code             `json:"code"`
	Message    string           `json:"message"`
	Primary    SourceLocation   `json:"primary_location"`
	Related    []SourceLocation `json:"related_locations,omitempty"`
	Suggestion string           `json:"suggestion,omitempty"`
}

// SortDiagnostics orders diagnostics by file path, then line, then code,
// then message. Two runs on identical input must produce an identical
// ordering, so every tie has a deterministic break.
func SortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Primary.File != b.Primary.File {
			return a.Primary.File < b.Primary.File
		}
		if a.Primary.Line != b.Primary.Line {
			return a.Primary.Line < b.Primary.Line
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Message < b.Message
	})
}

// CountBySeverity returns the error and warning totals for a diagnostic
// list. The exit status of a run is nonzero iff the error count is.
func CountBySeverity(diags []Diagnostic) (errors, warnings int) {
	for _, d := range diags {
		switch d.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		}
	}
	return errors, warnings
}
