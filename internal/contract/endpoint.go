package contract

import "strings"

// Method is an HTTP verb from the fixed set the validator understands.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodOptions Method = "OPTIONS"
)

// KnownMethods is the verb set shared by every extractor. Anything outside
// this set is treated as a malformed declaration, not silently normalized.
var KnownMethods = map[Method]bool{
	MethodGet:     true,
	MethodPost:    true,
	MethodPut:     true,
	MethodPatch:   true,
	MethodDelete:  true,
	MethodOptions: true,
}

// IsKnownMethod reports whether s (any casing) is one of the fixed verbs.
func IsKnownMethod(s string) (Method, bool) {
	m := Method(strings.ToUpper(s))
	return m, KnownMethods[m]
}

// SourceLocation pins a record or diagnostic to a file and line. It is
// always present on extracted records and never discarded.
type SourceLocation struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Param is a best-effort query or body parameter contract.
// InferredType is "unknown" when nothing can be recovered statically.
type Param struct {
	Name         string `json:"name"`
	Required     bool   `json:"required"`
	InferredType string `json:"inferred_type"`
}

// TypeUnknown is the InferredType used when no literal annotation exists.
const TypeUnknown = "unknown"

// Endpoint is the shared contract shape produced by all three extractors.
type Endpoint struct {
	Method        Method         `json:"method"`
	Path          PathTemplate   `json:"path"`
	PathParams    []string       `json:"path_params,omitempty"`
	QueryParams   []Param        `json:"query_params,omitempty"`
	BodyFields    []Param        `json:"body_fields,omitempty"`
	ResponseShape string         `json:"response_shape,omitempty"`
	Location      SourceLocation `json:"location"`
}

// FrontendCall is one client call site. Distinct call sites to the same
// logical endpoint stay separate records; they may evolve independently.
type FrontendCall struct {
	Endpoint
	// CallSiteExpression is the raw call text, kept for diagnostics.
	CallSiteExpression string `json:"call_site_expression"`
}

// DeclaredRoute is one entry of the infrastructure route table.
type DeclaredRoute struct {
	Endpoint
	// TargetHandlerRef names the handler module that should serve the route.
	TargetHandlerRef string `json:"target_handler_ref,omitempty"`
}

// HandlerRoute is one branch of a backend handler's dispatch structure.
type HandlerRoute struct {
	Endpoint
	// HandlerRef is the file's module identity, in the same identifier
	// space as DeclaredRoute.TargetHandlerRef.
	HandlerRef string `json:"handler_ref"`
	// DispatchConditionText is the literal matching expression found,
	// used to explain ambiguity in diagnostics.
	DispatchConditionText string `json:"dispatch_condition_text,omitempty"`
}
