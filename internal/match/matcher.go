// Package match reconciles the contract records extracted from the three
// layers and produces diagnostics for every inconsistency. The matcher
// never aborts on a bad record; every finding is data, and the final list
// is deterministically ordered.
package match

import (
	"fmt"
	"strings"

	"apitrace/internal/contract"
	"apitrace/internal/extract"
	"apitrace/internal/logging"
)

// Diagnose runs the full cross-layer analysis: frontend against the route
// table, parameter contracts on every match, route table against the
// handler corpus, and orphan detection. Extractor diagnostics are carried
// through unchanged.
func Diagnose(res *extract.Result) []contract.Diagnostic {
	diags := append([]contract.Diagnostic(nil), res.Diagnostics...)

	if len(res.Calls) == 0 && len(res.Routes) == 0 && len(res.Handlers) == 0 {
		diags = append(diags, contract.Diagnostic{
			Severity:   contract.SeverityWarning,
			Code:       contract.CodeNoUsableRecords,
			Message:    "no usable contract records were extracted from any corpus",
			Primary:    contract.SourceLocation{File: ".", Line: 0},
			Suggestion: "check the corpus patterns in the configuration against the project layout",
		})
		contract.SortDiagnostics(diags)
		return diags
	}

	claimed := make(map[int]bool, len(res.Routes))
	for _, call := range res.Calls {
		diags = append(diags, diagnoseCall(call, res.Routes, claimed)...)
	}
	for _, route := range res.Routes {
		diags = append(diags, diagnoseRoute(route, res.Handlers)...)
	}
	for i, route := range res.Routes {
		if !claimed[i] {
			diags = append(diags, contract.Diagnostic{
				Severity: contract.SeverityWarning,
				Code:     contract.CodeOrphanedRoute,
				Message: fmt.Sprintf("declared route %s %s has no frontend caller",
					route.Method, route.Path.String()),
				Primary:    route.Location,
				Suggestion: "remove the route if it is unused; internal and service-to-service routes can be ignored",
			})
		}
	}

	contract.SortDiagnostics(diags)
	errs, warns := contract.CountBySeverity(diags)
	logging.Match("diagnosis complete: %d errors, %d warnings", errs, warns)
	return diags
}

// diagnoseCall matches one frontend call against the route table and, on
// a unique match, checks the parameter contracts. claimed records which
// declared routes found at least one caller, for orphan detection.
func diagnoseCall(call contract.FrontendCall, routes []contract.DeclaredRoute, claimed map[int]bool) []contract.Diagnostic {
	var candidates []int
	for i, route := range routes {
		if route.Method == call.Method && contract.Compatible(call.Path, route.Path) {
			candidates = append(candidates, i)
		}
	}

	switch len(candidates) {
	case 0:
		return []contract.Diagnostic{{
			Severity: contract.SeverityError,
			Code:     contract.CodeRouteNotFound,
			Message: fmt.Sprintf("no declared route matches frontend call %s %s",
				call.Method, call.Path.String()),
			Primary:    call.Location,
			Suggestion: "add the route to the gateway route table or fix the frontend endpoint",
		}}
	case 1:
		claimed[candidates[0]] = true
		return checkParams(call, routes[candidates[0]])
	default:
		// Tie-break: prefer the declared route with the fewest wildcard
		// segments; report ambiguity rather than guessing further.
		best := narrowByWildcards(routes, candidates)
		if len(best) == 1 {
			claimed[best[0]] = true
			return checkParams(call, routes[best[0]])
		}
		var related []contract.SourceLocation
		var names []string
		for _, i := range best {
			claimed[i] = true
			related = append(related, routes[i].Location)
			names = append(names, routes[i].Path.String())
		}
		return []contract.Diagnostic{{
			Severity: contract.SeverityError,
			Code:     contract.CodeAmbiguousRouteMatch,
			Message: fmt.Sprintf("frontend call %s %s matches %d declared routes: %s",
				call.Method, call.Path.String(), len(best), strings.Join(names, ", ")),
			Primary:    call.Location,
			Related:    related,
			Suggestion: "make the declared route paths distinguishable or narrow the frontend endpoint",
		}}
	}
}

func narrowByWildcards(routes []contract.DeclaredRoute, candidates []int) []int {
	bestCount := -1
	var best []int
	for _, i := range candidates {
		c := routes[i].Path.WildcardCount()
		switch {
		case bestCount < 0 || c < bestCount:
			bestCount = c
			best = []int{i}
		case c == bestCount:
			best = append(best, i)
		}
	}
	return best
}

// checkParams compares path, query and body parameter contracts between a
// frontend call and its uniquely matched declared route. Positional name
// drift on path params is cosmetic (a warning); query/body name drift is
// substantive (an error).
func checkParams(call contract.FrontendCall, route contract.DeclaredRoute) []contract.Diagnostic {
	var diags []contract.Diagnostic

	n := len(call.PathParams)
	if len(route.PathParams) < n {
		n = len(route.PathParams)
	}
	for i := 0; i < n; i++ {
		a, b := call.PathParams[i], route.PathParams[i]
		if a != "" && b != "" && a != b {
			diags = append(diags, contract.Diagnostic{
				Severity: contract.SeverityWarning,
				Code:     contract.CodePathParamNamingMismatch,
				Message: fmt.Sprintf("path parameter %d is named %q by the frontend but %q by the route table",
					i+1, a, b),
				Primary:    call.Location,
				Related:    []contract.SourceLocation{route.Location},
				Suggestion: "align the placeholder names; position and count already agree",
			})
		}
	}

	diags = append(diags, diffParams(call, route, "query parameter", call.QueryParams, route.QueryParams)...)
	diags = append(diags, diffParams(call, route, "body field", call.BodyFields, route.BodyFields)...)
	return diags
}

// diffParams reports the symmetric difference of two named parameter
// sets. Comparison is by name only: types are best-effort inferences and
// never firm enough to diagnose.
func diffParams(call contract.FrontendCall, route contract.DeclaredRoute, kind string, sent, declared []contract.Param) []contract.Diagnostic {
	// Declarations without any parameter contract make no claim, so there
	// is nothing to compare against.
	if len(declared) == 0 {
		return nil
	}
	declaredNames := make(map[string]bool, len(declared))
	for _, p := range declared {
		declaredNames[p.Name] = true
	}
	sentNames := make(map[string]bool, len(sent))
	for _, p := range sent {
		sentNames[p.Name] = true
	}

	var extraSent, missingDeclared []string
	for _, p := range sent {
		if !declaredNames[p.Name] {
			extraSent = append(extraSent, p.Name)
		}
	}
	for _, p := range declared {
		if p.Required && !sentNames[p.Name] {
			missingDeclared = append(missingDeclared, p.Name)
		}
	}

	// A single unmatched name on each side is almost always the same
	// parameter drifting apart; report it once, naming both sides.
	if len(extraSent) == 1 && len(missingDeclared) == 1 {
		return []contract.Diagnostic{{
			Severity: contract.SeverityError,
			Code:     contract.CodeParameterMismatch,
			Message: fmt.Sprintf("frontend sends %s %q but the matched route declares %q",
				kind, extraSent[0], missingDeclared[0]),
			Primary:    call.Location,
			Related:    []contract.SourceLocation{route.Location},
			Suggestion: fmt.Sprintf("rename one side so both use the same %s name", kind),
		}}
	}

	var diags []contract.Diagnostic
	for _, name := range extraSent {
		diags = append(diags, contract.Diagnostic{
			Severity: contract.SeverityError,
			Code:     contract.CodeParameterMismatch,
			Message: fmt.Sprintf("%s %q is sent by the frontend but not declared by the matched route",
				kind, name),
			Primary:    call.Location,
			Related:    []contract.SourceLocation{route.Location},
			Suggestion: fmt.Sprintf("declare %q on the route or rename the frontend %s", name, kind),
		})
	}
	for _, name := range missingDeclared {
		diags = append(diags, contract.Diagnostic{
			Severity: contract.SeverityError,
			Code:     contract.CodeParameterMismatch,
			Message: fmt.Sprintf("required %s %q is declared by the route but never sent by the frontend",
				kind, name),
			Primary:    call.Location,
			Related:    []contract.SourceLocation{route.Location},
			Suggestion: fmt.Sprintf("send %q from the frontend or drop it from the declaration", name),
		})
	}
	return diags
}

// diagnoseRoute checks that a declared route is actually served by a
// handler branch: same method, same handler reference when the route
// names one, and a path-compatible template.
func diagnoseRoute(route contract.DeclaredRoute, handlers []contract.HandlerRoute) []contract.Diagnostic {
	for _, h := range handlers {
		if h.Method != route.Method {
			continue
		}
		if route.TargetHandlerRef != "" && h.HandlerRef != route.TargetHandlerRef {
			continue
		}
		if contract.Compatible(route.Path, h.Path) {
			return nil
		}
	}

	msg := fmt.Sprintf("no handler branch serves declared route %s %s",
		route.Method, route.Path.String())
	if route.TargetHandlerRef != "" {
		msg += fmt.Sprintf(" (expected handler %q)", route.TargetHandlerRef)
	}
	return []contract.Diagnostic{{
		Severity:   contract.SeverityError,
		Code:       contract.CodeMissingLambdaHandler,
		Message:    msg,
		Primary:    route.Location,
		Suggestion: "add a dispatch branch for this method and path to the handler module",
	}}
}
