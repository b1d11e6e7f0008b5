package match

import (
	"testing"

	"apitrace/internal/contract"
	"apitrace/internal/extract"
)

func call(method contract.Method, path string, line int, query ...contract.Param) contract.FrontendCall {
	tmpl := contract.ParsePath(path)
	return contract.FrontendCall{
		Endpoint: contract.Endpoint{
			Method:      method,
			Path:        tmpl,
			PathParams:  tmpl.PathParams(),
			QueryParams: query,
			Location:    contract.SourceLocation{File: "web/src/lib/api/kb.ts", Line: line},
		},
	}
}

func route(method contract.Method, path, handler string, line int, query ...contract.Param) contract.DeclaredRoute {
	tmpl := contract.ParsePath(path)
	return contract.DeclaredRoute{
		Endpoint: contract.Endpoint{
			Method:      method,
			Path:        tmpl,
			PathParams:  tmpl.PathParams(),
			QueryParams: query,
			Location:    contract.SourceLocation{File: "infra/routes.tf", Line: line},
		},
		TargetHandlerRef: handler,
	}
}

func handler(method contract.Method, path, ref string, line int) contract.HandlerRoute {
	tmpl := contract.ParsePath(path)
	return contract.HandlerRoute{
		Endpoint: contract.Endpoint{
			Method:     method,
			Path:       tmpl,
			PathParams: tmpl.PathParams(),
			Location:   contract.SourceLocation{File: "backend/handlers/" + ref + ".py", Line: line},
		},
		HandlerRef: ref,
	}
}

func codes(diags []contract.Diagnostic) map[contract.Code]int {
	out := make(map[contract.Code]int)
	for _, d := range diags {
		out[d.Code]++
	}
	return out
}

func TestDiagnoseCleanStack(t *testing.T) {
	res := &extract.Result{
		Calls:    []contract.FrontendCall{call(contract.MethodGet, "/orgs/{orgId}/kb/bases", 12)},
		Routes:   []contract.DeclaredRoute{route(contract.MethodGet, "/orgs/{orgId}/kb/bases", "kb_bases", 4)},
		Handlers: []contract.HandlerRoute{handler(contract.MethodGet, "/kb/bases/**", "kb_bases", 8)},
	}
	diags := Diagnose(res)
	if len(diags) != 0 {
		t.Errorf("clean stack should be silent, got %+v", diags)
	}
}

func TestDiagnoseRouteNotFound(t *testing.T) {
	res := &extract.Result{
		Calls:  []contract.FrontendCall{call(contract.MethodPost, "/orgs/{orgId}/kb/bases", 20)},
		Routes: []contract.DeclaredRoute{route(contract.MethodGet, "/orgs/{orgId}/kb/bases", "kb_bases", 4)},
		Handlers: []contract.HandlerRoute{
			handler(contract.MethodGet, "/kb/bases/**", "kb_bases", 8),
		},
	}
	diags := Diagnose(res)
	got := codes(diags)
	if got[contract.CodeRouteNotFound] != 1 {
		t.Errorf("want one RouteNotFound, got %+v", diags)
	}
	for _, d := range diags {
		if d.Code == contract.CodeRouteNotFound {
			if d.Severity != contract.SeverityError {
				t.Errorf("RouteNotFound severity = %s", d.Severity)
			}
			if d.Primary.File != "web/src/lib/api/kb.ts" || d.Primary.Line != 20 {
				t.Errorf("RouteNotFound location = %+v", d.Primary)
			}
		}
	}
}

func TestDiagnoseRenamedQueryParam(t *testing.T) {
	res := &extract.Result{
		Calls: []contract.FrontendCall{call(contract.MethodGet, "/orgs/{orgId}/kb/bases", 12,
			contract.Param{Name: "orderBy", Required: true, InferredType: "string"})},
		Routes: []contract.DeclaredRoute{route(contract.MethodGet, "/orgs/{orgId}/kb/bases", "kb_bases", 4,
			contract.Param{Name: "order_by", Required: true, InferredType: contract.TypeUnknown})},
		Handlers: []contract.HandlerRoute{handler(contract.MethodGet, "/kb/bases/**", "kb_bases", 8)},
	}
	diags := Diagnose(res)
	var mismatches []contract.Diagnostic
	for _, d := range diags {
		if d.Code == contract.CodeParameterMismatch {
			mismatches = append(mismatches, d)
		}
	}
	// One drifted name must yield one diagnostic naming both sides, not a
	// pair of extra/missing findings.
	if len(mismatches) != 1 {
		t.Fatalf("want one ParameterMismatch, got %+v", mismatches)
	}
	d := mismatches[0]
	if d.Severity != contract.SeverityError {
		t.Errorf("severity = %s", d.Severity)
	}
	want := `frontend sends query parameter "orderBy" but the matched route declares "order_by"`
	if d.Message != want {
		t.Errorf("message = %q, want %q", d.Message, want)
	}
	if len(d.Related) != 1 || d.Related[0].File != "infra/routes.tf" {
		t.Errorf("related = %+v", d.Related)
	}
}

func TestDiagnoseUndeclaredRouteMakesNoParamClaim(t *testing.T) {
	res := &extract.Result{
		Calls: []contract.FrontendCall{call(contract.MethodGet, "/orgs", 3,
			contract.Param{Name: "limit", Required: true, InferredType: "number"})},
		Routes:   []contract.DeclaredRoute{route(contract.MethodGet, "/orgs", "orgs", 2)},
		Handlers: []contract.HandlerRoute{handler(contract.MethodGet, "/orgs", "orgs", 5)},
	}
	diags := Diagnose(res)
	if got := codes(diags)[contract.CodeParameterMismatch]; got != 0 {
		t.Errorf("route with no declared params must not produce mismatches, got %+v", diags)
	}
}

func TestDiagnoseMissingLambdaHandler(t *testing.T) {
	res := &extract.Result{
		Calls:  []contract.FrontendCall{call(contract.MethodDelete, "/orgs/{orgId}/kb/bases/{baseId}", 30)},
		Routes: []contract.DeclaredRoute{route(contract.MethodDelete, "/orgs/{orgId}/kb/bases/{baseId}", "kb_bases", 9)},
		Handlers: []contract.HandlerRoute{
			handler(contract.MethodGet, "/kb/bases/**", "kb_bases", 8),
		},
	}
	diags := Diagnose(res)
	var found *contract.Diagnostic
	for i, d := range diags {
		if d.Code == contract.CodeMissingLambdaHandler {
			found = &diags[i]
		}
	}
	if found == nil {
		t.Fatalf("want MissingLambdaHandler, got %+v", diags)
	}
	if found.Primary.File != "infra/routes.tf" || found.Primary.Line != 9 {
		t.Errorf("location = %+v, want the route declaration", found.Primary)
	}
}

func TestDiagnoseHandlerRefMustAgree(t *testing.T) {
	// A path-compatible branch in the wrong handler module does not count.
	res := &extract.Result{
		Routes:   []contract.DeclaredRoute{route(contract.MethodGet, "/docs", "docs_api", 2)},
		Handlers: []contract.HandlerRoute{handler(contract.MethodGet, "/docs", "other_api", 5)},
	}
	diags := Diagnose(res)
	if got := codes(diags)[contract.CodeMissingLambdaHandler]; got != 1 {
		t.Errorf("want MissingLambdaHandler for wrong handler ref, got %+v", diags)
	}
}

func TestDiagnoseAmbiguousRouteMatch(t *testing.T) {
	res := &extract.Result{
		Calls: []contract.FrontendCall{call(contract.MethodGet, "/orgs/{orgId}/items", 7)},
		Routes: []contract.DeclaredRoute{
			route(contract.MethodGet, "/orgs/{orgId}/items", "items_a", 2),
			route(contract.MethodGet, "/orgs/{teamId}/items", "items_b", 6),
		},
		Handlers: []contract.HandlerRoute{
			handler(contract.MethodGet, "/items/**", "items_a", 3),
			handler(contract.MethodGet, "/items/**", "items_b", 3),
		},
	}
	diags := Diagnose(res)
	var amb *contract.Diagnostic
	for i, d := range diags {
		if d.Code == contract.CodeAmbiguousRouteMatch {
			amb = &diags[i]
		}
	}
	if amb == nil {
		t.Fatalf("want AmbiguousRouteMatch, got %+v", diags)
	}
	if len(amb.Related) != 2 {
		t.Errorf("related = %+v, want both declarations", amb.Related)
	}
	// Both contenders count as claimed, so neither is also orphaned.
	if got := codes(diags)[contract.CodeOrphanedRoute]; got != 0 {
		t.Errorf("ambiguity contenders must not be reported as orphans, got %+v", diags)
	}
}

func TestDiagnoseWildcardTieBreak(t *testing.T) {
	// An exact declaration and a wildcard-suffix declaration both match;
	// the exact one wins and no ambiguity is reported.
	res := &extract.Result{
		Calls: []contract.FrontendCall{call(contract.MethodGet, "/kb/bases", 7)},
		Routes: []contract.DeclaredRoute{
			route(contract.MethodGet, "/kb/bases", "kb", 2),
			route(contract.MethodGet, "/kb/**", "kb", 6),
		},
		Handlers: []contract.HandlerRoute{handler(contract.MethodGet, "/kb/**", "kb", 3)},
	}
	diags := Diagnose(res)
	got := codes(diags)
	if got[contract.CodeAmbiguousRouteMatch] != 0 {
		t.Errorf("tie-break should resolve the match, got %+v", diags)
	}
	// The wildcard declaration had no caller of its own.
	if got[contract.CodeOrphanedRoute] != 1 {
		t.Errorf("want one OrphanedRoute for the losing declaration, got %+v", diags)
	}
}

func TestDiagnoseOrphanedRoute(t *testing.T) {
	res := &extract.Result{
		Calls: []contract.FrontendCall{call(contract.MethodGet, "/orgs", 3)},
		Routes: []contract.DeclaredRoute{
			route(contract.MethodGet, "/orgs", "orgs", 2),
			route(contract.MethodPost, "/internal/sync", "sync", 8),
		},
		Handlers: []contract.HandlerRoute{
			handler(contract.MethodGet, "/orgs", "orgs", 5),
			handler(contract.MethodPost, "/internal/sync", "sync", 5),
		},
	}
	diags := Diagnose(res)
	got := codes(diags)
	if got[contract.CodeOrphanedRoute] != 1 {
		t.Fatalf("want one OrphanedRoute, got %+v", diags)
	}
	for _, d := range diags {
		if d.Code == contract.CodeOrphanedRoute && d.Severity != contract.SeverityWarning {
			t.Errorf("OrphanedRoute must be a warning, got %s", d.Severity)
		}
	}
}

func TestDiagnosePathParamNamingMismatch(t *testing.T) {
	res := &extract.Result{
		Calls:  []contract.FrontendCall{call(contract.MethodGet, "/orgs/{orgId}/kb", 3)},
		Routes: []contract.DeclaredRoute{route(contract.MethodGet, "/orgs/{org_id}/kb", "kb", 2)},
		Handlers: []contract.HandlerRoute{
			handler(contract.MethodGet, "/kb/**", "kb", 5),
		},
	}
	diags := Diagnose(res)
	var found *contract.Diagnostic
	for i, d := range diags {
		if d.Code == contract.CodePathParamNamingMismatch {
			found = &diags[i]
		}
	}
	if found == nil {
		t.Fatalf("want PathParamNamingMismatch, got %+v", diags)
	}
	if found.Severity != contract.SeverityWarning {
		t.Errorf("severity = %s, want warning", found.Severity)
	}
}

func TestDiagnoseEmptyCorpora(t *testing.T) {
	diags := Diagnose(&extract.Result{})
	if len(diags) != 1 || diags[0].Code != contract.CodeNoUsableRecords {
		t.Fatalf("diags = %+v, want single NoUsableRecords", diags)
	}
	if diags[0].Severity != contract.SeverityWarning {
		t.Errorf("severity = %s, want warning", diags[0].Severity)
	}
}

func TestDiagnoseCarriesExtractorDiagnostics(t *testing.T) {
	parseDiag := contract.Diagnostic{
		Severity: contract.SeverityWarning,
		Code:     contract.CodeUnreadableSourceFile,
		Message:  "could not read source file",
		Primary:  contract.SourceLocation{File: "web/src/lib/api/broken.ts", Line: 1},
	}
	res := &extract.Result{
		Calls:       []contract.FrontendCall{call(contract.MethodGet, "/orgs", 3)},
		Routes:      []contract.DeclaredRoute{route(contract.MethodGet, "/orgs", "orgs", 2)},
		Handlers:    []contract.HandlerRoute{handler(contract.MethodGet, "/orgs", "orgs", 5)},
		Diagnostics: []contract.Diagnostic{parseDiag},
	}
	diags := Diagnose(res)
	if len(diags) != 1 || diags[0].Code != contract.CodeUnreadableSourceFile {
		t.Errorf("extractor diagnostics must be carried through, got %+v", diags)
	}
}

func TestDiagnoseSortedOutput(t *testing.T) {
	res := &extract.Result{
		Calls: []contract.FrontendCall{
			call(contract.MethodGet, "/zzz", 50),
			call(contract.MethodGet, "/aaa", 10),
		},
	}
	diags := Diagnose(res)
	if len(diags) != 2 {
		t.Fatalf("diags = %+v, want two RouteNotFound", diags)
	}
	if diags[0].Primary.Line != 10 || diags[1].Primary.Line != 50 {
		t.Errorf("diagnostics not sorted by location: %+v", diags)
	}
}
