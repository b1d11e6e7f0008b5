package extract

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"apitrace/internal/contract"
	"apitrace/internal/logging"
)

// HandlerExtractor parses Python handler files and reconstructs routes
// from the conditional dispatch structure branching on the inbound
// method/path pair. It performs pattern extraction only; conditions are
// never evaluated.
type HandlerExtractor struct {
	parser *sitter.Parser
}

// NewHandlerExtractor creates the extractor with a Python parser.
func NewHandlerExtractor() *HandlerExtractor {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &HandlerExtractor{parser: parser}
}

// ExtractFile emits one HandlerRoute per dispatch branch. The handler
// reference is the file's module identity (basename without extension),
// the same identifier space route declarations use.
func (e *HandlerExtractor) ExtractFile(ctx context.Context, path string, content []byte) ([]contract.HandlerRoute, []contract.Diagnostic) {
	tree, err := e.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, []contract.Diagnostic{parseFailure(path, err)}
	}
	defer tree.Close()

	handlerRef := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var routes []contract.HandlerRoute
	e.walk(tree.RootNode(), path, handlerRef, "", content, &routes)
	logging.ExtractDebug("handlers: %s yielded %d dispatch branches", filepath.Base(path), len(routes))
	return routes, nil
}

// walk descends the AST looking for if/elif chains. inheritedMethod
// carries a method constraint from an enclosing branch so that nested
// dispatch (outer method check, inner path checks) is reconstructed.
func (e *HandlerExtractor) walk(node *sitter.Node, path, handlerRef string, inheritedMethod contract.Method, content []byte, routes *[]contract.HandlerRoute) {
	if node.Type() == "if_statement" {
		e.analyzeIf(node, path, handlerRef, inheritedMethod, content, routes)
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		e.walk(node.NamedChild(i), path, handlerRef, inheritedMethod, content, routes)
	}
}

// analyzeIf processes one if statement and its elif clauses as dispatch
// branches; the else clause carries no condition and emits nothing.
func (e *HandlerExtractor) analyzeIf(node *sitter.Node, path, handlerRef string, inheritedMethod contract.Method, content []byte, routes *[]contract.HandlerRoute) {
	cond := node.ChildByFieldName("condition")
	consequence := node.ChildByFieldName("consequence")
	e.analyzeBranch(cond, consequence, path, handlerRef, inheritedMethod, content, routes)

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "elif_clause":
			e.analyzeBranch(child.ChildByFieldName("condition"), child.ChildByFieldName("consequence"),
				path, handlerRef, inheritedMethod, content, routes)
		case "else_clause":
			if body := child.ChildByFieldName("body"); body != nil {
				e.walk(body, path, handlerRef, inheritedMethod, content, routes)
			}
		}
	}
}

// analyzeBranch inspects one branch condition for method and path checks.
func (e *HandlerExtractor) analyzeBranch(cond, consequence *sitter.Node, path, handlerRef string, inheritedMethod contract.Method, content []byte, routes *[]contract.HandlerRoute) {
	if cond == nil {
		return
	}
	condText := strings.TrimSpace(string(content[cond.StartByte():cond.EndByte()]))
	method := findMethodCheck(condText)
	if method == "" {
		method = inheritedMethod
	}
	tmpl, hasPath := findPathCheck(condText)

	switch {
	case method != "" && hasPath:
		*routes = append(*routes, contract.HandlerRoute{
			Endpoint: contract.Endpoint{
				Method:     method,
				Path:       tmpl,
				PathParams: tmpl.PathParams(),
				Location: contract.SourceLocation{
					File: path,
					Line: int(cond.StartPoint().Row) + 1,
				},
			},
			HandlerRef:            handlerRef,
			DispatchConditionText: condText,
		})
		if consequence != nil {
			e.walk(consequence, path, handlerRef, method, content, routes)
		}
	case method != "":
		// Method-only branch: descend looking for nested path checks.
		// Only when none exist is the branch itself the dispatch target,
		// modeled as matching any path.
		before := len(*routes)
		if consequence != nil {
			e.walk(consequence, path, handlerRef, method, content, routes)
		}
		if len(*routes) == before && findMethodCheck(condText) != "" {
			*routes = append(*routes, contract.HandlerRoute{
				Endpoint: contract.Endpoint{
					Method: method,
					Path:   contract.ParsePath("/**"),
					Location: contract.SourceLocation{
						File: path,
						Line: int(cond.StartPoint().Row) + 1,
					},
				},
				HandlerRef:            handlerRef,
				DispatchConditionText: condText,
			})
		}
	default:
		if consequence != nil {
			e.walk(consequence, path, handlerRef, inheritedMethod, content, routes)
		}
	}
}

var methodCheckRe = regexp.MustCompile(`(?i)method[A-Za-z_'"\][]*\s*==\s*['"](GET|POST|PUT|PATCH|DELETE|OPTIONS)['"]`)
var methodCheckRevRe = regexp.MustCompile(`(?i)['"](GET|POST|PUT|PATCH|DELETE|OPTIONS)['"]\s*==\s*[A-Za-z_.'"\][]*method`)

// findMethodCheck recovers the HTTP verb from an equality against a
// variable whose name mentions "method" (method, http_method, or an
// event["httpMethod"] subscript).
func findMethodCheck(cond string) contract.Method {
	if m := methodCheckRe.FindStringSubmatch(cond); m != nil {
		return contract.Method(strings.ToUpper(m[1]))
	}
	if m := methodCheckRevRe.FindStringSubmatch(cond); m != nil {
		return contract.Method(strings.ToUpper(m[1]))
	}
	return ""
}

var pathEqRe = regexp.MustCompile(`path[A-Za-z_'"\][]*\s*==\s*['"](/[^'"]*)['"]`)
var pathEqRevRe = regexp.MustCompile(`['"](/[^'"]*)['"]\s*==\s*[A-Za-z_.'"\][]*path`)
var pathInRe = regexp.MustCompile(`['"](/[^'"]*)['"]\s+in\s+[A-Za-z_.'"\][]*path`)
var pathPrefixRe = regexp.MustCompile(`\.startswith\(\s*['"](/[^'"]*)['"]`)

// findPathCheck recovers a path template from the condition. Exact
// equality yields an exact template. Substring ("in") and startswith
// checks yield templates with a trailing wildcard segment, explicitly
// modeling the imprecision of that matching style rather than guessing
// what the author intended. Membership tests require a path-named right
// operand; "/admin" in user_roles is not a path check.
func findPathCheck(cond string) (contract.PathTemplate, bool) {
	if m := pathEqRe.FindStringSubmatch(cond); m != nil {
		return contract.ParsePath(m[1]), true
	}
	if m := pathEqRevRe.FindStringSubmatch(cond); m != nil {
		return contract.ParsePath(m[1]), true
	}
	if m := pathInRe.FindStringSubmatch(cond); m != nil {
		return contract.ParsePath(strings.TrimSuffix(m[1], "/") + "/**"), true
	}
	if m := pathPrefixRe.FindStringSubmatch(cond); m != nil {
		return contract.ParsePath(strings.TrimSuffix(m[1], "/") + "/**"), true
	}
	return contract.PathTemplate{}, false
}
