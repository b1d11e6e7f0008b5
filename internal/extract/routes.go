package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/hcl"

	"apitrace/internal/config"
	"apitrace/internal/contract"
	"apitrace/internal/logging"
)

// RouteExtractor parses HCL route-declaration files. Every object or
// block that carries both a "path" and a "method" attribute is one
// declared route; the surrounding structure (locals list, module block,
// map of route sets) does not matter.
type RouteExtractor struct {
	refKeys []string
	parser  *sitter.Parser
}

// NewRouteExtractor creates the extractor with an HCL parser.
func NewRouteExtractor(cfg *config.Config) *RouteExtractor {
	parser := sitter.NewParser()
	parser.SetLanguage(hcl.GetLanguage())
	return &RouteExtractor{
		refKeys: cfg.HandlerRefKeys,
		parser:  parser,
	}
}

// ExtractFile emits DeclaredRoutes in source order. A declaration missing
// "method" or "path" becomes a MalformedRouteDeclaration diagnostic and is
// skipped; the rest of the file still parses.
func (e *RouteExtractor) ExtractFile(ctx context.Context, path string, content []byte) ([]contract.DeclaredRoute, []contract.Diagnostic) {
	tree, err := e.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, []contract.Diagnostic{parseFailure(path, err)}
	}
	defer tree.Close()

	var routes []contract.DeclaredRoute
	var diags []contract.Diagnostic
	e.walk(tree.RootNode(), path, content, &routes, &diags)
	logging.ExtractDebug("routes: %s yielded %d declarations (%d diagnostics)",
		filepath.Base(path), len(routes), len(diags))
	return routes, diags
}

func (e *RouteExtractor) walk(node *sitter.Node, path string, content []byte, routes *[]contract.DeclaredRoute, diags *[]contract.Diagnostic) {
	if node.Type() == "object" || node.Type() == "body" {
		pairs := collectPairs(node, content)
		if _, hasPath := pairs["path"]; hasPath {
			e.emit(node, pairs, path, content, routes, diags)
			return
		}
		if _, hasMethod := pairs["method"]; hasMethod {
			e.emit(node, pairs, path, content, routes, diags)
			return
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		e.walk(node.NamedChild(i), path, content, routes, diags)
	}
}

// emit builds one DeclaredRoute from a declaration's key/value pairs.
func (e *RouteExtractor) emit(node *sitter.Node, pairs map[string]*sitter.Node, path string, content []byte, routes *[]contract.DeclaredRoute, diags *[]contract.Diagnostic) {
	loc := contract.SourceLocation{File: path, Line: int(node.StartPoint().Row) + 1}

	pathNode, hasPath := pairs["path"]
	methodNode, hasMethod := pairs["method"]
	if !hasPath || !hasMethod {
		missing := "path"
		if hasPath {
			missing = "method"
		}
		*diags = append(*diags, contract.Diagnostic{
			Severity:   contract.SeverityError,
			Code:       contract.CodeMalformedRouteDeclaration,
			Message:    fmt.Sprintf("route declaration is missing required attribute %q", missing),
			Primary:    loc,
			Suggestion: fmt.Sprintf("add a %q attribute to the declaration", missing),
		})
		return
	}

	methodText := stringValue(methodNode, content)
	method, ok := contract.IsKnownMethod(methodText)
	if !ok {
		*diags = append(*diags, contract.Diagnostic{
			Severity:   contract.SeverityError,
			Code:       contract.CodeMalformedRouteDeclaration,
			Message:    fmt.Sprintf("route declaration uses unknown HTTP method %q", methodText),
			Primary:    loc,
			Suggestion: "use one of GET, POST, PUT, PATCH, DELETE, OPTIONS",
		})
		return
	}

	tmpl := contract.ParsePath(stringValue(pathNode, content))
	route := contract.DeclaredRoute{
		Endpoint: contract.Endpoint{
			Method:     method,
			Path:       tmpl,
			PathParams: tmpl.PathParams(),
			Location:   loc,
		},
	}
	for _, key := range e.refKeys {
		if n, ok := pairs[key]; ok {
			route.TargetHandlerRef = stringValue(n, content)
			break
		}
	}
	for _, key := range []string{"query", "query_params"} {
		if n, ok := pairs[key]; ok {
			for _, name := range stringListValue(n, content) {
				route.QueryParams = append(route.QueryParams, contract.Param{
					Name:         name,
					Required:     true,
					InferredType: contract.TypeUnknown,
				})
			}
			break
		}
	}
	*routes = append(*routes, route)
}

// collectPairs gathers the direct attribute and object_elem children of a
// body or object node into a key -> value-node map.
func collectPairs(node *sitter.Node, content []byte) map[string]*sitter.Node {
	pairs := make(map[string]*sitter.Node)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "attribute":
			if child.NamedChildCount() >= 2 {
				key := nodeText(child.NamedChild(0), content)
				pairs[key] = child.NamedChild(1)
			}
		case "object_elem":
			key := child.ChildByFieldName("key")
			val := child.ChildByFieldName("val")
			if key == nil && child.NamedChildCount() >= 2 {
				key = child.NamedChild(0)
				val = child.NamedChild(1)
			}
			if key != nil && val != nil {
				pairs[strings.Trim(nodeText(key, content), `"`)] = val
			}
		}
	}
	return pairs
}

func nodeText(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

// stringValue unwraps a quoted HCL expression to its literal text.
func stringValue(node *sitter.Node, content []byte) string {
	return strings.Trim(strings.TrimSpace(nodeText(node, content)), `"'`)
}

var quotedRe = regexp.MustCompile(`"([^"]*)"`)

// stringListValue recovers the string elements of a tuple expression such
// as ["order", "limit"]. Non-literal elements are ignored.
func stringListValue(node *sitter.Node, content []byte) []string {
	var out []string
	for _, m := range quotedRe.FindAllStringSubmatch(nodeText(node, content), -1) {
		out = append(out, m[1])
	}
	return out
}
