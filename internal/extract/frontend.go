package extract

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"apitrace/internal/config"
	"apitrace/internal/contract"
	"apitrace/internal/logging"
)

// FrontendExtractor scans the TypeScript corpus for authenticated-client
// call sites of the shape <client>.<verb>(urlTemplate[, body]).
type FrontendExtractor struct {
	clients   map[string]bool
	tsParser  *sitter.Parser
	tsxParser *sitter.Parser
	jsParser  *sitter.Parser
}

// verbMethods maps client method names to HTTP verbs. "del" is the common
// alias generated clients use because "delete" is reserved in some styles.
var verbMethods = map[string]contract.Method{
	"get":     contract.MethodGet,
	"post":    contract.MethodPost,
	"put":     contract.MethodPut,
	"patch":   contract.MethodPatch,
	"delete":  contract.MethodDelete,
	"del":     contract.MethodDelete,
	"options": contract.MethodOptions,
}

// NewFrontendExtractor creates the extractor with parsers for the
// TypeScript, TSX and JavaScript dialects.
func NewFrontendExtractor(cfg *config.Config) *FrontendExtractor {
	clients := make(map[string]bool, len(cfg.ClientIdentifiers))
	for _, id := range cfg.ClientIdentifiers {
		clients[id] = true
	}
	tsParser := sitter.NewParser()
	tsParser.SetLanguage(typescript.GetLanguage())
	tsxParser := sitter.NewParser()
	tsxParser.SetLanguage(tsx.GetLanguage())
	jsParser := sitter.NewParser()
	jsParser.SetLanguage(javascript.GetLanguage())
	return &FrontendExtractor{
		clients:   clients,
		tsParser:  tsParser,
		tsxParser: tsxParser,
		jsParser:  jsParser,
	}
}

// ExtractFile emits one FrontendCall per matching call site, in source
// order. Call sites are never deduplicated: list and detail variants of
// the same logical endpoint may evolve independently.
func (e *FrontendExtractor) ExtractFile(ctx context.Context, path string, content []byte) ([]contract.FrontendCall, []contract.Diagnostic) {
	parser := e.tsParser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		parser = e.tsxParser
	case ".js", ".jsx", ".mjs", ".cjs":
		parser = e.jsParser
	}

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, []contract.Diagnostic{parseFailure(path, err)}
	}
	defer tree.Close()

	var calls []contract.FrontendCall
	e.walk(tree.RootNode(), path, content, &calls)
	logging.ExtractDebug("frontend: %s yielded %d call sites", filepath.Base(path), len(calls))
	return calls, nil
}

func (e *FrontendExtractor) walk(node *sitter.Node, path string, content []byte, calls *[]contract.FrontendCall) {
	if node.Type() == "call_expression" {
		if call := e.parseCall(node, path, content); call != nil {
			*calls = append(*calls, *call)
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		e.walk(node.NamedChild(i), path, content, calls)
	}
}

// parseCall recognizes <client>.<verb>(url[, body]) and builds the record.
func (e *FrontendExtractor) parseCall(node *sitter.Node, path string, content []byte) *contract.FrontendCall {
	text := func(n *sitter.Node) string {
		return string(content[n.StartByte():n.EndByte()])
	}

	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return nil
	}
	property := fn.ChildByFieldName("property")
	object := fn.ChildByFieldName("object")
	if property == nil || object == nil {
		return nil
	}
	method, ok := verbMethods[strings.ToLower(text(property))]
	if !ok {
		return nil
	}
	if !e.isClient(object, text) {
		return nil
	}

	args := node.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return nil
	}
	urlNode := args.NamedChild(0)
	raw, ok := literalURL(urlNode, text)
	if !ok {
		// Dynamically constructed URL; best-effort static matching cannot
		// follow it, so the call site is skipped rather than guessed at.
		logging.ExtractDebug("frontend: skipping dynamic URL at %s:%d", path, int(node.StartPoint().Row)+1)
		return nil
	}

	pathPart, queryPart := splitQuery(raw)
	tmpl := contract.ParsePath(pathPart)

	call := &contract.FrontendCall{
		Endpoint: contract.Endpoint{
			Method:      method,
			Path:        tmpl,
			PathParams:  tmpl.PathParams(),
			QueryParams: parseQueryLiteral(queryPart),
			Location: contract.SourceLocation{
				File: path,
				Line: int(node.StartPoint().Row) + 1,
			},
		},
		CallSiteExpression: text(node),
	}

	if ta := node.ChildByFieldName("type_arguments"); ta != nil {
		call.ResponseShape = strings.Trim(text(ta), "<>")
	}
	if int(args.NamedChildCount()) > 1 {
		call.BodyFields = parseBodyObject(args.NamedChild(1), text)
	}
	return call
}

// isClient checks whether the call receiver is a configured client
// identifier, looking at the rightmost name of the receiver chain so that
// both apiClient.get and ctx.apiClient.get match.
func (e *FrontendExtractor) isClient(object *sitter.Node, text func(*sitter.Node) string) bool {
	switch object.Type() {
	case "identifier":
		return e.clients[text(object)]
	case "member_expression":
		if prop := object.ChildByFieldName("property"); prop != nil {
			return e.clients[text(prop)]
		}
	}
	return false
}

var interpolationRe = regexp.MustCompile(`\$\{([^}]*)\}`)
var identifierRe = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*`)

// literalURL recovers a URL template from a string or template literal.
// Interpolations become named placeholders: the placeholder name is the
// rightmost identifier of the interpolated expression, so ${props.orgId}
// and ${encodeURIComponent(orgId)} both yield {orgId}.
func literalURL(node *sitter.Node, text func(*sitter.Node) string) (string, bool) {
	switch node.Type() {
	case "string":
		return strings.Trim(text(node), `'"`), true
	case "template_string":
		raw := strings.Trim(text(node), "`")
		out := interpolationRe.ReplaceAllStringFunc(raw, func(m string) string {
			inner := interpolationRe.FindStringSubmatch(m)[1]
			ids := identifierRe.FindAllString(inner, -1)
			if len(ids) == 0 {
				return "{param}"
			}
			return "{" + ids[len(ids)-1] + "}"
		})
		return out, true
	}
	return "", false
}

// splitQuery separates a URL template into path and query-string parts.
func splitQuery(raw string) (string, string) {
	if idx := strings.Index(raw, "?"); idx >= 0 {
		return raw[:idx], raw[idx+1:]
	}
	return raw, ""
}

// parseQueryLiteral extracts parameter contracts from a literal query
// suffix such as "limit=20&order_by={order}". Types are recovered only
// from literal values; interpolated values stay unknown.
func parseQueryLiteral(query string) []contract.Param {
	if query == "" {
		return nil
	}
	var params []contract.Param
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		name, value := pair, ""
		if idx := strings.Index(pair, "="); idx >= 0 {
			name, value = pair[:idx], pair[idx+1:]
		}
		if name == "" {
			continue
		}
		params = append(params, contract.Param{
			Name:         name,
			Required:     true,
			InferredType: inferQueryType(value),
		})
	}
	return params
}

var numberRe = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

func inferQueryType(value string) string {
	switch {
	case value == "":
		return contract.TypeUnknown
	case strings.HasPrefix(value, "{"):
		return contract.TypeUnknown
	case numberRe.MatchString(value):
		return "number"
	case value == "true" || value == "false":
		return "boolean"
	default:
		return "string"
	}
}

// parseBodyObject reads field contracts off an object-literal body
// argument. Only literal annotations are trusted; everything else is
// recorded as unknown rather than inferred.
func parseBodyObject(node *sitter.Node, text func(*sitter.Node) string) []contract.Param {
	if node.Type() != "object" {
		return nil
	}
	var fields []contract.Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "pair":
			key := child.ChildByFieldName("key")
			value := child.ChildByFieldName("value")
			if key == nil {
				continue
			}
			fields = append(fields, contract.Param{
				Name:         strings.Trim(text(key), `'"`),
				Required:     true,
				InferredType: inferValueType(value),
			})
		case "shorthand_property_identifier":
			fields = append(fields, contract.Param{
				Name:         text(child),
				Required:     true,
				InferredType: contract.TypeUnknown,
			})
		case "spread_element":
			// Spread bodies cannot be resolved statically; their fields
			// are neither claimed nor denied.
		}
	}
	return fields
}

func inferValueType(node *sitter.Node) string {
	if node == nil {
		return contract.TypeUnknown
	}
	switch node.Type() {
	case "string", "template_string":
		return "string"
	case "number":
		return "number"
	case "true", "false":
		return "boolean"
	case "object":
		return "object"
	case "array":
		return "array"
	case "null":
		return "null"
	default:
		return contract.TypeUnknown
	}
}
