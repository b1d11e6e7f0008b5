package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"apitrace/internal/contract"
)

// BuildOpenAPI projects the declared-route corpus into an OpenAPI 3
// document. The route table is the authoritative contract between the
// layers, so its projection is the natural machine-readable export.
func BuildOpenAPI(root string, routes []contract.DeclaredRoute) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "Declared API routes",
			Version: "0.0.0",
		},
		Paths: openapi3.NewPaths(),
	}
	if root != "" {
		doc.Info.Description = fmt.Sprintf("Route table extracted from %s", root)
	}

	sorted := append([]contract.DeclaredRoute(nil), routes...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Path.Canonical() != b.Path.Canonical() {
			return a.Path.Canonical() < b.Path.Canonical()
		}
		return a.Method < b.Method
	})

	for _, route := range sorted {
		path := openAPIPath(route.Path)
		item := doc.Paths.Value(path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(path, item)
		}

		op := openapi3.NewOperation()
		op.Summary = fmt.Sprintf("%s %s", route.Method, route.Path.String())
		if route.TargetHandlerRef != "" {
			op.OperationID = fmt.Sprintf("%s_%s", route.TargetHandlerRef, strings.ToLower(string(route.Method)))
		}
		op.Responses = openapi3.NewResponses()

		for i, name := range route.PathParams {
			if name == "" {
				name = fmt.Sprintf("param%d", i+1)
			}
			p := openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema())
			op.AddParameter(p)
		}
		for _, q := range route.QueryParams {
			p := openapi3.NewQueryParameter(q.Name).WithSchema(openapi3.NewStringSchema())
			p.Required = q.Required
			op.AddParameter(p)
		}

		item.SetOperation(string(route.Method), op)
	}
	return doc
}

// RenderOpenAPI serializes the document as indented JSON.
func RenderOpenAPI(doc *openapi3.T) (string, error) {
	data, err := doc.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal openapi document: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return "", fmt.Errorf("indent openapi document: %w", err)
	}
	out.WriteByte('\n')
	return out.String(), nil
}

// openAPIPath renders a template in OpenAPI placeholder syntax, inventing
// positional names for anonymous placeholders.
func openAPIPath(tmpl contract.PathTemplate) string {
	var b strings.Builder
	anon := 0
	for _, seg := range tmpl.Segments {
		b.WriteByte('/')
		switch seg.Kind {
		case contract.SegmentParam:
			name := seg.Param
			if name == "" {
				anon++
				name = fmt.Sprintf("param%d", anon)
			}
			b.WriteString("{" + name + "}")
		case contract.SegmentWildcard:
			b.WriteString("{proxy+}")
		default:
			b.WriteString(seg.Literal)
		}
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
