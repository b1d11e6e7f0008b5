// Package extract turns the three scanned corpora into contract records.
// Each corpus has its own tree-sitter backed extractor; all three emit a
// unified endpoint representation so the matcher never needs to know which
// language a contract came from. Adding a fourth layer means adding a
// fourth extractor, not touching the matcher.
package extract

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"apitrace/internal/config"
	"apitrace/internal/contract"
	"apitrace/internal/logging"
	"apitrace/internal/scan"
)

// Result is the concatenated output of the three extractors. Record order
// is deterministic: files in sorted order, records in source order within
// a file, corpora in frontend/routes/handlers order.
type Result struct {
	Calls       []contract.FrontendCall
	Routes      []contract.DeclaredRoute
	Handlers    []contract.HandlerRoute
	Diagnostics []contract.Diagnostic
}

// Run executes the three extractors over a classification. They run on
// separate goroutines for throughput only; each works on a disjoint file
// set and returns an immutable slice, so the combined result is identical
// to sequential execution.
func Run(ctx context.Context, cls *scan.Classification, cfg *config.Config) (*Result, error) {
	fe := NewFrontendExtractor(cfg)
	re := NewRouteExtractor(cfg)
	he := NewHandlerExtractor()

	var (
		calls    []contract.FrontendCall
		routes   []contract.DeclaredRoute
		handlers []contract.HandlerRoute
		feDiags  []contract.Diagnostic
		reDiags  []contract.Diagnostic
		heDiags  []contract.Diagnostic
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, path := range cls.Frontend {
			content, diag := readSource(path)
			if diag != nil {
				feDiags = append(feDiags, *diag)
				continue
			}
			cs, ds := fe.ExtractFile(ctx, path, content)
			calls = append(calls, cs...)
			feDiags = append(feDiags, ds...)
		}
		return nil
	})
	g.Go(func() error {
		for _, path := range cls.Routes {
			content, diag := readSource(path)
			if diag != nil {
				reDiags = append(reDiags, *diag)
				continue
			}
			rs, ds := re.ExtractFile(ctx, path, content)
			routes = append(routes, rs...)
			reDiags = append(reDiags, ds...)
		}
		return nil
	})
	g.Go(func() error {
		for _, path := range cls.Handlers {
			content, diag := readSource(path)
			if diag != nil {
				heDiags = append(heDiags, *diag)
				continue
			}
			hs, ds := he.ExtractFile(ctx, path, content)
			handlers = append(handlers, hs...)
			heDiags = append(heDiags, ds...)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Calls: calls, Routes: routes, Handlers: handlers}
	res.Diagnostics = append(res.Diagnostics, feDiags...)
	res.Diagnostics = append(res.Diagnostics, reDiags...)
	res.Diagnostics = append(res.Diagnostics, heDiags...)

	logging.Extract("extracted %d calls, %d routes, %d handler branches (%d diagnostics)",
		len(res.Calls), len(res.Routes), len(res.Handlers), len(res.Diagnostics))
	return res, nil
}

// readSource reads one corpus file; an unreadable file is surfaced as a
// warning diagnostic and never aborts the run.
func readSource(path string) ([]byte, *contract.Diagnostic) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &contract.Diagnostic{
			Severity: contract.SeverityWarning,
			Code:     contract.CodeUnreadableSourceFile,
			Message:  fmt.Sprintf("could not read source file: %v", err),
			Primary:  contract.SourceLocation{File: path, Line: 1},
		}
	}
	return content, nil
}

// parseFailure builds the diagnostic for a file tree-sitter rejected.
func parseFailure(path string, err error) contract.Diagnostic {
	return contract.Diagnostic{
		Severity: contract.SeverityWarning,
		Code:     contract.CodeUnreadableSourceFile,
		Message:  fmt.Sprintf("could not parse source file: %v", err),
		Primary:  contract.SourceLocation{File: path, Line: 1},
	}
}
