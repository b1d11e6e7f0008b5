// Package pipeline wires the validation stages together: scan, extract,
// match, report. Each stage is a pure function over immutable inputs; a
// run holds no state beyond its own records and can be repeated at will.
package pipeline

import (
	"context"

	"apitrace/internal/config"
	"apitrace/internal/contract"
	"apitrace/internal/extract"
	"apitrace/internal/match"
	"apitrace/internal/report"
	"apitrace/internal/scan"
)

// Options select what a run looks at.
type Options struct {
	// Root is the project tree to validate. Required; an unreadable root
	// is the single fatal error of a run.
	Root string
	// SubPath optionally restricts the scan to a subtree of Root.
	SubPath string
}

// Run executes the full pipeline and returns the report envelope.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*report.Report, error) {
	cls, err := scan.NewScanner(cfg).Scan(opts.Root, opts.SubPath)
	if err != nil {
		return nil, err
	}

	res, err := extract.Run(ctx, cls, cfg)
	if err != nil {
		return nil, err
	}
	res.Diagnostics = append(res.Diagnostics, cls.Diagnostics...)

	diags := match.Diagnose(res)
	return report.New(opts.Root, diags), nil
}

// ExtractRoutes runs only the scanner and the route extractor, for the
// contract-export surface.
func ExtractRoutes(ctx context.Context, cfg *config.Config, opts Options) ([]contract.DeclaredRoute, error) {
	cls, err := scan.NewScanner(cfg).Scan(opts.Root, opts.SubPath)
	if err != nil {
		return nil, err
	}
	cls.Frontend = nil
	cls.Handlers = nil
	res, err := extract.Run(ctx, cls, cfg)
	if err != nil {
		return nil, err
	}
	return res.Routes, nil
}
