package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"apitrace/internal/pipeline"
	"apitrace/internal/report"
)

var exportFormat string

// exportCmd projects the declared-route corpus into a machine-readable
// contract document.
var exportCmd = &cobra.Command{
	Use:   "export [root]",
	Short: "Export the declared route table as a contract document",
	Long: `Extracts the gateway route table and writes it to stdout either as
an OpenAPI 3 document (--format openapi) or as the raw extracted records
(--format json). The route table is the authoritative contract between
the layers, so its projection is the natural export surface.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	root, cfg, err := resolveRootAndConfig(args)
	if err != nil {
		return err
	}

	routes, err := pipeline.ExtractRoutes(cmd.Context(), cfg, pipeline.Options{Root: root, SubPath: subPath})
	if err != nil {
		return err
	}
	logger.Info("Extracted route declarations", zap.Int("routes", len(routes)))

	switch exportFormat {
	case "openapi":
		doc := report.BuildOpenAPI(root, routes)
		out, err := report.RenderOpenAPI(doc)
		if err != nil {
			return err
		}
		fmt.Print(out)
	case "json":
		data, err := json.MarshalIndent(routes, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal routes: %w", err)
		}
		fmt.Println(string(data))
	default:
		return fmt.Errorf("unknown export format %q (want openapi or json)", exportFormat)
	}
	return nil
}
