package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"apitrace/internal/config"
	"apitrace/internal/logging"
	"apitrace/internal/pipeline"
	"apitrace/internal/report"
)

// validateCmd runs the full validation pipeline once.
var validateCmd = &cobra.Command{
	Use:   "validate [root]",
	Short: "Validate the API contracts of a project tree",
	Long: `Runs the full pipeline: classify sources into the three corpora,
extract the contract records each layer declares, reconcile them across
layers, and render the diagnostic report on stdout.

Exit status is 1 when the report contains errors; warnings alone exit 0.

Examples:
  apitrace validate .
  apitrace validate --path frontend/src --output json ~/code/project`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	root, cfg, err := resolveRootAndConfig(args)
	if err != nil {
		return err
	}

	mode, err := resolveMode(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	logger.Info("Validating project",
		zap.String("root", root),
		zap.String("sub_path", subPath),
		zap.String("output", string(mode)))

	rep, err := pipeline.Run(ctx, cfg, pipeline.Options{Root: root, SubPath: subPath})
	if err != nil {
		return err
	}

	out, err := rep.Render(mode)
	if err != nil {
		return err
	}
	fmt.Print(out)

	if rep.HasErrors() {
		exitCode = 1
	}
	logger.Info("Validation complete",
		zap.Int("errors", rep.Summary.ErrorCount),
		zap.Int("warnings", rep.Summary.WarningCount))
	return nil
}

// resolveRootAndConfig turns the positional root argument into an
// absolute path and loads the configuration, either from --config or
// from the root's own .apitrace.yaml.
func resolveRootAndConfig(args []string) (string, *config.Config, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", nil, fmt.Errorf("resolve root path: %w", err)
	}

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromRoot(abs)
	}
	if err != nil {
		return "", nil, err
	}

	if err := logging.Initialize(abs, cfg.Debug || verbose); err != nil {
		return "", nil, err
	}
	return abs, cfg, nil
}

// resolveMode picks the output mode from the flag, falling back to the
// configured default.
func resolveMode(cfg *config.Config) (report.Mode, error) {
	selected := outputMode
	if selected == "" {
		selected = cfg.Output
	}
	return report.ParseMode(selected)
}
