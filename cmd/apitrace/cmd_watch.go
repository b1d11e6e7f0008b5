package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"apitrace/internal/pipeline"
	"apitrace/internal/report"
	"apitrace/internal/watch"
)

// watchCmd re-validates whenever the tree changes.
var watchCmd = &cobra.Command{
	Use:   "watch [root]",
	Short: "Re-run validation whenever the project tree changes",
	Long: `Watches the project tree and re-runs the full validation pipeline
after changes settle. Each rerun is a fresh, stateless invocation; the
summary of every run is printed as it completes.

Press Ctrl+C to stop.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, cfg, err := resolveRootAndConfig(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rerun := func(ctx context.Context) {
		rep, err := pipeline.Run(ctx, cfg, pipeline.Options{Root: root, SubPath: subPath})
		if err != nil {
			logger.Error("Validation run failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
			return
		}
		out, err := rep.Render(report.ModeSummary)
		if err != nil {
			logger.Error("Render failed", zap.Error(err))
			return
		}
		fmt.Print(out)
	}

	w, err := watch.New(root, rerun)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	logger.Info("Watching for changes", zap.String("root", root))
	fmt.Printf("watching %s (Ctrl+C to stop)\n", root)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	return nil
}
