package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"apitrace/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	subPath    string
	outputMode string

	// Logger
	logger *zap.Logger

	// exitCode is set by validate when the report contains errors.
	// Warnings alone never affect exit status.
	exitCode int
)

var version = "0.3.0"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "apitrace",
	Short: "apitrace - cross-layer API contract validator",
	Long: `apitrace statically reconciles the API contracts declared by three
independent layers of a generated module: the frontend HTTP client
(TypeScript), the gateway route table (HCL), and the backend handlers
(Python Lambda dispatch).

It reports every inconsistency as a located diagnostic before the drift
reaches production. Nothing is executed, deployed or modified; the run
is a pure batch computation over the current file tree.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the apitrace version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("apitrace %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: .apitrace.yaml in the root)")

	validateCmd.Flags().StringVar(&subPath, "path", "", "Restrict the scan to a sub-path of the root")
	validateCmd.Flags().StringVarP(&outputMode, "output", "o", "", "Output mode: text, json, markdown or summary")

	exportCmd.Flags().StringVar(&exportFormat, "format", "openapi", "Export format: openapi or json")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
