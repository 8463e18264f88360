package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openjab/jab-cli/internal/output"
)

var rootCmd = &cobra.Command{
	Use:   "jab-cli",
	Short: "Read and interact with Java application UIs",
	Long:  "A CLI that lets AI agents read and drive Java Swing/AWT applications through the Java Access Bridge.",
}

// log is the process-wide logger, configured in the root pre-run. Commands
// log to stderr so stdout stays parseable.
var log = zap.NewNop()

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("format", "yaml", "Output format: yaml, json")
	rootCmd.PersistentFlags().Bool("pretty", false, "Pretty-print JSON output")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log bridge activity to stderr")
	rootCmd.PersistentFlags().String("dll", "", "Path to WindowsAccessBridge-64.dll (default: probe JAB_DLL, JAB_HOME, JAVA_HOME, JRE_HOME)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, _ := rootCmd.PersistentFlags().GetString("format")
		switch format {
		case "yaml":
			output.OutputFormat = output.FormatYAML
		case "json":
			output.OutputFormat = output.FormatJSON
		default:
			return fmt.Errorf("unsupported format: %s (use yaml or json)", format)
		}
		pretty, _ := rootCmd.PersistentFlags().GetBool("pretty")
		output.PrettyOutput = pretty

		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		if verbose {
			cfg := zap.NewDevelopmentConfig()
			cfg.OutputPaths = []string{"stderr"}
			l, err := cfg.Build()
			if err != nil {
				return err
			}
			log = l
		}
		return nil
	}
}
