// cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stridr-dev/stridr/internal/config"
	"github.com/stridr-dev/stridr/internal/observability"
)

var (
	cfgFile string
	// cfg is populated by the root command's PersistentPreRunE and read by
	// every subcommand.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "stridr",
	Short: "Stridr executes abstract web-UI test cases against a real browser.",
	Long: `Stridr interprets step-based test cases (navigate, click, input, verify,
conditionals, variables) and executes them against Chrome, resolving loosely
specified targets through layered locator heuristics and a semantic fallback.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "stridr"})
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Debug("Starting stridr.", zap.String("version", Version))
		return nil
	},
}

// Execute runs the root command under the given context.
func Execute(ctx context.Context) {
	defer observability.Sync()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command failed.", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
