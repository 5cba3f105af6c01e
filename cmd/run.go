// cmd/run.go
package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stridr-dev/stridr/api/schemas"
	"github.com/stridr-dev/stridr/internal/browser/session"
	"github.com/stridr-dev/stridr/internal/engine/interpreter"
	"github.com/stridr-dev/stridr/internal/engine/resolver"
	"github.com/stridr-dev/stridr/internal/observability"
	"github.com/stridr-dev/stridr/internal/reporting"
)

var (
	runHeadless bool
	runHeaded   bool
	runSlowMoMs int
	runEmail    string
	runPassword string
	runOutput   string
	runTimeout  time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <test-file>",
	Short: "Execute a test case file against a browser.",
	Long: `Run loads a YAML or JSON test case, executes every step against a fresh
browser session, and writes a JSON report plus failure screenshots to the
output directory. The process exits non-zero when the run fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		ctx := cmd.Context()

		tc, err := schemas.LoadTestCase(args[0])
		if err != nil {
			return err
		}

		browserCfg := cfg.Browser
		browserCfg.Headless = runHeadless && !runHeaded

		sess, err := session.NewSession(ctx, browserCfg, logger)
		if err != nil {
			return err
		}
		defer sess.Close()

		opts := schemas.RunOptions{
			RunID:         uuid.New().String(),
			Headless:      browserCfg.Headless,
			SlowMoMs:      runSlowMoMs,
			Email:         runEmail,
			Password:      runPassword,
			OutputDir:     runOutput,
			GlobalTimeout: runTimeout,
		}
		reporter := reporting.NewReporter(logger, opts.OutputDir, opts.RunID)

		it := interpreter.New(logger, sess, resolver.New(logger), cfg.Engine, reporter)
		result, err := it.Run(ctx, tc, opts)
		if err != nil {
			return fmt.Errorf("run aborted: %w", err)
		}

		// Persist the report and the history record concurrently; neither
		// depends on the other.
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			_, err := reporter.WriteReport(result)
			return err
		})
		if cfg.History.Enabled {
			g.Go(func() error {
				hist, err := reporting.OpenHistory(logger, cfg.History.Path)
				if err != nil {
					return err
				}
				defer hist.Close()
				return hist.Record(gctx, result)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("failed to persist run artifacts: %w", err)
		}

		logger.Info("Run finished.",
			zap.String("run_id", result.RunID),
			zap.String("status", string(result.Status)),
			zap.String("artifacts", reporter.Dir()))

		if !result.Passed() {
			return fmt.Errorf("test case %q failed; see %s", tc.Name, reporter.Dir())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runHeadless, "headless", true, "run the browser headless")
	runCmd.Flags().BoolVar(&runHeaded, "headed", false, "run with a visible browser window (overrides --headless)")
	runCmd.Flags().IntVar(&runSlowMoMs, "slow-mo", 0, "pause this many milliseconds before every browser action")
	runCmd.Flags().StringVar(&runEmail, "email", "", "value pre-seeded into the ${email} variable")
	runCmd.Flags().StringVar(&runPassword, "password", "", "value pre-seeded into the ${password} variable")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "stridr-runs", "directory for reports and screenshots")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "overall run timeout (0 disables)")
}
