// Command playermap links Fantasy Premier League players to their understat
// records.
//
// Usage:
//
//	playermap collect --histories 20
//	playermap report --threshold 0.75
//	playermap add-mapping 328 1250
//	playermap mappings --manual
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/riskibarqy/fantasy-player-mapper/internal/app"
	"github.com/riskibarqy/fantasy-player-mapper/internal/config"
	"github.com/riskibarqy/fantasy-player-mapper/internal/platform/logging"
	"github.com/riskibarqy/fantasy-player-mapper/internal/usecase"
)

func main() {
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "playermap",
		Short:        "Map FPL players to understat records",
		SilenceUsage: true,
	}

	root.AddCommand(collectCmd())
	root.AddCommand(reportCmd())
	root.AddCommand(addMappingCmd())
	root.AddCommand(mappingsCmd())
	return root
}

type matchFlags struct {
	threshold        float64
	consumeAutomated bool
}

func (f *matchFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "minimum similarity for automated matches (default MATCH_THRESHOLD)")
	cmd.Flags().BoolVar(&f.consumeAutomated, "consume-automated", false, "let each secondary record satisfy one automated match only")
}

func (f *matchFlags) options(cmd *cobra.Command, a *app.App) usecase.MatchOptions {
	opts := a.MatchOptions()
	if cmd.Flags().Changed("threshold") {
		opts = opts.WithThreshold(f.threshold)
	}
	if cmd.Flags().Changed("consume-automated") {
		opts.ConsumeAutomatedMatches = f.consumeAutomated
	}
	return opts
}

func collectCmd() *cobra.Command {
	var (
		match      matchFlags
		histories  int
		dryRun     bool
		skipExport bool
	)
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch both sources, match players and store the mapping table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.Collection.Collect(ctx, usecase.CollectInput{
					Match:         match.options(cmd, a),
					HistorySample: histories,
					DryRun:        dryRun,
					SkipExport:    skipExport,
				})
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	match.register(cmd)
	cmd.Flags().IntVar(&histories, "histories", 0, "fetch element-summary history for the first N FPL players")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "skip writes to the record store")
	cmd.Flags().BoolVar(&skipExport, "skip-export", false, "skip review files")
	return cmd
}

func reportCmd() *cobra.Command {
	var match matchFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Match players and write review files without touching the record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.Collection.Collect(ctx, usecase.CollectInput{
					Match:  match.options(cmd, a),
					DryRun: true,
				})
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
	match.register(cmd)
	return cmd
}

func addMappingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-mapping <fpl-id> <understat-id>",
		Short: "Record a reviewed link in the manual mapping file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			primaryID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: fpl id %q is not numeric", usecase.ErrInvalidInput, args[0])
			}
			return runApp(cmd, func(ctx context.Context, a *app.App) error {
				err := a.Mapping.AddManualMapping(ctx, usecase.AddManualMappingInput{
					PrimaryID:   primaryID,
					SecondaryID: args[1],
				})
				switch {
				case errors.Is(err, usecase.ErrStorageUnavailable):
					// The link is not on disk; the next run will not see it.
					fmt.Fprintf(cmd.OutOrStdout(), "warning: mapped %d -> %s but could not save %s: %v\n", primaryID, args[1], a.Store.Path(), err)
					return nil
				case err != nil:
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "mapped %d -> %s in %s\n", primaryID, args[1], a.Store.Path())
				return nil
			})
		},
	}
}

func mappingsCmd() *cobra.Command {
	var manual bool
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Print the stored mapping table as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, func(ctx context.Context, a *app.App) error {
				var payload any
				if manual {
					payload = a.Store.Load()
				} else {
					items, err := a.Collection.ListMappings(ctx)
					if err != nil {
						return err
					}
					payload = items
				}

				raw, err := sonic.ConfigStd.MarshalIndent(payload, "", "  ")
				if err != nil {
					return fmt.Errorf("encode mappings: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&manual, "manual", false, "print the manual mapping overlay instead of the record store")
	return cmd
}

func runApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewJSON(cfg.LogLevel).With("service", cfg.ServiceName, "env", cfg.AppEnv)
	logging.SetDefault(logger)
	defer func() {
		_ = logger.Sync()
	}()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Warn("close app", "error", err)
		}
	}()

	return fn(ctx, a)
}

func printSummary(w io.Writer, out usecase.CollectResult) {
	result := out.Result
	fmt.Fprintf(w, "primary players:   %d\n", len(out.Primary.Records))
	fmt.Fprintf(w, "secondary players: %d\n", len(out.Secondary.Records))
	fmt.Fprintf(w, "mapped:            %d (manual %d, automated %d)\n",
		len(result.Mappings), out.Report.ManualCount, out.Report.AutomatedCount)
	fmt.Fprintf(w, "unmatched:         %d\n", len(result.Unmatched))
	fmt.Fprintf(w, "match rate:        %.1f%%\n", result.MatchRate()*100)
	if out.HistoriesFetched > 0 {
		fmt.Fprintf(w, "histories stored:  %d\n", out.HistoriesFetched)
	}
	if len(out.UnpairedTeams) > 0 {
		fmt.Fprintf(w, "unpaired teams:    %v\n", out.UnpairedTeams)
	}
	if out.LowMatchRate {
		fmt.Fprintln(w, "warning: match rate below LOW_MATCH_RATE_WARN, review the unmatched export")
	}

	files := append([]string(nil), out.Files...)
	sort.Strings(files)
	for _, file := range files {
		fmt.Fprintf(w, "wrote %s\n", file)
	}
}
