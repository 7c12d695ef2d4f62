package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ndewijer/Household-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Household-Ledger-Backend/internal/model"
	"github.com/ndewijer/Household-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Household-Ledger-Backend/internal/service"
)

// RunOptions holds flags for the run command. Empty paths keep the
// configured values.
type RunOptions struct {
	*RootOptions
	Policy       string
	Snapshots    string
	Transactions string
	Offsets      string
	Output       string
	NoExport     bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ledger pipeline once",
		Long: `Run the full pipeline once: fill the asset ledger, build the cash-flow
ledger, reconcile profit, simulate the target ledger, materialize the cache
tables, then publish everything in one transaction and export the caches as CSV.

Assets missing from the taxonomy are registered as pending and the run exits
with code 3 until they are classified with "ledger taxonomy import".

Example:
  ledger run
  ledger run --snapshots ./feed/snapshots.csv --output ./out --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Policy, "policy", "", "policy YAML file (default from POLICY_PATH)")
	cmd.Flags().StringVar(&opts.Snapshots, "snapshots", "", "snapshot feed CSV (default from SNAPSHOT_FEED)")
	cmd.Flags().StringVar(&opts.Transactions, "transactions", "", "transaction feed CSV (default from TRANSACTION_FEED)")
	cmd.Flags().StringVar(&opts.Offsets, "offsets", "", "unrealized offsets CSV (default from OFFSETS_PATH)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "CSV export directory (default from OUTPUT_DIR)")
	cmd.Flags().BoolVar(&opts.NoExport, "no-export", false, "skip the CSV export")

	return cmd
}

func runPipeline(cmd *cobra.Command, opts *RunOptions) error {
	a, err := openApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	pc := a.cfg.Pipeline
	override(&pc.PolicyPath, opts.Policy)
	override(&pc.SnapshotFeed, opts.Snapshots)
	override(&pc.TransactionFeed, opts.Transactions)
	override(&pc.OffsetsPath, opts.Offsets)
	override(&pc.OutputDir, opts.Output)
	if opts.NoExport {
		pc.OutputDir = ""
	}

	svc := service.NewPipelineService(
		a.db,
		repository.NewTaxonomyRepository(a.db),
		repository.NewLedgerRepository(a.db),
		repository.NewCacheRepository(a.db),
		repository.NewRunRepository(a.db),
		service.NewFileLoader(pc),
		pc.OutputDir,
		a.log,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := svc.Run(ctx, service.TriggerCLI)
	if err != nil {
		if errors.Is(err, apperrors.ErrContinuity) {
			if summary != nil && len(summary.NewlyPending) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "registered %d unclassified asset(s): %s\n",
					len(summary.NewlyPending), strings.Join(summary.NewlyPending, ", "))
			}
			return WrapExitError(ExitPending, "run blocked by unclassified assets", err)
		}
		if apperrors.StageOf(err) == service.StageLoad {
			return WrapExitError(ExitCommandError, "failed to load inputs", err)
		}
		return WrapExitError(ExitFailure, "pipeline run failed", err)
	}

	return newPrinter(opts.RootOptions, cmd.OutOrStdout()).print(summary, func(w io.Writer) {
		printSummary(w, summary)
	})
}

func printSummary(w io.Writer, s *model.RunSummary) {
	fmt.Fprintf(w, "run\t%s\n", s.RunID)
	fmt.Fprintf(w, "latest date\t%s\n", s.LatestDate)
	fmt.Fprintf(w, "asset ledger\t%d rows\n", s.LedgerRows)
	fmt.Fprintf(w, "cash-flow ledger\t%d rows\n", s.CashFlowRows)
	fmt.Fprintf(w, "target ledger\t%d rows\n", s.TargetRows)

	names := make([]string, 0, len(s.CacheRows))
	for name := range s.CacheRows {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%d rows\n", name, s.CacheRows[name])
	}
	if len(s.ExportedTables) > 0 {
		fmt.Fprintf(w, "exported\t%s\n", strings.Join(s.ExportedTables, ", "))
	}
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
