package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ndewijer/Household-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Household-Ledger-Backend/internal/service"
)

// TaxonomyOptions holds flags for the taxonomy commands.
type TaxonomyOptions struct {
	*RootOptions
	Assets string
	Items  string
}

// NewTaxonomyCommand creates the taxonomy command group.
func NewTaxonomyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TaxonomyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Manage asset and cash-flow item classifications",
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import classifications from CSV",
		Long: `Upsert asset and cash-flow item classifications from CSV files.

Asset files have the columns asset,type,category,subtype,account. Item files
have the columns item,flow_type,flow_category. Entries missing from the files
are kept.

Example:
  ledger taxonomy import --assets ./taxonomy/assets.csv --items ./taxonomy/items.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return importTaxonomy(cmd, opts)
		},
	}
	importCmd.Flags().StringVar(&opts.Assets, "assets", "", "asset classification CSV")
	importCmd.Flags().StringVar(&opts.Items, "items", "", "cash-flow item CSV")

	pendingCmd := &cobra.Command{
		Use:           "pending",
		Short:         "List assets waiting for a classification",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listPending(cmd, opts)
		},
	}

	cmd.AddCommand(importCmd, pendingCmd)
	return cmd
}

func importTaxonomy(cmd *cobra.Command, opts *TaxonomyOptions) error {
	if opts.Assets == "" && opts.Items == "" {
		return WrapExitError(ExitCommandError, "nothing to import", errors.New("pass --assets, --items or both"))
	}

	a, err := openApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := service.NewTaxonomyService(a.db, repository.NewTaxonomyRepository(a.db), a.log)
	result, err := svc.Import(cmd.Context(), opts.Assets, opts.Items)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to import taxonomy", err)
	}

	return newPrinter(opts.RootOptions, cmd.OutOrStdout()).print(result, func(w io.Writer) {
		fmt.Fprintf(w, "assets\t%d\n", result.Assets)
		fmt.Fprintf(w, "items\t%d\n", result.Items)
	})
}

func listPending(cmd *cobra.Command, opts *TaxonomyOptions) error {
	a, err := openApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := service.NewTaxonomyService(a.db, repository.NewTaxonomyRepository(a.db), a.log)
	pending, err := svc.Pending(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list pending assets", err)
	}

	return newPrinter(opts.RootOptions, cmd.OutOrStdout()).print(pending, func(w io.Writer) {
		if len(pending) == 0 {
			fmt.Fprintln(w, "no pending assets")
			return
		}
		fmt.Fprintln(w, "ASSET")
		for _, p := range pending {
			fmt.Fprintln(w, p.ID)
		}
	})
}
