package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Apply pending database migrations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			result := map[string]any{"database": a.cfg.Database.Path, "schemaVersion": a.version}
			return newPrinter(rootOpts, cmd.OutOrStdout()).print(result, func(w io.Writer) {
				fmt.Fprintf(w, "database\t%s\n", a.cfg.Database.Path)
				fmt.Fprintf(w, "schema version\t%d\n", a.version)
			})
		},
	}
}
