package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command that applies the embedded
// schema for the configured dialect.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := rootOpts.openCore()
			if err != nil {
				return err
			}
			defer core.Close()
			if err := core.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", core.Dialect)
			return nil
		},
	}
}
