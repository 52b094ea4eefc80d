package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSeedCommand creates the seed command that runs both capacity seeding
// steps once.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var skipTakeout bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Reset today's takeout slots and fill reservation slots for the horizon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := rootOpts.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			ctx, stop := signalContext(cmd)
			defer stop()

			s := core.Seeder()
			if !skipTakeout {
				if err := s.ResetTakeout(ctx); err != nil {
					return err
				}
			}
			n, err := s.SeedReservations(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d reservation dates\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipTakeout, "skip-takeout", false, "leave takeout slots untouched")
	return cmd
}
