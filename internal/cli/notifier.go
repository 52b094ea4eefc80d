package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

// NewNotifierCommand creates the notifier command that emails customers
// about confirmed and cancelled orders.
func NewNotifierCommand(rootOpts *RootOptions) *cobra.Command {
	var prefetch int
	cmd := &cobra.Command{
		Use:   "notifier",
		Short: "Consume order events and send email notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := rootOpts.core()
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd)
			defer stop()

			consumer := core.NewNotifier()
			if prefetch > 0 {
				consumer.Prefetch = prefetch
			}
			core.Log.Info("notifier started")
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&prefetch, "prefetch", 50, "unacknowledged deliveries held at once")
	return cmd
}
