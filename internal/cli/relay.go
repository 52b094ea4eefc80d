package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
)

// NewRelayCommand creates the relay command that publishes committed outbox
// events to the broker.
func NewRelayCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		interval time.Duration
		batch    int
	)
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Publish committed order events to RabbitMQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := rootOpts.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			ctx, stop := signalContext(cmd)
			defer stop()

			relay, pub := core.NewRelay()
			defer pub.Close()
			if interval > 0 {
				relay.Interval = interval
			}
			if batch > 0 {
				relay.Batch = batch
			}

			core.Log.Info("relay started")
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval when the outbox is empty")
	cmd.Flags().IntVar(&batch, "batch", 100, "events per poll")
	return cmd
}
