// Package cli defines the wildpasta command tree.  Every long-running
// process of the system is a subcommand of the same binary.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/wild-pasta-booking/internal/app"
	"github.com/iliyamo/wild-pasta-booking/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	VenueFile string

	// LoadConfig reads process configuration; tests replace it.
	LoadConfig func() config.Config
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{LoadConfig: config.Load})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wildpasta",
		Short: "Wild Pasta booking engine",
		Long: `Reservations, takeout ordering and payment for the Wild Pasta restaurant.

serve runs the HTTP API, worker runs daily capacity seeding, relay publishes
committed order events and notifier emails customers about them.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.VenueFile, "venue", "", "venue YAML overriding VENUE_FILE")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewWorkerCommand(opts))
	cmd.AddCommand(NewRelayCommand(opts))
	cmd.AddCommand(NewNotifierCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	return cmd
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		return 1
	}
	return 0
}

func (o *RootOptions) core() (*app.Core, error) {
	cfg := o.LoadConfig()
	if o.VenueFile != "" {
		cfg.VenueFile = o.VenueFile
	}
	return app.NewCore(cfg)
}

// openCore builds the core and connects to the database.
func (o *RootOptions) openCore() (*app.Core, error) {
	c, err := o.core()
	if err != nil {
		return nil, err
	}
	if err := c.Open(); err != nil {
		return nil, err
	}
	return c, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
