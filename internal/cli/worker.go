package cli

import (
	"github.com/spf13/cobra"

	"github.com/iliyamo/wild-pasta-booking/internal/jobs"
)

// NewWorkerCommand creates the worker command: the daily scheduler and the
// task server for capacity seeding.
func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	var noSchedule bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run capacity seeding tasks and their daily schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := rootOpts.openCore()
			if err != nil {
				return err
			}
			defer core.Close()

			ctx, stop := signalContext(cmd)
			defer stop()

			opt := core.RedisOpt()
			srv := jobs.NewServer(opt, core.Log)
			if err := srv.Start(jobs.NewHandlers(core.Seeder(), core.Log).Mux()); err != nil {
				return err
			}
			defer srv.Shutdown()

			if !noSchedule {
				sched, err := jobs.NewScheduler(opt, core.Venue.Location(), core.Log)
				if err != nil {
					return err
				}
				if err := sched.Start(); err != nil {
					return err
				}
				defer sched.Shutdown()
			}

			core.Log.WithField("redis", core.Cfg.Redis.Addr).Info("worker started")
			<-ctx.Done()
			core.Log.Info("worker stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "process tasks without registering the daily schedule")
	return cmd
}
