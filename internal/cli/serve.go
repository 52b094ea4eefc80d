package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Migrate bool
	Grace   time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Migrate, "migrate", false, "apply the schema before serving")
	cmd.Flags().DurationVar(&opts.Grace, "grace", 10*time.Second, "shutdown grace period")
	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	core, err := opts.openCore()
	if err != nil {
		return err
	}
	defer core.Close()

	ctx, stop := signalContext(cmd)
	defer stop()

	if opts.Migrate {
		if err := core.Migrate(ctx); err != nil {
			return err
		}
	}

	srv := core.NewServer()
	defer srv.Close()

	addr := ":" + core.Cfg.Port
	errc := make(chan error, 1)
	go func() { errc <- srv.Echo.Start(addr) }()
	core.Log.WithFields(logrus.Fields{"addr": addr, "env": core.Cfg.Env}).Info("listening")

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	core.Log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), opts.Grace)
	defer cancel()
	return srv.Echo.Shutdown(sctx)
}
