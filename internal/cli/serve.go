package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/speclab/specgate/internal/app"
)

type ServeOptions struct {
	GlobalOptions

	Transport string
}

func DefaultServeOptions() *ServeOptions {
	return &ServeOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Transport:     "sse",
	}
}

func NewCmdServe() *cobra.Command {
	o := DefaultServeOptions()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the specgate server: HTTP API plus MCP capability preview.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ServeOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.Transport, "transport", o.Transport, "MCP transport to use (sse or stdio).")
}

func (o *ServeOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	// A server should log at its configured level, not the muted CLI
	// default. --verbose still wins.
	if !o.Verbose {
		o.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: o.cfg.ParsedLogLevel()}))
		slog.SetDefault(o.logger)
	}
	return nil
}

func (o *ServeOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Transport != "sse" && o.Transport != "stdio" {
		return fmt.Errorf("invalid transport %q (expected sse or stdio)", o.Transport)
	}
	return nil
}

func (o *ServeOptions) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, o.cfg, o.logger)
	if err != nil {
		return err
	}
	a.SyncSpecSources(ctx)
	return a.Run(ctx, o.Transport)
}
