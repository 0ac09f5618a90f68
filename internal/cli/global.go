// Package cli implements the specgate command line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/speclab/specgate/configs"
)

// GlobalOptions carries the flags every subcommand shares.
type GlobalOptions struct {
	Verbose bool

	cfg    *configs.Config
	logger *slog.Logger
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.BoolVarP(&o.Verbose, "verbose", "v", o.Verbose, "Enable debug logging.")
}

// Complete sets up logging and loads configuration. The default level
// keeps command output clean; --verbose surfaces the pipeline logs.
func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.logger)

	cfg, err := configs.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	o.cfg = cfg
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	return nil
}
