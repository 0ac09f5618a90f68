package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/speclab/specgate/internal/domain"
)

type InspectOptions struct {
	GlobalOptions

	Spec string
	JSON bool

	out io.Writer
}

func DefaultInspectOptions() *InspectOptions {
	return &InspectOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdInspect() *cobra.Command {
	o := DefaultInspectOptions()
	cmd := &cobra.Command{
		Use:   "inspect --spec (PATH | URL)",
		Short: "Ingest an API description and show its normalized shape.",
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

func (o *InspectOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.Spec, "spec", o.Spec, "Path or URL of the API description (OpenAPI, Swagger or Postman collection).")
	fs.BoolVar(&o.JSON, "json", o.JSON, "Print the full normalized spec as JSON.")
}

func (o *InspectOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	o.out = cmd.OutOrStdout()
	return nil
}

func (o *InspectOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Spec == "" {
		return fmt.Errorf("must specify --spec (path or URL)")
	}
	return nil
}

func (o *InspectOptions) Run(ctx context.Context) error {
	ingest := buildIngest(o.cfg, o.logger)

	spec, format, err := ingest.Execute(ctx, o.Spec)
	if err != nil {
		return err
	}

	if o.JSON {
		enc := json.NewEncoder(o.out)
		enc.SetIndent("", "  ")
		return enc.Encode(spec)
	}

	fmt.Fprintf(o.out, "API: %s v%s\n", spec.Title, spec.Version)
	fmt.Fprintf(o.out, "Source format: %s\n", format)
	fmt.Fprintf(o.out, "Base URL: %s\n", spec.BaseURL)
	fmt.Fprintf(o.out, "Endpoints: %d\n", len(spec.Endpoints))
	fmt.Fprintf(o.out, "Tags: %s\n", joinOrNone(spec.Tags))
	auth := make([]string, 0, len(spec.AuthSchemes))
	for _, s := range spec.AuthSchemes {
		auth = append(auth, s.Name)
	}
	fmt.Fprintf(o.out, "Auth: %s\n", joinOrNone(auth))
	fmt.Fprintln(o.out)

	w := tabwriter.NewWriter(o.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tOPERATION\tSUMMARY")
	for _, ep := range spec.Endpoints {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ep.Method, ep.Path, domain.CapabilityName(ep), ep.Summary)
	}
	return w.Flush()
}
