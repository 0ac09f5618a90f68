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

type ClassifyOptions struct {
	GlobalOptions

	Spec     string
	Policy   string
	UseModel bool
	JSON     bool

	out io.Writer
}

func DefaultClassifyOptions() *ClassifyOptions {
	return &ClassifyOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Policy:        string(domain.PolicyModerate),
	}
}

func NewCmdClassify() *cobra.Command {
	o := DefaultClassifyOptions()
	cmd := &cobra.Command{
		Use:   "classify --spec (PATH | URL) [--policy POLICY]",
		Short: "Classify the capabilities of an API description under a policy.",
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

func (o *ClassifyOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.Spec, "spec", o.Spec, "Path or URL of the API description (OpenAPI, Swagger or Postman collection).")
	fs.StringVar(&o.Policy, "policy", o.Policy, "Exposure policy: conservative, moderate or permissive.")
	fs.BoolVar(&o.UseModel, "use-model", o.UseModel, "Refine classifications with the configured reasoning model.")
	fs.BoolVar(&o.JSON, "json", o.JSON, "Print the policy run as JSON.")
}

func (o *ClassifyOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	o.out = cmd.OutOrStdout()
	return nil
}

func (o *ClassifyOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Spec == "" {
		return fmt.Errorf("must specify --spec (path or URL)")
	}
	if _, err := domain.ParsePolicy(o.Policy); err != nil {
		return err
	}
	return nil
}

func (o *ClassifyOptions) Run(ctx context.Context) error {
	policy, err := domain.ParsePolicy(o.Policy)
	if err != nil {
		return err
	}

	ingest := buildIngest(o.cfg, o.logger)
	spec, _, err := ingest.Execute(ctx, o.Spec)
	if err != nil {
		return err
	}

	caps := domain.DeriveCapabilities(spec)
	if len(caps) == 0 {
		return fmt.Errorf("%s declares no operations to classify", o.Spec)
	}

	eval, err := buildEvaluator(ctx, o.cfg, o.UseModel, o.logger)
	if err != nil {
		return err
	}
	records, err := eval.Evaluate(ctx, caps, policy)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}
	run := domain.PolicyRun{Policy: policy, Summary: domain.Summarize(records), Records: records}

	if o.JSON {
		enc := json.NewEncoder(o.out)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Fprintf(o.out, "API: %s v%s\n", spec.Title, spec.Version)
	fmt.Fprintf(o.out, "Policy: %s\n", run.Policy)
	fmt.Fprintf(o.out, "Capabilities: %d total, %d exposable, %d blocked, %d need review\n",
		run.Summary.Total, run.Summary.Exposable, run.Summary.Blocked, run.Summary.NeedsReview)
	fmt.Fprintln(o.out)

	w := tabwriter.NewWriter(o.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "EXPOSE\tCLASS\tCONFIDENCE\tNAME\tREASON")
	for _, r := range run.Records {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n", r.Expose, r.Classification, r.Confidence, r.Name, r.Reason)
	}
	return w.Flush()
}
