package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/af-corp/aegis-admin/internal/compiler"
	"github.com/af-corp/aegis-admin/internal/config"
	"github.com/af-corp/aegis-admin/internal/notify"
	"github.com/af-corp/aegis-admin/internal/providers"
	"github.com/af-corp/aegis-admin/internal/redact"
	"github.com/af-corp/aegis-admin/internal/store"
)

type options struct {
	configDir string
	logLevel  string
	noRedact  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "modelctl",
		Short:         "Compile and submit model registrations from add-model form values",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configDir, "config", "configs", "configuration directory holding the provider table")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug|info|warn|error")

	compileCmd := &cobra.Command{
		Use:     "compile <form-file>",
		Short:   "Compile a form-values file and print the model-create payloads",
		Example: "  modelctl compile form.yaml\n  modelctl compile --no-redact form.json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := compileFile(cmd.Context(), opts, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !opts.noRedact {
				reqs = redact.New().Requests(reqs)
			}
			return printJSON(cmd.OutOrStdout(), reqs)
		},
	}
	compileCmd.Flags().BoolVar(&opts.noRedact, "no-redact", false, "print credentials unmasked")

	var (
		baseURL    string
		apiKey     string
		createPath string
		timeout    time.Duration
		first      bool
	)
	submitCmd := &cobra.Command{
		Use:     "submit <form-file>",
		Short:   "Compile a form-values file and create the models on the proxy",
		Example: "  AEGIS_ADMIN_BACKEND_API_KEY=sk-... modelctl submit --base-url http://localhost:4000 form.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				apiKey = os.Getenv("AEGIS_ADMIN_BACKEND_API_KEY")
			}
			backend, err := store.NewHTTPStore(baseURL, store.HTTPOptions{
				APIKey:     apiKey,
				CreatePath: createPath,
				Timeout:    timeout,
			})
			if err != nil {
				return err
			}
			reqs, err := compileFile(cmd.Context(), opts, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if first && len(reqs) > 1 {
				reqs = reqs[:1]
			}
			return submit(cmd.Context(), backend, reqs, cmd.OutOrStdout())
		},
	}
	submitCmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:4000", "proxy base URL")
	submitCmd.Flags().StringVar(&apiKey, "api-key", "", "proxy API key (defaults to AEGIS_ADMIN_BACKEND_API_KEY)")
	submitCmd.Flags().StringVar(&createPath, "create-path", "/model/new", "model-create endpoint path")
	submitCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per-request timeout")
	submitCmd.Flags().BoolVar(&first, "first", false, "submit only the first compiled request")

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List the provider table used to resolve custom_llm_provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := loadRegistry(opts.configDir)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTOKEN")
			for _, p := range registry.List() {
				fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Token)
			}
			return tw.Flush()
		},
	}

	root.AddCommand(compileCmd, submitCmd, providersCmd)
	return root
}

func loadRegistry(configDir string) (*providers.Registry, error) {
	provCfg, err := config.LoadProviders(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading providers: %w", err)
	}
	return providers.BuildFromConfig(provCfg), nil
}

// compileFile compiles the form file at path. Compile failures are logged to
// stderr as notifications and returned.
func compileFile(ctx context.Context, opts *options, path string, stderr io.Writer) ([]compiler.CompiledRequest, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	registry, err := loadRegistry(opts.configDir)
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	reporter := notify.NewReporter(nil, notify.NewLogSink(logger))

	raw, err := readForm(path)
	if err != nil {
		reporter.Fail(ctx, err)
		return nil, err
	}
	reqs, _, err := reporter.Compile(ctx, compiler.New(registry), raw)
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func submit(ctx context.Context, backend store.Store, reqs []compiler.CompiledRequest, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(reqs) == 0 {
		return fmt.Errorf("nothing to submit: no model mappings were provided")
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL NAME\tMODEL ID\tBACKEND")
	for _, req := range reqs {
		dep, err := backend.CreateModel(ctx, req)
		if err != nil {
			tw.Flush()
			return fmt.Errorf("creating %q: %w", req.Name, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", dep.Name, dep.ID, dep.Backend)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
