package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ContentDigest/internal/app"
	"ContentDigest/internal/config"
	"ContentDigest/internal/domain"
	"ContentDigest/internal/logging"
	"ContentDigest/internal/report"
)

type rootOptions struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "contentdigest",
		Short:         "Collect, score and report AI news content",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.configPath != "" {
				if err := os.Setenv(config.PathEnv, opts.configPath); err != nil {
					return fmt.Errorf("set config path: %w", err)
				}
			}
			opts.cfg = config.Load()
			opts.logger = logging.NewWithFormat(cmd.ErrOrStderr(), opts.cfg.Logging.Level, opts.cfg.Logging.Format)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (overrides $"+config.PathEnv+")")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newProcessCmd(opts))
	rootCmd.AddCommand(newReportCmd(opts))

	return rootCmd
}

func (o *rootOptions) application(ctx context.Context) (*app.Application, error) {
	return app.New(ctx, o.cfg, o.logger)
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one collect, process and persist cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := opts.application(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.RunOnce(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run ingest cycles on the configured interval and expose metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := opts.application(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Serve(ctx)
		},
	}
}

func newProcessCmd(opts *rootOptions) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process a JSON array of raw documents into scored content",
		RunE: func(cmd *cobra.Command, args []string) error {
			var docs []domain.RawDocument
			if err := readJSON(cmd.InOrStdin(), input, &docs); err != nil {
				return fmt.Errorf("read documents: %w", err)
			}

			a, err := opts.application(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.Process(cmd.Context(), docs)
			opts.logger.Info("batch processed",
				"succeeded", result.Succeeded, "skipped", result.Skipped, "failed", result.Failed)

			return withOutput(cmd.OutOrStdout(), output, func(w io.Writer) error {
				return writeJSON(w, result.Processed)
			})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "raw documents JSON file, - for stdin")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}

type reportFlags struct {
	input          string
	output         string
	sections       string
	section        string
	reportType     string
	name           string
	from           string
	to             string
	categories     []string
	keywords       []string
	includeSummary bool
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	f := &reportFlags{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a report or a single section from processed content",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := opts.application(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			spec, err := f.reportSpec(a)
			if err != nil {
				return err
			}

			corpus, err := f.corpus(ctx, cmd.InOrStdin(), a, spec)
			if err != nil {
				return err
			}

			var out any
			if f.section != "" {
				sec, ok := findSection(spec.Sections, f.section)
				if !ok {
					return fmt.Errorf("section %q is not defined", f.section)
				}
				out = a.Reports().BuildSection(ctx, sec, corpus)
			} else {
				out = a.Reports().BuildReport(ctx, spec, corpus)
			}

			return withOutput(cmd.OutOrStdout(), f.output, func(w io.Writer) error {
				return writeJSON(w, out)
			})
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "processed content JSON file, - for stdin; empty reads the database")
	cmd.Flags().StringVarP(&f.output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&f.sections, "sections", "", "section definitions JSON file (default: configured sections)")
	cmd.Flags().StringVar(&f.section, "section", "", "build only the section with this id")
	cmd.Flags().StringVar(&f.reportType, "type", report.TypeDaily, "report type: daily, weekly, monthly or custom")
	cmd.Flags().StringVar(&f.name, "name", "", "report name for custom reports")
	cmd.Flags().StringVar(&f.from, "from", "", "range start, RFC3339")
	cmd.Flags().StringVar(&f.to, "to", "", "range end, RFC3339")
	cmd.Flags().StringSliceVar(&f.categories, "category", nil, "keep only these categories")
	cmd.Flags().StringSliceVar(&f.keywords, "keyword", nil, "keep only items matching these keywords")
	cmd.Flags().BoolVar(&f.includeSummary, "summary", false, "include the overall summary (default from config)")
	return cmd
}

func (f *reportFlags) reportSpec(a *app.Application) (report.ReportSpec, error) {
	spec := report.ReportSpec{
		Type:           f.reportType,
		Name:           f.name,
		Categories:     f.categories,
		Keywords:       f.keywords,
		Sections:       a.DefaultSections(),
		IncludeSummary: f.includeSummary || a.IncludeSummary(),
	}

	if f.sections != "" {
		raw, err := os.ReadFile(f.sections)
		if err != nil {
			return spec, fmt.Errorf("read sections: %w", err)
		}
		if spec.Sections, err = report.ParseSections(raw); err != nil {
			return spec, err
		}
	}

	var err error
	if spec.Start, err = parseTimeFlag("from", f.from); err != nil {
		return spec, err
	}
	if spec.End, err = parseTimeFlag("to", f.to); err != nil {
		return spec, err
	}
	return spec, nil
}

func (f *reportFlags) corpus(ctx context.Context, stdin io.Reader, a *app.Application, spec report.ReportSpec) ([]*domain.ProcessedContent, error) {
	if f.input != "" {
		var corpus []*domain.ProcessedContent
		if err := readJSON(stdin, f.input, &corpus); err != nil {
			return nil, fmt.Errorf("read processed content: %w", err)
		}
		return corpus, nil
	}

	end := time.Now()
	if spec.End != nil {
		end = *spec.End
	}
	start := end.Add(-24 * time.Hour)
	if spec.Start != nil {
		start = *spec.Start
	}
	return a.LoadCorpus(ctx, start, end)
}

func findSection(sections []report.SectionSpec, id string) (report.SectionSpec, bool) {
	for _, s := range sections {
		if s.ID == id {
			return s, true
		}
	}
	return report.SectionSpec{}, false
}

func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

func readJSON(stdin io.Reader, path string, dst any) error {
	r := stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		r = file
	}
	return json.NewDecoder(r).Decode(dst)
}

func withOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
