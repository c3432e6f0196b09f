// Command labsynth generates synthetic clinical laboratory analytics
// datasets: parametrically from built-in distributional assumptions, or by
// fitting models to real source tables and sampling synthetic replacements.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"labsynth/internal/blob/core"
	"labsynth/internal/config"
	blobinfra "labsynth/internal/infra/blob"
	"labsynth/internal/infra/runlog"
	"labsynth/internal/orchestrator"
	"labsynth/internal/registry"
	"labsynth/internal/synth/modelbased"
	"labsynth/internal/validation"
	"labsynth/pkg/dataset"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "labsynth",
		Short: "Synthetic clinical laboratory analytics data generator",
	}

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(familiesCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(pretty bool) zerolog.Logger {
	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func generateCmd() *cobra.Command {
	var (
		familiesFlag []string
		seedFlag     int64
		modeFlag     string
		endFlag      string
		outFlag      string
		policyFlag   string
		pretty       bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate dataset families and persist the artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if seedFlag != 0 {
				cfg.Seed = seedFlag
			}
			if modeFlag != "" {
				cfg.Mode = modeFlag
			}
			if endFlag != "" {
				cfg.EndDate = endFlag
			}
			if outFlag != "" {
				cfg.OutputRoot = outFlag
			}
			if policyFlag != "" {
				cfg.Validation = policyFlag
			}

			log := newLogger(pretty)
			ctx := cmd.Context()

			start, end, err := cfg.Window()
			if err != nil {
				return err
			}
			artifacts, err := blobinfra.Open(ctx, core.Driver(cfg.BlobDriver), cfg.OutputRoot)
			if err != nil {
				return fmt.Errorf("open artifact store: %w", err)
			}
			runs, err := openRunLog(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open run log: %w", err)
			}
			defer func() { _ = runs.Close() }()

			var (
				metrics orchestrator.MetricsRecorder
				reg     *prometheus.Registry
			)
			switch cfg.MetricsDriver {
			case "prometheus", "":
				reg = prometheus.NewRegistry()
				metrics, err = orchestrator.NewPrometheusMetricsRecorder(reg)
				if err != nil {
					return err
				}
			case "expvar":
				metrics = orchestrator.NewExpvarMetricsRecorder("labsynth_generation_metrics")
			default:
				metrics = orchestrator.NoopMetricsRecorder{}
			}

			opts := orchestrator.Options{
				Mode:       dataset.Mode(cfg.Mode),
				Seed:       cfg.Seed,
				Start:      start,
				End:        end,
				Families:   familiesFlag,
				Validation: orchestrator.ValidationPolicy(cfg.Validation),
				Sources:    resolveSources(cfg.Sources),
			}
			report, err := orchestrator.New(artifacts, runs, metrics, log).Run(ctx, opts)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			if pretty && reg != nil {
				logMetricsSummary(log, reg)
			}
			if !report.OK() {
				return fmt.Errorf("%d dataset families failed", len(report.Failed()))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&familiesFlag, "families", nil, "subset of dataset families to generate (default all)")
	cmd.Flags().Int64Var(&seedFlag, "seed", 0, "root random seed (default from LABSYNTH_SEED)")
	cmd.Flags().StringVar(&modeFlag, "mode", "", "generation mode: parametric or model-based")
	cmd.Flags().StringVar(&endFlag, "end", "", "end date YYYY-MM-DD (default from LABSYNTH_END_DATE)")
	cmd.Flags().StringVar(&outFlag, "out", "", "output root for the fs artifact store")
	cmd.Flags().StringVar(&policyFlag, "validation", "", "validation policy: strict or warn")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "human-readable log output")
	return cmd
}

func familiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List the registered dataset families and their sub-tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, desc := range registry.Families() {
				fmt.Fprintf(w, "%s\t%s\n", desc.Name, desc.Title)
				for _, t := range desc.Tables {
					fmt.Fprintf(w, "  %s (%d columns)\n", t.Name, len(t.Columns))
				}
			}
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	var (
		familiesFlag []string
		outFlag      string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Re-check previously generated artifacts against their schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if outFlag != "" {
				cfg.OutputRoot = outFlag
			}
			ctx := cmd.Context()
			store, err := blobinfra.Open(ctx, core.Driver(cfg.BlobDriver), cfg.OutputRoot)
			if err != nil {
				return fmt.Errorf("open artifact store: %w", err)
			}
			families := familiesFlag
			if len(families) == 0 {
				families = registry.FamilyNames()
			}
			engine := validation.NewEngine()
			w := cmd.OutOrStdout()
			failed := 0
			for _, family := range families {
				desc, err := registry.Family(family)
				if err != nil {
					return err
				}
				instance, err := loadInstance(ctx, store, desc)
				if err != nil {
					fmt.Fprintf(w, "%s: %v\n", family, err)
					failed++
					continue
				}
				res := engine.Validate(desc, instance)
				if res.OK() {
					fmt.Fprintf(w, "%s: ok\n", family)
					continue
				}
				failed++
				for _, v := range res.Violations {
					fmt.Fprintf(w, "%s: %s %s row %d %s: %s\n", family, v.Rule, v.Table, v.Row, v.Column, v.Message)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d dataset families failed validation", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&familiesFlag, "families", nil, "subset of dataset families to validate (default all)")
	cmd.Flags().StringVar(&outFlag, "out", "", "output root for the fs artifact store")
	return cmd
}

// loadInstance rebuilds an instance from the persisted JSON artifacts.
func loadInstance(ctx context.Context, store core.Store, desc dataset.FamilyDescriptor) (dataset.Instance, error) {
	instance := dataset.Instance{Family: desc.Name}
	for _, schema := range desc.Tables {
		key := fmt.Sprintf("%s/data/%s.%s.json", desc.Name, desc.Name, schema.Name)
		_, rc, err := store.Get(ctx, key)
		if err != nil {
			return dataset.Instance{}, fmt.Errorf("read %s: %w", key, err)
		}
		body, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return dataset.Instance{}, fmt.Errorf("read %s: %w", key, err)
		}
		var rows []map[string]any
		if err := json.Unmarshal(body, &rows); err != nil {
			return dataset.Instance{}, fmt.Errorf("decode %s: %w", key, err)
		}
		instance.Tables = append(instance.Tables, dataset.Table{Name: schema.Name, Columns: schema.Columns, Rows: rows})
	}
	return instance, nil
}

// resolveSources maps configured source locations to concrete readers:
// a .db or .sqlite path opens a SQLite source, anything else is treated as
// a directory of CSV files.
func resolveSources(locations map[string]string) map[string]modelbased.Source {
	out := make(map[string]modelbased.Source, len(locations))
	for family, loc := range locations {
		if strings.HasSuffix(loc, ".db") || strings.HasSuffix(loc, ".sqlite") {
			out[family] = modelbased.SQLiteSource{Path: loc}
		} else {
			out[family] = modelbased.CSVSource{Root: loc}
		}
	}
	return out
}

func openRunLog(ctx context.Context, cfg *config.Config) (runlog.Store, error) {
	switch cfg.RunLogDriver {
	case "sqlite", "":
		return runlog.OpenSQLite(cfg.RunLogPath)
	case "postgres":
		return runlog.OpenPostgres(ctx, cfg.RunLogDSN)
	case "memory":
		return runlog.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown run log driver %q", cfg.RunLogDriver)
	}
}

// logMetricsSummary dumps the gathered counter values at the end of a run.
func logMetricsSummary(log zerolog.Logger, reg *prometheus.Registry) {
	fams, err := reg.Gather()
	if err != nil {
		log.Warn().Err(err).Msg("gather metrics")
		return
	}
	for _, mf := range fams {
		for _, m := range mf.GetMetric() {
			event := log.Debug().Str("metric", mf.GetName())
			for _, label := range m.GetLabel() {
				event = event.Str(label.GetName(), label.GetValue())
			}
			if c := m.GetCounter(); c != nil {
				event = event.Float64("value", c.GetValue())
			}
			event.Msg("generation metric")
		}
	}
}

func printReport(w io.Writer, report orchestrator.Report) {
	fmt.Fprintf(w, "run %s (mode=%s seed=%d)\n", report.RunID, report.Mode, report.Seed)
	for _, fr := range report.Families {
		switch fr.Status {
		case orchestrator.StatusSuccess:
			fmt.Fprintf(w, "  %-22s %s  %d rows in %d tables (%s)\n", fr.Family, fr.Status, fr.Rows, fr.Tables, fr.Duration.Round(time.Millisecond))
		default:
			fmt.Fprintf(w, "  %-22s %s  %v\n", fr.Family, fr.Status, fr.Err)
		}
	}
}
