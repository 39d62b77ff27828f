package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vectora-backend/internal/chart"
	"vectora-backend/internal/cleaning"
	"vectora-backend/internal/dataset"
	"vectora-backend/internal/engine"
	"vectora-backend/internal/narrative"
	"vectora-backend/internal/parser"
	"vectora-backend/internal/plan"
)

// newRootCmd builds the command tree. Flags can also be set through VECTORA_* env vars.
func newRootCmd(out io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("VECTORA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "vectoractl",
		Short:         "Run dataset analysis plans and cleaning offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			level := zerolog.WarnLevel
			if v.GetBool("debug") {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
			return nil
		},
	}
	root.PersistentFlags().String("data", "", "CSV or XLSX file to load")
	root.PersistentFlags().Bool("debug", false, "enable debug logging")
	root.SetOut(out)

	root.AddCommand(newSchemaCmd(v), newRunCmd(v), newCleanCmd(v))
	return root
}

func newSchemaCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the column names and sample rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadData(v.GetString("data"))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), dataset.ExtractSchema(ds))
		},
	}
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a JSON plan and print the answer and result",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadData(v.GetString("data"))
			if err != nil {
				return err
			}
			raw, err := loadPlan(v.GetString("plan"))
			if err != nil {
				return err
			}

			res, err := engine.Run(raw, ds)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, narrative.Explain(res))
			fmt.Fprintln(out)
			if err := writeJSON(out, res); err != nil {
				return err
			}
			if v.GetBool("visualize") && res.Analysis == plan.OpSalesDiagnostics && res.Output != nil {
				return writeJSON(out, chart.FeatureImpact(res.Output))
			}
			return nil
		},
	}
	cmd.Flags().String("plan", "", "JSON plan file")
	cmd.Flags().Bool("visualize", false, "print the chart for sales diagnostics")
	return cmd
}

func newCleanCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Run the advanced cleaning and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadData(v.GetString("data"))
			if err != nil {
				return err
			}
			cleaned, report := cleaning.Advanced(ds, cleaning.Options{
				ProblemType: cleaning.ProblemType(v.GetString("problem-type")),
				Target:      v.GetString("target"),
			})

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, narrative.ExplainCleaning(report))
			fmt.Fprintln(out)
			if err := writeJSON(out, report); err != nil {
				return err
			}

			if path := v.GetString("out"); path != "" {
				if err := writeCSVFile(path, cleaned); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d rows to %s\n", cleaned.NumRows(), path)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.String("problem-type", "", "sentiment_analysis, binary_classification or classification")
	flags.String("target", "", "target column")
	flags.String("out", "", "write the cleaned dataset to this CSV file")
	return cmd
}

func loadData(path string) (*dataset.Dataset, error) {
	if path == "" {
		return nil, fmt.Errorf("--data is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := parser.ForFilename(filepath.Base(path)).Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return parser.Prepare(ds), nil
}

func loadPlan(path string) (plan.RawPlan, error) {
	if path == "" {
		return plan.RawPlan{}, fmt.Errorf("--plan is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return plan.RawPlan{}, fmt.Errorf("read plan: %w", err)
	}
	var raw plan.RawPlan
	if err := json.Unmarshal(b, &raw); err != nil {
		return plan.RawPlan{}, fmt.Errorf("decode plan: %w", err)
	}
	return raw, nil
}

func writeCSVFile(path string, ds *dataset.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.WriteCSV(f, ds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
