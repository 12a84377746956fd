package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/warp/aca-engine/aca"
	"github.com/warp/aca-engine/api"
	"github.com/warp/aca-engine/factory"
)

type assessOptions struct {
	asOf     string
	output   string
	progress bool
	strict   bool
}

// assessCmd assesses a batch document offline. The tax year comes from
// --tax-year when set, else the document, else configuration. The as-of
// date comes from --as-of, else the document, else today.
func assessCmd() *cobra.Command {
	var opts assessOptions
	cmd := &cobra.Command{
		Use:   "assess FILE",
		Short: "Assess a JSON or YAML batch file",
		Example: `  aca assess employees.yaml --as-of 2026-12-31
  aca assess batch.json --tax-year 2027 --tax-year-file ./tables/2027.yaml -o result.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssess(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "as-of date YYYY-MM-DD (default: document, then today)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the result to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.progress, "progress", true, "show a progress bar on stderr")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit non-zero when any record fails")
	cmd.Flags().Int("workers", 0, "parallel workers per chunk (default: GOMAXPROCS)")
	_ = viper.BindPFlag("engine.workers", cmd.Flags().Lookup("workers"))
	return cmd
}

func runAssess(cmd *cobra.Command, path string, opts assessOptions) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	doc, err := factory.LoadBatchFile(path)
	if err != nil {
		return err
	}

	year := viper.GetInt("engine.tax_year")
	if doc.TaxYear != 0 && !cmd.Flags().Changed("tax-year") {
		year = doc.TaxYear
	}
	in := doc.Input
	switch {
	case opts.asOf != "":
		t, err := factory.ParseDate(opts.asOf)
		if err != nil {
			return err
		}
		in.AsOf = t
	case in.AsOf.IsZero():
		in.AsOf = time.Now()
	}

	c, err := registry.ForYear(year)
	if err != nil {
		return fmt.Errorf("tax year %d: %w", year, err)
	}

	engineOpts := []aca.Option{
		aca.WithLogger(log.Logger),
		aca.WithWorkers(viper.GetInt("engine.workers")),
		aca.WithChunkSize(viper.GetInt("engine.chunk_size")),
	}
	if opts.progress && len(in.Employees) > 0 {
		bar := progressbar.NewOptions(len(in.Employees),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription(fmt.Sprintf("Assessing %d", year)),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(cmd.ErrOrStderr())
			}),
		)
		engineOpts = append(engineOpts, aca.WithProgress(func(done, _ int) {
			_ = bar.Set(done)
		}))
	}

	result, err := aca.NewEngine(c, engineOpts...).AssessBatch(cmd.Context(), in)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(api.NewResultDTO(result)); err != nil {
		return err
	}

	if opts.strict && len(result.Errors) > 0 {
		return fmt.Errorf("%d of %d records failed", len(result.Errors), result.TotalRecords)
	}
	return nil
}
