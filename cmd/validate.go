package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dq-cli/internal/batch"
	"github.com/sells-group/dq-cli/internal/model"
	"github.com/sells-group/dq-cli/internal/store"
	"github.com/sells-group/dq-cli/internal/tabular"
)

var (
	validateLimit         int
	validateConcurrency   int
	validateOffline       bool
	validateOutput        string
	validateFormat        string
	validateDryRun        bool
	validateRegion        string
	validateNoGeocode     bool
	validateNoReverse     bool
	validateNoHistory     bool
	validateDiscrepancies bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate and geocode a location schedule",
	Long: `Reads a CSV or XLSX location schedule, geocodes every address, reverse-geocodes
in-region coordinates, applies the data-quality checks and writes the enriched file.

Examples:
  # Dry run: check the columns and row count only
  dq-cli validate policies.xlsx --dry-run

  # Offline (no API keys; every lookup is treated as no match)
  dq-cli validate policies.csv --offline --limit 10

  # Real geocoding, four rows at a time, XLSX output
  dq-cli validate policies.xlsx --concurrency 4 --format xlsx --output checked.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runValidate(ctx, args[0], os.Stdout, os.Stderr)
	},
}

func init() {
	validateCmd.Flags().IntVar(&validateLimit, "limit", 0, "max rows to process (0 = all, default from config)")
	validateCmd.Flags().IntVar(&validateConcurrency, "concurrency", 0, "rows processed at once (default from config)")
	validateCmd.Flags().BoolVar(&validateOffline, "offline", false, "use a stub geocoder (no API keys needed)")
	validateCmd.Flags().StringVar(&validateOutput, "output", "", "output path (default: <input>_validated.<format>, - for stdout)")
	validateCmd.Flags().StringVar(&validateFormat, "format", "csv", "output format: csv, xlsx or json")
	validateCmd.Flags().BoolVar(&validateDryRun, "dry-run", false, "parse the file and check columns, skip geocoding")
	validateCmd.Flags().StringVar(&validateRegion, "region", "", "region profile name (overrides rules.region)")
	validateCmd.Flags().BoolVar(&validateNoGeocode, "no-geocode", false, "skip forward geocoding")
	validateCmd.Flags().BoolVar(&validateNoReverse, "no-reverse", false, "skip reverse geocoding")
	validateCmd.Flags().BoolVar(&validateNoHistory, "no-history", false, "do not record the run in the history store")
	validateCmd.Flags().BoolVar(&validateDiscrepancies, "discrepancies", false, "list rows with a large coordinate discrepancy")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(ctx context.Context, path string, stdout, stderr io.Writer) error {
	format, err := tabular.ParseFormat(validateFormat)
	if err != nil {
		return err
	}

	table, err := tabular.ReadFile(path)
	if err != nil {
		return eris.Wrap(err, "validate: read input")
	}
	if err := table.RequireColumns(tabular.ValidationColumns...); err != nil {
		var missing *tabular.MissingColumnError
		if errors.As(err, &missing) {
			_, _ = fmt.Fprintf(stderr, "Input is missing required column(s): %s\nFound: %s\n",
				strings.Join(missing.Columns, ", "), strings.Join(table.Columns, ", "))
		}
		return err
	}
	zap.L().Info("validate: parsed input", zap.String("path", path), zap.Int("rows", len(table.Records)))

	if validateDryRun {
		_, _ = fmt.Fprintf(stdout, "%s: %d rows, columns: %s\n", path, len(table.Records), strings.Join(table.Columns, ", "))
		return nil
	}

	bc := cfg.Batch
	if validateLimit > 0 {
		bc.Limit = validateLimit
	}
	if validateConcurrency > 0 {
		bc.Concurrency = validateConcurrency
	}
	if validateNoGeocode {
		bc.Geocode = false
	}
	if validateNoReverse {
		bc.Reverse = false
	}
	if !validateOffline {
		check := *cfg
		check.Batch = bc
		if err := check.Validate("validate"); err != nil {
			return err
		}
	}

	r, err := resolveRules(validateRegion)
	if err != nil {
		return err
	}
	client, err := initGeocoder(cfg.Geocode, validateOffline)
	if err != nil {
		return err
	}

	var st store.Store
	runID := ""
	if !validateNoHistory {
		st, err = initStore(ctx)
		if err != nil {
			zap.L().Warn("validate: run history unavailable", zap.Error(err))
		} else {
			defer st.Close() //nolint:errcheck
			run, err := st.CreateRun(ctx, filepath.Base(path), len(table.Records))
			if err != nil {
				zap.L().Warn("validate: record run", zap.Error(err))
			} else {
				runID = run.ID
			}
		}
	}

	total := len(table.Records)
	if bc.Limit > 0 && bc.Limit < total {
		total = bc.Limit
	}
	progress, finish := newProgress(total, stderr)

	proc := batch.New(
		batch.WithClient(client),
		batch.WithRules(r),
		batch.WithOptions(batchOptions(bc, cfg.Rules.H3Resolution)),
		batch.WithProgress(progress),
	)
	res, procErr := proc.Process(ctx, table.Records)
	finish()

	if st != nil && runID != "" {
		outcome := store.RunOutcome{Status: res.RunStatus(procErr)}
		if res != nil {
			outcome.Processed = res.Processed
			summary := res.Summary
			outcome.Summary = &summary
		}
		if procErr != nil {
			outcome.Error = procErr.Error()
		}
		if err := st.FinishRun(context.WithoutCancel(ctx), runID, outcome); err != nil {
			zap.L().Warn("validate: finish run", zap.Error(err))
		}
	}
	if res == nil {
		return procErr
	}

	// A cancelled run still writes whatever completed.
	outPath := outputPath(path, validateOutput, format)
	if err := writeValidated(outPath, format, table.Columns, res, stdout); err != nil {
		return err
	}

	formatSummary(stderr, res)
	if validateDiscrepancies {
		formatDiscrepancies(stderr, res.Discrepancies())
	}
	if outPath != "-" {
		_, _ = fmt.Fprintf(stderr, "Wrote %s\n", outPath)
	}
	if runID != "" {
		_, _ = fmt.Fprintf(stderr, "Run %s\n", runID)
	}
	if procErr != nil {
		return eris.Wrapf(procErr, "validate: interrupted after %d of %d rows", res.Processed, res.Total)
	}
	return nil
}

// newProgress returns a progress callback drawing a bar on terminals and a
// no-op elsewhere.
func newProgress(total int, w io.Writer) (batch.ProgressFunc, func()) {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) || total == 0 {
		return nil, func() {}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("validating"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	var mu sync.Mutex
	highest := 0
	return func(done, _ int) {
			mu.Lock()
			defer mu.Unlock()
			if done > highest {
				highest = done
				_ = bar.Set(done)
			}
		}, func() {
			_ = bar.Finish()
		}
}

// outputPath picks the output file for an input path.
func outputPath(input, output string, format tabular.Format) string {
	if output != "" {
		return output
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "_validated." + string(format)
}

func writeValidated(path string, format tabular.Format, columns []string, res *batch.Result, stdout io.Writer) error {
	var w io.Writer = stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "validate: create %s", path)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	switch format {
	case tabular.FormatXLSX:
		return tabular.WriteXLSX(w, columns, res.Records)
	case tabular.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(res), "validate: encode json")
	default:
		return tabular.WriteCSV(w, columns, res.Records)
	}
}

// formatSummary writes the per-check summary table.
func formatSummary(out io.Writer, res *batch.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CHECK\tCOUNT")
	_, _ = fmt.Fprintln(w, "-----\t-----")
	for _, fc := range res.Summary.Flags {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", fc.Flag, fc.Count)
	}
	_, _ = fmt.Fprintf(w, "%s\t%d\n", model.FlagLargeCoordinateDiscrepancy, res.Summary.LargeDiscrepancies)
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nRows: %d of %d processed", res.Processed, res.Total)
	if res.Partial {
		_, _ = fmt.Fprint(out, " (partial)")
	}
	_, _ = fmt.Fprintf(out, "; geocoded %d, matched %d, API coordinates preferred %d\n",
		res.Summary.Geocoded, res.Summary.APIMatched, res.Summary.UseAPI)
	_, _ = fmt.Fprintf(out, "Provider calls: %d, cache hits: %d\n", res.ProviderCalls, res.CacheHits)
}

// formatDiscrepancies lists rows whose coordinates disagree with the geocode.
func formatDiscrepancies(out io.Writer, recs []model.EnrichedRecord) {
	if len(recs) == 0 {
		_, _ = fmt.Fprintln(out, "No large coordinate discrepancies.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROW\tID\tADDRESS\tDIFF_KM")
	for _, r := range recs {
		diff := ""
		if r.CoordinateDiffKm != nil {
			diff = fmt.Sprintf("%.2f", *r.CoordinateDiffKm)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Index, r.ID, model.StringOrEmpty(r.Address), diff)
	}
	_ = w.Flush()
}
