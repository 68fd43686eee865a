package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jpequegn/polybench/internal/analyzer"
	"github.com/jpequegn/polybench/internal/comparator"
	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/history"
	"github.com/jpequegn/polybench/internal/ir"
	"github.com/jpequegn/polybench/internal/measurement"
	"github.com/jpequegn/polybench/internal/report"
	"github.com/jpequegn/polybench/internal/scheduler"
	"github.com/jpequegn/polybench/internal/validator"
)

// ExitCodeError carries the process exit code a failed command should
// produce, per spec §6: 0 success, 1 user error (parse/validation
// failures, compile failures, regressions), 2 internal error, 130
// interrupted.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string { return e.Err.Error() }
func (e *ExitCodeError) Unwrap() error { return e.Err }

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Run a .bench suite file",
	Long: `Parse, lower, validate, and run every suite declared in a .bench file,
synthesizing and executing one program per targeted language.

Example:
  polybench run suite.bench
  polybench run suite.bench --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBenchFile,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "emit a single consolidated JSON document instead of the terminal report")
	runCmd.Flags().String("output", "", "write the report to this file instead of stdout (JSON mode only)")
	runCmd.Flags().Bool("no-history", false, "skip persisting results to the history database")
	runCmd.Flags().String("baseline", "", "compare against this history run ID instead of the latest recorded run")
	runCmd.Flags().Bool("trend", false, "fit a trend line and flag anomalies from persisted history")
}

func runBenchFile(cmd *cobra.Command, args []string) error {
	path := "suite.bench"
	if len(args) == 1 {
		path = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fs := afero.NewOsFs()

	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return &ExitCodeError{Code: 1, Err: fmt.Errorf("reading %s: %w", path, err)}
	}

	file := dsl.Parse(string(src))
	if file.HasErrors() {
		for _, d := range file.ParseErrors {
			fmt.Fprintf(os.Stderr, "%s:%d:%d: %s\n", path, d.Span.StartLine, d.Span.StartCol, d.Message)
		}
		return &ExitCodeError{Code: 1, Err: fmt.Errorf("%s has parse errors", path)}
	}

	benchDir := filepath.Dir(path)
	benchIR, lowerDiags := ir.Lower(fs, file, benchDir)
	for _, d := range lowerDiags {
		fmt.Fprintf(os.Stderr, "%s: %s\n", path, d.Message)
	}

	diags := validator.Validate(benchIR, file)
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "%s: %s\n", path, d.String())
	}
	if validator.HasErrors(diags) {
		return &ExitCodeError{Code: 1, Err: fmt.Errorf("%s failed validation", path)}
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	outputPath, _ := cmd.Flags().GetString("output")
	noHistory, _ := cmd.Flags().GetBool("no-history")
	baselineRunID, _ := cmd.Flags().GetString("baseline")
	trendRequested, _ := cmd.Flags().GetBool("trend")

	sched := scheduler.New(fs, logger, cfg.RuntimeEnvDir, cfg.CachePath)
	rep, err := sched.Run(ctx, benchIR)
	if err != nil {
		if ctx.Err() != nil {
			return &ExitCodeError{Code: 130, Err: ctx.Err()}
		}
		return &ExitCodeError{Code: 2, Err: fmt.Errorf("running %s: %w", path, err)}
	}

	comparisons := crossLanguageComparisons(benchIR, rep)

	var regressions *comparator.SuiteComparison
	if !noHistory {
		regressions, err = recordAndCompareHistory(benchIR, rep, baselineRunID)
		if err != nil {
			slog.Warn("history", "error", err)
		}
	}

	var trends []analyzer.TrendResult
	var anomalies []analyzer.Anomaly
	if trendRequested && !noHistory {
		trends, anomalies, err = computeTrends(rep)
		if err != nil {
			slog.Warn("trend analysis", "error", err)
		}
	}

	out := os.Stdout
	if jsonOut {
		w := out
		if outputPath != "" {
			f, err := os.Create(outputPath)
			if err != nil {
				return &ExitCodeError{Code: 2, Err: fmt.Errorf("creating %s: %w", outputPath, err)}
			}
			defer f.Close()
			w = f
		}
		if err := report.WriteJSON(w, rep, comparisons, regressions, trends, anomalies); err != nil {
			return &ExitCodeError{Code: 2, Err: fmt.Errorf("writing JSON report: %w", err)}
		}
	} else {
		rp := report.New(out)
		rp.PrintReport(rep)
		rp.PrintComparisons(comparisons)
		if regressions != nil {
			rp.PrintRegressions(*regressions)
		}
		rp.PrintTrends(trends, anomalies)
	}

	for _, c := range rep.Cells {
		switch c.Outcome {
		case scheduler.OutcomeCompileFailure, scheduler.OutcomeRuntimeFailure, scheduler.OutcomeToolchainMissing:
			return &ExitCodeError{Code: 1, Err: fmt.Errorf("%s: %d benchmark cell(s) did not complete", path, len(rep.Cells)-rep.ResultCount())}
		}
	}
	if regressions != nil && len(regressions.Regressions) > 0 {
		return &ExitCodeError{Code: 1, Err: fmt.Errorf("%d performance regression(s) detected", len(regressions.Regressions))}
	}

	return nil
}

// crossLanguageComparisons builds one measurement.Comparison per
// benchmark in every suite that declares a `baseline:` language (which
// sets Compare), pitting each
// non-baseline language's measurement against the suite's declared
// baseline language (spec §8 scenario 6).
func crossLanguageComparisons(file *ir.BenchmarkIR, rep *scheduler.Report) []measurement.Comparison {
	var out []measurement.Comparison

	byFullName := make(map[string][]scheduler.Cell)
	for _, c := range rep.Cells {
		if c.Outcome != scheduler.OutcomeOK {
			continue
		}
		byFullName[c.FullName] = append(byFullName[c.FullName], c)
	}

	for _, suite := range file.Suites {
		if !suite.Compare || suite.Baseline == "" {
			continue
		}
		for _, bm := range suite.Benchmarks {
			cells := byFullName[bm.FullName]
			var baseline *scheduler.Cell
			for i := range cells {
				if cells[i].Lang == suite.Baseline {
					baseline = &cells[i]
					break
				}
			}
			if baseline == nil {
				continue
			}
			for i := range cells {
				if cells[i].Lang == suite.Baseline {
					continue
				}
				out = append(out, measurement.NewComparison(
					bm.FullName,
					*baseline.Measurement, string(baseline.Lang),
					*cells[i].Measurement, string(cells[i].Lang),
				))
			}
		}
	}
	return out
}

// recordAndCompareHistory persists every successful cell to the history
// store and, unless baselineRunID selects an explicit prior run,
// compares against each (suite, benchmark, language)'s latest previously
// recorded measurement (spec §8 scenario 6's regression-over-time
// supplement).
func recordAndCompareHistory(file *ir.BenchmarkIR, rep *scheduler.Report, baselineRunID string) (*comparator.SuiteComparison, error) {
	store, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close()
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}

	var baselineResults []comparator.Result
	if baselineRunID != "" {
		recs, err := store.ByRunID(baselineRunID)
		if err != nil {
			return nil, fmt.Errorf("loading baseline run %s: %w", baselineRunID, err)
		}
		for _, rec := range recs {
			baselineResults = append(baselineResults, comparator.Result{
				Name: rec.Benchmark, Language: rec.Language, Measurement: rec.Measurement,
			})
		}
	}

	recordedAt := time.Now()
	var currentResults []comparator.Result
	for _, c := range rep.Cells {
		if c.Outcome != scheduler.OutcomeOK {
			continue
		}
		if baselineRunID == "" {
			if latest, err := store.Latest(c.Suite, c.Benchmark, string(c.Lang)); err == nil && latest != nil {
				baselineResults = append(baselineResults, comparator.Result{
					Name: c.Benchmark, Language: string(c.Lang), Measurement: latest.Measurement,
				})
			}
		}
		currentResults = append(currentResults, comparator.Result{
			Name: c.Benchmark, Language: string(c.Lang), Measurement: *c.Measurement,
		})
		if _, err := store.Record(c.Suite, c.Benchmark, string(c.Lang), *c.Measurement, recordedAt); err != nil {
			slog.Warn("history: recording run", "suite", c.Suite, "benchmark", c.Benchmark, "lang", c.Lang, "error", err)
		}
	}

	if len(baselineResults) == 0 {
		return nil, nil
	}

	var threshold, confidence float64
	for _, suite := range file.Suites {
		threshold, confidence = cfg.ForSuite(suite.Name)
		break
	}
	if threshold == 0 {
		threshold, confidence = cfg.RegressionThreshold, cfg.ConfidenceLevel
	}
	comp := comparator.New(confidence, threshold)
	sc := comp.CompareSuite(baselineResults, currentResults)
	return &sc, nil
}

// computeTrends fits a trend line and flags anomalies for every
// (suite, benchmark, language) cell in rep that has enough persisted
// history, feeding history.History's per-run records into
// analyzer.Point (--trend, the reporter's "historical trends" mode).
func computeTrends(rep *scheduler.Report) ([]analyzer.TrendResult, []analyzer.Anomaly, error) {
	store, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close()
	if err := store.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing history schema: %w", err)
	}

	ta := analyzer.NewBasicTrendAnalyzer()

	var trends []analyzer.TrendResult
	var anomalies []analyzer.Anomaly
	seen := make(map[string]bool)
	for _, c := range rep.Cells {
		if c.Outcome != scheduler.OutcomeOK {
			continue
		}
		key := c.Suite + "/" + c.Benchmark + "/" + string(c.Lang)
		if seen[key] {
			continue
		}
		seen[key] = true

		records, err := store.History(c.Suite, c.Benchmark, string(c.Lang), 0)
		if err != nil {
			return trends, anomalies, fmt.Errorf("loading history for %s: %w", key, err)
		}
		points := make([]analyzer.Point, len(records))
		for i, rec := range records {
			points[i] = analyzer.Point{
				Benchmark:  rec.Benchmark,
				Language:   rec.Language,
				NanosPerOp: rec.Measurement.NanosPerOp,
				RecordedAt: rec.RecordedAt,
			}
		}

		if t, err := ta.CalculateTrend(points, ta.MinDataPoints); err == nil {
			trends = append(trends, *t)
		}
		anomalies = append(anomalies, ta.DetectAnomalies(points, ta.ZScoreThreshold)...)
	}
	return trends, anomalies, nil
}
