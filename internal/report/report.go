// Package report renders a scheduler.Report to a human (colored
// terminal table) or a machine (JSON document), plus the two kinds of
// comparison spec §8 scenario 6 and the history supplement call for:
// cross-language comparison within one run, and regression comparison
// against a persisted baseline. SVG/Markdown/TUI rendering are
// explicit Non-goals (spec §1) — only terminal and JSON are built.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/jpequegn/polybench/internal/analyzer"
	"github.com/jpequegn/polybench/internal/comparator"
	"github.com/jpequegn/polybench/internal/measurement"
	"github.com/jpequegn/polybench/internal/scheduler"
)

// Reporter writes a run's results to w in the terminal's human format.
type Reporter struct {
	w io.Writer

	ok    func(a ...interface{}) string
	fail  func(a ...interface{}) string
	warn  func(a ...interface{}) string
	faint func(a ...interface{}) string
}

// New builds a Reporter. Color follows fatih/color's own global
// NO_COLOR/terminal detection (color.NoColor), matching how the
// teacher's other terminal-facing packages defer to the library
// rather than re-implementing isatty checks.
func New(w io.Writer) *Reporter {
	return &Reporter{
		w:     w,
		ok:    color.New(color.FgGreen).SprintFunc(),
		fail:  color.New(color.FgRed).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		faint: color.New(color.Faint).SprintFunc(),
	}
}

// PrintReport renders one scheduler.Report: a line per cell, then a
// summary count, matching the teacher's box-drawn cmd/run.go summary
// but with real ANSI pass/fail coloring in place of plain emoji.
func (r *Reporter) PrintReport(rep *scheduler.Report) {
	if rep.AnvilFailed {
		fmt.Fprintf(r.w, "%s anvil did not start: %v (falling back to no Anvil)\n",
			r.warn("!"), rep.AnvilFailedErr)
	}

	var ok, failed, skipped int
	for _, c := range rep.Cells {
		r.printCell(c)
		switch c.Outcome {
		case scheduler.OutcomeOK:
			ok++
		case scheduler.OutcomeSkipped:
			skipped++
		default:
			failed++
		}
	}

	fmt.Fprintf(r.w, "\n%d passed, %d failed, %d skipped\n", ok, failed, skipped)
}

func (r *Reporter) printCell(c scheduler.Cell) {
	switch c.Outcome {
	case scheduler.OutcomeOK:
		fmt.Fprintf(r.w, "%s %s [%s]  %s  %s\n",
			r.ok("✓"), c.FullName, c.Lang,
			measurement.FormatDuration(c.Measurement.NanosPerOp),
			r.faint(measurement.FormatOpsPerSec(c.Measurement.OpsPerSec)))
	case scheduler.OutcomeSkipped:
		fmt.Fprintf(r.w, "%s %s [%s]  skipped\n", r.warn("-"), c.FullName, c.Lang)
	default:
		fmt.Fprintf(r.w, "%s %s [%s]  %s: %v\n",
			r.fail("✗"), c.FullName, c.Lang, c.Outcome, c.Err)
		if c.Stderr != "" {
			fmt.Fprintf(r.w, "  %s\n", r.faint(firstLine(c.Stderr)))
		}
	}
}

// PrintComparisons renders cross-language head-to-head results (spec
// §8 scenario 6).
func (r *Reporter) PrintComparisons(comparisons []measurement.Comparison) {
	if len(comparisons) == 0 {
		return
	}
	fmt.Fprintf(r.w, "\nCross-language comparison:\n")
	for _, c := range comparisons {
		fmt.Fprintf(r.w, "  %s: %s\n", c.Name, c.SpeedupDescription())
	}
}

// PrintRegressions renders a baseline-vs-current regression comparison.
func (r *Reporter) PrintRegressions(sc comparator.SuiteComparison) {
	if len(sc.Benchmarks) == 0 {
		return
	}
	fmt.Fprintf(r.w, "\nHistorical comparison (%d benchmarks):\n", sc.Summary.TotalComparisons)
	for _, cmp := range sc.Benchmarks {
		marker := r.ok("=")
		switch {
		case cmp.IsRegression:
			marker = r.fail("▲")
		case cmp.TimeDelta < -0.5:
			marker = r.ok("▼")
		}
		sig := ""
		if cmp.IsSignificant {
			sig = r.faint(fmt.Sprintf(" (p=%.3f)", cmp.PValue))
		}
		fmt.Fprintf(r.w, "  %s %s [%s]  %+.2f%%%s\n", marker, cmp.Name, cmp.Language, cmp.TimeDelta, sig)
	}
	if len(sc.Regressions) > 0 {
		fmt.Fprintf(r.w, "%s %d regression(s): %v\n", r.fail("!"), len(sc.Regressions), sc.Regressions)
	}
}

// PrintTrends renders one trend line per benchmark/language pair that
// had enough persisted history to fit a regression (spec §4's reporter
// "historical trends" mode), followed by any flagged anomalies.
func (r *Reporter) PrintTrends(trends []analyzer.TrendResult, anomalies []analyzer.Anomaly) {
	if len(trends) == 0 && len(anomalies) == 0 {
		return
	}
	fmt.Fprintf(r.w, "\nHistorical trend:\n")
	for _, t := range trends {
		marker := r.ok("=")
		switch t.Direction {
		case "degrading":
			marker = r.fail("▲")
		case "improving":
			marker = r.ok("▼")
		}
		fmt.Fprintf(r.w, "  %s %s [%s]  %s  %+.1f%% over %d day(s)%s\n",
			marker, t.Benchmark, t.Language, t.Direction, t.ChangePercent, t.PeriodDays,
			r.faint(fmt.Sprintf("  (r²=%.2f, n=%d)", t.RSquared, t.DataPoints)))
	}
	for _, a := range anomalies {
		fmt.Fprintf(r.w, "  %s %s [%s]  %s (z=%.2f)\n", r.warn("?"), a.Benchmark, a.Language, a.Message, a.ZScore)
	}
}

// jsonDocument is the single consolidated structure WriteJSON emits —
// one self-contained object a script can jq into, rather than several
// independent streams.
type jsonDocument struct {
	GeneratedAt time.Time                   `json:"generated_at"`
	Cells       []jsonCell                  `json:"cells"`
	Comparisons []measurement.Comparison    `json:"comparisons,omitempty"`
	Regressions *comparator.SuiteComparison `json:"regressions,omitempty"`
	Trends      []analyzer.TrendResult      `json:"trends,omitempty"`
	Anomalies   []analyzer.Anomaly          `json:"anomalies,omitempty"`
	AnvilFailed bool                        `json:"anvil_failed,omitempty"`
}

type jsonCell struct {
	Suite       string                   `json:"suite"`
	Benchmark   string                   `json:"benchmark"`
	Language    string                   `json:"language"`
	Outcome     string                   `json:"outcome"`
	Measurement *measurement.Measurement `json:"measurement,omitempty"`
	Error       string                   `json:"error,omitempty"`
	DurationMs  float64                  `json:"duration_ms"`
}

// WriteJSON writes one consolidated JSON document combining the
// scheduler report with whichever optional comparisons, trends, and
// anomalies were computed (any argument may be nil/empty to omit that
// section).
func WriteJSON(w io.Writer, rep *scheduler.Report, comparisons []measurement.Comparison, regressions *comparator.SuiteComparison, trends []analyzer.TrendResult, anomalies []analyzer.Anomaly) error {
	doc := jsonDocument{
		GeneratedAt: time.Now(),
		Cells:       make([]jsonCell, 0, len(rep.Cells)),
		Comparisons: comparisons,
		Regressions: regressions,
		Trends:      trends,
		Anomalies:   anomalies,
		AnvilFailed: rep.AnvilFailed,
	}
	for _, c := range rep.Cells {
		jc := jsonCell{
			Suite:       c.Suite,
			Benchmark:   c.Benchmark,
			Language:    string(c.Lang),
			Outcome:     c.Outcome.String(),
			Measurement: c.Measurement,
			DurationMs:  float64(c.Duration) / float64(time.Millisecond),
		}
		if c.Err != nil {
			jc.Error = c.Err.Error()
		}
		doc.Cells = append(doc.Cells, jc)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
