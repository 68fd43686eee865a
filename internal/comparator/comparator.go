// Package comparator detects performance regressions between two
// measurements of the same benchmark — typically a current run
// against an internal/history baseline (spec §8 scenario 6's
// "historical comparison" supplement). It is distinct from
// internal/measurement's Comparison type, which compares two
// languages within a single run rather than one language across time.
package comparator

import (
	"math"
	"sort"

	"github.com/jpequegn/polybench/internal/measurement"
)

// Result pairs one benchmark's measurement with the name and
// language it belongs to, the minimal shape comparator needs from
// either a fresh run or an internal/history.Record.
type Result struct {
	Name        string
	Language    string
	Measurement measurement.Measurement
}

// BenchmarkComparison is one benchmark's baseline-vs-current result.
type BenchmarkComparison struct {
	Name     string
	Language string
	Baseline Result
	Current  Result

	// TimeDelta is the percentage change in mean time (negative =
	// faster, positive = slower).
	TimeDelta float64

	IsRegression  bool
	IsSignificant bool
	PValue        float64
	EffectSize    float64
}

// Summary aggregates a SuiteComparison's per-benchmark deltas.
type Summary struct {
	TotalComparisons   int
	Regressions        int
	Improvements       int
	AverageDelta       float64
	MaxDelta           float64
	MinDelta           float64
	SignificantChanges int
}

// SuiteComparison is the result of comparing every benchmark a
// baseline and a current run have in common.
type SuiteComparison struct {
	Benchmarks   []BenchmarkComparison
	Regressions  []string
	Improvements []string
	Summary      Summary
}

// Comparator compares baseline and current results under a fixed
// confidence level and regression threshold.
type Comparator struct {
	// ConfidenceLevel is the desired statistical confidence (e.g. 0.95).
	ConfidenceLevel float64

	// RegressionThreshold is the time ratio above which a benchmark
	// counts as regressed (e.g. 1.05 = current 5% slower than baseline).
	RegressionThreshold float64
}

// New builds a Comparator. Passing zero for either argument falls
// back to the conventional defaults (95% confidence, 5% regression
// threshold).
func New(confidenceLevel, regressionThreshold float64) *Comparator {
	if confidenceLevel == 0 {
		confidenceLevel = 0.95
	}
	if regressionThreshold == 0 {
		regressionThreshold = 1.05
	}
	return &Comparator{ConfidenceLevel: confidenceLevel, RegressionThreshold: regressionThreshold}
}

// CompareSuite compares every current result against the baseline
// result with the same (Name, Language). Results present only in one
// side are skipped — there's nothing to compare them against.
func (c *Comparator) CompareSuite(baseline, current []Result) SuiteComparison {
	result := SuiteComparison{}

	baselineByKey := make(map[string]Result, len(baseline))
	for _, r := range baseline {
		baselineByKey[r.Name+"\x00"+r.Language] = r
	}

	for _, cur := range current {
		base, ok := baselineByKey[cur.Name+"\x00"+cur.Language]
		if !ok {
			continue
		}
		cmp := c.Compare(base, cur)
		result.Benchmarks = append(result.Benchmarks, cmp)
		switch {
		case cmp.IsRegression:
			result.Regressions = append(result.Regressions, cmp.Name)
		case cmp.TimeDelta < 0:
			result.Improvements = append(result.Improvements, cmp.Name)
		}
	}

	result.Summary = summarize(result)
	return result
}

// Compare compares one baseline/current pair.
func (c *Comparator) Compare(baseline, current Result) BenchmarkComparison {
	cmp := BenchmarkComparison{
		Name:     current.Name,
		Language: current.Language,
		Baseline: baseline,
		Current:  current,
	}

	baselineMean := baseline.Measurement.NanosPerOp
	currentMean := current.Measurement.NanosPerOp

	if baselineMean == 0 {
		cmp.TimeDelta = 0
	} else {
		cmp.TimeDelta = ((currentMean - baselineMean) / baselineMean) * 100
	}

	if baselineMean > 0 {
		cmp.IsRegression = (currentMean / baselineMean) > c.RegressionThreshold
	}

	cmp.IsSignificant, cmp.PValue = c.significance(baseline.Measurement, current.Measurement)
	cmp.EffectSize = cohensD(baselineMean, stdDevOf(baseline.Measurement), currentMean, stdDevOf(current.Measurement))

	return cmp
}

// significance runs a simplified two-sample t-test against a normal
// approximation, the same shortcut the teacher's comparator takes
// when only one sample per side is available (no raw per-iteration
// data survives into a persisted measurement.Measurement's summary
// fields).
func (c *Comparator) significance(baseline, current measurement.Measurement) (bool, float64) {
	baselineMean := baseline.NanosPerOp
	currentMean := current.NanosPerOp
	if baselineMean == 0 || currentMean == 0 {
		return false, 1.0
	}

	baselineStdDev := stdDevOf(baseline)
	currentStdDev := stdDevOf(current)
	if baselineStdDev == 0 {
		baselineStdDev = baselineMean * 0.05
	}
	if currentStdDev == 0 {
		currentStdDev = currentMean * 0.05
	}

	pooledStdDev := math.Sqrt((baselineStdDev*baselineStdDev + currentStdDev*currentStdDev) / 2)
	if pooledStdDev == 0 {
		pooledStdDev = baselineMean * 0.01
	}

	tStat := (currentMean - baselineMean) / pooledStdDev
	pValue := 2 * (1 - normalCDF(math.Abs(tStat)))
	alpha := 1 - c.ConfidenceLevel
	return pValue < alpha, pValue
}

func stdDevOf(m measurement.Measurement) float64 {
	if m.StdDevNanos != nil {
		return *m.StdDevNanos
	}
	return 0
}

func summarize(result SuiteComparison) Summary {
	summary := Summary{
		TotalComparisons: len(result.Benchmarks),
		Regressions:      len(result.Regressions),
		Improvements:     len(result.Improvements),
	}
	if len(result.Benchmarks) == 0 {
		return summary
	}

	deltas := make([]float64, 0, len(result.Benchmarks))
	for _, cmp := range result.Benchmarks {
		deltas = append(deltas, cmp.TimeDelta)
		if cmp.IsSignificant {
			summary.SignificantChanges++
		}
	}
	sort.Float64s(deltas)
	summary.MinDelta = deltas[0]
	summary.MaxDelta = deltas[len(deltas)-1]

	sum := 0.0
	for _, d := range deltas {
		sum += d
	}
	summary.AverageDelta = sum / float64(len(deltas))
	return summary
}

// normalCDF approximates the cumulative distribution function of the
// standard normal distribution via a rational approximation.
func normalCDF(x float64) float64 {
	b1, b2, b3, b4, b5 := 0.319381530, -0.356563782, 1.781477937, -1.821255978, 1.330274429
	p, c := 0.2316419, 0.39894228

	if x >= 0 {
		t := 1.0 / (1.0 + p*x)
		return 1.0 - c*math.Exp(-x*x/2.0)*t*(b1+t*(b2+t*(b3+t*(b4+t*b5))))
	}
	t := 1.0 / (1.0 - p*x)
	return c * math.Exp(-x*x/2.0) * t * (b1 + t*(b2+t*(b3+t*(b4+t*b5))))
}

// cohensD computes Cohen's d effect size for two single-sample groups
// with known standard deviations.
func cohensD(mean1, std1, mean2, std2 float64) float64 {
	pooledVariance := (std1*std1 + std2*std2) / 2
	pooledStdDev := math.Sqrt(pooledVariance)
	if pooledStdDev == 0 {
		return 0
	}
	return (mean2 - mean1) / pooledStdDev
}
