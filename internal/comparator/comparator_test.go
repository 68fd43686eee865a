package comparator

import (
	"testing"

	"github.com/jpequegn/polybench/internal/measurement"
)

func mkResult(name, lang string, nanosPerOp float64, stdDev *float64) Result {
	return Result{
		Name:     name,
		Language: lang,
		Measurement: measurement.Measurement{
			NanosPerOp:  nanosPerOp,
			StdDevNanos: stdDev,
		},
	}
}

func f64(v float64) *float64 { return &v }

func TestNew_DefaultsWhenZero(t *testing.T) {
	c := New(0, 0)
	if c.ConfidenceLevel != 0.95 {
		t.Errorf("ConfidenceLevel = %v, want 0.95", c.ConfidenceLevel)
	}
	if c.RegressionThreshold != 1.05 {
		t.Errorf("RegressionThreshold = %v, want 1.05", c.RegressionThreshold)
	}
}

func TestCompare_FasterCurrentIsNotARegression(t *testing.T) {
	c := New(0.95, 1.05)
	baseline := mkResult("sort", "go", 1000, f64(50))
	current := mkResult("sort", "go", 950, f64(45))

	cmp := c.Compare(baseline, current)
	if cmp.IsRegression {
		t.Error("expected no regression for a faster current run")
	}
	if cmp.TimeDelta >= 0 {
		t.Errorf("TimeDelta = %v, want negative", cmp.TimeDelta)
	}
}

func TestCompare_SlowerCurrentBeyondThresholdIsARegression(t *testing.T) {
	c := New(0.95, 1.05)
	baseline := mkResult("sort", "go", 1000, f64(50))
	current := mkResult("sort", "go", 1200, f64(50))

	cmp := c.Compare(baseline, current)
	if !cmp.IsRegression {
		t.Error("expected a regression for a 20% slowdown past a 5% threshold")
	}
	if cmp.TimeDelta <= 0 {
		t.Errorf("TimeDelta = %v, want positive", cmp.TimeDelta)
	}
}

func TestCompare_SlowdownWithinThresholdIsNotARegression(t *testing.T) {
	c := New(0.95, 1.05)
	baseline := mkResult("sort", "go", 1000, f64(50))
	current := mkResult("sort", "go", 1020, f64(50))

	cmp := c.Compare(baseline, current)
	if cmp.IsRegression {
		t.Error("expected a 2% slowdown to stay under a 5% threshold")
	}
}

func TestCompare_ZeroBaselineMeanDoesNotDivideByZero(t *testing.T) {
	c := New(0.95, 1.05)
	baseline := mkResult("sort", "go", 0, nil)
	current := mkResult("sort", "go", 1000, nil)

	cmp := c.Compare(baseline, current)
	if cmp.TimeDelta != 0 {
		t.Errorf("TimeDelta = %v, want 0 for a zero baseline", cmp.TimeDelta)
	}
	if cmp.IsRegression {
		t.Error("expected no regression verdict when the baseline mean is zero")
	}
}

func TestCompareSuite_OnlyComparesMatchingNameAndLanguage(t *testing.T) {
	c := New(0.95, 1.05)
	baseline := []Result{
		mkResult("sort", "go", 1000, f64(50)),
		mkResult("hash", "go", 500, f64(25)),
	}
	current := []Result{
		mkResult("sort", "go", 1200, f64(50)),
		mkResult("sort", "rust", 800, f64(40)), // no rust baseline, skipped
		mkResult("hash", "go", 480, f64(24)),
	}

	result := c.CompareSuite(baseline, current)
	if len(result.Benchmarks) != 2 {
		t.Fatalf("len(Benchmarks) = %d, want 2", len(result.Benchmarks))
	}
	if result.Summary.TotalComparisons != 2 {
		t.Errorf("Summary.TotalComparisons = %d, want 2", result.Summary.TotalComparisons)
	}
	if len(result.Regressions) != 1 || result.Regressions[0] != "sort" {
		t.Errorf("Regressions = %v, want [sort]", result.Regressions)
	}
	if len(result.Improvements) != 1 || result.Improvements[0] != "hash" {
		t.Errorf("Improvements = %v, want [hash]", result.Improvements)
	}
}

func TestCompareSuite_EmptyInputsProduceEmptyResult(t *testing.T) {
	c := New(0.95, 1.05)
	result := c.CompareSuite(nil, nil)
	if len(result.Benchmarks) != 0 {
		t.Errorf("expected no comparisons for empty inputs, got %d", len(result.Benchmarks))
	}
	if result.Summary.TotalComparisons != 0 {
		t.Errorf("Summary.TotalComparisons = %d, want 0", result.Summary.TotalComparisons)
	}
}

func TestCompare_MissingStdDevFallsBackToFivePercentEstimate(t *testing.T) {
	c := New(0.95, 1.05)
	baseline := mkResult("sort", "go", 1000, nil)
	current := mkResult("sort", "go", 1050, nil)

	// With 5%-of-mean stddevs (50 and 52.5) t is about 0.98; without
	// them the 1%-of-baseline last resort would give t = 5.
	cmp := c.Compare(baseline, current)
	if cmp.IsSignificant {
		t.Error("a 5 percent slowdown should not be significant under the 5-percent-of-mean stddev estimate")
	}
}
