package measurement

import "testing"

func TestFromSamples_BasicStats(t *testing.T) {
	samples := []uint64{100, 110, 105, 95, 120, 90, 115, 108}
	m := FromSamplesWithOptions(samples, uint64(len(samples)), false, DefaultCVThreshold)

	if m.Iterations != uint64(len(samples)) {
		t.Errorf("Iterations = %d, want %d", m.Iterations, len(samples))
	}
	if m.MinNanos == nil || *m.MinNanos != 90 {
		t.Errorf("MinNanos = %v, want 90", m.MinNanos)
	}
	if m.MaxNanos == nil || *m.MaxNanos != 120 {
		t.Errorf("MaxNanos = %v, want 120", m.MaxNanos)
	}
	if m.Samples == nil || *m.Samples != uint64(len(samples)) {
		t.Errorf("Samples = %v, want %d", m.Samples, len(samples))
	}
}

func TestFromSamples_OutlierRemoval(t *testing.T) {
	samples := []uint64{100, 101, 99, 102, 98, 100, 101, 5000}
	m := FromSamplesWithOptions(samples, uint64(len(samples)), true, DefaultCVThreshold)
	if m.OutliersRemoved == nil || *m.OutliersRemoved == 0 {
		t.Fatalf("expected the 5000 outlier to be removed, got OutliersRemoved=%v", m.OutliersRemoved)
	}
	if m.MaxNanos == nil || *m.MaxNanos == 5000 {
		t.Errorf("expected MaxNanos to exclude the outlier, got %v", m.MaxNanos)
	}
}

func TestFromSamples_TooFewSamplesSkipsOutlierRemoval(t *testing.T) {
	samples := []uint64{100, 200, 300}
	m := FromSamplesWithOptions(samples, uint64(len(samples)), true, DefaultCVThreshold)
	if m.OutliersRemoved == nil || *m.OutliersRemoved != 0 {
		t.Errorf("expected no outlier removal below 4 samples, got %v", m.OutliersRemoved)
	}
}

func TestFromSamples_StabilityThreshold(t *testing.T) {
	stable := []uint64{1000, 1001, 999, 1002, 998, 1000}
	m := FromSamplesWithOptions(stable, uint64(len(stable)), false, DefaultCVThreshold)
	if m.IsStable == nil || !*m.IsStable {
		t.Errorf("expected tight samples to be stable, CV = %v", m.CVPercent)
	}

	unstable := []uint64{100, 5000, 200, 8000, 50, 9000}
	m2 := FromSamplesWithOptions(unstable, uint64(len(unstable)), false, DefaultCVThreshold)
	if m2.IsStable == nil || *m2.IsStable {
		t.Errorf("expected noisy samples to be unstable, CV = %v", m2.CVPercent)
	}
}

func TestFromAggregate_NoPerSampleStats(t *testing.T) {
	m := FromAggregate(1000, 500_000)
	if m.NanosPerOp != 500.0 {
		t.Errorf("NanosPerOp = %v, want 500", m.NanosPerOp)
	}
	if m.P50Nanos != nil {
		t.Errorf("expected no percentile data from an aggregate-only measurement")
	}
}

func TestAggregateRuns_SingleRun(t *testing.T) {
	m := FromSamplesWithOptions([]uint64{100, 110, 90}, 3, false, DefaultCVThreshold)
	agg := AggregateRuns([]Measurement{m})
	if agg.RunCount == nil || *agg.RunCount != 1 {
		t.Errorf("RunCount = %v, want 1", agg.RunCount)
	}
}

func TestAggregateRuns_MultiRunMedianAndCI(t *testing.T) {
	runs := []Measurement{
		FromAggregate(100, 10_000),
		FromAggregate(100, 11_000),
		FromAggregate(100, 9_000),
		FromAggregate(100, 10_500),
	}
	agg := AggregateRuns(runs)
	if agg.RunCount == nil || *agg.RunCount != 4 {
		t.Fatalf("RunCount = %v, want 4", agg.RunCount)
	}
	if agg.MedianAcrossRuns == nil {
		t.Fatalf("expected MedianAcrossRuns to be set")
	}
	if agg.CI95Lower == nil || agg.CI95Upper == nil {
		t.Fatalf("expected a 95%% CI to be computed")
	}
	if *agg.CI95Lower > *agg.CI95Upper {
		t.Errorf("CI lower (%v) > upper (%v)", *agg.CI95Lower, *agg.CI95Upper)
	}
	if len(agg.RawSamples) != 0 {
		t.Errorf("expected raw samples to be discarded across runs, got %d", len(agg.RawSamples))
	}
}

func TestFormatDuration_UnitThresholds(t *testing.T) {
	cases := []struct {
		nanos float64
		want  string
	}{
		{500, "500.00 ns"},
		{1500, "1.50 µs"},
		{1_500_000, "1.50 ms"},
		{1_500_000_000, "1.500 s"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.nanos); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.nanos, got, c.want)
		}
	}
}

func TestComparison_Winner(t *testing.T) {
	fast := FromAggregate(1, 100)
	slow := FromAggregate(1, 200)

	c := NewComparison("bench", fast, "go", slow, "rust")
	if c.Winner != WinnerFirst {
		t.Errorf("Winner = %v, want WinnerFirst", c.Winner)
	}
	if c.Speedup != 2.0 {
		t.Errorf("Speedup = %v, want 2.0", c.Speedup)
	}
}

func TestComparison_Tie(t *testing.T) {
	a := FromAggregate(1, 100)
	b := FromAggregate(1, 102)
	c := NewComparison("bench", a, "go", b, "rust")
	if c.Winner != WinnerTie {
		t.Errorf("Winner = %v, want WinnerTie for a 2%% difference", c.Winner)
	}
}
