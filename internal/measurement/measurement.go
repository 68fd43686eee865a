// Package measurement turns raw per-iteration timing samples into the
// statistics a benchmark result reports: percentiles, coefficient of
// variation, IQR-based outlier removal, and multi-run aggregation via
// median plus a 95% confidence interval.
package measurement

import (
	"fmt"
	"math"
	"sort"
)

// DefaultCVThreshold is the stability cutoff (%): a result with CV above
// this is flagged unstable.
const DefaultCVThreshold = 5.0

// Measurement is one benchmark result, either from a single run
// (RawSamples populated) or an aggregate across multiple runs
// (RunCount > 1, RawSamples empty).
type Measurement struct {
	Iterations  uint64
	TotalNanos  uint64
	NanosPerOp  float64
	OpsPerSec   float64
	MinNanos    *uint64
	MaxNanos    *uint64
	P50Nanos    *uint64
	P75Nanos    *uint64
	P99Nanos    *uint64
	P995Nanos   *uint64
	RMEPercent  *float64
	Samples     *uint64
	BytesPerOp  *uint64
	AllocsPerOp *uint64
	RawSamples  []uint64
	CVPercent   *float64
	OutliersRemoved *uint64
	IsStable        *bool

	RunCount         *uint64
	MedianAcrossRuns *float64
	CI95Lower        *float64
	CI95Upper        *float64
	StdDevNanos      *float64
}

// FromSamples builds a Measurement from raw per-iteration nanosecond
// timings using the default outlier-removal and stability settings.
func FromSamples(rawSamples []uint64, iterations uint64) Measurement {
	return FromSamplesWithOptions(rawSamples, iterations, true, DefaultCVThreshold)
}

// FromSamplesWithOptions is FromSamples with outlier removal and the
// stability threshold under caller control (spec §4.G).
func FromSamplesWithOptions(rawSamples []uint64, iterations uint64, removeOutliers bool, cvThreshold float64) Measurement {
	originalCount := len(rawSamples)

	sorted := append([]uint64(nil), rawSamples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	filtered := sorted
	var outliersRemoved uint64
	if removeOutliers && len(sorted) >= 4 {
		filtered = removeOutliersIQR(sorted)
		outliersRemoved = uint64(originalCount - len(filtered))
	}

	statsSamples := filtered
	if len(statsSamples) == 0 {
		statsSamples = sorted
	}

	var totalNanos uint64
	for _, s := range statsSamples {
		totalNanos += s
	}
	effectiveIterations := uint64(len(statsSamples))
	nanosPerOp := 0.0
	if effectiveIterations > 0 {
		nanosPerOp = float64(totalNanos) / float64(effectiveIterations)
	}
	opsPerSec := 0.0
	if nanosPerOp > 0 {
		opsPerSec = 1_000_000_000.0 / nanosPerOp
	}

	m := Measurement{
		Iterations:      iterations,
		TotalNanos:      totalNanos,
		NanosPerOp:      nanosPerOp,
		OpsPerSec:       opsPerSec,
		P50Nanos:        percentile(statsSamples, 50),
		P75Nanos:        percentile(statsSamples, 75),
		P99Nanos:        percentile(statsSamples, 99),
		P995Nanos:       percentileF(statsSamples, 99.5),
		RawSamples:      rawSamples,
		OutliersRemoved: u64ptr(outliersRemoved),
	}
	if len(statsSamples) > 0 {
		m.MinNanos = u64ptr(statsSamples[0])
		m.MaxNanos = u64ptr(statsSamples[len(statsSamples)-1])
	}
	sampleCount := uint64(len(rawSamples))
	m.Samples = &sampleCount

	if len(statsSamples) > 1 {
		mean := nanosPerOp
		var sumSq float64
		for _, s := range statsSamples {
			d := float64(s) - mean
			sumSq += d * d
		}
		variance := sumSq / float64(len(statsSamples)-1)
		stdDev := math.Sqrt(variance)
		stdErr := stdDev / math.Sqrt(float64(len(statsSamples)))

		rme := (stdErr / mean) * 100.0 * 1.96
		cv := 0.0
		if mean > 0 {
			cv = (stdDev / mean) * 100.0
		}
		stable := cv <= cvThreshold

		m.RMEPercent = &rme
		m.CVPercent = &cv
		m.IsStable = &stable
		m.StdDevNanos = &stdDev
	}

	return m
}

// FromAggregate builds a Measurement from a known iteration count and
// total duration, with no per-sample statistics (spec §4.G's
// aggregate-only path for runtimes that only report totals).
func FromAggregate(iterations, totalNanos uint64) Measurement {
	nanosPerOp := 0.0
	if iterations > 0 {
		nanosPerOp = float64(totalNanos) / float64(iterations)
	}
	opsPerSec := 0.0
	if nanosPerOp > 0 {
		opsPerSec = 1_000_000_000.0 / nanosPerOp
	}
	samples := iterations
	return Measurement{
		Iterations: iterations,
		TotalNanos: totalNanos,
		NanosPerOp: nanosPerOp,
		OpsPerSec:  opsPerSec,
		Samples:    &samples,
	}
}

// WithAllocs attaches Go-specific allocation stats to a copy of m.
func (m Measurement) WithAllocs(bytesPerOp, allocsPerOp uint64) Measurement {
	m.BytesPerOp = &bytesPerOp
	m.AllocsPerOp = &allocsPerOp
	return m
}

// FormatDuration renders a nanosecond value using the same unit
// thresholds as the runner's terminal report.
func FormatDuration(nanos float64) string {
	switch {
	case nanos < 1_000:
		return fmt.Sprintf("%.2f ns", nanos)
	case nanos < 1_000_000:
		return fmt.Sprintf("%.2f µs", nanos/1_000)
	case nanos < 1_000_000_000:
		return fmt.Sprintf("%.2f ms", nanos/1_000_000)
	default:
		return fmt.Sprintf("%.3f s", nanos/1_000_000_000)
	}
}

// FormatOpsPerSec renders a throughput value with a magnitude suffix.
func FormatOpsPerSec(ops float64) string {
	switch {
	case ops >= 1_000_000_000:
		return fmt.Sprintf("%.2fB ops/s", ops/1_000_000_000)
	case ops >= 1_000_000:
		return fmt.Sprintf("%.2fM ops/s", ops/1_000_000)
	case ops >= 1_000:
		return fmt.Sprintf("%.2fK ops/s", ops/1_000)
	default:
		return fmt.Sprintf("%.2f ops/s", ops)
	}
}

// AggregateRuns combines several single-run Measurements (spec's `count`
// directive) into one representative Measurement: median nanos_per_op as
// the primary value, with a 95% confidence interval over the per-run
// nanos_per_op values. Raw samples are intentionally discarded across runs (spec §9
// open question: noted, not changed).
func AggregateRuns(runs []Measurement) Measurement {
	if len(runs) == 0 {
		return FromAggregate(0, 0)
	}
	if len(runs) == 1 {
		single := runs[0]
		one := uint64(1)
		single.RunCount = &one
		return single
	}

	runCount := len(runs)
	nanosValues := make([]float64, runCount)
	for i, r := range runs {
		nanosValues[i] = r.NanosPerOp
	}
	sort.Float64s(nanosValues)

	var median float64
	if runCount%2 == 0 {
		median = (nanosValues[runCount/2-1] + nanosValues[runCount/2]) / 2.0
	} else {
		median = nanosValues[runCount/2]
	}

	var sum float64
	for _, v := range nanosValues {
		sum += v
	}
	mean := sum / float64(runCount)
	var sumSq float64
	for _, v := range nanosValues {
		d := v - mean
		sumSq += d * d
	}
	variance := sumSq / float64(runCount-1)
	stdDev := math.Sqrt(variance)
	stdErr := stdDev / math.Sqrt(float64(runCount))

	const tValue = 1.96
	ciHalfWidth := tValue * stdErr
	ciLower := math.Max(median-ciHalfWidth, 0)
	ciUpper := median + ciHalfWidth

	var totalIterations, totalNanos uint64
	for _, r := range runs {
		totalIterations += r.Iterations
		totalNanos += r.TotalNanos
	}

	minNanos := minOfOptions(runs, func(r Measurement) *uint64 { return r.MinNanos })
	maxNanos := maxOfOptions(runs, func(r Measurement) *uint64 { return r.MaxNanos })

	p50 := medianOfOptions(collectOptions(runs, func(r Measurement) *uint64 { return r.P50Nanos }))
	p75 := medianOfOptions(collectOptions(runs, func(r Measurement) *uint64 { return r.P75Nanos }))
	p99 := medianOfOptions(collectOptions(runs, func(r Measurement) *uint64 { return r.P99Nanos }))
	p995 := medianOfOptions(collectOptions(runs, func(r Measurement) *uint64 { return r.P995Nanos }))

	bytesPerOp := averageOfOptions(collectOptions(runs, func(r Measurement) *uint64 { return r.BytesPerOp }))
	allocsPerOp := averageOfOptions(collectOptions(runs, func(r Measurement) *uint64 { return r.AllocsPerOp }))

	var totalSamples, totalOutliers uint64
	for _, r := range runs {
		if r.Samples != nil {
			totalSamples += *r.Samples
		}
		if r.OutliersRemoved != nil {
			totalOutliers += *r.OutliersRemoved
		}
	}

	var cvPercent *float64
	if mean > 0 {
		cv := (stdDev / mean) * 100.0
		cvPercent = &cv
	}
	var rmePercent *float64
	if median > 0 {
		rme := (stdErr / median) * 100.0 * 1.96
		rmePercent = &rme
	}
	var isStable *bool
	if cvPercent != nil {
		stable := *cvPercent <= DefaultCVThreshold
		isStable = &stable
	}

	opsPerSec := 0.0
	if median > 0 {
		opsPerSec = 1_000_000_000.0 / median
	}

	count := uint64(runCount)
	return Measurement{
		Iterations:      totalIterations,
		TotalNanos:      totalNanos,
		NanosPerOp:      median,
		OpsPerSec:       opsPerSec,
		MinNanos:        minNanos,
		MaxNanos:        maxNanos,
		P50Nanos:        p50,
		P75Nanos:        p75,
		P99Nanos:        p99,
		P995Nanos:       p995,
		RMEPercent:      rmePercent,
		Samples:         &totalSamples,
		BytesPerOp:      bytesPerOp,
		AllocsPerOp:     allocsPerOp,
		CVPercent:       cvPercent,
		OutliersRemoved: &totalOutliers,
		IsStable:        isStable,

		RunCount:         &count,
		MedianAcrossRuns: &median,
		CI95Lower:        &ciLower,
		CI95Upper:        &ciUpper,
		StdDevNanos:      &stdDev,
	}
}

func percentile(sorted []uint64, p int) *uint64 {
	if len(sorted) == 0 {
		return nil
	}
	idx := min(len(sorted)*p/100, len(sorted)-1)
	return u64ptr(sorted[idx])
}

func percentileF(sorted []uint64, p float64) *uint64 {
	if len(sorted) == 0 {
		return nil
	}
	idx := min(int(float64(len(sorted))*p/100.0), len(sorted)-1)
	return u64ptr(sorted[idx])
}

// removeOutliersIQR drops values outside [Q1-1.5*IQR, Q3+1.5*IQR] from a
// sorted slice (spec §4.G).
func removeOutliersIQR(sorted []uint64) []uint64 {
	if len(sorted) < 4 {
		return append([]uint64(nil), sorted...)
	}
	q1Idx := len(sorted) / 4
	q3Idx := len(sorted) * 3 / 4
	q1 := float64(sorted[q1Idx])
	q3 := float64(sorted[q3Idx])
	iqr := q3 - q1

	lowerBound := uint64(math.Max(q1-1.5*iqr, 0))
	upperBoundF := q3 + 1.5*iqr
	var upperBound uint64
	if upperBoundF > 0 {
		upperBound = uint64(upperBoundF)
	}

	out := make([]uint64, 0, len(sorted))
	for _, s := range sorted {
		if s >= lowerBound && s <= upperBound {
			out = append(out, s)
		}
	}
	return out
}

func medianOfOptions(values []uint64) *uint64 {
	if len(values) == 0 {
		return nil
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	n := len(values)
	if n%2 == 0 {
		return u64ptr((values[n/2-1] + values[n/2]) / 2)
	}
	return u64ptr(values[n/2])
}

func collectOptions(runs []Measurement, get func(Measurement) *uint64) []uint64 {
	var out []uint64
	for _, r := range runs {
		if v := get(r); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func minOfOptions(runs []Measurement, get func(Measurement) *uint64) *uint64 {
	values := collectOptions(runs, get)
	if len(values) == 0 {
		return nil
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return u64ptr(m)
}

func maxOfOptions(runs []Measurement, get func(Measurement) *uint64) *uint64 {
	values := collectOptions(runs, get)
	if len(values) == 0 {
		return nil
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return u64ptr(m)
}

func averageOfOptions(values []uint64) *uint64 {
	if len(values) == 0 {
		return nil
	}
	var sum uint64
	for _, v := range values {
		sum += v
	}
	return u64ptr(sum / uint64(len(values)))
}

func u64ptr(v uint64) *uint64 { return &v }
