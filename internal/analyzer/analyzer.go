package analyzer

import (
	"fmt"
	"math"
	"sort"
)

// CalculateTrend calculates a linear-regression trend from a single
// benchmark's history, ordered by wall-clock recording time rather
// than the teacher's commit sequence (Polybench has no VCS hook into
// a run, spec §1's CLI scaffolding is out of scope).
func (bta *BasicTrendAnalyzer) CalculateTrend(history []Point, minDataPoints int) (*TrendResult, error) {
	if len(history) < minDataPoints {
		return nil, fmt.Errorf("insufficient data points: %d < %d", len(history), minDataPoints)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no historical data")
	}

	sorted := make([]Point, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})

	n := float64(len(sorted))
	var sumX, sumY, sumXY, sumX2 float64

	startTime := sorted[0].RecordedAt
	for _, p := range sorted {
		x := p.RecordedAt.Sub(startTime).Hours() / 24
		y := p.NanosPerOp

		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denominator := n*sumX2 - sumX*sumX
	if math.Abs(denominator) < 1e-10 {
		return nil, fmt.Errorf("cannot calculate trend: no variance in x")
	}

	slope := (n*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / n

	ssRes, ssTot := 0.0, 0.0
	meanY := sumY / n
	for _, p := range sorted {
		x := p.RecordedAt.Sub(startTime).Hours() / 24
		predicted := intercept + slope*x
		ssRes += math.Pow(p.NanosPerOp-predicted, 2)
		ssTot += math.Pow(p.NanosPerOp-meanY, 2)
	}

	rSquared := 1.0
	if ssTot > 0 {
		rSquared = 1.0 - (ssRes / ssTot)
	}
	if rSquared < 0 {
		rSquared = 0
	}
	if rSquared > 1 {
		rSquared = 1
	}

	direction := "stable"
	if absSlope := math.Abs(slope); absSlope > 1.0 { // > 1 ns/day change
		if slope > 0 {
			direction = "degrading"
		} else {
			direction = "improving"
		}
	}

	endTime := sorted[len(sorted)-1].RecordedAt
	periodDays := int(endTime.Sub(startTime).Hours() / 24)
	if periodDays == 0 {
		periodDays = 1
	}

	startValue := sorted[0].NanosPerOp
	endValue := sorted[len(sorted)-1].NanosPerOp
	changePercent := 0.0
	if startValue > 0 {
		changePercent = ((endValue - startValue) / startValue) * 100
	}

	return &TrendResult{
		Benchmark:     sorted[0].Benchmark,
		Language:      sorted[0].Language,
		Direction:     direction,
		Slope:         slope,
		RSquared:      rSquared,
		ChangePercent: changePercent,
		PeriodDays:    periodDays,
		DataPoints:    len(sorted),
		StartTime:     startTime,
		EndTime:       endTime,
		StartValue:    startValue,
		EndValue:      endValue,
	}, nil
}

// DetectAnomalies flags recorded measurements whose nanos-per-op
// deviates from the history's mean by more than zScoreThreshold
// standard deviations.
func (bta *BasicTrendAnalyzer) DetectAnomalies(history []Point, zScoreThreshold float64) []Anomaly {
	if len(history) < 2 {
		return nil
	}

	sorted := make([]Point, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})

	values := make([]float64, len(sorted))
	for i, p := range sorted {
		values[i] = p.NanosPerOp
	}

	mean := calculateMean(values)
	stdDev := calculateStdDev(values, mean)
	if stdDev == 0 {
		return nil
	}

	var anomalies []Anomaly
	for i, p := range sorted {
		zScore := (p.NanosPerOp - mean) / stdDev
		if math.Abs(zScore) <= zScoreThreshold {
			continue
		}

		severity := "low"
		switch {
		case math.Abs(zScore) > 3.0:
			severity = "critical"
		case math.Abs(zScore) > 2.5:
			severity = "high"
		case math.Abs(zScore) > 1.5:
			severity = "medium"
		}

		a := Anomaly{
			Benchmark: p.Benchmark,
			Language:  p.Language,
			Timestamp: p.RecordedAt,
			Value:     p.NanosPerOp,
			ZScore:    zScore,
			Severity:  severity,
			Message:   fmt.Sprintf("anomaly detected: %.2f%% deviation from mean", math.Abs(zScore)*100/3),
		}
		if i > 0 && p.NanosPerOp > sorted[i-1].NanosPerOp*1.05 {
			a.IsRegression = true
		}
		anomalies = append(anomalies, a)
	}
	return anomalies
}

// ForecastPerformance extrapolates each benchmark/language pair's
// linear trend forward by the requested number of one-day periods.
func (bta *BasicTrendAnalyzer) ForecastPerformance(history []Point, periods int) []Forecast {
	if len(history) < 2 || periods <= 0 {
		return nil
	}

	sorted := make([]Point, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})

	byKey := make(map[string][]Point)
	for _, p := range sorted {
		key := p.Benchmark + ":" + p.Language
		byKey[key] = append(byKey[key], p)
	}

	var forecasts []Forecast
	for _, pts := range byKey {
		if len(pts) < 2 {
			continue
		}

		trend, err := bta.CalculateTrend(pts, 2)
		if err != nil {
			continue
		}

		stdErr := calculateForecastStdErr(pts)
		for p := 1; p <= periods; p++ {
			predictedTime := trend.EndValue + trend.Slope*float64(p)
			marginOfError := 1.96 * stdErr * math.Sqrt(1+1/float64(len(pts)))

			f := Forecast{
				Benchmark:     trend.Benchmark,
				Language:      trend.Language,
				Period:        p,
				PredictedTime: predictedTime,
				LowerBound:    predictedTime - marginOfError,
				UpperBound:    predictedTime + marginOfError,
				Confidence:    bta.ConfidenceLevel,
			}
			if f.LowerBound < 0 {
				f.LowerBound = 0
			}
			forecasts = append(forecasts, f)
		}
	}
	return forecasts
}

func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func calculateStdDev(values []float64, mean float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	varianceSum := 0.0
	for _, v := range values {
		diff := v - mean
		varianceSum += diff * diff
	}
	return math.Sqrt(varianceSum / float64(len(values)-1))
}

func calculateForecastStdErr(history []Point) float64 {
	if len(history) < 2 {
		return 0
	}
	values := make([]float64, len(history))
	for i, p := range history {
		values[i] = p.NanosPerOp
	}
	mean := calculateMean(values)
	ssRes := 0.0
	for _, v := range values {
		diff := v - mean
		ssRes += diff * diff
	}
	mse := ssRes / float64(len(values)-1)
	return math.Sqrt(mse)
}
