// Package analyzer fits a trend line across a benchmark's persisted
// history, flags statistical anomalies, and extrapolates a short-term
// forecast. It is the SPEC_FULL supplement behind the Report
// Renderer's "historical trends" mode — adapted from the teacher's own
// trend/anomaly/forecast package, reshaped to operate on
// internal/history.Record's per-run measurements instead of a single
// persisted baseline/current regression row, since Polybench's history
// stores every run rather than one comparison per commit.
package analyzer

import "time"

// Point is the minimal shape analyzer needs from one history.Record:
// just enough to fit a trend without internal/analyzer importing
// internal/history (the cmd layer builds these from
// history.Record.Measurement so no import cycle is introduced).
type Point struct {
	Benchmark  string
	Language   string
	NanosPerOp float64
	RecordedAt time.Time
}

// TrendResult summarizes a linear-regression fit over one benchmark's
// nanos-per-op across its recorded history.
type TrendResult struct {
	Benchmark     string
	Language      string
	Direction     string // "improving", "degrading", "stable"
	Slope         float64
	RSquared      float64
	ChangePercent float64
	PeriodDays    int
	DataPoints    int
	StartTime     time.Time
	EndTime       time.Time
	StartValue    float64
	EndValue      float64
}

// Anomaly is one recorded measurement whose nanos-per-op deviates from
// the history's mean by more than a z-score threshold.
type Anomaly struct {
	Benchmark    string
	Language     string
	Timestamp    time.Time
	Value        float64
	ZScore       float64
	Severity     string // "critical", "high", "medium", "low"
	Message      string
	IsRegression bool
}

// Forecast is a short-term linear extrapolation beyond the last
// recorded measurement.
type Forecast struct {
	Benchmark     string
	Language      string
	Period        int
	PredictedTime float64
	LowerBound    float64
	UpperBound    float64
	Confidence    float64
}

// TrendAnalyzer is the interface cmd depends on, kept distinct from
// BasicTrendAnalyzer so a test can substitute a stub.
type TrendAnalyzer interface {
	CalculateTrend(history []Point, minDataPoints int) (*TrendResult, error)
	DetectAnomalies(history []Point, zScoreThreshold float64) []Anomaly
	ForecastPerformance(history []Point, periods int) []Forecast
}

// BasicTrendAnalyzer implements TrendAnalyzer with the teacher's own
// linear-regression/z-score/extrapolation math.
type BasicTrendAnalyzer struct {
	MinDataPoints   int
	ZScoreThreshold float64
	ConfidenceLevel float64
}

// NewBasicTrendAnalyzer builds a BasicTrendAnalyzer with the teacher's
// own conventional defaults.
func NewBasicTrendAnalyzer() *BasicTrendAnalyzer {
	return &BasicTrendAnalyzer{
		MinDataPoints:   3,
		ZScoreThreshold: 2.0,
		ConfidenceLevel: 0.95,
	}
}
