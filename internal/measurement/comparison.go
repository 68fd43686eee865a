package measurement

import "fmt"

// ComparisonWinner names which side of a Comparison is faster.
type ComparisonWinner int

const (
	WinnerFirst ComparisonWinner = iota
	WinnerSecond
	WinnerTie
)

// tieThreshold is how close a ratio must be to 1.0 to call it a tie.
const tieThreshold = 0.05

// Comparison is a head-to-head result between two languages' measurements
// of the same benchmark.
type Comparison struct {
	Name       string
	First      Measurement
	FirstLang  string
	Second     Measurement
	SecondLang string
	Ratio      float64
	Speedup    float64
	Winner     ComparisonWinner
}

// NewComparison computes the ratio, speedup, and winner for two
// measurements of the same benchmark in different languages.
func NewComparison(name string, first Measurement, firstLang string, second Measurement, secondLang string) Comparison {
	ratio := first.NanosPerOp / second.NanosPerOp

	var winner ComparisonWinner
	var speedup float64
	switch {
	case absF(ratio-1.0) < tieThreshold:
		winner, speedup = WinnerTie, 1.0
	case ratio > 1.0:
		winner, speedup = WinnerSecond, ratio
	default:
		winner, speedup = WinnerFirst, 1.0/ratio
	}

	return Comparison{
		Name:       name,
		First:      first,
		FirstLang:  firstLang,
		Second:     second,
		SecondLang: secondLang,
		Ratio:      ratio,
		Speedup:    speedup,
		Winner:     winner,
	}
}

// SpeedupDescription renders a one-line human-readable summary.
func (c Comparison) SpeedupDescription() string {
	switch c.Winner {
	case WinnerFirst:
		return fmt.Sprintf("%s %.2fx faster", c.FirstLang, c.Speedup)
	case WinnerSecond:
		return fmt.Sprintf("%s %.2fx faster", c.SecondLang, c.Speedup)
	default:
		return "Similar performance"
	}
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
