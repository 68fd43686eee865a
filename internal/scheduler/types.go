package scheduler

import (
	"time"

	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/measurement"
)

// Outcome classifies how a (suite, benchmark, lang) cell resolved (spec
// §7's error kinds, as far as the scheduler itself assigns them —
// ParseError/ValidationError happen upstream of this package).
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeSkipped
	OutcomeToolchainMissing
	OutcomeCompileFailure
	OutcomeRuntimeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeToolchainMissing:
		return "toolchain_missing"
	case OutcomeCompileFailure:
		return "compile_failure"
	case OutcomeRuntimeFailure:
		return "runtime_failure"
	default:
		return "unknown"
	}
}

// Cell is one (suite, benchmark, language) result: either a Measurement
// or a localized failure (spec §7: "all per-benchmark failures are
// localized — they become data in the results report, not
// process-ending exceptions").
type Cell struct {
	Suite     string
	Benchmark string
	FullName  string
	Lang      dsl.Lang

	Outcome     Outcome
	Measurement *measurement.Measurement
	Err         error
	Stderr      string

	Duration time.Duration
}

// Report is the full outcome of one scheduler run, with suites in
// declaration order. Within a suite, benchmarks follow declaration order,
// except under `order: random`, where they appear in the shuffled order
// they ran in.
type Report struct {
	Cells []Cell

	// AnvilFailed records that spec §7's AnvilStartFailure policy fired:
	// Anvil could not be started, so the run fell back to no Anvil.
	// Benchmarks that depend on ANVIL_RPC_URL will show up as their own
	// RuntimeFailure cells.
	AnvilFailed    bool
	AnvilFailedErr error
}

// ResultCount returns the number of JSON results parsed, for spec §8's
// universal invariant: it must equal the number of (benchmark, language)
// pairs not marked skip and not a CompileFailure.
func (r *Report) ResultCount() int {
	n := 0
	for _, c := range r.Cells {
		if c.Outcome == OutcomeOK {
			n++
		}
	}
	return n
}
