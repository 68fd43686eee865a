// Package runner writes a synthesized benchmark program to disk, invokes
// the host language's build-and-run command, and parses the resulting
// BenchResult JSON line (spec §4.F). It does not interpret timing data —
// it only bridges the subprocess boundary between synth and measurement.
package runner

import (
	"time"

	"github.com/jpequegn/polybench/internal/dsl"
)

// DefaultTimeout is used when a BenchmarkSpec sets no timeout. Long enough
// to cover a cold compile plus an auto-mode calibration run.
const DefaultTimeout = 60 * time.Second

// RawResult mirrors the BenchResult JSON every synthesized program prints
// as its final stdout line (spec §4.E file layout). Field names match the
// `json`/`serde`/plain-object keys each language template emits.
type RawResult struct {
	Iterations  uint64   `json:"iterations"`
	TotalNanos  uint64   `json:"total_nanos"`
	NanosPerOp  float64  `json:"nanos_per_op"`
	OpsPerSec   float64  `json:"ops_per_sec"`
	BytesPerOp  *uint64  `json:"bytes_per_op,omitempty"`
	AllocsPerOp *uint64  `json:"allocs_per_op,omitempty"`
	Samples     []uint64 `json:"samples"`
}

// Request bundles everything one (benchmark, language) execution needs.
// Source is the already-synthesized program text (component E's output);
// the runner only writes it to disk and runs it.
type Request struct {
	FullName      string // suite_benchmark, used as the deterministic filename stem
	Lang          dsl.Lang
	Source        string
	RuntimeEnvDir string            // e.g. .polybench/runtime-env
	ManifestDeps  map[string]string // user-declared deps, passed to synth.EnsureManifest
	AnvilURL      string            // ANVIL_RPC_URL, empty when no suite uses std::anvil
	Timeout       time.Duration     // 0 means DefaultTimeout
}

// Result is what the runner hands back to the scheduler: either a parsed
// RawResult ready for measurement.FromSamples, or an error carrying the
// child's stderr (spec §4.F: "surface stderr as the benchmark's error and
// continue to the next benchmark").
type Result struct {
	Raw        *RawResult
	SourcePath string
	Stdout     string
	Stderr     string
	Duration   time.Duration
}

// RuntimeFailure is returned when the child process exits non-zero or its
// final stdout line isn't valid BenchResult JSON. The scheduler surfaces
// Stderr to the user without wrapping it further.
type RuntimeFailure struct {
	FullName string
	Lang     dsl.Lang
	Stderr   string
	Cause    error
}

func (e *RuntimeFailure) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return e.Cause.Error()
}

func (e *RuntimeFailure) Unwrap() error { return e.Cause }
