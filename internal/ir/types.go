// Package ir lowers a parsed .bench AST into a normalized, fully-resolved
// specification: defaults inherited, fixtures decoded, fixture
// references materialized, and calibration parameters filled in.
package ir

import (
	"github.com/jpequegn/polybench/internal/dsl"
)

// Calibration mode for a benchmark (spec §4.C).
type Mode int

const (
	ModeAuto Mode = iota
	ModeFixed
)

// AnvilConfig surfaces from a `globalSetup { spawnAnvil(...) }` block; its
// presence is the scheduler's signal to start the Anvil node (spec §4.C).
type AnvilConfig struct {
	ForkURL string
	HasFork bool
}

// FixtureParam is a parameter definition on a parameterized fixture.
type FixtureParam struct {
	Name string
	Type string
}

// Fixture is a resolved fixture: Data holds the ground-truth decoded
// bytes (spec §3 invariant: hex is canonical, the decoded byte vector is
// ground truth).
type Fixture struct {
	Name            string
	Description     string
	Data            []byte
	Implementations map[dsl.Lang]string
	Shape           string
	Params          []FixtureParam
}

// IsParameterized reports whether this fixture is generated at callsite
// rather than carrying static data.
func (f *Fixture) IsParameterized() bool { return len(f.Params) > 0 }

// BenchmarkSpec is a Benchmark with all inheritance resolved and
// calibration parameters filled in (spec §3).
type BenchmarkSpec struct {
	Name        string
	FullName    string // "{suite}_{name}"
	Description string

	Iterations uint64
	Warmup     uint64
	Timeout    *int64 // milliseconds

	Tags []string

	SkipConditions map[dsl.Lang]string
	Validations    map[dsl.Lang]string
	BeforeHooks    map[dsl.Lang]string
	AfterHooks     map[dsl.Lang]string
	EachHooks      map[dsl.Lang]string
	Implementations map[dsl.Lang]string
	Async          map[dsl.Lang]bool

	FixtureRefs []string

	// Calibration parameters (spec §4.C defaults).
	Mode             Mode
	TargetTimeMs     uint64
	MinIterations    uint64
	MaxIterations    uint64
	UseSink          bool
	Memory           bool
	Concurrency      int
	OutlierDetection bool
	CVThreshold      float64
	Count            int // multi-run aggregation; 1 = single run
}

func (b *BenchmarkSpec) HasLang(l dsl.Lang) bool {
	_, ok := b.Implementations[l]
	return ok
}

func (b *BenchmarkSpec) ShouldSkip(l dsl.Lang) bool {
	_, ok := b.SkipConditions[l]
	return ok
}

// Suite is a normalized benchmark suite.
type Suite struct {
	Name              string
	Description       string
	DefaultIterations uint64
	DefaultWarmup     uint64
	Timeout           *int64
	Requires          []dsl.Lang
	Order             dsl.ExecutionOrder
	Compare           bool
	Baseline          dsl.Lang

	// Calibration defaults inherited by every benchmark in the suite
	// unless overridden at the benchmark level (spec §4.C).
	DefaultMode             Mode
	DefaultTargetTimeMs     uint64
	DefaultMinIterations    uint64
	DefaultMaxIterations    uint64
	DefaultSink             bool
	DefaultMemory           bool
	DefaultConcurrency      int
	DefaultOutlierDetection bool
	DefaultCVThreshold      float64
	DefaultCount            int

	StdlibImports map[string]bool

	Imports      map[dsl.Lang][]string
	Declarations map[dsl.Lang]string
	InitCode     map[dsl.Lang]string
	AsyncInit    map[dsl.Lang]bool
	Helpers      map[dsl.Lang]string

	Fixtures   []*Fixture
	Benchmarks []*BenchmarkSpec

	AfterCharts []ChartDirective
}

func (s *Suite) GetFixture(name string) *Fixture {
	for _, f := range s.Fixtures {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (s *Suite) HasStdlib(mod string) bool { return s.StdlibImports[mod] }

// ChartDirective is a normalized chart(...) directive.
type ChartDirective struct {
	Type        dsl.ChartType
	Title       string
	Description string
	XLabel      string
	YLabel      string
	OutputFile  string
	SuiteName   string
}

// BenchmarkIR is the complete lowered specification for one .bench file.
type BenchmarkIR struct {
	StdlibImports  map[string]bool
	AnvilConfig    *AnvilConfig
	Suites         []*Suite
	ChartDirectives []ChartDirective
}

// AllBenchmarks iterates every (suite, benchmark) pair across the IR.
func (ir *BenchmarkIR) AllBenchmarks() func(yield func(*Suite, *BenchmarkSpec) bool) {
	return func(yield func(*Suite, *BenchmarkSpec) bool) {
		for _, s := range ir.Suites {
			for _, b := range s.Benchmarks {
				if !yield(s, b) {
					return
				}
			}
		}
	}
}

func (ir *BenchmarkIR) HasStdlib(mod string) bool { return ir.StdlibImports[mod] }

// Default calibration values, per spec §4.C.
const (
	DefaultIterations       = 1000
	DefaultWarmup           = 1000
	DefaultTargetTimeMs     = 3000
	DefaultMinIterations    = 10
	DefaultMaxIterations    = 1_000_000
	DefaultSink             = true
	DefaultOutlierDetection = true
	DefaultCVThreshold      = 5.0
	DefaultConcurrency      = 1
)
