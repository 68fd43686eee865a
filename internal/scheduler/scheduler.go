// Package scheduler runs a lowered BenchmarkIR end to end: for every
// suite, benchmark, and language, it synthesizes source, consults the
// compile cache, runs the child process, and records a Measurement or a
// localized failure (spec §4.H). It owns the optional Anvil service for
// the whole run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os/exec"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"github.com/jpequegn/polybench/internal/anvil"
	"github.com/jpequegn/polybench/internal/cache"
	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/ir"
	"github.com/jpequegn/polybench/internal/measurement"
	"github.com/jpequegn/polybench/internal/runner"
	"github.com/jpequegn/polybench/internal/synth"
)

// canonicalLangOrder is the deterministic fallback iteration order when a
// suite doesn't declare `requires` (spec §5: results must be invoked "in
// a deterministic order so that results tables are stable"). Only
// languages the synthesizer targets are listed here; python/c/csharp are
// DSL surface only (see DESIGN.md's dropped-scope notes).
var canonicalLangOrder = []dsl.Lang{dsl.LangGo, dsl.LangTypeScript, dsl.LangRust}

// toolchainBinary names the executable the runner shells out to per
// language, used only for the upfront "is this toolchain installed"
// check (spec §7's ToolchainMissing: "the language is dropped from the
// run, other languages continue").
var toolchainBinary = map[dsl.Lang]string{
	dsl.LangGo:         "go",
	dsl.LangTypeScript: "node",
	dsl.LangRust:       "cargo",
}

// Scheduler owns the synthesis→cache→run pipeline for one BenchmarkIR.
type Scheduler struct {
	fs     afero.Fs
	logger *slog.Logger

	runner *runner.Runner
	cache  *cache.Cache

	runtimeEnvDir string
}

// New builds a Scheduler. runtimeEnvDir should be `.polybench/runtime-env`
// and cachePath `.polybench/compile-cache.json` (spec §6's on-disk
// layout).
func New(fs afero.Fs, logger *slog.Logger, runtimeEnvDir, cachePath string) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		fs:            fs,
		logger:        logger,
		runner:        runner.NewRunner(logger),
		cache:         cache.New(fs, cachePath),
		runtimeEnvDir: runtimeEnvDir,
	}
}

// Run executes every suite in file in declaration order. Cancelling ctx
// (scheduler-level Ctrl-C, spec §5) aborts the in-flight child via the
// runner's context plumbing, stops Anvil, and returns ctx.Err(); mapping
// that to exit code 130 is the caller's job.
func (s *Scheduler) Run(ctx context.Context, file *ir.BenchmarkIR) (*Report, error) {
	report := &Report{}

	var svc *anvil.Service
	if file.AnvilConfig != nil {
		cfg := anvil.Config{}
		if file.AnvilConfig.HasFork {
			cfg.ForkURL = file.AnvilConfig.ForkURL
		}
		started, err := anvil.Spawn(ctx, cfg, s.logger)
		if err != nil {
			// spec §7 AnvilStartFailure: warn and fall back to no Anvil;
			// dependent benchmarks will surface their own RuntimeFailure.
			s.logger.Warn("anvil: failed to start, continuing without it", "error", err)
			report.AnvilFailed = true
			report.AnvilFailedErr = err
		} else {
			svc = started
			defer svc.Stop()
		}
	}

	if err := s.cache.Prune(); err != nil {
		s.logger.Warn("compile cache: prune failed", "error", err)
	}

	for _, suite := range file.Suites {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		cells, err := s.runSuite(ctx, suite, file, svc)
		report.Cells = append(report.Cells, cells...)
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

func (s *Scheduler) runSuite(ctx context.Context, suite *ir.Suite, file *ir.BenchmarkIR, svc *anvil.Service) ([]Cell, error) {
	benches := suite.Benchmarks
	if suite.Order == dsl.OrderRandom {
		benches = shuffled(benches)
	}

	if suite.Order != dsl.OrderParallel {
		var cells []Cell
		for _, bm := range benches {
			if ctx.Err() != nil {
				return cells, ctx.Err()
			}
			cells = append(cells, s.runBenchmark(ctx, suite, bm, file, svc)...)
		}
		return cells, nil
	}

	// order=parallel: bounded worker-per-benchmark pool (Open Question
	// decision #1, DESIGN.md). Each worker still runs its benchmark's
	// languages one child process at a time — only the across-benchmark
	// fan-out is concurrent (spec §5: "each benchmark-language invocation
	// remains a separate child process").
	p := pool.NewWithResults[[]Cell]().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for _, bm := range benches {
		bm := bm
		p.Go(func() []Cell {
			return s.runBenchmark(ctx, suite, bm, file, svc)
		})
	}
	grouped := p.Wait()

	var cells []Cell
	for _, g := range grouped {
		cells = append(cells, g...)
	}
	return cells, ctx.Err()
}

func (s *Scheduler) runBenchmark(ctx context.Context, suite *ir.Suite, bm *ir.BenchmarkSpec, file *ir.BenchmarkIR, svc *anvil.Service) []Cell {
	langs := langOrderFor(suite, bm)
	cells := make([]Cell, 0, len(langs))
	for _, lang := range langs {
		if ctx.Err() != nil {
			cells = append(cells, Cell{Suite: suite.Name, Benchmark: bm.Name, FullName: bm.FullName, Lang: lang, Outcome: OutcomeSkipped, Err: ctx.Err()})
			continue
		}
		cells = append(cells, s.runCell(ctx, suite, bm, file, lang, svc))
	}
	return cells
}

// langOrderFor picks the suite's declared `requires` order, filtered to
// languages this benchmark actually implements, falling back to
// canonicalLangOrder when the suite doesn't declare one.
func langOrderFor(suite *ir.Suite, bm *ir.BenchmarkSpec) []dsl.Lang {
	order := suite.Requires
	if len(order) == 0 {
		order = canonicalLangOrder
	}
	out := make([]dsl.Lang, 0, len(order))
	for _, l := range order {
		if bm.HasLang(l) {
			out = append(out, l)
		}
	}
	return out
}

func (s *Scheduler) runCell(ctx context.Context, suite *ir.Suite, bm *ir.BenchmarkSpec, file *ir.BenchmarkIR, lang dsl.Lang, svc *anvil.Service) Cell {
	cell := Cell{Suite: suite.Name, Benchmark: bm.Name, FullName: bm.FullName, Lang: lang}

	if bm.ShouldSkip(lang) {
		cell.Outcome = OutcomeSkipped
		return cell
	}

	if bin, ok := toolchainBinary[lang]; ok {
		if _, err := exec.LookPath(bin); err != nil {
			cell.Outcome = OutcomeToolchainMissing
			cell.Err = fmt.Errorf("%s not found on PATH: %w", bin, err)
			s.logger.Warn("toolchain missing, dropping language for this benchmark", "lang", lang, "benchmark", bm.FullName)
			return cell
		}
	}

	tmpl, ok := synth.ForLang(lang)
	if !ok {
		cell.Outcome = OutcomeToolchainMissing
		cell.Err = fmt.Errorf("no synthesizer template registered for %s", lang)
		return cell
	}

	source, err := tmpl.Synthesize(bm, suite, file)
	if err != nil {
		cell.Outcome = OutcomeCompileFailure
		cell.Err = err
		return cell
	}

	key := cache.Key{BenchmarkName: bm.FullName, Lang: lang, Hash: cache.HashSource(source)}
	if prior, hit := s.cache.Get(key); hit && !prior.Success {
		// Known-bad source at this exact hash: don't pay another
		// toolchain invocation to relearn the same failure (spec §4.J).
		cell.Outcome = OutcomeCompileFailure
		cell.Err = errors.New(prior.ErrorMessage)
		s.logger.Debug("compile cache hit on a known failure, skipping toolchain", "benchmark", bm.FullName, "lang", lang)
		return cell
	}

	anvilURL := ""
	if svc != nil {
		anvilURL = svc.RPCURL
	}

	runs := bm.Count
	if runs < 1 {
		runs = 1
	}

	measurements := make([]measurement.Measurement, 0, runs)
	for i := 0; i < runs; i++ {
		if ctx.Err() != nil {
			cell.Outcome = OutcomeSkipped
			cell.Err = ctx.Err()
			return cell
		}

		start := time.Now()
		res, runErr := s.runner.Run(ctx, s.fs, runner.Request{
			FullName:      bm.FullName,
			Lang:          lang,
			Source:        source,
			RuntimeEnvDir: s.runtimeEnvDir,
			AnvilURL:      anvilURL,
			Timeout:       timeoutFor(bm),
		})
		cell.Duration += time.Since(start)

		if runErr != nil {
			cell.Outcome = OutcomeRuntimeFailure
			cell.Err = runErr
			var rf *runner.RuntimeFailure
			if errors.As(runErr, &rf) {
				cell.Stderr = rf.Stderr
			}
			_ = s.cache.Put(key, cache.Entry{Success: false, ErrorMessage: firstLine(runErr.Error()), Timestamp: time.Now()})
			return cell
		}

		if i == 0 {
			_ = s.cache.Put(key, cache.Entry{Success: true, Timestamp: time.Now()})
		}
		measurements = append(measurements, measurementFromRaw(res.Raw))
	}

	cell.Outcome = OutcomeOK
	if len(measurements) == 1 {
		m := measurements[0]
		cell.Measurement = &m
	} else {
		// Open Question decision #2: multi-run aggregation keeps only
		// the per-run median plus a 95% CI, discarding raw samples.
		agg := measurement.AggregateRuns(measurements)
		cell.Measurement = &agg
	}
	return cell
}

func measurementFromRaw(raw *runner.RawResult) measurement.Measurement {
	var m measurement.Measurement
	if len(raw.Samples) > 0 {
		m = measurement.FromSamples(raw.Samples, raw.Iterations)
	} else {
		m = measurement.FromAggregate(raw.Iterations, raw.TotalNanos)
	}
	if raw.BytesPerOp != nil && raw.AllocsPerOp != nil {
		m = m.WithAllocs(*raw.BytesPerOp, *raw.AllocsPerOp)
	}
	return m
}

func timeoutFor(bm *ir.BenchmarkSpec) time.Duration {
	if bm.Timeout == nil {
		return runner.DefaultTimeout
	}
	return time.Duration(*bm.Timeout) * time.Millisecond
}

func shuffled(benches []*ir.BenchmarkSpec) []*ir.BenchmarkSpec {
	out := make([]*ir.BenchmarkSpec, len(benches))
	copy(out, benches)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
