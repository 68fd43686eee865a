package ir

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/jpequegn/polybench/internal/dsl"
)

// Diagnostic is a non-fatal problem discovered while lowering: fixture
// decode failures block only that fixture's consumers (spec §7), so
// lowering keeps going and returns every diagnostic it collected.
type Diagnostic struct {
	Span    dsl.Span
	Message string
}

// Lower transforms a parsed *dsl.File into a fully-resolved *BenchmarkIR.
// benchDir anchors @file() fixture references; fs lets callers substitute
// an in-memory filesystem in tests.
func Lower(fs afero.Fs, f *dsl.File, benchDir string) (*BenchmarkIR, []Diagnostic) {
	var diags []Diagnostic

	out := &BenchmarkIR{
		StdlibImports: map[string]bool{},
	}
	for _, u := range f.StdlibImports {
		out.StdlibImports[u.Module] = true
	}

	if f.GlobalSetup != nil && f.GlobalSetup.HasAnvil {
		cfg := &AnvilConfig{}
		if f.GlobalSetup.AnvilForkURL.IsValid() {
			cfg.ForkURL = f.GlobalSetup.AnvilForkURL.Value
			cfg.HasFork = true
		}
		out.AnvilConfig = cfg
	}

	for _, s := range f.Suites {
		suite, sdiags := lowerSuite(fs, s, benchDir)
		diags = append(diags, sdiags...)
		out.Suites = append(out.Suites, suite)
		for _, c := range suite.AfterCharts {
			out.ChartDirectives = append(out.ChartDirectives, c)
		}
	}

	return out, diags
}

func lowerSuite(fs afero.Fs, s *dsl.Suite, benchDir string) (*Suite, []Diagnostic) {
	var diags []Diagnostic

	suite := &Suite{
		Name:                    s.Name,
		Description:             s.Description,
		DefaultIterations:       DefaultIterations,
		DefaultWarmup:           DefaultWarmup,
		Timeout:                 s.Timeout,
		Requires:                s.Requires,
		Order:                   s.Order,
		Compare:                 s.Compare,
		Baseline:                s.Baseline,
		DefaultMode:             ModeAuto,
		DefaultTargetTimeMs:     DefaultTargetTimeMs,
		DefaultMinIterations:    DefaultMinIterations,
		DefaultMaxIterations:    DefaultMaxIterations,
		DefaultSink:             DefaultSink,
		DefaultMemory:           false,
		DefaultConcurrency:      DefaultConcurrency,
		DefaultOutlierDetection: DefaultOutlierDetection,
		DefaultCVThreshold:      DefaultCVThreshold,
		DefaultCount:            1,
		StdlibImports:           map[string]bool{},
		Imports:                 map[dsl.Lang][]string{},
		Declarations:            map[dsl.Lang]string{},
		InitCode:                map[dsl.Lang]string{},
		AsyncInit:               map[dsl.Lang]bool{},
		Helpers:                 map[dsl.Lang]string{},
	}
	if s.DefaultIterations != nil {
		suite.DefaultIterations = uint64(*s.DefaultIterations)
	}
	if s.DefaultWarmup != nil {
		suite.DefaultWarmup = uint64(*s.DefaultWarmup)
	}
	if m, ok := modeFromDSL(s.DefaultMode); ok {
		suite.DefaultMode = m
	}
	if s.DefaultTargetTimeMs != nil {
		suite.DefaultTargetTimeMs = uint64(*s.DefaultTargetTimeMs)
	}
	if s.DefaultMinIterations != nil {
		suite.DefaultMinIterations = uint64(*s.DefaultMinIterations)
	}
	if s.DefaultMaxIterations != nil {
		suite.DefaultMaxIterations = uint64(*s.DefaultMaxIterations)
	}
	if s.DefaultSink != nil {
		suite.DefaultSink = *s.DefaultSink
	}
	if s.DefaultMemory != nil {
		suite.DefaultMemory = *s.DefaultMemory
	}
	if s.DefaultConcurrency != nil {
		suite.DefaultConcurrency = int(*s.DefaultConcurrency)
	}
	if s.DefaultOutlierDetection != nil {
		suite.DefaultOutlierDetection = *s.DefaultOutlierDetection
	}
	if s.DefaultCVThreshold != nil {
		suite.DefaultCVThreshold = *s.DefaultCVThreshold
	}
	if s.DefaultCount != nil {
		suite.DefaultCount = int(*s.DefaultCount)
	}
	for _, u := range s.StdlibImports {
		suite.StdlibImports[u.Module] = true
	}

	for lang, setup := range s.Setups {
		suite.AsyncInit[lang] = setup.Async
		for _, sec := range setup.Sections {
			switch sec.Kind {
			case dsl.BlockSetupImport:
				suite.Imports[lang] = splitImportList(sec.Code)
			case dsl.BlockSetupDeclare:
				suite.Declarations[lang] = sec.Code
			case dsl.BlockSetupInit:
				suite.InitCode[lang] = sec.Code
			case dsl.BlockSetupHelpers:
				suite.Helpers[lang] = sec.Code
			}
		}
	}

	fixtureNames := make([]string, 0, len(s.Fixtures))
	for _, fx := range s.Fixtures {
		fixtureNames = append(fixtureNames, fx.Name)
	}

	for _, fx := range s.Fixtures {
		lowered, fdiags := lowerFixture(fs, fx, benchDir)
		diags = append(diags, fdiags...)
		suite.Fixtures = append(suite.Fixtures, lowered)
	}

	for _, b := range s.Benchmarks {
		bm := lowerBenchmark(b, suite, fixtureNames)
		suite.Benchmarks = append(suite.Benchmarks, bm)
	}

	for _, c := range s.AfterCharts {
		suite.AfterCharts = append(suite.AfterCharts, ChartDirective{
			Type:        c.Type,
			Title:       c.Title,
			Description: c.Description,
			XLabel:      c.XLabel,
			YLabel:      c.YLabel,
			OutputFile:  c.OutputFile,
			SuiteName:   s.Name,
		})
	}

	return suite, diags
}

// splitImportList splits a brace-balanced import block's inner text on
// commas and newlines into individual module strings, trimming quotes.
func splitImportList(code string) []string {
	var out []string
	replacer := strings.NewReplacer("\n", ",", "\r", ",")
	for _, part := range strings.Split(replacer.Replace(code), ",") {
		p := strings.TrimSpace(part)
		p = strings.Trim(p, `"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lowerFixture(fs afero.Fs, fx *dsl.Fixture, benchDir string) (*Fixture, []Diagnostic) {
	var diags []Diagnostic

	out := &Fixture{
		Name:            fx.Name,
		Description:     fx.Description,
		Implementations: fx.Implementations,
		Shape:           fx.Shape,
	}
	for _, p := range fx.Params {
		out.Params = append(out.Params, FixtureParam{Name: p.Name, Type: p.Type})
	}

	// Decoding preference order per spec §4.C: explicit hex literal,
	// then hex: @file(path), then a per-language implementation runs
	// at callsite instead of carrying static Data, then empty (legal
	// only when the fixture is parameterized or has implementations).
	switch {
	case fx.Hex.IsValid():
		data, err := DecodeHex(fx.Hex.Value)
		if err != nil {
			diags = append(diags, Diagnostic{Span: fx.Span, Message: fmt.Sprintf("fixture %q: invalid hex: %v", fx.Name, err)})
			break
		}
		out.Data = data
	case fx.HexFile != nil:
		raw, err := ResolveFileRef(fs, benchDir, fx.HexFile.Path)
		if err != nil {
			diags = append(diags, Diagnostic{Span: fx.Span, Message: fmt.Sprintf("fixture %q: %v", fx.Name, err)})
			break
		}
		data, err := DecodeHex(strings.TrimSpace(string(raw)))
		if err != nil {
			diags = append(diags, Diagnostic{Span: fx.Span, Message: fmt.Sprintf("fixture %q: invalid hex in %s: %v", fx.Name, fx.HexFile.Path, err)})
			break
		}
		out.Data = data
	case len(fx.Implementations) > 0:
		// Generated at callsite in each language; no portable Data.
	case len(out.Params) == 0:
		diags = append(diags, Diagnostic{Span: fx.Span, Message: fmt.Sprintf("fixture %q: no hex, file, or implementation and no params — nothing to generate", fx.Name)})
	}

	return out, diags
}

func lowerBenchmark(b *dsl.Benchmark, suite *Suite, fixtureNames []string) *BenchmarkSpec {
	bm := &BenchmarkSpec{
		Name:            b.Name,
		FullName:        suite.Name + "_" + b.Name,
		Description:     b.Description,
		Iterations:      suite.DefaultIterations,
		Warmup:          suite.DefaultWarmup,
		Timeout:         b.Timeout,
		Tags:            b.Tags,
		SkipConditions:  b.Skip,
		Validations:     b.Validate,
		BeforeHooks:     b.Before,
		AfterHooks:      b.After,
		EachHooks:       b.Each,
		Implementations: b.Implementations,
		Async:           b.Async,

		Mode:             suite.DefaultMode,
		TargetTimeMs:     suite.DefaultTargetTimeMs,
		MinIterations:    suite.DefaultMinIterations,
		MaxIterations:    suite.DefaultMaxIterations,
		UseSink:          suite.DefaultSink,
		Memory:           suite.DefaultMemory,
		Concurrency:      suite.DefaultConcurrency,
		OutlierDetection: suite.DefaultOutlierDetection,
		CVThreshold:      suite.DefaultCVThreshold,
		Count:            suite.DefaultCount,
	}
	if b.Timeout == nil {
		bm.Timeout = suite.Timeout
	}
	if b.Iterations != nil {
		bm.Iterations = uint64(*b.Iterations)
	}
	if b.Warmup != nil {
		bm.Warmup = uint64(*b.Warmup)
	}
	if m, ok := modeFromDSL(b.Mode); ok {
		bm.Mode = m
	}
	if b.TargetTimeMs != nil {
		bm.TargetTimeMs = uint64(*b.TargetTimeMs)
	}
	if b.MinIterations != nil {
		bm.MinIterations = uint64(*b.MinIterations)
	}
	if b.MaxIterations != nil {
		bm.MaxIterations = uint64(*b.MaxIterations)
	}
	if b.Sink != nil {
		bm.UseSink = *b.Sink
	}
	if b.Memory != nil {
		bm.Memory = *b.Memory
	}
	if b.Concurrency != nil {
		bm.Concurrency = int(*b.Concurrency)
	}
	if b.OutlierDetection != nil {
		bm.OutlierDetection = *b.OutlierDetection
	}
	if b.CVThreshold != nil {
		bm.CVThreshold = *b.CVThreshold
	}
	if b.Count != nil {
		bm.Count = int(*b.Count)
	}

	var refs []string
	for lang, code := range b.Implementations {
		refs = append(refs, ExtractFixtureRefs(code, fixtureNames)...)
		for _, hook := range []map[dsl.Lang]string{b.Before, b.After, b.Each, b.Validate} {
			if c, ok := hook[lang]; ok {
				refs = append(refs, ExtractFixtureRefs(c, fixtureNames)...)
			}
		}
	}
	bm.FixtureRefs = dedupeStrings(refs)

	return bm
}

// modeFromDSL maps an explicit dsl `mode:` property onto the resolved
// ir.Mode. ok is false when the property was never set, so the caller
// can fall back to whatever default it already has in hand.
func modeFromDSL(m dsl.CalibrationMode) (Mode, bool) {
	switch m {
	case dsl.ModeFixed:
		return ModeFixed, true
	case dsl.ModeAuto:
		return ModeAuto, true
	default:
		return ModeAuto, false
	}
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// benchDirOf is a small convenience for callers resolving a .bench path
// to the directory @file() references are relative to.
func benchDirOf(benchFilePath string) string {
	return filepath.Dir(benchFilePath)
}
