// Package synth turns a resolved ir.BenchmarkSpec into one self-contained
// host-language source file per (benchmark, language) pair: imports
// consolidated, fixtures materialized, the user's snippet woven into
// fixed/auto/concurrent measurement scaffolding, and a BenchResult JSON
// line written to stdout (spec §4.E).
package synth

import (
	"fmt"

	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/ir"
)

// Template is the contract every per-language backend satisfies.
type Template interface {
	// Synthesize renders the complete runnable source for bm in one
	// language, given the suite it belongs to and the whole file's IR
	// (needed for file-level stdlib imports and Anvil config).
	Synthesize(bm *ir.BenchmarkSpec, suite *ir.Suite, file *ir.BenchmarkIR) (string, error)

	// Extension is the file extension (without dot) this backend emits.
	Extension() string
}

// ForLang returns the Template backend for a language, or false if the
// language has no synthesizer (spec only names go/ts/rust).
func ForLang(lang dsl.Lang) (Template, bool) {
	switch lang {
	case dsl.LangGo:
		return GoTemplate{}, true
	case dsl.LangTypeScript:
		return TypeScriptTemplate{}, true
	case dsl.LangRust:
		return RustTemplate{}, true
	default:
		return nil, false
	}
}

// plan is the language-agnostic shape every backend renders from: it
// pulls together everything the file layout in spec §4.E needs, so each
// backend only has to decide how to spell it.
type plan struct {
	bm    *ir.BenchmarkSpec
	suite *ir.Suite
	file  *ir.BenchmarkIR
	lang  dsl.Lang
}

func newPlan(bm *ir.BenchmarkSpec, suite *ir.Suite, file *ir.BenchmarkIR, lang dsl.Lang) plan {
	return plan{bm: bm, suite: suite, file: file, lang: lang}
}

func (p plan) code() string           { return p.bm.Implementations[p.lang] }
func (p plan) beforeHook() (string, bool) { c, ok := p.bm.BeforeHooks[p.lang]; return c, ok }
func (p plan) afterHook() (string, bool)  { c, ok := p.bm.AfterHooks[p.lang]; return c, ok }
func (p plan) eachHook() (string, bool)   { c, ok := p.bm.EachHooks[p.lang]; return c, ok }
func (p plan) declarations() string   { return p.suite.Declarations[p.lang] }
func (p plan) helpers() string        { return p.suite.Helpers[p.lang] }
func (p plan) initCode() string       { return p.suite.InitCode[p.lang] }
func (p plan) imports() []string      { return p.suite.Imports[p.lang] }

func (p plan) usesAnvil() bool {
	return p.suite.HasStdlib("anvil") || p.file.HasStdlib("anvil")
}

// stdlibSnippets returns the per-language text block for every `use
// std::<m>` active on this file or suite, in a stable order.
func (p plan) stdlibSnippets() []string {
	var mods []string
	for _, m := range []string{"constants", "anvil", "math", "charting"} {
		if p.file.HasStdlib(m) || p.suite.HasStdlib(m) {
			mods = append(mods, m)
		}
	}
	var out []string
	for _, m := range mods {
		if snip, ok := stdlibSnippet(p.lang, m); ok {
			out = append(out, snip)
		}
	}
	return out
}

func (p plan) fixtureBindings() []*ir.Fixture {
	var out []*ir.Fixture
	for _, ref := range p.bm.FixtureRefs {
		if fx := p.suite.GetFixture(ref); fx != nil {
			out = append(out, fx)
		}
	}
	return out
}

// ErrNoImplementation is returned when Synthesize is asked for a
// language the benchmark has no snippet for.
type ErrNoImplementation struct {
	Benchmark string
	Lang      dsl.Lang
}

func (e *ErrNoImplementation) Error() string {
	return fmt.Sprintf("benchmark %q has no %s implementation", e.Benchmark, e.Lang)
}
