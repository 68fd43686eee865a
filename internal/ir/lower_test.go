package ir

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/jpequegn/polybench/internal/dsl"
)

func TestLower_HelloKeccak_IRShape(t *testing.T) {
	src := `suite hash {
  iterations: 100
  fixture data { hex: "deadbeef" }
  bench k { go: hash.Keccak256(data)
            ts: keccak256(data) }
}`
	f := dsl.Parse(src)
	if f.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", f.ParseErrors)
	}
	fs := afero.NewMemMapFs()
	irFile, diags := Lower(fs, f, "/bench")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
	if len(irFile.Suites) != 1 {
		t.Fatalf("len(Suites) = %d, want 1", len(irFile.Suites))
	}
	s := irFile.Suites[0]
	if s.DefaultIterations != 100 {
		t.Errorf("DefaultIterations = %d, want 100", s.DefaultIterations)
	}
	fx := s.GetFixture("data")
	if fx == nil {
		t.Fatalf("fixture %q not found", "data")
	}
	if string(fx.Data) != string([]byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("fixture data = %x, want deadbeef", fx.Data)
	}
	if len(s.Benchmarks) != 1 {
		t.Fatalf("len(Benchmarks) = %d, want 1", len(s.Benchmarks))
	}
	bm := s.Benchmarks[0]
	if bm.FullName != "hash_k" {
		t.Errorf("FullName = %q, want hash_k", bm.FullName)
	}
	if bm.Iterations != 100 {
		t.Errorf("Iterations = %d, want 100 (inherited from suite)", bm.Iterations)
	}
	if bm.Mode != ModeAuto {
		t.Errorf("Mode = %v, want ModeAuto (no bench-level override)", bm.Mode)
	}
	if len(bm.FixtureRefs) != 1 || bm.FixtureRefs[0] != "data" {
		t.Errorf("FixtureRefs = %+v, want [data]", bm.FixtureRefs)
	}
	if !bm.HasLang(dsl.LangGo) || !bm.HasLang(dsl.LangTypeScript) {
		t.Errorf("expected both go and ts implementations present")
	}
}

// TestLower_FixtureWholeWordMatching implements the whole-word boundary
// rule from spec §4.D: "s1000" must not be reported as a reference to
// fixture "s100" just because it appears as a substring.
func TestLower_FixtureWholeWordMatching(t *testing.T) {
	src := `suite s {
  fixture s100 { hex: "aa" }
  fixture s1000 { hex: "bb" }
  bench sortit { go: bubbleSort(s1000[0..]) }
}`
	f := dsl.Parse(src)
	if f.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", f.ParseErrors)
	}
	fs := afero.NewMemMapFs()
	irFile, diags := Lower(fs, f, "/bench")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
	bm := irFile.Suites[0].Benchmarks[0]
	if len(bm.FixtureRefs) != 1 || bm.FixtureRefs[0] != "s1000" {
		t.Errorf("FixtureRefs = %+v, want [s1000]", bm.FixtureRefs)
	}
}

func TestLower_FixedIterationsOverride(t *testing.T) {
	src := `suite s {
  iterations: 100
  bench b { iterations: 5000
            mode: fixed
            go: f() }
}`
	f := dsl.Parse(src)
	if f.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", f.ParseErrors)
	}
	fs := afero.NewMemMapFs()
	irFile, _ := Lower(fs, f, "/bench")
	bm := irFile.Suites[0].Benchmarks[0]
	if bm.Iterations != 5000 {
		t.Errorf("Iterations = %d, want 5000 (bench overrides suite default)", bm.Iterations)
	}
	if bm.Mode != ModeFixed {
		t.Errorf("Mode = %v, want ModeFixed (explicit mode: fixed)", bm.Mode)
	}
}

// TestLower_IterationsAloneDoesNotImplyFixedMode guards against conflating
// an explicit iterations count with the calibration mode: spec §4.C lists
// them as independent properties, both defaulting independently
// (iterations=1000, mode=auto).
func TestLower_IterationsAloneDoesNotImplyFixedMode(t *testing.T) {
	src := `suite s {
  bench b { iterations: 5000
            go: f() }
}`
	f := dsl.Parse(src)
	if f.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", f.ParseErrors)
	}
	fs := afero.NewMemMapFs()
	irFile, _ := Lower(fs, f, "/bench")
	bm := irFile.Suites[0].Benchmarks[0]
	if bm.Mode != ModeAuto {
		t.Errorf("Mode = %v, want ModeAuto (iterations alone does not select fixed mode)", bm.Mode)
	}
}

func TestLower_InvalidHexFixture_ProducesDiagnosticNotPanic(t *testing.T) {
	src := `suite s {
  fixture bad { hex: "not-hex!" }
  bench b { go: f(bad) }
}`
	f := dsl.Parse(src)
	fs := afero.NewMemMapFs()
	irFile, diags := Lower(fs, f, "/bench")
	if len(diags) == 0 {
		t.Fatalf("expected a diagnostic for invalid hex")
	}
	if irFile.Suites[0].GetFixture("bad") == nil {
		t.Fatalf("fixture should still be present with empty data")
	}
}

func TestLower_GlobalSetupAnvil(t *testing.T) {
	src := `globalSetup {
  spawnAnvil("https://mainnet.example/rpc")
}

suite s {
  bench b { go: f() }
}`
	f := dsl.Parse(src)
	if f.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", f.ParseErrors)
	}
	fs := afero.NewMemMapFs()
	irFile, _ := Lower(fs, f, "/bench")
	if irFile.AnvilConfig == nil || !irFile.AnvilConfig.HasFork {
		t.Fatalf("expected AnvilConfig with fork url, got %+v", irFile.AnvilConfig)
	}
	if irFile.AnvilConfig.ForkURL != "https://mainnet.example/rpc" {
		t.Errorf("ForkURL = %q", irFile.AnvilConfig.ForkURL)
	}
}
