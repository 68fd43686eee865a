package validator

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/ir"
)

func lowerSrc(t *testing.T, src string) (*ir.BenchmarkIR, *dsl.File) {
	t.Helper()
	f := dsl.Parse(src)
	if f.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", f.ParseErrors)
	}
	irFile, diags := ir.Lower(afero.NewMemMapFs(), f, "/bench")
	if len(diags) != 0 {
		t.Fatalf("unexpected lowering diagnostics: %+v", diags)
	}
	return irFile, f
}

func TestValidate_CleanFile_NoDiagnostics(t *testing.T) {
	irFile, f := lowerSrc(t, `suite hash {
  fixture data { hex: "deadbeef" }
  bench k { go: hash.Keccak256(data) }
}`)
	diags := Validate(irFile, f)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
}

func TestValidate_MissingImplementation(t *testing.T) {
	src := `suite s {
  bench b { description: "no impl" }
}`
	f := dsl.Parse(src)
	irFile, _ := ir.Lower(afero.NewMemMapFs(), f, "/bench")
	diags := Validate(irFile, f)
	if !HasErrors(diags) {
		t.Fatalf("expected an error for a benchmark with no implementation, got %+v", diags)
	}
}

func TestValidate_RequiresNotSatisfied(t *testing.T) {
	src := `suite s {
  requires: [go, rust]
  bench b { go: f() }
}`
	irFile, f := lowerSrc(t, src)
	diags := Validate(irFile, f)
	if !HasErrors(diags) {
		t.Fatalf("expected an error for missing required rust implementation")
	}
}

func TestValidate_BaselineMustBeInRequires(t *testing.T) {
	src := `suite s {
  requires: [go]
  baseline: rust
  bench b { go: f() }
}`
	irFile, f := lowerSrc(t, src)
	diags := Validate(irFile, f)
	if !HasErrors(diags) {
		t.Fatalf("expected an error when baseline is not in requires")
	}
}

func TestValidate_UndeclaredIdentifierIsNotAFixtureReference(t *testing.T) {
	src := `suite s {
  fixture known { hex: "aa" }
  bench b { go: f(unknownFixture) }
}`
	irFile, f := lowerSrc(t, src)
	diags := Validate(irFile, f)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics (no whole-word ref present): %+v", diags)
	}
}

func TestValidate_UnsupportedStdlibModule(t *testing.T) {
	src := `use std::bogus

suite s {
  bench b { go: f() }
}`
	irFile, f := lowerSrc(t, src)
	diags := Validate(irFile, f)
	if !HasErrors(diags) {
		t.Fatalf("expected an error for an unsupported stdlib module")
	}
}

func TestValidate_SupportedStdlibModule_NoError(t *testing.T) {
	src := `use std::anvil

suite s {
  bench b { go: f() }
}`
	irFile, f := lowerSrc(t, src)
	diags := Validate(irFile, f)
	if HasErrors(diags) {
		t.Fatalf("unexpected error for supported module: %+v", diags)
	}
}
