package synth

import (
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/ir"
)

func lowerOne(t *testing.T, src string) (*ir.BenchmarkIR, *ir.Suite, *ir.BenchmarkSpec) {
	t.Helper()
	f := dsl.Parse(src)
	if f.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", f.ParseErrors)
	}
	file, diags := ir.Lower(afero.NewMemMapFs(), f, "/bench")
	if len(diags) != 0 {
		t.Fatalf("unexpected lowering diagnostics: %+v", diags)
	}
	return file, file.Suites[0], file.Suites[0].Benchmarks[0]
}

func TestGoTemplate_FixedMode(t *testing.T) {
	file, suite, bm := lowerOne(t, `suite hash {
  iterations: 100
  mode: fixed
  fixture data { hex: "deadbeef" }
  bench k { go: hash.Keccak256(data) }
}`)
	src, err := GoTemplate{}.Synthesize(bm, suite, file)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	for _, want := range []string{"package main", "BenchResult", "const iterations = uint64(100)", "data := []byte{0xde, 0xad, 0xbe, 0xef}", "hash.Keccak256(data)", "json.Marshal(result)"} {
		if !strings.Contains(src, want) {
			t.Errorf("generated source missing %q\n---\n%s", want, src)
		}
	}
}

func TestGoTemplate_AutoMode(t *testing.T) {
	file, suite, bm := lowerOne(t, `suite s {
  bench b { go: f() }
}`)
	src, err := GoTemplate{}.Synthesize(bm, suite, file)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.Contains(src, "targetNanos") {
		t.Errorf("expected auto-mode calibration loop in generated source")
	}
}

func TestGoTemplate_SinkEmitted(t *testing.T) {
	file, suite, bm := lowerOne(t, `suite s {
  bench b { go: compute() }
}`)
	src, err := GoTemplate{}.Synthesize(bm, suite, file)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.Contains(src, "var sinkResult any") || !strings.Contains(src, "runtime.KeepAlive(sinkResult)") {
		t.Errorf("expected a sink variable and KeepAlive call by default")
	}
}

func TestGoTemplate_NoImplementation_Errors(t *testing.T) {
	file, suite, bm := lowerOne(t, `suite s {
  bench b { ts: f() }
}`)
	_, err := GoTemplate{}.Synthesize(bm, suite, file)
	if err == nil {
		t.Fatalf("expected an error for a benchmark with no go implementation")
	}
}

func TestTypeScriptTemplate_FixedMode(t *testing.T) {
	file, suite, bm := lowerOne(t, `suite hash {
  iterations: 50
  mode: fixed
  fixture data { hex: "aa" }
  bench k { ts: keccak256(data) }
}`)
	src, err := TypeScriptTemplate{}.Synthesize(bm, suite, file)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	for _, want := range []string{"const iterations = 50", "new Uint8Array([0xaa])", "keccak256(data)", "console.log(JSON.stringify(result))"} {
		if !strings.Contains(src, want) {
			t.Errorf("generated source missing %q\n---\n%s", want, src)
		}
	}
}

func TestRustTemplate_FixedMode(t *testing.T) {
	file, suite, bm := lowerOne(t, `suite hash {
  iterations: 50
  mode: fixed
  fixture data { hex: "aa" }
  bench k { rust: keccak256(&data) }
}`)
	src, err := RustTemplate{}.Synthesize(bm, suite, file)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	for _, want := range []string{"let iterations: u64 = 50;", "vec![0xaa];", "std::hint::black_box(keccak256(&data));", "serde_json::to_string"} {
		if !strings.Contains(src, want) {
			t.Errorf("generated source missing %q\n---\n%s", want, src)
		}
	}
}

func TestEnsureManifest_SkipsExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/proj/go.mod", []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureManifest(fs, "/proj", dsl.LangGo, map[string]string{"x": "v1.0.0"}); err != nil {
		t.Fatal(err)
	}
	data, _ := afero.ReadFile(fs, "/proj/go.mod")
	if string(data) != "custom" {
		t.Errorf("expected existing manifest to be left alone, got %q", data)
	}
}

func TestEnsureManifest_WritesWhenMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := EnsureManifest(fs, "/proj", dsl.LangRust, map[string]string{"rand": "0.8"}); err != nil {
		t.Fatal(err)
	}
	exists, _ := afero.Exists(fs, "/proj/Cargo.toml")
	if !exists {
		t.Fatalf("expected Cargo.toml to be written")
	}
}
