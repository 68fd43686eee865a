package vfile

import (
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/jpequegn/polybench/internal/dsl"
)

const multiSectionSrc = `suite s {
  setup go {
    import { "fmt" }
    declare { var counter int }
    helpers {
      func double(x int) int { return x * 2 }
    }
    init {
      counter = 1
    }
  }
  fixture data(n: int) {
    go: generateData(n)
  }
  bench b { go: fmt.Println(double(counter)) }
}`

func parseOne(t *testing.T, src string) *dsl.File {
	t.Helper()
	f := dsl.Parse(src)
	if f.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", f.ParseErrors)
	}
	return f
}

func TestBuild_ProducesValidTopLevelGoFile(t *testing.T) {
	f := parseOne(t, multiSectionSrc)
	vf := Build(f, multiSectionSrc, "file:///bench.bench", "/bench.bench", dsl.LangGo, 1)

	if !strings.HasPrefix(vf.Content, "package main\n") {
		t.Fatalf("expected package main header, got:\n%s", vf.Content)
	}
	for _, want := range []string{`"fmt"`, "var counter int", "func double(x int) int", "counter = 1", "func __polybench_fixture_", "func __polybench_bench_", "func main() {}"} {
		if !strings.Contains(vf.Content, want) {
			t.Errorf("generated content missing %q\n---\n%s", want, vf.Content)
		}
	}
}

func TestBuild_SkipsBlocksForOtherLanguages(t *testing.T) {
	src := `suite s {
  bench b { go: f(), rust: g() }
}`
	f := parseOne(t, src)
	vf := Build(f, src, "file:///bench.bench", "/bench.bench", dsl.LangGo, 1)
	if strings.Contains(vf.Content, "g()") {
		t.Errorf("rust block leaked into the go virtual file:\n%s", vf.Content)
	}
	if !strings.Contains(vf.Content, "f()") {
		t.Errorf("expected go block f() in content:\n%s", vf.Content)
	}
}

func TestBuild_RustHasNoPackageHeaderButHasMain(t *testing.T) {
	src := `suite s {
  bench b { rust: g() }
}`
	f := parseOne(t, src)
	vf := Build(f, src, "file:///bench.bench", "/bench.bench", dsl.LangRust, 1)
	if strings.HasPrefix(vf.Content, "package") {
		t.Errorf("rust virtual file should not start with a go package decl:\n%s", vf.Content)
	}
	if !strings.Contains(vf.Content, "fn main() {}") {
		t.Errorf("expected a trivial fn main() for rust:\n%s", vf.Content)
	}
	if !strings.Contains(vf.Content, "fn __polybench_bench_0") {
		t.Errorf("expected a wrapped rust benchmark function:\n%s", vf.Content)
	}
}

func TestBuild_TypeScriptHasNoHeaderOrFooter(t *testing.T) {
	src := `suite s {
  bench b { ts: h() }
}`
	f := parseOne(t, src)
	vf := Build(f, src, "file:///bench.bench", "/bench.bench", dsl.LangTypeScript, 1)
	if strings.Contains(vf.Content, "package main") || strings.Contains(vf.Content, "fn main") {
		t.Errorf("unexpected host-language boilerplate in ts virtual file:\n%s", vf.Content)
	}
	if !strings.Contains(vf.Content, "function __polybench_bench_0") {
		t.Errorf("expected a wrapped ts benchmark function:\n%s", vf.Content)
	}
}

func TestPositionTranslation_RoundTripsThroughBenchmarkBlock(t *testing.T) {
	src := `suite s {
  bench b { go: fmt.Println(42) }
}`
	f := parseOne(t, src)
	vf := Build(f, src, "file:///bench.bench", "/bench.bench", dsl.LangGo, 1)

	benchOffset := strings.Index(src, "fmt.Println(42)")
	if benchOffset < 0 {
		t.Fatal("fixture source changed, test needle not found")
	}

	line, col, ok := vf.BenchToVirtual(benchOffset)
	if !ok {
		t.Fatal("BenchToVirtual returned ok=false for a benchmark-block offset")
	}

	backOffset, ok := vf.VirtualToBench(line, col)
	if !ok {
		t.Fatal("VirtualToBench returned ok=false for a translated position")
	}
	if backOffset != benchOffset {
		t.Errorf("round trip: got offset %d, want %d (line=%d col=%d)", backOffset, benchOffset, line, col)
	}
}

func TestBenchToVirtual_FalseForOffsetOutsideThisLanguage(t *testing.T) {
	src := `suite s {
  bench b { go: f(), rust: g() }
}`
	f := parseOne(t, src)
	vf := Build(f, src, "file:///bench.bench", "/bench.bench", dsl.LangGo, 1)

	rustOffset := strings.Index(src, "g()")
	if _, _, ok := vf.BenchToVirtual(rustOffset); ok {
		t.Error("expected ok=false translating a rust-only offset against the go virtual file")
	}
}

func TestManager_GetOrCreate_WritesFileAndCachesOnUnchangedSource(t *testing.T) {
	src := `suite s {
  bench b { go: f() }
}`
	f := parseOne(t, src)
	fs := afero.NewMemMapFs()
	m := NewManager(fs, "/proj/.polybench/runtime-env")

	vf1, err := m.GetOrCreate(f, src, "file:///bench.bench", "/bench.bench", dsl.LangGo)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if vf1.Version != 1 {
		t.Errorf("Version = %d, want 1", vf1.Version)
	}

	exists, err := afero.Exists(fs, "/proj/.polybench/runtime-env/"+vf1.Path)
	if err != nil || !exists {
		t.Fatalf("expected virtual file written to disk at %s, exists=%v err=%v", vf1.Path, exists, err)
	}

	vf2, err := m.GetOrCreate(f, src, "file:///bench.bench", "/bench.bench", dsl.LangGo)
	if err != nil {
		t.Fatalf("GetOrCreate (second call): %v", err)
	}
	if vf2.Version != 1 {
		t.Errorf("unchanged source should not bump Version, got %d", vf2.Version)
	}
}

func TestManager_GetOrCreate_BumpsVersionOnSourceChange(t *testing.T) {
	src1 := `suite s {
  bench b { go: f() }
}`
	src2 := `suite s {
  bench b { go: f2() }
}`
	fs := afero.NewMemMapFs()
	m := NewManager(fs, "/proj/.polybench/runtime-env")

	f1 := parseOne(t, src1)
	if _, err := m.GetOrCreate(f1, src1, "file:///bench.bench", "/bench.bench", dsl.LangGo); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	f2 := parseOne(t, src2)
	vf2, err := m.GetOrCreate(f2, src2, "file:///bench.bench", "/bench.bench", dsl.LangGo)
	if err != nil {
		t.Fatalf("GetOrCreate (changed source): %v", err)
	}
	if vf2.Version != 2 {
		t.Errorf("Version = %d, want 2 after a source change", vf2.Version)
	}
}

func TestManager_RemoveAll_DeletesFromDiskAndCache(t *testing.T) {
	src := `suite s {
  bench b { go: f() }
}`
	f := parseOne(t, src)
	fs := afero.NewMemMapFs()
	m := NewManager(fs, "/proj/.polybench/runtime-env")

	vf, err := m.GetOrCreate(f, src, "file:///bench.bench", "/bench.bench", dsl.LangGo)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	if err := m.RemoveAll("file:///bench.bench"); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}

	if _, ok := m.Get("file:///bench.bench", dsl.LangGo); ok {
		t.Error("expected no cached entry after RemoveAll")
	}
	exists, _ := afero.Exists(fs, "/proj/.polybench/runtime-env/"+vf.Path)
	if exists {
		t.Error("expected virtual file removed from disk after RemoveAll")
	}
}
