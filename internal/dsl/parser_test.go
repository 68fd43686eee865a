package dsl

import "testing"

func TestParse_HelloKeccak(t *testing.T) {
	src := `suite hash {
  iterations: 100
  fixture data { hex: "deadbeef" }
  bench k { go: hash.Keccak256(data)
            ts: keccak256(data) }
}`
	f := Parse(src)
	if f.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", f.ParseErrors)
	}
	if len(f.Suites) != 1 {
		t.Fatalf("len(Suites) = %d, want 1", len(f.Suites))
	}
	s := f.Suites[0]
	if s.Name != "hash" {
		t.Errorf("suite name = %q, want hash", s.Name)
	}
	if s.DefaultIterations == nil || *s.DefaultIterations != 100 {
		t.Errorf("iterations = %v, want 100", s.DefaultIterations)
	}
	if len(s.Fixtures) != 1 || s.Fixtures[0].Name != "data" {
		t.Fatalf("fixtures = %+v", s.Fixtures)
	}
	if s.Fixtures[0].Hex.Value != "deadbeef" {
		t.Errorf("fixture hex = %q, want deadbeef", s.Fixtures[0].Hex.Value)
	}
	if len(s.Benchmarks) != 1 || s.Benchmarks[0].Name != "k" {
		t.Fatalf("benchmarks = %+v", s.Benchmarks)
	}
	b := s.Benchmarks[0]
	if got := b.Implementations[LangGo]; got != "hash.Keccak256(data)" {
		t.Errorf("go impl = %q", got)
	}
	if got := b.Implementations[LangTypeScript]; got != "keccak256(data)" {
		t.Errorf("ts impl = %q", got)
	}
}

func TestParse_MalformedFile_ProducesPartialStructure(t *testing.T) {
	src := `suite broken {
  iterations: 100
  bogus nonsense here
  bench ok { go: doWork() }
}`
	f := Parse(src)
	if !f.HasErrors() {
		t.Fatalf("expected parse errors for malformed input")
	}
	if len(f.Suites) != 1 {
		t.Fatalf("expected the suite to still be recovered, got %d suites", len(f.Suites))
	}
	if len(f.Suites[0].Benchmarks) != 1 {
		t.Fatalf("expected recovery to still find the bench block, got %+v", f.Suites[0].Benchmarks)
	}
}

func TestParse_Spans_EndGreaterEqualStart(t *testing.T) {
	src := `suite s { bench b { go: f() } }`
	f := Parse(src)
	for _, s := range f.Suites {
		if s.Span.End < s.Span.Start {
			t.Errorf("suite span invalid: %+v", s.Span)
		}
		for _, bm := range s.Benchmarks {
			if bm.Span.End < bm.Span.Start {
				t.Errorf("benchmark span invalid: %+v", bm.Span)
			}
		}
	}
}

func TestParse_DurationNormalization(t *testing.T) {
	src := `suite s {
  timeout: 30s
  bench b { go: f() }
}`
	f := Parse(src)
	if f.HasErrors() {
		t.Fatalf("unexpected errors: %v", f.ParseErrors)
	}
	s := f.Suites[0]
	if s.Timeout == nil || *s.Timeout != 30000 {
		t.Errorf("timeout = %v, want 30000ms", s.Timeout)
	}
}

func TestParse_Requires_And_Baseline(t *testing.T) {
	src := `suite s {
  requires: [go, rust]
  baseline: go
  bench b { go: f() rust: f() }
}`
	f := Parse(src)
	if f.HasErrors() {
		t.Fatalf("unexpected errors: %v", f.ParseErrors)
	}
	s := f.Suites[0]
	if len(s.Requires) != 2 || s.Requires[0] != LangGo || s.Requires[1] != LangRust {
		t.Errorf("requires = %+v", s.Requires)
	}
	if s.Baseline != LangGo || !s.Compare {
		t.Errorf("baseline = %q compare = %v", s.Baseline, s.Compare)
	}
}

func TestParse_FixtureWholeWordNames(t *testing.T) {
	src := `suite s {
  fixture s100 { hex: "aa" }
  fixture s1000 { hex: "bb" }
  bench sortit { go: bubbleSort(s1000[0..]) }
}`
	f := Parse(src)
	if f.HasErrors() {
		t.Fatalf("unexpected errors: %v", f.ParseErrors)
	}
	if len(f.Suites[0].Fixtures) != 2 {
		t.Fatalf("expected 2 fixtures")
	}
}

func TestBlocks_DerivedOnDemand(t *testing.T) {
	src := `suite s {
  setup go {
    import { "fmt" }
  }
  bench b { go: f() }
}`
	f := Parse(src)
	blocks := f.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("len(Blocks()) = %d, want 2", len(blocks))
	}
}
