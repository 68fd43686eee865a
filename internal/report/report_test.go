package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jpequegn/polybench/internal/comparator"
	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/measurement"
	"github.com/jpequegn/polybench/internal/scheduler"
)

func sampleReport() *scheduler.Report {
	m := measurement.FromAggregate(1000, 1_000_000)
	return &scheduler.Report{
		Cells: []scheduler.Cell{
			{
				Suite: "hash", Benchmark: "keccak", FullName: "hash/keccak",
				Lang: dsl.LangGo, Outcome: scheduler.OutcomeOK,
				Measurement: &m, Duration: 5 * time.Millisecond,
			},
			{
				Suite: "hash", Benchmark: "blake3", FullName: "hash/blake3",
				Lang: dsl.LangRust, Outcome: scheduler.OutcomeSkipped,
				Duration: 0,
			},
			{
				Suite: "hash", Benchmark: "sha3", FullName: "hash/sha3",
				Lang: dsl.LangTypeScript, Outcome: scheduler.OutcomeRuntimeFailure,
				Err: errors.New("boom"), Stderr: "panic: boom\nstack trace...",
			},
		},
	}
}

func TestPrintReport_CountsEachOutcome(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.PrintReport(sampleReport())

	out := buf.String()
	if !strings.Contains(out, "1 passed, 1 failed, 1 skipped") {
		t.Errorf("summary line missing or wrong, got:\n%s", out)
	}
	if !strings.Contains(out, "hash/keccak") || !strings.Contains(out, "hash/sha3") {
		t.Errorf("expected both cell names to be rendered, got:\n%s", out)
	}
}

func TestPrintReport_AnvilFailedWarningPrinted(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	rep := sampleReport()
	rep.AnvilFailed = true
	rep.AnvilFailedErr = errors.New("connection refused")
	r.PrintReport(rep)

	if !strings.Contains(buf.String(), "anvil did not start") {
		t.Errorf("expected an anvil warning line, got:\n%s", buf.String())
	}
}

func TestPrintComparisons_EmptyProducesNoOutput(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.PrintComparisons(nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output for an empty comparison list, got %q", buf.String())
	}
}

func TestPrintComparisons_RendersSpeedupDescription(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	m1 := measurement.FromAggregate(1000, 1_000_000)
	m2 := measurement.FromAggregate(1000, 2_000_000)
	cmp := measurement.NewComparison("keccak", m1, "go", m2, "rust")
	r.PrintComparisons([]measurement.Comparison{cmp})

	if !strings.Contains(buf.String(), "keccak") {
		t.Errorf("expected the benchmark name in output, got %q", buf.String())
	}
}

func TestPrintRegressions_MarksRegressedBenchmarks(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	sc := comparator.SuiteComparison{
		Benchmarks: []comparator.BenchmarkComparison{
			{Name: "keccak", Language: "go", TimeDelta: 20, IsRegression: true},
		},
		Regressions: []string{"keccak"},
		Summary:     comparator.Summary{TotalComparisons: 1, Regressions: 1},
	}
	r.PrintRegressions(sc)

	out := buf.String()
	if !strings.Contains(out, "keccak") {
		t.Errorf("expected the regressed benchmark name, got %q", out)
	}
	if !strings.Contains(out, "1 regression(s)") {
		t.Errorf("expected a regression count line, got %q", out)
	}
}

func TestWriteJSON_ProducesValidConsolidatedDocument(t *testing.T) {
	var buf bytes.Buffer
	rep := sampleReport()
	if err := WriteJSON(&buf, rep, nil, nil, nil, nil); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding JSON output: %v", err)
	}
	cells, ok := decoded["cells"].([]interface{})
	if !ok || len(cells) != 3 {
		t.Fatalf("cells = %v, want 3 entries", decoded["cells"])
	}
}

func TestWriteJSON_IncludesErrorMessage(t *testing.T) {
	var buf bytes.Buffer
	rep := sampleReport()
	if err := WriteJSON(&buf, rep, nil, nil, nil, nil); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("expected the failure's error message in the JSON output, got %s", buf.String())
	}
}
