package synth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/ir"
)

// RustTemplate synthesizes a `fn main()` Rust program per benchmark
// (spec §4.E). Rust has no introspectable allocator by default, so
// memory profiling is never emitted here; the sink uses
// std::hint::black_box, the idiomatic dead-code-elimination fence.
type RustTemplate struct{}

func (RustTemplate) Extension() string { return "rs" }

func (RustTemplate) Synthesize(bm *ir.BenchmarkSpec, suite *ir.Suite, file *ir.BenchmarkIR) (string, error) {
	if !bm.HasLang(dsl.LangRust) {
		return "", &ErrNoImplementation{Benchmark: bm.FullName, Lang: dsl.LangRust}
	}
	p := newPlan(bm, suite, file, dsl.LangRust)

	var b strings.Builder

	b.WriteString("use std::time::Instant;\n")
	b.WriteString("use serde::Serialize;\n")
	if bm.Concurrency > 1 {
		b.WriteString("use std::thread;\n")
	}
	for _, imp := range rustImports(p) {
		fmt.Fprintf(&b, "use %s;\n", imp)
	}
	b.WriteString("\n")

	b.WriteString(rustBenchResultType)

	for _, snip := range p.stdlibSnippets() {
		b.WriteString(snip)
	}

	if decl := p.declarations(); decl != "" {
		b.WriteString("\n")
		b.WriteString(decl)
		b.WriteString("\n")
	}
	if helpers := p.helpers(); helpers != "" {
		b.WriteString("\n")
		b.WriteString(helpers)
		b.WriteString("\n")
	}

	b.WriteString("\nfn main() {\n")

	if init := p.initCode(); init != "" {
		b.WriteString(reindent(init, "    "))
		b.WriteString("\n")
	}

	for _, fx := range p.fixtureBindings() {
		fmt.Fprintf(&b, "    let %s: Vec<u8> = vec![%s];\n", fx.Name, rustByteVecLiteral(fx.Data))
	}

	if before, ok := p.beforeHook(); ok {
		b.WriteString(reindent(before, "    "))
		b.WriteString("\n")
	}

	b.WriteString(rustMeasurementLoop(p))

	if after, ok := p.afterHook(); ok {
		b.WriteString(reindent(after, "    "))
		b.WriteString("\n")
	}

	b.WriteString("\n    let encoded = serde_json::to_string(&result).unwrap();\n")
	b.WriteString("    println!(\"{}\", encoded);\n")
	b.WriteString("}\n")

	return b.String(), nil
}

const rustBenchResultType = `#[derive(Serialize)]
struct BenchResult {
    iterations: u64,
    total_nanos: u64,
    nanos_per_op: f64,
    ops_per_sec: f64,
    #[serde(skip_serializing_if = "Option::is_none")]
    bytes_per_op: Option<u64>,
    #[serde(skip_serializing_if = "Option::is_none")]
    allocs_per_op: Option<u64>,
    samples: Vec<u64>,
}

`

func rustImports(p plan) []string {
	set := map[string]bool{}
	for _, imp := range p.imports() {
		set[imp] = true
	}
	out := make([]string, 0, len(set))
	for imp := range set {
		out = append(out, imp)
	}
	sort.Strings(out)
	return out
}

func rustByteVecLiteral(data []byte) string {
	parts := make([]string, len(data))
	for i, by := range data {
		parts[i] = fmt.Sprintf("0x%02x", by)
	}
	return strings.Join(parts, ", ")
}

func rustMeasurementLoop(p plan) string {
	bm := p.bm
	code := p.code()
	each, hasEach := p.eachHook()

	sinkWrap := func(expr string) string {
		if bm.UseSink {
			return fmt.Sprintf("std::hint::black_box(%s);", expr)
		}
		return expr + ";"
	}
	callLine := func(indent string) string {
		var cb strings.Builder
		if hasEach {
			cb.WriteString(reindent(each, indent))
			cb.WriteString("\n")
		}
		fmt.Fprintf(&cb, "%s%s\n", indent, sinkWrap(code))
		return cb.String()
	}

	var b strings.Builder

	if bm.Concurrency > 1 {
		fmt.Fprintf(&b, "    let concurrency: u64 = %d;\n", bm.Concurrency)
		fmt.Fprintf(&b, "    let total_iterations: u64 = %d;\n", bm.Iterations)
		b.WriteString("    let partition = total_iterations / concurrency;\n")
		b.WriteString("    let start = Instant::now();\n")
		b.WriteString("    let handles: Vec<_> = (0..concurrency)\n")
		b.WriteString("        .map(|_| {\n")
		b.WriteString("            thread::spawn(move || {\n")
		b.WriteString("                for _ in 0..partition {\n")
		b.WriteString(callLine("                    "))
		b.WriteString("                }\n")
		b.WriteString("            })\n")
		b.WriteString("        })\n")
		b.WriteString("        .collect();\n")
		b.WriteString("    for h in handles {\n        h.join().unwrap();\n    }\n")
		b.WriteString("    let elapsed = start.elapsed();\n")
		b.WriteString("    let mut samples: Vec<u64> = Vec::with_capacity(100);\n")
		b.WriteString("    for _ in 0..100 {\n")
		b.WriteString("        let s0 = Instant::now();\n")
		b.WriteString(callLine("        "))
		b.WriteString("        samples.push(s0.elapsed().as_nanos() as u64);\n")
		b.WriteString("    }\n")
		b.WriteString("    let total_nanos = elapsed.as_nanos() as u64;\n")
		b.WriteString("    let nanos_per_op = total_nanos as f64 / total_iterations as f64;\n")
		b.WriteString("    let result = BenchResult {\n")
		b.WriteString("        iterations: total_iterations,\n")
		b.WriteString("        total_nanos,\n")
		b.WriteString("        nanos_per_op,\n")
		b.WriteString("        ops_per_sec: if nanos_per_op > 0.0 { 1e9 / nanos_per_op } else { 0.0 },\n")
		b.WriteString("        bytes_per_op: None,\n")
		b.WriteString("        allocs_per_op: None,\n")
		b.WriteString("        samples,\n")
		b.WriteString("    };\n")
		return b.String()
	}

	if bm.Mode == ir.ModeFixed {
		fmt.Fprintf(&b, "    let warmup: u64 = %d;\n", bm.Warmup)
		fmt.Fprintf(&b, "    let iterations: u64 = %d;\n", bm.Iterations)
		b.WriteString("    for _ in 0..warmup {\n")
		b.WriteString(callLine("        "))
		b.WriteString("    }\n")
		b.WriteString("    let mut samples: Vec<u64> = Vec::with_capacity(iterations as usize);\n")
		b.WriteString("    let mut total_nanos: u64 = 0;\n")
		b.WriteString("    for _ in 0..iterations {\n")
		b.WriteString("        let start = Instant::now();\n")
		b.WriteString(callLine("        "))
		b.WriteString("        let delta = start.elapsed().as_nanos() as u64;\n")
		b.WriteString("        samples.push(delta);\n")
		b.WriteString("        total_nanos += delta;\n")
		b.WriteString("    }\n")
		b.WriteString("    let nanos_per_op = total_nanos as f64 / iterations as f64;\n")
		b.WriteString("    let result = BenchResult {\n")
		b.WriteString("        iterations,\n")
		b.WriteString("        total_nanos,\n")
		b.WriteString("        nanos_per_op,\n")
		b.WriteString("        ops_per_sec: if nanos_per_op > 0.0 { 1e9 / nanos_per_op } else { 0.0 },\n")
		b.WriteString("        bytes_per_op: None,\n")
		b.WriteString("        allocs_per_op: None,\n")
		b.WriteString("        samples,\n")
		b.WriteString("    };\n")
		return b.String()
	}

	// Auto mode.
	fmt.Fprintf(&b, "    let target_nanos: u64 = %d * 1_000_000;\n", bm.TargetTimeMs)
	b.WriteString("    let mut batch_size: u64 = 1;\n")
	b.WriteString("    let mut total_iterations: u64 = 0;\n")
	b.WriteString("    let mut total_nanos: u64 = 0;\n")
	b.WriteString("    loop {\n")
	b.WriteString("        let batch_start = Instant::now();\n")
	b.WriteString("        for _ in 0..batch_size {\n")
	b.WriteString(callLine("            "))
	b.WriteString("        }\n")
	b.WriteString("        let batch_nanos = batch_start.elapsed().as_nanos() as u64;\n")
	b.WriteString("        total_iterations += batch_size;\n")
	b.WriteString("        total_nanos += batch_nanos;\n")
	b.WriteString("        if total_nanos >= target_nanos {\n            break;\n        }\n")
	b.WriteString("        let remaining = target_nanos - total_nanos;\n")
	b.WriteString("        let predicted = if batch_nanos > 0 {\n")
	b.WriteString("            batch_size as f64 * (target_nanos as f64 / total_nanos as f64)\n")
	b.WriteString("        } else {\n            batch_size as f64\n        };\n")
	b.WriteString("        let next = if (remaining as f64) < (batch_nanos as f64) {\n")
	b.WriteString("            predicted.max(1.0)\n")
	b.WriteString("        } else if (remaining as f64) < (target_nanos as f64) / 5.0 {\n")
	b.WriteString("            0.9 * predicted\n")
	b.WriteString("        } else {\n")
	b.WriteString("            (1.1 * predicted).min(batch_size as f64 * 10.0)\n")
	b.WriteString("        };\n")
	b.WriteString("        batch_size = (next as u64).max(1);\n")
	b.WriteString("    }\n")
	b.WriteString("    let sample_count = total_iterations.min(1000);\n")
	b.WriteString("    let mut samples: Vec<u64> = Vec::with_capacity(sample_count as usize);\n")
	b.WriteString("    for _ in 0..sample_count {\n")
	b.WriteString("        let start = Instant::now();\n")
	b.WriteString(callLine("        "))
	b.WriteString("        samples.push(start.elapsed().as_nanos() as u64);\n")
	b.WriteString("    }\n")
	b.WriteString("    let nanos_per_op = total_nanos as f64 / total_iterations as f64;\n")
	b.WriteString("    let result = BenchResult {\n")
	b.WriteString("        iterations: total_iterations,\n")
	b.WriteString("        total_nanos,\n")
	b.WriteString("        nanos_per_op,\n")
	b.WriteString("        ops_per_sec: if nanos_per_op > 0.0 { 1e9 / nanos_per_op } else { 0.0 },\n")
	b.WriteString("        bytes_per_op: None,\n")
	b.WriteString("        allocs_per_op: None,\n")
	b.WriteString("        samples,\n")
	b.WriteString("    };\n")
	return b.String()
}
