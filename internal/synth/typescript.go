package synth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/ir"
)

// TypeScriptTemplate synthesizes a Node/Bun-compatible ESM .mjs program
// per benchmark (spec §4.E). TypeScript has no introspectable allocator,
// so memory profiling is never emitted here.
type TypeScriptTemplate struct{}

func (TypeScriptTemplate) Extension() string { return "mjs" }

func (TypeScriptTemplate) Synthesize(bm *ir.BenchmarkSpec, suite *ir.Suite, file *ir.BenchmarkIR) (string, error) {
	if !bm.HasLang(dsl.LangTypeScript) {
		return "", &ErrNoImplementation{Benchmark: bm.FullName, Lang: dsl.LangTypeScript}
	}
	p := newPlan(bm, suite, file, dsl.LangTypeScript)

	var b strings.Builder

	for _, imp := range tsImports(p) {
		fmt.Fprintf(&b, "import %s\n", imp)
	}
	b.WriteString("\n")

	for _, snip := range p.stdlibSnippets() {
		b.WriteString(snip)
	}

	if bm.UseSink {
		b.WriteString("let __sink\n")
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

	asyncMain := bm.Async[dsl.LangTypeScript] || p.suite.AsyncInit[dsl.LangTypeScript]
	mainKw := "function"
	if asyncMain {
		mainKw = "async function"
	}
	fmt.Fprintf(&b, "\n%s main() {\n", mainKw)

	if init := p.initCode(); init != "" {
		await := ""
		if p.suite.AsyncInit[dsl.LangTypeScript] {
			await = "await "
		}
		lines := strings.Split(strings.TrimRight(init, "\n"), "\n")
		for i, l := range lines {
			if strings.TrimSpace(l) != "" && i == 0 {
				lines[i] = "  " + await + l
			} else if strings.TrimSpace(l) != "" {
				lines[i] = "  " + l
			}
		}
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}

	for _, fx := range p.fixtureBindings() {
		fmt.Fprintf(&b, "  const %s = %s\n", fx.Name, tsUint8ArrayLiteral(fx.Data))
	}

	if before, ok := p.beforeHook(); ok {
		b.WriteString(reindent(before, "  "))
		b.WriteString("\n")
	}

	b.WriteString(tsMeasurementLoop(p))

	if after, ok := p.afterHook(); ok {
		b.WriteString(reindent(after, "  "))
		b.WriteString("\n")
	}

	if bm.UseSink {
		b.WriteString("  process.stdout.write(typeof __sink === \"undefined\" ? \"\" : \"\")\n")
	}

	b.WriteString("\n  console.log(JSON.stringify(result))\n")
	b.WriteString("}\n\n")
	if asyncMain {
		b.WriteString("await main()\n")
	} else {
		b.WriteString("main()\n")
	}

	return b.String(), nil
}

func tsImports(p plan) []string {
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

func tsUint8ArrayLiteral(data []byte) string {
	if len(data) == 0 {
		return "new Uint8Array([])"
	}
	parts := make([]string, len(data))
	for i, by := range data {
		parts[i] = fmt.Sprintf("0x%02x", by)
	}
	return "new Uint8Array([" + strings.Join(parts, ", ") + "])"
}

func tsMeasurementLoop(p plan) string {
	bm := p.bm
	code := p.code()
	each, hasEach := p.eachHook()

	sinkAssign := ""
	if bm.UseSink {
		sinkAssign = "__sink = "
	}
	callLine := func(indent string) string {
		var cb strings.Builder
		if hasEach {
			cb.WriteString(reindent(each, indent))
			cb.WriteString("\n")
		}
		fmt.Fprintf(&cb, "%s%s%s\n", indent, sinkAssign, code)
		return cb.String()
	}

	var b strings.Builder

	if bm.Concurrency > 1 {
		b.WriteString("  // concurrency > 1 on a single-threaded host runs partitions\n")
		b.WriteString("  // sequentially within one process; there is no OS-thread\n")
		b.WriteString("  // parallelism available to a plain Node/Bun script.\n")
		fmt.Fprintf(&b, "  const totalIterations = %dn\n", bm.Iterations)
		b.WriteString("  const startHr = process.hrtime.bigint()\n")
		b.WriteString("  for (let i = 0n; i < totalIterations; i++) {\n")
		b.WriteString(callLine("    "))
		b.WriteString("  }\n")
		b.WriteString("  const elapsed = process.hrtime.bigint() - startHr\n")
		b.WriteString("  const samples = []\n")
		b.WriteString("  for (let i = 0; i < 100; i++) {\n")
		b.WriteString("    const s0 = process.hrtime.bigint()\n")
		b.WriteString(callLine("    "))
		b.WriteString("    samples.push(Number(process.hrtime.bigint() - s0))\n")
		b.WriteString("  }\n")
		b.WriteString("  const nanosPerOp = Number(elapsed) / Number(totalIterations)\n")
		b.WriteString("  const result = {\n")
		b.WriteString("    iterations: Number(totalIterations),\n")
		b.WriteString("    total_nanos: Number(elapsed),\n")
		b.WriteString("    nanos_per_op: nanosPerOp,\n")
		b.WriteString("    ops_per_sec: nanosPerOp > 0 ? 1e9 / nanosPerOp : 0,\n")
		b.WriteString("    samples,\n")
		b.WriteString("  }\n")
		return b.String()
	}

	if bm.Mode == ir.ModeFixed {
		fmt.Fprintf(&b, "  const warmup = %d\n", bm.Warmup)
		fmt.Fprintf(&b, "  const iterations = %d\n", bm.Iterations)
		b.WriteString("  for (let i = 0; i < warmup; i++) {\n")
		b.WriteString(callLine("    "))
		b.WriteString("  }\n")
		b.WriteString("  const samples = new Array(iterations)\n")
		b.WriteString("  let totalNanos = 0\n")
		b.WriteString("  for (let i = 0; i < iterations; i++) {\n")
		b.WriteString("    const start = process.hrtime.bigint()\n")
		b.WriteString(callLine("    "))
		b.WriteString("    const delta = Number(process.hrtime.bigint() - start)\n")
		b.WriteString("    samples[i] = delta\n")
		b.WriteString("    totalNanos += delta\n")
		b.WriteString("  }\n")
		b.WriteString("  const nanosPerOp = totalNanos / iterations\n")
		b.WriteString("  const result = {\n")
		b.WriteString("    iterations,\n")
		b.WriteString("    total_nanos: totalNanos,\n")
		b.WriteString("    nanos_per_op: nanosPerOp,\n")
		b.WriteString("    ops_per_sec: nanosPerOp > 0 ? 1e9 / nanosPerOp : 0,\n")
		b.WriteString("    samples,\n")
		b.WriteString("  }\n")
		return b.String()
	}

	// Auto mode.
	fmt.Fprintf(&b, "  const targetNanos = %d * 1_000_000\n", bm.TargetTimeMs)
	b.WriteString("  let batchSize = 1\n")
	b.WriteString("  let totalIterations = 0\n")
	b.WriteString("  let totalNanos = 0\n")
	b.WriteString("  while (true) {\n")
	b.WriteString("    const batchStart = process.hrtime.bigint()\n")
	b.WriteString("    for (let i = 0; i < batchSize; i++) {\n")
	b.WriteString(callLine("      "))
	b.WriteString("    }\n")
	b.WriteString("    const batchNanos = Number(process.hrtime.bigint() - batchStart)\n")
	b.WriteString("    totalIterations += batchSize\n")
	b.WriteString("    totalNanos += batchNanos\n")
	b.WriteString("    if (totalNanos >= targetNanos) break\n")
	b.WriteString("    const remaining = targetNanos - totalNanos\n")
	b.WriteString("    const predicted = batchNanos > 0 ? batchSize * (targetNanos / totalNanos) : batchSize\n")
	b.WriteString("    let next\n")
	b.WriteString("    if (remaining < batchNanos) {\n")
	b.WriteString("      next = Math.max(1, predicted)\n")
	b.WriteString("    } else if (remaining < targetNanos / 5) {\n")
	b.WriteString("      next = 0.9 * predicted\n")
	b.WriteString("    } else {\n")
	b.WriteString("      next = Math.min(1.1 * predicted, batchSize * 10)\n")
	b.WriteString("    }\n")
	b.WriteString("    batchSize = Math.max(1, Math.floor(next))\n")
	b.WriteString("  }\n")
	b.WriteString("  const sampleCount = Math.min(1000, totalIterations)\n")
	b.WriteString("  const samples = new Array(sampleCount)\n")
	b.WriteString("  for (let i = 0; i < sampleCount; i++) {\n")
	b.WriteString("    const start = process.hrtime.bigint()\n")
	b.WriteString(callLine("    "))
	b.WriteString("    samples[i] = Number(process.hrtime.bigint() - start)\n")
	b.WriteString("  }\n")
	b.WriteString("  const nanosPerOp = totalNanos / totalIterations\n")
	b.WriteString("  const result = {\n")
	b.WriteString("    iterations: totalIterations,\n")
	b.WriteString("    total_nanos: totalNanos,\n")
	b.WriteString("    nanos_per_op: nanosPerOp,\n")
	b.WriteString("    ops_per_sec: nanosPerOp > 0 ? 1e9 / nanosPerOp : 0,\n")
	b.WriteString("    samples,\n")
	b.WriteString("  }\n")
	return b.String()
}
