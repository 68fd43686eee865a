package synth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/ir"
)

// GoTemplate synthesizes a standalone `package main` Go program per
// benchmark (spec §4.E).
type GoTemplate struct{}

func (GoTemplate) Extension() string { return "go" }

func (GoTemplate) Synthesize(bm *ir.BenchmarkSpec, suite *ir.Suite, file *ir.BenchmarkIR) (string, error) {
	if !bm.HasLang(dsl.LangGo) {
		return "", &ErrNoImplementation{Benchmark: bm.FullName, Lang: dsl.LangGo}
	}
	p := newPlan(bm, suite, file, dsl.LangGo)

	var b strings.Builder
	b.WriteString("package main\n\n")

	imports := goImports(p)
	b.WriteString("import (\n")
	for _, imp := range imports {
		fmt.Fprintf(&b, "\t%q\n", imp)
	}
	b.WriteString(")\n\n")

	b.WriteString(goBenchResultType)

	for _, snip := range p.stdlibSnippets() {
		b.WriteString(snip)
	}
	if p.usesAnvil() {
		b.WriteString("\n")
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

	if bm.UseSink {
		b.WriteString("\nvar sinkResult any\n")
	}

	b.WriteString("\nfunc main() {\n")

	if init := p.initCode(); init != "" {
		b.WriteString(reindent(init, "\t"))
		b.WriteString("\n")
	}

	for _, fx := range p.fixtureBindings() {
		fmt.Fprintf(&b, "\t%s := %s\n", fx.Name, goByteSliceLiteral(fx.Data))
	}

	if before, ok := p.beforeHook(); ok {
		b.WriteString(reindent(before, "\t"))
		b.WriteString("\n")
	}

	b.WriteString(goMeasurementLoop(p))

	if after, ok := p.afterHook(); ok {
		b.WriteString(reindent(after, "\t"))
		b.WriteString("\n")
	}

	if bm.UseSink {
		b.WriteString("\truntime.KeepAlive(sinkResult)\n")
	}

	b.WriteString("\n\tencoded, _ := json.Marshal(result)\n")
	b.WriteString("\tfmt.Println(string(encoded))\n")
	b.WriteString("}\n")

	return b.String(), nil
}

const goBenchResultType = `type BenchResult struct {
	Iterations  uint64    ` + "`json:\"iterations\"`" + `
	TotalNanos  uint64    ` + "`json:\"total_nanos\"`" + `
	NanosPerOp  float64   ` + "`json:\"nanos_per_op\"`" + `
	OpsPerSec   float64   ` + "`json:\"ops_per_sec\"`" + `
	BytesPerOp  *uint64   ` + "`json:\"bytes_per_op,omitempty\"`" + `
	AllocsPerOp *uint64   ` + "`json:\"allocs_per_op,omitempty\"`" + `
	Samples     []uint64  ` + "`json:\"samples\"`" + `
}

`

func goImports(p plan) []string {
	set := map[string]bool{
		"fmt":             true,
		"time":            true,
		"encoding/json":   true,
	}
	if p.bm.UseSink {
		set["runtime"] = true
	}
	if p.bm.Memory {
		set["runtime"] = true
	}
	if p.bm.Concurrency > 1 {
		set["sync"] = true
	}
	if p.usesAnvil() {
		set["os"] = true
	}
	for _, m := range []string{"constants", "math"} {
		if p.file.HasStdlib(m) || p.suite.HasStdlib(m) {
			set["math"] = true
		}
	}
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

func goByteSliceLiteral(data []byte) string {
	if len(data) == 0 {
		return "[]byte{}"
	}
	var b strings.Builder
	b.WriteString("[]byte{")
	for i, by := range data {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "0x%02x", by)
	}
	b.WriteString("}")
	return b.String()
}

// goMeasurementLoop emits the fixed/auto/concurrent measurement body
// (spec §4.E), producing a `result BenchResult` local the caller
// serializes.
func goMeasurementLoop(p plan) string {
	bm := p.bm
	code := p.code()
	each, hasEach := p.eachHook()

	var b strings.Builder

	sinkAssign := ""
	if bm.UseSink {
		sinkAssign = "sinkResult = "
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

	if bm.Concurrency > 1 {
		fmt.Fprintf(&b, "\tconst concurrency = %d\n", bm.Concurrency)
		fmt.Fprintf(&b, "\tconst totalIterations = uint64(%d)\n", bm.Iterations)
		b.WriteString("\tpartition := totalIterations / uint64(concurrency)\n")
		b.WriteString("\tvar wg sync.WaitGroup\n")
		b.WriteString("\tstart := time.Now()\n")
		b.WriteString("\tfor w := 0; w < concurrency; w++ {\n")
		b.WriteString("\t\twg.Add(1)\n")
		b.WriteString("\t\tgo func() {\n")
		b.WriteString("\t\t\tdefer wg.Done()\n")
		b.WriteString("\t\t\tfor i := uint64(0); i < partition; i++ {\n")
		b.WriteString(callLine("\t\t\t\t"))
		b.WriteString("\t\t\t}\n")
		b.WriteString("\t\t}()\n")
		b.WriteString("\t}\n")
		b.WriteString("\twg.Wait()\n")
		b.WriteString("\telapsed := time.Since(start)\n")
		b.WriteString("\n\tconst postJoinSamples = 100\n")
		b.WriteString("\tsamples := make([]uint64, 0, postJoinSamples)\n")
		b.WriteString("\tfor i := 0; i < postJoinSamples; i++ {\n")
		b.WriteString("\t\tsampleStart := time.Now()\n")
		b.WriteString(callLine("\t\t"))
		b.WriteString("\t\tsamples = append(samples, uint64(time.Since(sampleStart)))\n")
		b.WriteString("\t}\n")
		b.WriteString("\n\tresult := BenchResult{\n")
		b.WriteString("\t\tIterations: totalIterations,\n")
		b.WriteString("\t\tTotalNanos: uint64(elapsed),\n")
		b.WriteString("\t\tNanosPerOp: float64(elapsed) / float64(totalIterations),\n")
		b.WriteString("\t\tOpsPerSec:  float64(totalIterations) / elapsed.Seconds(),\n")
		b.WriteString("\t\tSamples:    samples,\n")
		b.WriteString("\t}\n")
		return b.String()
	}

	if bm.Mode == ir.ModeFixed {
		fmt.Fprintf(&b, "\tconst warmup = uint64(%d)\n", bm.Warmup)
		fmt.Fprintf(&b, "\tconst iterations = uint64(%d)\n", bm.Iterations)
		b.WriteString("\tfor i := uint64(0); i < warmup; i++ {\n")
		b.WriteString(callLine("\t\t"))
		b.WriteString("\t}\n")
		b.WriteString("\tsamples := make([]uint64, iterations)\n")
		b.WriteString("\tvar totalNanos uint64\n")
		if bm.Memory {
			b.WriteString("\tvar memBefore, memAfter runtime.MemStats\n")
			b.WriteString("\truntime.ReadMemStats(&memBefore)\n")
		}
		b.WriteString("\tfor i := uint64(0); i < iterations; i++ {\n")
		b.WriteString("\t\tstart := time.Now()\n")
		b.WriteString(callLine("\t\t"))
		b.WriteString("\t\tdelta := uint64(time.Since(start))\n")
		b.WriteString("\t\tsamples[i] = delta\n")
		b.WriteString("\t\ttotalNanos += delta\n")
		b.WriteString("\t}\n")
		if bm.Memory {
			b.WriteString("\truntime.ReadMemStats(&memAfter)\n")
		}
		b.WriteString("\n\tnanosPerOp := float64(totalNanos) / float64(iterations)\n")
		b.WriteString("\topsPerSec := 0.0\n")
		b.WriteString("\tif nanosPerOp > 0 {\n\t\topsPerSec = 1e9 / nanosPerOp\n\t}\n")
		b.WriteString("\n\tresult := BenchResult{\n")
		b.WriteString("\t\tIterations: iterations,\n")
		b.WriteString("\t\tTotalNanos: totalNanos,\n")
		b.WriteString("\t\tNanosPerOp: nanosPerOp,\n")
		b.WriteString("\t\tOpsPerSec:  opsPerSec,\n")
		b.WriteString("\t\tSamples:    samples,\n")
		b.WriteString("\t}\n")
		if bm.Memory {
			b.WriteString("\tbytesPerOp := (memAfter.TotalAlloc - memBefore.TotalAlloc) / iterations\n")
			b.WriteString("\tallocsPerOp := (memAfter.Mallocs - memBefore.Mallocs) / iterations\n")
			b.WriteString("\tresult.BytesPerOp = &bytesPerOp\n")
			b.WriteString("\tresult.AllocsPerOp = &allocsPerOp\n")
		}
		return b.String()
	}

	// Auto mode: seeking phase then sampling phase (spec §4.E).
	fmt.Fprintf(&b, "\tconst targetNanos = uint64(%d) * 1_000_000\n", bm.TargetTimeMs)
	b.WriteString("\tbatchSize := uint64(1)\n")
	b.WriteString("\tvar totalIterations uint64\n")
	b.WriteString("\tvar totalNanos uint64\n")
	b.WriteString("\tfor {\n")
	b.WriteString("\t\tbatchStart := time.Now()\n")
	b.WriteString("\t\tfor i := uint64(0); i < batchSize; i++ {\n")
	b.WriteString(callLine("\t\t\t"))
	b.WriteString("\t\t}\n")
	b.WriteString("\t\tbatchNanos := uint64(time.Since(batchStart))\n")
	b.WriteString("\t\ttotalIterations += batchSize\n")
	b.WriteString("\t\ttotalNanos += batchNanos\n")
	b.WriteString("\t\tif totalNanos >= targetNanos {\n\t\t\tbreak\n\t\t}\n")
	b.WriteString("\t\tremaining := targetNanos - totalNanos\n")
	b.WriteString("\t\tpredicted := float64(batchSize)\n")
	b.WriteString("\t\tif batchNanos > 0 {\n")
	b.WriteString("\t\t\tpredicted = float64(batchSize) * float64(targetNanos) / float64(totalNanos)\n")
	b.WriteString("\t\t}\n")
	b.WriteString("\t\tvar next float64\n")
	b.WriteString("\t\tswitch {\n")
	b.WriteString("\t\tcase float64(remaining) < float64(batchNanos):\n")
	b.WriteString("\t\t\tnext = predicted\n")
	b.WriteString("\t\t\tif next < 1 {\n\t\t\t\tnext = 1\n\t\t\t}\n")
	b.WriteString("\t\tcase float64(remaining) < float64(targetNanos)/5.0:\n")
	b.WriteString("\t\t\tnext = 0.9 * predicted\n")
	b.WriteString("\t\tdefault:\n")
	b.WriteString("\t\t\tnext = 1.1 * predicted\n")
	b.WriteString("\t\t\tif cap := float64(batchSize) * 10; next > cap {\n\t\t\t\tnext = cap\n\t\t\t}\n")
	b.WriteString("\t\t}\n")
	b.WriteString("\t\tbatchSize = uint64(next)\n")
	b.WriteString("\t\tif batchSize < 1 {\n\t\t\tbatchSize = 1\n\t\t}\n")
	b.WriteString("\t}\n")
	b.WriteString("\n\tsampleCount := totalIterations\n")
	b.WriteString("\tif sampleCount > 1000 {\n\t\tsampleCount = 1000\n\t}\n")
	b.WriteString("\tsamples := make([]uint64, sampleCount)\n")
	if bm.Memory {
		b.WriteString("\tvar memBefore, memAfter runtime.MemStats\n")
		b.WriteString("\truntime.ReadMemStats(&memBefore)\n")
	}
	b.WriteString("\tfor i := uint64(0); i < sampleCount; i++ {\n")
	b.WriteString("\t\tstart := time.Now()\n")
	b.WriteString(callLine("\t\t"))
	b.WriteString("\t\tsamples[i] = uint64(time.Since(start))\n")
	b.WriteString("\t}\n")
	if bm.Memory {
		b.WriteString("\truntime.ReadMemStats(&memAfter)\n")
	}
	b.WriteString("\n\tnanosPerOp := float64(totalNanos) / float64(totalIterations)\n")
	b.WriteString("\topsPerSec := 0.0\n")
	b.WriteString("\tif nanosPerOp > 0 {\n\t\topsPerSec = 1e9 / nanosPerOp\n\t}\n")
	b.WriteString("\n\tresult := BenchResult{\n")
	b.WriteString("\t\tIterations: totalIterations,\n")
	b.WriteString("\t\tTotalNanos: totalNanos,\n")
	b.WriteString("\t\tNanosPerOp: nanosPerOp,\n")
	b.WriteString("\t\tOpsPerSec:  opsPerSec,\n")
	b.WriteString("\t\tSamples:    samples,\n")
	b.WriteString("\t}\n")
	if bm.Memory {
		b.WriteString("\tbytesPerOp := (memAfter.TotalAlloc - memBefore.TotalAlloc) / sampleCount\n")
		b.WriteString("\tallocsPerOp := (memAfter.Mallocs - memBefore.Mallocs) / sampleCount\n")
		b.WriteString("\tresult.BytesPerOp = &bytesPerOp\n")
		b.WriteString("\tresult.AllocsPerOp = &allocsPerOp\n")
	}
	return b.String()
}

// reindent prefixes every non-empty line of code with indent, so an
// embedded user snippet sits at the right depth inside main().
func reindent(code, indent string) string {
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines[i] = indent + l
	}
	return strings.Join(lines, "\n")
}
