package dsl

// TokenKind enumerates the closed keyword set plus literal and
// punctuation tokens recognized by the lexer (see spec §6).
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokString
	TokNumber
	TokFloat
	TokDuration // normalized to milliseconds
	TokHexLiteral

	// Punctuation
	TokLBrace
	TokRBrace
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokColon
	TokDoubleColon
	TokDot
	TokComma
	TokAt

	// Keywords
	TokSuite
	TokBench
	TokBenchAsync
	TokSetup
	TokFixture
	TokHex
	TokDescription
	TokIterations
	TokWarmup
	TokWarmupIterations
	TokWarmupTime
	TokDeclare
	TokInit
	TokHelpers
	TokImport
	TokTimeout
	TokTags
	TokSkip
	TokValidate
	TokBefore
	TokAfter
	TokEach
	TokRequires
	TokOrder
	TokBaseline
	TokSuiteType
	TokRunMode
	TokSameDataset
	TokMode
	TokFairness
	TokFairnessSeed
	TokSink
	TokTargetTime
	TokMinIterations
	TokMaxIterations
	TokOutlierDetection
	TokCvThreshold
	TokCount
	TokMemory
	TokConcurrency
	TokAsyncSamplingPolicy
	TokAsyncWarmupCap
	TokAsyncSampleCap
	TokShape
	TokAsync
	TokUse
	TokGlobalSetup
	TokStd

	// Language tags
	TokGo
	TokTS
	TokTypeScript
	TokRust
	TokPython
	TokC
	TokCSharp
	TokCS

	// Booleans
	TokTrue
	TokFalse

	// Order / mode value idents are lexed as TokIdent and interpreted by the parser.
)

// keywords maps the closed keyword spelling to its token kind. Anything
// not in this table lexes as TokIdent.
var keywords = map[string]TokenKind{
	"suite":             TokSuite,
	"bench":             TokBench,
	"benchAsync":        TokBenchAsync,
	"setup":             TokSetup,
	"fixture":           TokFixture,
	"hex":               TokHex,
	"description":       TokDescription,
	"iterations":        TokIterations,
	"warmup":            TokWarmup,
	"warmupIterations":  TokWarmupIterations,
	"warmupTime":        TokWarmupTime,
	"declare":           TokDeclare,
	"init":              TokInit,
	"helpers":           TokHelpers,
	"import":            TokImport,
	"timeout":           TokTimeout,
	"tags":              TokTags,
	"skip":              TokSkip,
	"validate":          TokValidate,
	"before":            TokBefore,
	"after":             TokAfter,
	"each":              TokEach,
	"requires":          TokRequires,
	"order":             TokOrder,
	"baseline":          TokBaseline,
	"suiteType":         TokSuiteType,
	"runMode":           TokRunMode,
	"sameDataset":       TokSameDataset,
	"mode":              TokMode,
	"fairness":          TokFairness,
	"fairnessSeed":      TokFairnessSeed,
	"sink":              TokSink,
	"targetTime":        TokTargetTime,
	"minIterations":     TokMinIterations,
	"maxIterations":     TokMaxIterations,
	"outlierDetection":  TokOutlierDetection,
	"cvThreshold":       TokCvThreshold,
	"count":             TokCount,
	"memory":            TokMemory,
	"concurrency":       TokConcurrency,
	"asyncSamplingPolicy": TokAsyncSamplingPolicy,
	"asyncWarmupCap":    TokAsyncWarmupCap,
	"asyncSampleCap":    TokAsyncSampleCap,
	"shape":             TokShape,
	"async":             TokAsync,
	"use":               TokUse,
	"globalSetup":       TokGlobalSetup,
	"std":               TokStd,
	"go":                TokGo,
	"ts":                TokTS,
	"typescript":        TokTypeScript,
	"rust":               TokRust,
	"python":            TokPython,
	"c":                 TokC,
	"csharp":            TokCSharp,
	"cs":                TokCS,
	"true":              TokTrue,
	"false":             TokFalse,
}

// Lang identifies a host language tag.
type Lang string

const (
	LangGo         Lang = "go"
	LangTypeScript Lang = "ts"
	LangRust       Lang = "rust"
	LangPython     Lang = "python"
	LangC          Lang = "c"
	LangCSharp     Lang = "csharp"
)

// normalizeLang canonicalizes language aliases (ts/typescript, cs/csharp).
func normalizeLang(k TokenKind) (Lang, bool) {
	switch k {
	case TokGo:
		return LangGo, true
	case TokTS, TokTypeScript:
		return LangTypeScript, true
	case TokRust:
		return LangRust, true
	case TokPython:
		return LangPython, true
	case TokC:
		return LangC, true
	case TokCSharp, TokCS:
		return LangCSharp, true
	default:
		return "", false
	}
}

// Token is one lexeme with its span.
type Token struct {
	Kind   TokenKind
	Text   string  // raw text, or decoded string for TokString/TokHexLiteral
	Number int64   // TokNumber
	Float  float64 // TokFloat
	Millis int64   // TokDuration
	Span   Span
}
