package lsp

import "go.lsp.dev/protocol"

// topLevelCompletions lists what can start a file: a suite, a stdlib
// import, or the one-time global setup block.
var topLevelCompletions = map[string]string{
	"suite":       domainDocs["suite"],
	"use":         "use std::<module> imports a standard-library module shared by every language's generated code.",
	"globalSetup": domainDocs["globalSetup"],
}

// setupSectionCompletions lists the four ordered sections inside a
// `setup <lang> { ... }` block.
var setupSectionCompletions = map[string]string{
	"import":  "Per-language import statements shared by every benchmark in the suite.",
	"declare": "Package-level state shared by every benchmark in the suite.",
	"init":    "Runs once per language, before any benchmark, to build the declared state.",
	"helpers": "Helper functions shared by every benchmark in the suite.",
}

// suiteBodyCompletions lists what can appear directly inside a suite,
// alongside its fixtures and benchmarks.
var suiteBodyCompletions = map[string]string{
	"bench":       domainDocs["bench"],
	"fixture":     domainDocs["fixture"],
	"setup":       domainDocs["setup"],
	"description": "A human-readable summary shown in reports.",
	"iterations":  "The default iteration count for every benchmark in this suite.",
	"warmup":      "The default warmup iteration count for every benchmark in this suite.",
	"timeout":     "The default per-benchmark timeout, in milliseconds.",
	"requires":    "Restricts this suite to a subset of the project's configured languages.",
	"order":       "Controls whether this suite's benchmarks run sequential, parallel, or random.",
	"baseline":    "The language every other language's measurement is compared against.",
}

// benchBodyCompletions lists what can appear inside a bench declaration,
// alongside its per-language implementations.
var benchBodyCompletions = map[string]string{
	"description": "A human-readable summary shown in reports.",
	"iterations":  "Overrides the suite's default iteration count for this benchmark.",
	"warmup":      "Overrides the suite's default warmup iteration count for this benchmark.",
	"timeout":     "Overrides the suite's default per-benchmark timeout, in milliseconds.",
	"tags":        "Labels used to filter which benchmarks a run selects.",
	"skip":        domainDocs["skip"],
	"validate":    domainDocs["validate"],
	"before":      domainDocs["before"],
	"after":       domainDocs["after"],
	"each":        domainDocs["each"],
}

// fixtureBodyCompletions lists what can appear inside a fixture
// declaration.
var fixtureBodyCompletions = map[string]string{
	"hex":         `An inline hex-encoded byte literal, or @file("path") to load one from disk.`,
	"description": "A human-readable summary shown in reports.",
	"shape":       "A free-form label describing this fixture's size or structure.",
}

// propertyValueCompletions enumerates the closed value sets spec §4.L
// requires completion to offer right after a property's ':'.
var propertyValueCompletions = map[string][]string{
	"order":    {"sequential", "parallel", "random"},
	"mode":     {"auto", "fixed"},
	"baseline": {"go", "rust", "typescript", "python"},
}

// domainCompletionItems builds the keyword/value completion list for a
// position that falls outside any embedded code block, keyed on brace
// depth and the nearest enclosing construct (spec §4.L: "context-
// sensitive completion keyed on brace depth and the nearest preceding
// keyword").
func domainCompletionItems(text string, offset int) []protocol.CompletionItem {
	if isAfterColon, prop := propertyBeforeColon(text, offset); isAfterColon {
		if values, ok := propertyValueCompletions[prop]; ok {
			items := make([]protocol.CompletionItem, 0, len(values))
			for _, v := range values {
				items = append(items, protocol.CompletionItem{Label: v, Kind: protocol.CompletionItemKindEnumMember})
			}
			return items
		}
	}

	var set map[string]string
	switch braceContext(text, offset) {
	case "":
		set = topLevelCompletions
	case "import", "declare", "init", "helpers":
		set = setupSectionCompletions
	case "suite":
		set = suiteBodyCompletions
	case "bench":
		set = benchBodyCompletions
	case "fixture":
		set = fixtureBodyCompletions
	default:
		set = domainDocs
	}

	items := make([]protocol.CompletionItem, 0, len(set))
	for kw, docText := range set {
		items = append(items, protocol.CompletionItem{
			Label:         kw,
			Kind:          protocol.CompletionItemKindKeyword,
			Documentation: docText,
		})
	}
	return items
}

// propertyBeforeColon reports whether the nearest non-whitespace
// character before offset is ':', and if so, the identifier
// immediately preceding it (the property name).
func propertyBeforeColon(text string, offset int) (bool, string) {
	i := offset - 1
	for i >= 0 && isSpaceByte(text[i]) {
		i--
	}
	if i < 0 || text[i] != ':' {
		return false, ""
	}
	i--
	for i >= 0 && isSpaceByte(text[i]) {
		i--
	}
	end := i + 1
	for i >= 0 && isIdentByte(text[i]) {
		i--
	}
	return true, text[i+1 : end]
}

// braceContext returns the construct keyword owning the nearest
// unmatched '{' before offset: "suite", "bench", "setup", "fixture",
// "globalSetup", one of the four setup section keywords, or "" at the
// top level. Constructs introduced by `keyword name {` are recognized
// by the two words preceding the brace; constructs introduced by a
// single keyword directly followed by `{` (the setup sections and
// globalSetup) are recognized by the one word preceding it.
func braceContext(text string, offset int) string {
	var stack []string
	var words []string

	flush := func(word string) {
		words = append(words, word)
		if len(words) > 2 {
			words = words[len(words)-2:]
		}
	}

	i := 0
	for i < offset && i < len(text) {
		if isIdentByte(text[i]) {
			start := i
			for i < offset && i < len(text) && isIdentByte(text[i]) {
				i++
			}
			flush(text[start:i])
			continue
		}
		switch text[i] {
		case '{':
			stack = append(stack, braceKeyword(words))
			words = nil
		case '}':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			words = nil
		}
		i++
	}
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1]
}

func braceKeyword(words []string) string {
	if len(words) == 0 {
		return ""
	}
	switch words[len(words)-1] {
	case "import", "declare", "init", "helpers", "globalSetup":
		return words[len(words)-1]
	}
	if len(words) >= 2 {
		switch words[len(words)-2] {
		case "suite", "fixture", "setup":
			return words[len(words)-2]
		case "bench", "benchAsync":
			return "bench"
		}
	}
	return ""
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
