package lsp

import "testing"

func TestBraceContext_TopLevel(t *testing.T) {
	if got := braceContext("", 0); got != "" {
		t.Errorf("braceContext empty text = %q, want \"\"", got)
	}
}

func TestBraceContext_InsideSuiteBody(t *testing.T) {
	text := "suite hash {\n  \n}"
	offset := 15 // just after the suite's opening brace and newline
	if got := braceContext(text, offset); got != "suite" {
		t.Errorf("braceContext = %q, want suite", got)
	}
}

func TestBraceContext_InsideBenchBody(t *testing.T) {
	text := "suite hash {\n  bench k {\n  \n  }\n}"
	offset := 28 // inside the bench body
	if got := braceContext(text, offset); got != "bench" {
		t.Errorf("braceContext = %q, want bench", got)
	}
}

func TestBraceContext_InsideSetupSection(t *testing.T) {
	text := "suite hash {\n  setup go {\n    import {\n    \n    }\n  }\n}"
	offset := 42 // inside the import section
	if got := braceContext(text, offset); got != "import" {
		t.Errorf("braceContext = %q, want import", got)
	}
}

func TestBraceContext_ClosedBlockReturnsToEnclosingScope(t *testing.T) {
	text := "suite hash {\n  bench k { go: doWork() }\n  \n}"
	offset := len(text) - 2 // after the bench's closing brace, back in the suite body
	if got := braceContext(text, offset); got != "suite" {
		t.Errorf("braceContext = %q, want suite", got)
	}
}

func TestPropertyBeforeColon_DetectsEnumProperty(t *testing.T) {
	text := "suite hash {\n  order: "
	ok, prop := propertyBeforeColon(text, len(text))
	if !ok {
		t.Fatal("expected propertyBeforeColon to report a colon context")
	}
	if prop != "order" {
		t.Errorf("property = %q, want order", prop)
	}
}

func TestPropertyBeforeColon_NoColonReturnsFalse(t *testing.T) {
	text := "suite hash "
	ok, _ := propertyBeforeColon(text, len(text))
	if ok {
		t.Error("expected propertyBeforeColon to report no colon context")
	}
}

func TestDomainCompletionItems_OffersEnumValuesAfterOrderColon(t *testing.T) {
	text := "suite hash {\n  order: "
	items := domainCompletionItems(text, len(text))
	labels := make(map[string]bool, len(items))
	for _, it := range items {
		labels[it.Label] = true
	}
	for _, want := range []string{"sequential", "parallel", "random"} {
		if !labels[want] {
			t.Errorf("completion items %v missing enum value %q", labels, want)
		}
	}
}

func TestDomainCompletionItems_OffersSuiteBodyKeywordsInsideSuite(t *testing.T) {
	text := "suite hash {\n  "
	items := domainCompletionItems(text, len(text))
	labels := make(map[string]bool, len(items))
	for _, it := range items {
		labels[it.Label] = true
	}
	if !labels["bench"] || !labels["fixture"] {
		t.Errorf("expected suite-body keywords bench/fixture, got %v", labels)
	}
	if labels["import"] {
		t.Errorf("did not expect setup-section keyword import at suite body scope, got %v", labels)
	}
}

func TestDomainCompletionItems_OffersTopLevelKeywordsOutsideAnySuite(t *testing.T) {
	items := domainCompletionItems("", 0)
	labels := make(map[string]bool, len(items))
	for _, it := range items {
		labels[it.Label] = true
	}
	if !labels["suite"] || !labels["globalSetup"] {
		t.Errorf("expected top-level keywords suite/globalSetup, got %v", labels)
	}
	if labels["bench"] {
		t.Errorf("did not expect suite-body keyword bench at top level, got %v", labels)
	}
}
