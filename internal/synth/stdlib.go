package synth

import "github.com/jpequegn/polybench/internal/dsl"

// stdlibSnippet returns the language-idiomatic text block for one
// `use std::<module>` (spec §6's closed module set), or false if that
// language has no wiring for it.
func stdlibSnippet(lang dsl.Lang, module string) (string, bool) {
	table, ok := stdlibSnippets[module]
	if !ok {
		return "", false
	}
	snip, ok := table[lang]
	return snip, ok
}

var stdlibSnippets = map[string]map[dsl.Lang]string{
	"constants": {
		dsl.LangGo:         "const Pi = math.Pi\nconst E = math.E\n",
		dsl.LangTypeScript: "const PI = Math.PI\nconst E = Math.E\n",
		dsl.LangRust:       "const PI_CONST: f64 = std::f64::consts::PI;\nconst E_CONST: f64 = std::f64::consts::E;\n",
	},
	"anvil": {
		dsl.LangGo:         "var ANVIL_RPC_URL = os.Getenv(\"ANVIL_RPC_URL\")\n",
		dsl.LangTypeScript: "const ANVIL_RPC_URL = process.env.ANVIL_RPC_URL ?? \"\"\n",
		dsl.LangRust:       "let anvil_rpc_url = std::env::var(\"ANVIL_RPC_URL\").unwrap_or_default();\n",
	},
	"math": {
		dsl.LangGo:         "", // math is already always imported when referenced
		dsl.LangTypeScript: "",
		dsl.LangRust:       "",
	},
	"charting": {
		dsl.LangGo:         "// charting directives are consumed by the report renderer, not the child process\n",
		dsl.LangTypeScript: "// charting directives are consumed by the report renderer, not the child process\n",
		dsl.LangRust:       "// charting directives are consumed by the report renderer, not the child process\n",
	},
}
