package ir

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// FixtureDecodeError blocks run for that fixture's consumers only (spec §7).
type FixtureDecodeError struct {
	FixtureName string
	Message     string
}

func (e *FixtureDecodeError) Error() string {
	return fmt.Sprintf("fixture %q: %s", e.FixtureName, e.Message)
}

// DecodeHex decodes a hex string (optionally 0x-prefixed) into bytes.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

// DecodeBase64 decodes standard base64 into bytes.
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// DecodeUTF8 returns the raw UTF-8 bytes of s (identity decode, exposed
// for symmetry with the other fixture decoders).
func DecodeUTF8(s string) []byte { return []byte(s) }

// DecodeRaw returns the bytes verbatim.
func DecodeRaw(b []byte) []byte { return b }

// DecodeJSONSelector applies a JSONPath-like selector ($.a.b[0].c) to a
// JSON document and returns the selected value re-encoded as bytes.
func DecodeJSONSelector(doc []byte, selector string) ([]byte, error) {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("invalid json document: %w", err)
	}
	sel, err := parseJSONSelector(selector)
	if err != nil {
		return nil, err
	}
	for _, step := range sel {
		switch s := step.(type) {
		case string:
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("selector %q: expected object at %q", selector, s)
			}
			v, ok = m[s]
			if !ok {
				return nil, fmt.Errorf("selector %q: key %q not found", selector, s)
			}
		case int:
			arr, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("selector %q: expected array at index %d", selector, s)
			}
			if s < 0 || s >= len(arr) {
				return nil, fmt.Errorf("selector %q: index %d out of range", selector, s)
			}
			v = arr[s]
		}
	}
	switch val := v.(type) {
	case string:
		return []byte(val), nil
	default:
		return json.Marshal(val)
	}
}

// parseJSONSelector parses "$.a.b[0].c" into a sequence of string (key)
// and int (array index) steps.
func parseJSONSelector(selector string) ([]any, error) {
	s := strings.TrimPrefix(selector, "$")
	s = strings.TrimPrefix(s, ".")
	var steps []any
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			steps = append(steps, cur.String())
			cur.Reset()
		}
	}
	i := 0
	for i < len(s) {
		c := s[i]
		switch c {
		case '.':
			flush()
			i++
		case '[':
			flush()
			j := strings.IndexByte(s[i:], ']')
			if j < 0 {
				return nil, fmt.Errorf("unterminated '[' in selector %q", selector)
			}
			idxStr := s[i+1 : i+j]
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, fmt.Errorf("invalid array index %q in selector %q", idxStr, selector)
			}
			steps = append(steps, idx)
			i += j + 1
		default:
			cur.WriteByte(c)
			i++
		}
	}
	flush()
	return steps, nil
}

// DecodeCSVSelector applies a "row,col" selector to CSV data.
func DecodeCSVSelector(data []byte, selector string) ([]byte, error) {
	parts := strings.SplitN(selector, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid csv selector %q, expected \"row,col\"", selector)
	}
	row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid csv row %q: %w", parts[0], err)
	}
	col, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid csv col %q: %w", parts[1], err)
	}
	r := csv.NewReader(strings.NewReader(string(data)))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	if row < 0 || row >= len(records) {
		return nil, fmt.Errorf("csv row %d out of range", row)
	}
	if col < 0 || col >= len(records[row]) {
		return nil, fmt.Errorf("csv col %d out of range", col)
	}
	return []byte(records[row][col]), nil
}

// ResolveFileRef reads a @file("path") reference relative to benchDir
// using the given filesystem (afero lets tests use an in-memory fs).
func ResolveFileRef(fs afero.Fs, benchDir, path string) ([]byte, error) {
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(benchDir, path)
	}
	data, err := afero.ReadFile(fs, full)
	if err != nil {
		return nil, fmt.Errorf("reading fixture file %q: %w", full, err)
	}
	return data, nil
}

// ExtractFixtureRefs returns the subset of fixtureNames that appear as
// whole-word tokens in code: neither side of a match may be an
// identifier character, per spec §4.D's boundary rule (so "s100" does
// not match inside "s1000").
func ExtractFixtureRefs(code string, fixtureNames []string) []string {
	var refs []string
	for _, name := range fixtureNames {
		if containsWholeWord(code, name) {
			refs = append(refs, name)
		}
	}
	return refs
}

func containsWholeWord(code, word string) bool {
	if word == "" {
		return false
	}
	start := 0
	for {
		idx := strings.Index(code[start:], word)
		if idx < 0 {
			return false
		}
		abs := start + idx
		before := byte(0)
		if abs > 0 {
			before = code[abs-1]
		}
		after := byte(0)
		if abs+len(word) < len(code) {
			after = code[abs+len(word)]
		}
		if !isIdentByte(before) && !isIdentByte(after) {
			return true
		}
		start = abs + 1
		if start >= len(code) {
			return false
		}
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
