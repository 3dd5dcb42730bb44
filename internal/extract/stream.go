package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alterego-ai/alterego/internal/model"
)

// Parser extracts attribute records from a streaming, possibly incomplete
// JSON buffer. Ingest is a pure function of the cumulative buffer: the
// caller re-supplies the whole buffer on every chunk and merges the result
// into persistent state.
//
// The parsing is deliberately regex-based rather than a tolerant JSON
// tokenizer: fields must surface as soon as their own sub-object closes,
// even while the enclosing document is still open.
type Parser struct {
	attrPattern      *regexp.Regexp
	inferablePattern *regexp.Regexp
}

// attribute blocks: "key": { ... "estimate": "...", "confidence": N
// The non-greedy body means a block matches as soon as its estimate and
// confidence have streamed, without the closing brace.
const attrExpr = `"([^"]+)":\s*\{[^}]*?"estimate":\s*"([^"]+)",\s*"confidence":\s*(\d+)`

// NewParser creates a streaming attribute parser
func NewParser() *Parser {
	return &Parser{
		attrPattern:      regexp.MustCompile(attrExpr),
		inferablePattern: regexp.MustCompile(`(?s)"inferable":\s*\{(.*?)(?:"non_inferable"|$)`),
	}
}

// Ingest parses the cumulative buffer and returns one record per attribute
// found in this pass. Safe to call on invalid or truncated JSON; a buffer
// with nothing parseable yields an empty map. Idempotent.
func (p *Parser) Ingest(buffer string) map[string]model.AttributeRecord {
	records := make(map[string]model.AttributeRecord)

	scope := buffer
	// When the document declares an "inferable" section, restrict matching
	// to it so the negative-evidence section is never surfaced.
	if strings.Contains(buffer, `"inferable"`) {
		if m := p.inferablePattern.FindStringSubmatch(buffer); m != nil {
			scope = m[1]
		}
	}

	for _, m := range p.attrPattern.FindAllStringSubmatch(scope, -1) {
		key := m[1]
		estimate := cleanField(m[2])
		confidence, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}

		record := model.AttributeRecord{
			Key:        key,
			Estimate:   estimate,
			Confidence: confidence,
		}

		// Sibling fields are re-found per key: one global non-greedy pass
		// cannot reliably associate several fields inside nested braces.
		if explanation, ok := findScopedField(scope, key, "explanation"); ok {
			record.Explanation = explanation
		}
		if analysis, ok := findScopedField(scope, key, "analysis"); ok {
			record.AnalysisPhrases = SplitPhrases(analysis)
		}

		records[key] = record
	}

	return records
}

// findScopedField locates field inside the object following "key": { ... }
func findScopedField(buffer, key, field string) (string, bool) {
	expr := fmt.Sprintf(`"%s":\s*\{[^}]*"%s":\s*"((?:[^"\\]|\\"|\\)*?)"`,
		regexp.QuoteMeta(key), regexp.QuoteMeta(field))
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return "", false
	}
	m := pattern.FindStringSubmatch(buffer)
	if m == nil {
		return "", false
	}
	return cleanField(m[1]), true
}

// cleanField unescapes quotes, decodes \uXXXX escapes, strips wrapping
// quotes, and trims whitespace
func cleanField(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = decodeUnicodeEscapes(s)
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}

var unicodeEscape = regexp.MustCompile(`\\u([a-fA-F0-9]{4})`)

// decodeUnicodeEscapes replaces \uXXXX sequences with their code point
func decodeUnicodeEscapes(s string) string {
	return unicodeEscape.ReplaceAllStringFunc(s, func(esc string) string {
		code, err := strconv.ParseUint(esc[2:], 16, 32)
		if err != nil {
			return esc
		}
		return string(rune(code))
	})
}

// SplitPhrases splits a raw analysis field into candidate evidence phrases.
// Phrases are comma-separated; each is trimmed and stripped of residual
// quote wrapping, and empty results are discarded.
func SplitPhrases(analysis string) []string {
	var phrases []string
	for _, part := range strings.Split(analysis, ",") {
		phrase := strings.TrimSpace(part)
		phrase = strings.Trim(phrase, `"' `)
		if phrase != "" {
			phrases = append(phrases, phrase)
		}
	}
	return phrases
}
