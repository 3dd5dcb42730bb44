package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alterego-ai/alterego/internal/model"
)

// proposalDocument is the subset of the analyzer's final JSON we read for
// replacement proposals
type proposalDocument struct {
	Inferable map[string]struct {
		Proposal string `json:"proposal"`
	} `json:"inferable"`
}

// proposalPair is one {original, replacement} entry recovered from the
// proposal pseudo-JSON
type proposalPair struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
}

// ResolveProposals parses the analyzer's completed document and returns
// suggestion entries grouped by attribute. It returns nil while the buffer
// is not yet resolvable: missing the "inferable" marker, not ending in '}',
// or failing to parse as JSON — all of which legitimately happen before the
// stream finishes.
//
// Only proposals whose original phrase (or a sub-phrase of it) was already
// surfaced as an analysis phrase are kept; the model must not introduce
// spans the user never saw highlighted.
func ResolveProposals(fullText string, knownPhrases []string) map[string][]model.SuggestionEntry {
	if !strings.Contains(fullText, `"inferable"`) {
		return nil
	}
	if !strings.HasSuffix(strings.TrimSpace(fullText), "}") {
		return nil
	}

	var doc proposalDocument
	if err := json.Unmarshal([]byte(fullText), &doc); err != nil {
		return nil
	}
	if doc.Inferable == nil {
		return nil
	}

	known := make(map[string]bool, len(knownPhrases))
	for _, p := range knownPhrases {
		known[strings.ToLower(p)] = true
	}

	suggestions := make(map[string][]model.SuggestionEntry)

	for attribute, info := range doc.Inferable {
		if info.Proposal == "" {
			continue
		}

		for _, pair := range recoverPairs(attribute, info.Proposal) {
			for _, phrase := range matchingPhrases(pair.Original, known) {
				suggestions[attribute] = append(suggestions[attribute], model.SuggestionEntry{
					Original:   phrase,
					Suggestion: pair.Replacement,
					Attribute:  attribute,
				})
			}
		}
	}

	if len(suggestions) == 0 {
		return nil
	}
	return suggestions
}

// recoverPairs parses the single-quote-ish pseudo-JSON proposal list. Bulk
// parsing is unreliable, so each fragment is normalized and parsed on its
// own; a fragment that still fails is skipped with a warning rather than
// aborting the rest.
func recoverPairs(attribute, proposal string) []proposalPair {
	normalized := strings.ReplaceAll(proposal, "'", `"`)
	normalized = strings.ReplaceAll(normalized, "[", "")
	normalized = strings.ReplaceAll(normalized, "]", "")

	var pairs []proposalPair
	for _, fragment := range strings.Split(normalized, "},") {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		if !strings.HasSuffix(fragment, "}") {
			fragment += "}"
		}

		var pair proposalPair
		if err := json.Unmarshal([]byte(fragment), &pair); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping malformed proposal entry for %s: %v\n", attribute, err)
			continue
		}
		if pair.Original == "" || pair.Replacement == "" {
			continue
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

// matchingPhrases returns the original phrase and every derived sub-phrase
// that is already known from the analysis step. The model's original may be
// a longer span than the captured phrase, so adjacent-word combinations are
// tested too; each hit becomes its own entry sharing one suggestion, which
// is what groups related phrases for atomic replacement.
func matchingPhrases(original string, known map[string]bool) []string {
	candidates := append([]string{original}, subPhrases(original)...)

	var matched []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		key := strings.ToLower(c)
		if known[key] && !seen[key] {
			seen[key] = true
			matched = append(matched, c)
		}
	}
	return matched
}

// subPhrases derives candidate sub-phrases from a multi-word original: the
// leading word pair, then every suffix starting from the second word
func subPhrases(original string) []string {
	words := strings.Fields(original)
	var subs []string

	if len(words) >= 2 {
		subs = append(subs, words[0]+" "+words[1])
	}
	for i := 1; i < len(words)-1; i++ {
		subs = append(subs, strings.Join(words[i:], " "))
	}
	return subs
}
