package textmatch

import (
	"regexp"
	"sort"
	"strings"

	"github.com/alterego-ai/alterego/internal/model"
)

// similarityThreshold is the minimum normalized similarity for a fuzzy
// window to count as a match. Below this, "not found" is preferred over a
// wrong highlight.
const similarityThreshold = 0.8

// Locate finds the best span for phrase inside text.
//
// Single-word phrases require a whole-word, case-insensitive exact match so
// that "close" never matches "closes". Multi-word phrases try an exact
// whole-phrase match first, then fall back to a fuzzy sliding-window search
// over the text's word sequence.
func Locate(phrase, text string) (model.Match, bool) {
	if phrase == "" || text == "" {
		return model.Match{}, false
	}

	wordRegex, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
	if err != nil {
		return model.Match{}, false
	}

	if loc := wordRegex.FindStringIndex(text); loc != nil {
		return model.Match{
			Start: loc[0],
			End:   loc[1],
			Text:  text[loc[0]:loc[1]],
		}, true
	}

	// Single tokens get no fuzziness
	if !strings.Contains(phrase, " ") {
		return model.Match{}, false
	}

	return locateFuzzy(phrase, text)
}

// locateFuzzy slides windows of 1..len(phraseWords)+1 words over the text
// and keeps the candidate with the smallest edit distance whose similarity
// clears the threshold
func locateFuzzy(phrase, text string) (model.Match, bool) {
	words := strings.Fields(text)
	phraseLower := strings.ToLower(phrase)
	phraseWords := strings.Fields(phraseLower)

	best := model.Match{}
	bestDistance := -1
	found := false

	maxWindow := len(phraseWords) + 1
	for i := 0; i < len(words); i++ {
		for j := 1; j <= maxWindow && i+j <= len(words); j++ {
			sequence := strings.Join(words[i:i+j], " ")
			distance := Distance(strings.ToLower(sequence), phraseLower)

			maxLen := len([]rune(sequence))
			if l := len([]rune(phrase)); l > maxLen {
				maxLen = l
			}
			if maxLen == 0 {
				continue
			}
			similarity := 1 - float64(distance)/float64(maxLen)
			if similarity < similarityThreshold {
				continue
			}
			if found && distance >= bestDistance {
				continue
			}

			// Recover the span in the original-case text
			start := strings.Index(strings.ToLower(text), strings.ToLower(sequence))
			if start < 0 {
				continue
			}
			end := start + len(sequence)

			best = model.Match{Start: start, End: end, Text: text[start:end]}
			bestDistance = distance
			found = true
		}
	}

	return best, found
}

// LocateAll locates every phrase in text and returns non-overlapping
// matches in left-to-right order. Phrases that cannot be located are
// silently dropped; when located spans overlap, the earlier-starting match
// wins. attrs, when non-nil, maps lowercased phrases to their owning
// attribute for tagging.
func LocateAll(phrases []string, text string, attrs map[string]string) []model.Match {
	var matches []model.Match
	for _, phrase := range phrases {
		m, ok := Locate(phrase, text)
		if !ok {
			continue
		}
		if attrs != nil {
			m.Attribute = attrs[strings.ToLower(phrase)]
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Start < matches[j].Start
	})

	var accepted []model.Match
	for _, m := range matches {
		if len(accepted) == 0 || m.Start >= accepted[len(accepted)-1].End {
			accepted = append(accepted, m)
		}
	}
	return accepted
}
