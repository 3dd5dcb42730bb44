package revision

import (
	"hash/fnv"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/alterego-ai/alterego/internal/model"
	"github.com/alterego-ai/alterego/internal/textmatch"
)

// paletteSize is the number of highlight style classes available for
// attributes without a dedicated style
const paletteSize = 6

// suggestionTarget is the replacement info attached to an analysis phrase
type suggestionTarget struct {
	suggestion string
	attribute  string
}

// Reconciler tracks which phrases in a live editable text are shown in
// their original vs replaced form, and renders highlight segments. One
// Reconciler serves one editing session; it is driven from a single
// goroutine.
type Reconciler struct {
	phraseAttr    map[string]string           // lowercased phrase -> attribute
	suggestionMap map[string]suggestionTarget // lowercased original -> target
	phraseOrder   []string                    // stable iteration order for rendering

	// replaced maps the lowercased suggestion text of each applied group to
	// the exact text run it displaced, so reverting restores the original
	// byte-for-byte
	replaced map[string]string

	// Until the first toggle the text has not diverged from what the model
	// analyzed, so fuzzy matching is safe. Afterwards only exact matches
	// are highlighted.
	firstInteraction bool

	listeners []func()
}

// NewReconciler creates an empty reconciliation engine
func NewReconciler() *Reconciler {
	return &Reconciler{
		phraseAttr:       make(map[string]string),
		suggestionMap:    make(map[string]suggestionTarget),
		replaced:         make(map[string]string),
		firstInteraction: true,
	}
}

// SetSuggestions installs a new analysis result. Any previous replacement
// state belongs to a stale run and is discarded.
func (r *Reconciler) SetSuggestions(attributePhrases map[string][]string, suggestions map[string][]model.SuggestionEntry) {
	r.phraseAttr = make(map[string]string)
	r.suggestionMap = make(map[string]suggestionTarget)
	r.phraseOrder = nil

	// Deterministic attribute order keeps rendering and last-write-wins
	// phrase ownership reproducible
	attrs := make([]string, 0, len(attributePhrases))
	for attr := range attributePhrases {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	for _, attr := range attrs {
		for _, phrase := range attributePhrases[attr] {
			key := strings.ToLower(phrase)
			if _, seen := r.phraseAttr[key]; !seen {
				r.phraseOrder = append(r.phraseOrder, phrase)
			}
			r.phraseAttr[key] = attr
		}
	}

	sugAttrs := make([]string, 0, len(suggestions))
	for attr := range suggestions {
		sugAttrs = append(sugAttrs, attr)
	}
	sort.Strings(sugAttrs)

	for _, attr := range sugAttrs {
		for _, entry := range suggestions[attr] {
			origKey := strings.ToLower(entry.Original)
			r.suggestionMap[origKey] = suggestionTarget{
				suggestion: entry.Suggestion,
				attribute:  attr,
			}
			// Replaced spans highlight under the same attribute
			sugKey := strings.ToLower(entry.Suggestion)
			if _, seen := r.phraseAttr[sugKey]; !seen {
				r.phraseOrder = append(r.phraseOrder, entry.Suggestion)
			}
			r.phraseAttr[sugKey] = attr
		}
	}

	r.Reset()
}

// Reset clears replacement state, returning to tolerant matching. Called
// when the text identity changes or a new analysis run starts.
func (r *Reconciler) Reset() {
	r.replaced = make(map[string]string)
	r.firstInteraction = true
	r.notify()
}

// Subscribe registers a listener invoked after every state change
func (r *Reconciler) Subscribe(listener func()) {
	r.listeners = append(r.listeners, listener)
}

func (r *Reconciler) notify() {
	for _, l := range r.listeners {
		l()
	}
}

// Replaced reports the lowercased suggestion keys currently applied
func (r *Reconciler) Replaced() []string {
	keys := make([]string, 0, len(r.replaced))
	for k := range r.replaced {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Render splits text into literal and phrase segments for highlighting.
// Phrase segments carry the owning attribute, the replaced flag, and the
// opposite-state text for hover display. Segments never overlap and cover
// the whole text.
func (r *Reconciler) Render(text string) []model.Segment {
	if text == "" || len(r.phraseOrder) == 0 {
		return []model.Segment{{Text: text}}
	}

	var matches []model.Match
	if r.firstInteraction {
		matches = textmatch.LocateAll(r.phraseOrder, text, r.phraseAttr)
	} else {
		matches = r.locateAllExact(text)
	}

	var segments []model.Segment
	last := 0
	for _, m := range matches {
		if m.Start > last {
			segments = append(segments, model.Segment{Text: text[last:m.Start]})
		}

		key := strings.ToLower(m.Text)
		_, isReplaced := r.replaced[key]

		var alternate string
		if isReplaced {
			alternate = r.replaced[key]
		} else if target, ok := r.suggestionMap[key]; ok {
			alternate = target.suggestion
		}

		segments = append(segments, model.Segment{
			Text:      m.Text,
			Phrase:    key,
			Attribute: m.Attribute,
			Replaced:  isReplaced,
			Alternate: alternate,
			Style:     StyleIndex(m.Attribute),
		})
		last = m.End
	}

	if last < len(text) {
		segments = append(segments, model.Segment{Text: text[last:]})
	}
	return segments
}

// locateAllExact is the post-toggle matching mode: whole-phrase,
// case-insensitive, no fuzziness
func (r *Reconciler) locateAllExact(text string) []model.Match {
	var matches []model.Match
	for _, phrase := range r.phraseOrder {
		m, ok := locateExact(phrase, text)
		if !ok {
			continue
		}
		m.Attribute = r.phraseAttr[strings.ToLower(phrase)]
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

func locateExact(phrase, text string) (model.Match, bool) {
	pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
	if err != nil {
		return model.Match{}, false
	}
	loc := pattern.FindStringIndex(text)
	if loc == nil {
		return model.Match{}, false
	}
	return model.Match{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]]}, true
}

// Toggle flips one phrase between its original and suggested form and
// returns the updated text. Replacing a member of a related-phrase group
// replaces the whole group; reverting restores the displaced text exactly.
// The returned bool is false when the phrase has no known suggestion.
func (r *Reconciler) Toggle(text, phrase string) (string, bool) {
	key := strings.ToLower(phrase)

	if original, ok := r.replaced[key]; ok {
		return r.revert(text, phrase, original), true
	}

	target, ok := r.lookupSuggestion(key)
	if !ok {
		return text, false
	}

	group := r.relatedPhrases(target.suggestion)

	var spans []model.Match
	for _, member := range group {
		if m, found := textmatch.Locate(member, text); found {
			spans = append(spans, m)
		}
	}
	if len(spans) == 0 {
		return text, false
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	// Multiple spans describing one fact collapse into a single
	// replacement covering the whole run
	start := spans[0].Start
	end := spans[len(spans)-1].End
	displaced := text[start:end]

	replacement := matchCase(displaced, target.suggestion)
	newText := text[:start] + replacement + text[end:]

	r.replaced[strings.ToLower(target.suggestion)] = displaced
	r.firstInteraction = false
	r.notify()
	return newText, true
}

// revert swaps a replaced suggestion span back to the exact text it
// displaced and drops the group from the replacement state
func (r *Reconciler) revert(text, phrase, original string) string {
	key := strings.ToLower(phrase)

	m, ok := locateExact(phrase, text)
	if !ok {
		if m, ok = textmatch.Locate(phrase, text); !ok {
			// The span was edited away; just drop the state
			delete(r.replaced, key)
			r.notify()
			return text
		}
	}

	// The stored run is verbatim, so no case fixup is needed on the way back
	newText := text[:m.Start] + original + text[m.End:]

	delete(r.replaced, key)
	r.notify()
	return newText
}

// lookupSuggestion resolves a phrase's replacement: exact key first, then
// the closest fuzzy entry at >= 0.8 similarity to absorb tokenization
// drift between the analysis phrase and the literal text
func (r *Reconciler) lookupSuggestion(key string) (suggestionTarget, bool) {
	if target, ok := r.suggestionMap[key]; ok {
		return target, true
	}

	var best suggestionTarget
	bestDistance := -1
	found := false
	for original, target := range r.suggestionMap {
		distance := textmatch.Distance(key, original)
		if textmatch.Similarity(key, original) < 0.8 {
			continue
		}
		if !found || distance < bestDistance {
			best = target
			bestDistance = distance
			found = true
		}
	}
	return best, found
}

// relatedPhrases returns every original phrase sharing one suggestion
// text; those are replaced and reverted as a unit
func (r *Reconciler) relatedPhrases(suggestion string) []string {
	sugKey := strings.ToLower(suggestion)
	var group []string
	for original, target := range r.suggestionMap {
		if strings.ToLower(target.suggestion) == sugKey {
			group = append(group, original)
		}
	}
	sort.Strings(group)
	return group
}

// matchCase capitalizes the replacement's first letter when the displaced
// text started uppercase
func matchCase(displaced, replacement string) string {
	if displaced == "" || replacement == "" {
		return replacement
	}
	first := []rune(displaced)[0]
	if unicode.IsUpper(first) {
		rep := []rune(replacement)
		rep[0] = unicode.ToUpper(rep[0])
		return string(rep)
	}
	return replacement
}

// StyleIndex assigns a reproducible palette slot to an attribute
func StyleIndex(attribute string) int {
	if attribute == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(attribute)))
	return int(h.Sum32() % paletteSize)
}
