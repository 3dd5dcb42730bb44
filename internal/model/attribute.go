package model

import "strings"

// AttributeRecord represents one inferred personal attribute
type AttributeRecord struct {
	Key             string   `json:"key"`                  // Stable identifier (e.g. "age", "occupation")
	Estimate        string   `json:"estimate"`             // Inferred value
	Confidence      int      `json:"confidence"`           // 1-5 scale
	Explanation     string   `json:"explanation,omitempty"` // Model reasoning, optional until streamed
	AnalysisPhrases []string `json:"analysis_phrases,omitempty"` // Verbatim evidence phrases from the input
}

// Merge folds a later parse of the same attribute into the record.
// Fields only ever fill in; a field that briefly drops out of a regex
// match must not erase previously captured data.
func (r *AttributeRecord) Merge(update AttributeRecord) {
	if update.Estimate != "" {
		r.Estimate = update.Estimate
	}
	if update.Confidence != 0 {
		r.Confidence = update.Confidence
	}
	if update.Explanation != "" {
		r.Explanation = update.Explanation
	}
	if len(update.AnalysisPhrases) > 0 {
		r.AnalysisPhrases = mergePhrases(r.AnalysisPhrases, update.AnalysisPhrases)
	}
}

// mergePhrases appends phrases not already present, preserving order
func mergePhrases(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[strings.ToLower(p)] = true
	}
	merged := existing
	for _, p := range incoming {
		key := strings.ToLower(p)
		if !seen[key] {
			seen[key] = true
			merged = append(merged, p)
		}
	}
	return merged
}

// DisplayLabel converts a snake_case attribute key into a title-cased label
// (e.g. "relationship_status" -> "Relationship Status")
func (r *AttributeRecord) DisplayLabel() string {
	words := strings.Split(strings.ReplaceAll(r.Key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// PhraseIndex maps lowercased analysis phrases to their owning attribute key.
// Rebuilt from scratch whenever phrases change; when the same phrase is
// cited under two attributes the last attribute wins.
func PhraseIndex(records map[string]AttributeRecord, order []string) map[string]string {
	index := make(map[string]string)
	for _, key := range order {
		rec, ok := records[key]
		if !ok {
			continue
		}
		for _, phrase := range rec.AnalysisPhrases {
			index[strings.ToLower(phrase)] = key
		}
	}
	return index
}
