package model

// SuggestionEntry pairs an analysis phrase with its privacy-preserving
// replacement. Multiple entries may share the same Suggestion; those form a
// related-phrase group that is replaced and reverted as one unit.
type SuggestionEntry struct {
	Original   string `json:"original"`
	Suggestion string `json:"suggestion"`
	Attribute  string `json:"attribute"`
}

// Match is the ephemeral result of locating a phrase inside a text.
// Never persisted; recomputed on every render pass.
type Match struct {
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Text      string `json:"text"`      // The matched span in its original casing
	Attribute string `json:"attribute,omitempty"`
}

// Segment is one piece of the rendered editable text. Literal segments have
// an empty Phrase; phrase segments carry highlight metadata.
type Segment struct {
	Text      string `json:"text"`
	Phrase    string `json:"phrase,omitempty"`    // Lowercased phrase key, empty for literal text
	Attribute string `json:"attribute,omitempty"` // Owning attribute, for styling
	Replaced  bool   `json:"replaced"`            // Whether the span currently shows its suggested form
	Alternate string `json:"alternate,omitempty"` // Opposite-state text shown on hover/focus
	Style     int    `json:"style,omitempty"`     // Deterministic palette index for the attribute
}

// PhraseValidation records whether a cited analysis phrase actually occurs
// in the source text
type PhraseValidation struct {
	Phrase    string `json:"phrase"`
	Attribute string `json:"attribute,omitempty"`
	Found     bool   `json:"found"`
	Start     int    `json:"start,omitempty"`
	End       int    `json:"end,omitempty"`
	Error     string `json:"error,omitempty"`
}
