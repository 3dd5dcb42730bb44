package revision

import (
	"strings"
	"testing"

	"github.com/alterego-ai/alterego/internal/model"
)

func newTestReconciler() *Reconciler {
	r := NewReconciler()
	r.SetSuggestions(
		map[string][]string{
			"age":      {"24 years old"},
			"location": {"Tokyo"},
		},
		map[string][]model.SuggestionEntry{
			"age": {
				{Original: "24 years old", Suggestion: "an adult", Attribute: "age"},
			},
			"location": {
				{Original: "Tokyo", Suggestion: "a big city", Attribute: "location"},
			},
		},
	)
	return r
}

func TestReconciler_RenderHighlights(t *testing.T) {
	r := newTestReconciler()
	text := "I am 24 years old and live in Tokyo."

	segments := r.Render(text)

	var phrases []string
	var rebuilt strings.Builder
	for _, seg := range segments {
		rebuilt.WriteString(seg.Text)
		if seg.Phrase != "" {
			phrases = append(phrases, seg.Phrase)
		}
	}

	if rebuilt.String() != text {
		t.Errorf("Segments do not cover text: %q", rebuilt.String())
	}
	if len(phrases) != 2 {
		t.Fatalf("Expected 2 phrase segments, got %d: %v", len(phrases), phrases)
	}
	if phrases[0] != "24 years old" || phrases[1] != "tokyo" {
		t.Errorf("Unexpected phrase segments: %v", phrases)
	}
}

func TestReconciler_RenderAlternate(t *testing.T) {
	r := newTestReconciler()
	segments := r.Render("I am 24 years old.")

	for _, seg := range segments {
		if seg.Phrase == "24 years old" {
			if seg.Replaced {
				t.Error("Expected unreplaced state before any toggle")
			}
			if seg.Alternate != "an adult" {
				t.Errorf("Expected alternate 'an adult', got %q", seg.Alternate)
			}
			return
		}
	}
	t.Fatal("Phrase segment not found")
}

func TestReconciler_ToggleRoundTrip(t *testing.T) {
	r := newTestReconciler()
	text := "I am 24 years old and live in Tokyo."

	replaced, ok := r.Toggle(text, "24 years old")
	if !ok {
		t.Fatal("Toggle failed")
	}
	if !strings.Contains(replaced, "an adult") {
		t.Errorf("Expected replacement applied, got %q", replaced)
	}
	if strings.Contains(replaced, "24 years old") {
		t.Errorf("Original phrase still present: %q", replaced)
	}

	restored, ok := r.Toggle(replaced, "an adult")
	if !ok {
		t.Fatal("Revert failed")
	}
	if restored != text {
		t.Errorf("Round trip mismatch:\n got  %q\n want %q", restored, text)
	}
	if len(r.Replaced()) != 0 {
		t.Errorf("Replacement state not cleared: %v", r.Replaced())
	}
}

func TestReconciler_CasePreservation(t *testing.T) {
	r := NewReconciler()
	r.SetSuggestions(
		map[string][]string{"location": {"Tokyo"}},
		map[string][]model.SuggestionEntry{
			"location": {{Original: "Tokyo", Suggestion: "a big city", Attribute: "location"}},
		},
	)

	text := "Tokyo is crowded."
	replaced, ok := r.Toggle(text, "Tokyo")
	if !ok {
		t.Fatal("Toggle failed")
	}
	if !strings.HasPrefix(replaced, "A big city") {
		t.Errorf("Expected capitalized replacement, got %q", replaced)
	}

	restored, _ := r.Toggle(replaced, "a big city")
	if restored != text {
		t.Errorf("Expected exact restore, got %q", restored)
	}
}

func TestReconciler_RelatedGroupCollapse(t *testing.T) {
	r := NewReconciler()
	r.SetSuggestions(
		map[string][]string{"age": {"24", "years old"}},
		map[string][]model.SuggestionEntry{
			"age": {
				{Original: "24", Suggestion: "mid-twenties", Attribute: "age"},
				{Original: "years old", Suggestion: "mid-twenties", Attribute: "age"},
			},
		},
	)

	text := "I am 24 whole years old today"
	replaced, ok := r.Toggle(text, "24")
	if !ok {
		t.Fatal("Toggle failed")
	}
	// Both group members and the text between them collapse into one span
	if replaced != "I am mid-twenties today" {
		t.Errorf("Expected collapsed group replacement, got %q", replaced)
	}

	restored, _ := r.Toggle(replaced, "mid-twenties")
	if restored != text {
		t.Errorf("Expected exact restore of collapsed run, got %q", restored)
	}
}

func TestReconciler_FuzzySuggestionLookup(t *testing.T) {
	r := NewReconciler()
	r.SetSuggestions(
		map[string][]string{"occupation": {"part-time care aide"}},
		map[string][]model.SuggestionEntry{
			"occupation": {{Original: "part-time care aide", Suggestion: "a healthcare job", Attribute: "occupation"}},
		},
	)

	// Minor drift between the toggled phrase and the stored original
	text := "I work as a part time care aide."
	replaced, ok := r.Toggle(text, "part time care aide")
	if !ok {
		t.Fatal("Expected fuzzy suggestion lookup to succeed")
	}
	if !strings.Contains(replaced, "a healthcare job") {
		t.Errorf("Expected replacement applied, got %q", replaced)
	}
}

func TestReconciler_UnknownPhrase(t *testing.T) {
	r := newTestReconciler()
	text := "nothing to see"
	result, ok := r.Toggle(text, "unrelated phrase")
	if ok {
		t.Error("Expected toggle to fail for unknown phrase")
	}
	if result != text {
		t.Errorf("Text must be unchanged, got %q", result)
	}
}

func TestReconciler_ExactModeAfterToggle(t *testing.T) {
	r := newTestReconciler()
	text := "I am 24 years old and live in Tokyo."

	if !r.firstInteraction {
		t.Fatal("Expected tolerant matching before first toggle")
	}
	_, _ = r.Toggle(text, "Tokyo")
	if r.firstInteraction {
		t.Error("Expected exact-match mode after first toggle")
	}
}

func TestReconciler_ResetClearsState(t *testing.T) {
	r := newTestReconciler()
	text := "I am 24 years old."

	_, _ = r.Toggle(text, "24 years old")
	if len(r.Replaced()) == 0 {
		t.Fatal("Expected replacement state after toggle")
	}

	r.Reset()
	if len(r.Replaced()) != 0 {
		t.Error("Expected empty replacement state after reset")
	}
	if !r.firstInteraction {
		t.Error("Expected tolerant matching after reset")
	}
}

func TestReconciler_SubscribeNotified(t *testing.T) {
	r := newTestReconciler()

	notified := 0
	r.Subscribe(func() { notified++ })

	_, _ = r.Toggle("I am 24 years old.", "24 years old")
	if notified == 0 {
		t.Error("Expected listener notification on toggle")
	}
}

func TestStyleIndex_Deterministic(t *testing.T) {
	a := StyleIndex("occupation")
	b := StyleIndex("occupation")
	if a != b {
		t.Error("Expected stable style index")
	}
	if a < 0 || a >= paletteSize {
		t.Errorf("Style index out of range: %d", a)
	}
	if StyleIndex("") != 0 {
		t.Error("Expected 0 for empty attribute")
	}
}
