package textmatch

import (
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"nurse", "nurse", 0},
		{"24 years old", "24 years", 4},
	}

	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarity_Identical(t *testing.T) {
	if got := Similarity("care aide", "care aide"); got != 1 {
		t.Errorf("Expected similarity 1, got %f", got)
	}
	if got := Similarity("", ""); got != 1 {
		t.Errorf("Expected similarity 1 for empty strings, got %f", got)
	}
}

func TestLocate_SingleWordExact(t *testing.T) {
	match, ok := Locate("Tokyo", "She moved to tokyo last year")
	if !ok {
		t.Fatal("Expected match, got none")
	}
	if match.Text != "tokyo" {
		t.Errorf("Expected matched text 'tokyo', got %q", match.Text)
	}
	if match.Start != 13 {
		t.Errorf("Expected start 13, got %d", match.Start)
	}
}

func TestLocate_SingleWordNoSubstring(t *testing.T) {
	// "close" must not match inside "closes"
	if _, ok := Locate("close", "door closes slowly"); ok {
		t.Error("Expected no match for 'close' against 'closes'")
	}
}

func TestLocate_MultiWordExact(t *testing.T) {
	match, ok := Locate("part-time care aide", "I work as a Part-time care aide downtown")
	if !ok {
		t.Fatal("Expected match, got none")
	}
	if match.Text != "Part-time care aide" {
		t.Errorf("Expected original-case span, got %q", match.Text)
	}
}

func TestLocate_MultiWordFuzzy(t *testing.T) {
	match, ok := Locate("works as nurse", "she works as a nurse")
	if !ok {
		t.Fatal("Expected fuzzy match, got none")
	}
	if match.Start < 4 || match.End > len("she works as a nurse") {
		t.Errorf("Unexpected span [%d, %d)", match.Start, match.End)
	}
}

func TestLocate_BelowThreshold(t *testing.T) {
	if _, ok := Locate("lives in Tokyo", "enjoys cooking pasta"); ok {
		t.Error("Expected no match below similarity threshold")
	}
}

func TestLocate_EmptyInputs(t *testing.T) {
	if _, ok := Locate("", "some text"); ok {
		t.Error("Expected no match for empty phrase")
	}
	if _, ok := Locate("phrase", ""); ok {
		t.Error("Expected no match in empty text")
	}
}

func TestLocateAll_NonOverlapping(t *testing.T) {
	text := "I am 24 years old and live in Tokyo"
	phrases := []string{"24 years old", "years old", "Tokyo"}

	matches := LocateAll(phrases, text, nil)

	for i := 1; i < len(matches); i++ {
		if matches[i].Start < matches[i-1].End {
			t.Errorf("Overlapping spans: [%d,%d) and [%d,%d)",
				matches[i-1].Start, matches[i-1].End, matches[i].Start, matches[i].End)
		}
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Start < matches[i-1].Start {
			t.Error("Matches not sorted by start offset")
		}
	}
}

func TestLocateAll_AttributeTagging(t *testing.T) {
	text := "I am 24 and work as a nurse"
	attrs := map[string]string{
		"24":    "age",
		"nurse": "occupation",
	}

	matches := LocateAll([]string{"24", "nurse"}, text, attrs)
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}
	if matches[0].Attribute != "age" {
		t.Errorf("Expected attribute 'age', got %q", matches[0].Attribute)
	}
	if matches[1].Attribute != "occupation" {
		t.Errorf("Expected attribute 'occupation', got %q", matches[1].Attribute)
	}
}

func TestLocateAll_DropsUnlocatable(t *testing.T) {
	text := "short text"
	matches := LocateAll([]string{"missing phrase entirely", "short"}, text, nil)
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}
	if matches[0].Text != "short" {
		t.Errorf("Expected 'short', got %q", matches[0].Text)
	}
}
