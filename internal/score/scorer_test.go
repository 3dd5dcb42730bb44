package score

import (
	"testing"

	"github.com/alterego-ai/alterego/internal/model"
)

func makeRecords(confidences ...int) []model.AttributeRecord {
	records := make([]model.AttributeRecord, len(confidences))
	for i, c := range confidences {
		records[i] = model.AttributeRecord{
			Key:             "attr",
			Estimate:        "value",
			Confidence:      c,
			AnalysisPhrases: []string{"phrase"},
		}
	}
	return records
}

func TestScorer_Calculate_BasicScoring(t *testing.T) {
	scorer := NewScorer()

	records := []model.AttributeRecord{
		{Key: "age", Estimate: "24", Confidence: 5, AnalysisPhrases: []string{"I am 24", "years old"}},
		{Key: "location", Estimate: "Tokyo", Confidence: 3, AnalysisPhrases: []string{"live in Tokyo"}},
	}
	validation := []model.PhraseValidation{
		{Phrase: "I am 24", Found: true},
		{Phrase: "years old", Found: true},
		{Phrase: "live in Tokyo", Found: true},
	}

	result := scorer.Calculate(records, validation, nil)

	if result.Index < 0 || result.Index > 100 {
		t.Errorf("Expected index between 0 and 100, got %d", result.Index)
	}

	// Attribute exposure: min(2*5,20) + 4/5*20 = 26
	// High confidence: 1/2 * 25 = 12
	// Evidence density: min(1.5/2,1) * 20 = 15
	// No hallucination, no mitigation
	if result.Index != 53 {
		t.Errorf("Expected index 53, got %d", result.Index)
	}
	if result.Level != "medium" {
		t.Errorf("Expected medium level, got %s", result.Level)
	}

	if len(result.Signals) != 3 {
		t.Errorf("Expected 3 signals, got %d", len(result.Signals))
	}
}

func TestScorer_Calculate_NoAttributes(t *testing.T) {
	scorer := NewScorer()

	result := scorer.Calculate(nil, nil, nil)

	if result.Index != 0 {
		t.Errorf("Expected zero index with no attributes, got %d", result.Index)
	}
	if result.Level != "low" {
		t.Errorf("Expected low level, got %s", result.Level)
	}
}

func TestScorer_Calculate_HallucinationPenalty(t *testing.T) {
	scorer := NewScorer()

	records := makeRecords(5, 5)
	clean := []model.PhraseValidation{
		{Phrase: "a", Found: true},
		{Phrase: "b", Found: true},
	}
	hallucinated := []model.PhraseValidation{
		{Phrase: "a", Found: true},
		{Phrase: "b", Found: false},
	}

	cleanResult := scorer.Calculate(records, clean, nil)
	dirtyResult := scorer.Calculate(records, hallucinated, nil)

	if dirtyResult.Index >= cleanResult.Index {
		t.Errorf("Expected hallucination to lower the index: clean=%d dirty=%d",
			cleanResult.Index, dirtyResult.Index)
	}

	found := false
	for _, signal := range dirtyResult.Signals {
		if signal.Type == model.SignalHallucination {
			found = true
			if signal.Severity != model.SeverityWarning {
				t.Errorf("Expected warning severity, got %s", signal.Severity)
			}
		}
	}
	if !found {
		t.Error("Expected hallucination signal")
	}
}

func TestScorer_Calculate_MitigationCredit(t *testing.T) {
	scorer := NewScorer()

	records := []model.AttributeRecord{
		{Key: "age", Confidence: 5, AnalysisPhrases: []string{"I am 24"}},
		{Key: "location", Confidence: 5, AnalysisPhrases: []string{"Tokyo"}},
	}
	suggestions := map[string][]model.SuggestionEntry{
		"age": {{Original: "I am 24", Suggestion: "I am an adult", Attribute: "age"}},
	}

	uncovered := scorer.Calculate(records, nil, nil)
	covered := scorer.Calculate(records, nil, suggestions)

	if covered.Index >= uncovered.Index {
		t.Errorf("Expected mitigation to lower the index: uncovered=%d covered=%d",
			uncovered.Index, covered.Index)
	}

	found := false
	for _, signal := range covered.Signals {
		if signal.Type == model.SignalMitigationCoverage {
			found = true
		}
	}
	if !found {
		t.Error("Expected mitigation coverage signal")
	}
}

func TestScorer_Calculate_HighConfidenceSeverity(t *testing.T) {
	scorer := NewScorer()

	result := scorer.Calculate(makeRecords(5, 5, 4, 2), nil, nil)

	for _, signal := range result.Signals {
		if signal.Type == model.SignalHighConfidence {
			if signal.Severity != model.SeverityCritical {
				t.Errorf("Expected critical severity at 3/4 high confidence, got %s", signal.Severity)
			}
			return
		}
	}
	t.Error("Expected high confidence signal")
}

func TestScorer_Calculate_LevelBoundaries(t *testing.T) {
	scorer := NewScorer()

	if level := scorer.determineLevel(29); level != "low" {
		t.Errorf("Expected low at 29, got %s", level)
	}
	if level := scorer.determineLevel(30); level != "medium" {
		t.Errorf("Expected medium at 30, got %s", level)
	}
	if level := scorer.determineLevel(60); level != "high" {
		t.Errorf("Expected high at 60, got %s", level)
	}
}
