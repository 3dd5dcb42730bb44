package validate

import (
	"context"
	"testing"

	"github.com/alterego-ai/alterego/internal/model"
)

func TestValidatorFindsPhrases(t *testing.T) {
	validator := NewValidator(4)
	text := "I am 24 years old and I work as a nurse in Tokyo."

	phrases := []model.PhraseValidation{
		{Phrase: "24 years old", Attribute: "age"},
		{Phrase: "nurse", Attribute: "occupation"},
		{Phrase: "lives in Paris", Attribute: "location"},
	}

	results := validator.Validate(context.Background(), phrases, text)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	if !results[0].Found {
		t.Error("Expected '24 years old' to be found")
	}
	if results[0].Start != 5 || results[0].End != 17 {
		t.Errorf("Expected span 5-17, got %d-%d", results[0].Start, results[0].End)
	}
	if results[0].Attribute != "age" {
		t.Errorf("Expected attribute preserved, got %s", results[0].Attribute)
	}

	if !results[1].Found {
		t.Error("Expected 'nurse' to be found")
	}

	if results[2].Found {
		t.Error("Expected 'lives in Paris' to be absent")
	}
}

func TestValidatorResultsInInputOrder(t *testing.T) {
	validator := NewValidator(2)
	text := "alpha beta gamma delta epsilon"

	words := []string{"epsilon", "alpha", "missing", "gamma"}
	phrases := make([]model.PhraseValidation, len(words))
	for i, w := range words {
		phrases[i] = model.PhraseValidation{Phrase: w}
	}

	results := validator.Validate(context.Background(), phrases, text)

	for i, w := range words {
		if results[i].Phrase != w {
			t.Errorf("Expected result %d to be %q, got %q", i, w, results[i].Phrase)
		}
	}
	if results[2].Found {
		t.Error("Expected 'missing' to be absent")
	}
}

func TestValidatorEmptyInput(t *testing.T) {
	validator := NewValidator(4)

	results := validator.Validate(context.Background(), nil, "some text")
	if len(results) != 0 {
		t.Errorf("Expected empty results, got %d", len(results))
	}
}

func TestValidatorFromRecords(t *testing.T) {
	validator := NewValidator(4)
	text := "She works as a nurse and is 24 years old."

	records := []model.AttributeRecord{
		{Key: "occupation", AnalysisPhrases: []string{"works as a nurse"}},
		{Key: "age", AnalysisPhrases: []string{"24 years old", "retired"}},
	}

	results := validator.ValidateRecords(context.Background(), records, text)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if !results[0].Found || results[0].Attribute != "occupation" {
		t.Errorf("Unexpected result: %+v", results[0])
	}
	if !results[1].Found {
		t.Error("Expected '24 years old' to be found")
	}
	if results[2].Found {
		t.Error("Expected 'retired' to be absent")
	}
}

func TestValidatorCancelledContext(t *testing.T) {
	validator := NewValidator(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	phrases := []model.PhraseValidation{{Phrase: "anything"}}
	results := validator.Validate(ctx, phrases, "anything here")

	// Cancellation may race with semaphore acquisition; either outcome
	// must keep the result slot populated
	if results[0].Phrase != "anything" {
		t.Errorf("Expected populated result, got %+v", results[0])
	}
}
