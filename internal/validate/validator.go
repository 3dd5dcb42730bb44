package validate

import (
	"context"
	"sync"

	"github.com/alterego-ai/alterego/internal/model"
	"github.com/alterego-ai/alterego/internal/textmatch"
)

// Validator verifies concurrently that cited evidence phrases actually
// occur in the analyzed text. A phrase the locator cannot find is a
// hallucination candidate and feeds the scoring penalty.
type Validator struct {
	maxWorkers int
}

// NewValidator creates a new validator
func NewValidator(maxWorkers int) *Validator {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	return &Validator{maxWorkers: maxWorkers}
}

// Validate checks every phrase against text and returns one result per
// phrase, in input order
func (v *Validator) Validate(ctx context.Context, phrases []model.PhraseValidation, text string) []model.PhraseValidation {
	if len(phrases) == 0 {
		return []model.PhraseValidation{}
	}

	results := make([]model.PhraseValidation, len(phrases))
	var wg sync.WaitGroup

	// Semaphore bounds the fan-out; fuzzy location over a large document
	// is quadratic in the worst case
	semaphore := make(chan struct{}, v.maxWorkers)

	for i, p := range phrases {
		wg.Add(1)
		go func(idx int, pv model.PhraseValidation) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				pv.Error = "context cancelled"
				results[idx] = pv
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = v.validateSingle(pv, text)
		}(i, p)
	}

	wg.Wait()

	return results
}

// ValidateRecords builds the phrase list from attribute records and
// validates it
func (v *Validator) ValidateRecords(ctx context.Context, records []model.AttributeRecord, text string) []model.PhraseValidation {
	var phrases []model.PhraseValidation
	for _, record := range records {
		for _, phrase := range record.AnalysisPhrases {
			phrases = append(phrases, model.PhraseValidation{
				Phrase:    phrase,
				Attribute: record.Key,
			})
		}
	}
	return v.Validate(ctx, phrases, text)
}

// validateSingle locates one phrase in the text
func (v *Validator) validateSingle(pv model.PhraseValidation, text string) model.PhraseValidation {
	match, ok := textmatch.Locate(pv.Phrase, text)
	if !ok {
		pv.Found = false
		return pv
	}

	pv.Found = true
	pv.Start = match.Start
	pv.End = match.End
	return pv
}
