package score

import (
	"fmt"
	"math"

	"github.com/alterego-ai/alterego/internal/model"
)

// Scorer calculates the exposure index and generates signals
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate computes the privacy exposure index (0-100, higher = more
// exposed) with a transparent signal breakdown. Exposure rises with the
// number and confidence of inferred attributes and with evidence density;
// it falls when cited evidence cannot be verified in the text and when
// replacement proposals cover the inferred attributes.
func (s *Scorer) Calculate(records []model.AttributeRecord, validation []model.PhraseValidation, suggestions map[string][]model.SuggestionEntry) model.ExposureScore {
	var signals []model.Signal

	// 1. Attribute Exposure (0-40 points)
	exposureScore, exposureSignal := s.calculateAttributeExposure(records)
	signals = append(signals, exposureSignal)

	// 2. High Confidence Attributes (0-25 points)
	confidenceScore, confidenceSignal := s.calculateHighConfidence(records)
	signals = append(signals, confidenceSignal)

	// 3. Evidence Density (0-20 points)
	densityScore, densitySignal := s.calculateEvidenceDensity(records)
	signals = append(signals, densitySignal)

	// 4. Hallucinated Evidence (penalty)
	hallucinationPenalty, hallucinationSignal := s.calculateHallucination(validation)
	if hallucinationSignal.Type != "" {
		signals = append(signals, hallucinationSignal)
	}

	// 5. Mitigation Coverage (credit)
	mitigationCredit, mitigationSignal := s.calculateMitigation(records, suggestions)
	if mitigationSignal.Type != "" {
		signals = append(signals, mitigationSignal)
	}

	totalScore := exposureScore + confidenceScore + densityScore - hallucinationPenalty - mitigationCredit
	if totalScore < 0 {
		totalScore = 0
	}
	if totalScore > 100 {
		totalScore = 100
	}

	return model.ExposureScore{
		Index:   totalScore,
		Level:   s.determineLevel(totalScore),
		Signals: signals,
	}
}

// calculateAttributeExposure scores the raw inference surface (0-40 points)
func (s *Scorer) calculateAttributeExposure(records []model.AttributeRecord) (int, model.Signal) {
	count := len(records)
	if count == 0 {
		return 0, model.Signal{
			Type:        model.SignalAttributeExposure,
			Severity:    model.SeverityInfo,
			Description: "No attributes inferred",
			Data: map[string]interface{}{
				"attributes": 0,
			},
		}
	}

	confidenceSum := 0
	for _, r := range records {
		confidenceSum += r.Confidence
	}
	avgConfidence := float64(confidenceSum) / float64(count)

	countScore := math.Min(float64(count)*5, 20)
	confidenceScore := avgConfidence / 5.0 * 20
	score := int(countScore + confidenceScore)

	severity := model.SeverityInfo
	if count >= 4 {
		severity = model.SeverityCritical
	} else if count >= 2 {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalAttributeExposure,
		Severity:    severity,
		Description: fmt.Sprintf("%d attributes inferred, average confidence %.1f/5", count, avgConfidence),
		Data: map[string]interface{}{
			"attributes":     count,
			"avg_confidence": avgConfidence,
			"score":          score,
			"formula":        "min(count*5, 20) + avg_confidence/5 * 20",
		},
	}
}

// calculateHighConfidence scores attributes at confidence 4-5 (0-25 points)
func (s *Scorer) calculateHighConfidence(records []model.AttributeRecord) (int, model.Signal) {
	if len(records) == 0 {
		return 0, model.Signal{
			Type:        model.SignalHighConfidence,
			Severity:    model.SeverityInfo,
			Description: "No attributes inferred",
			Data:        map[string]interface{}{"high_confidence": 0},
		}
	}

	highCount := 0
	for _, r := range records {
		if r.Confidence >= 4 {
			highCount++
		}
	}

	ratio := float64(highCount) / float64(len(records))
	score := int(ratio * 25)

	severity := model.SeverityInfo
	if ratio >= 0.5 {
		severity = model.SeverityCritical
	} else if highCount > 0 {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalHighConfidence,
		Severity:    severity,
		Description: fmt.Sprintf("%d/%d attributes at confidence 4-5", highCount, len(records)),
		Data: map[string]interface{}{
			"high_confidence": highCount,
			"total":           len(records),
			"ratio":           ratio,
			"score":           score,
			"formula":         "high_confidence / total * 25",
		},
	}
}

// calculateEvidenceDensity scores cited phrases per attribute (0-20 points)
func (s *Scorer) calculateEvidenceDensity(records []model.AttributeRecord) (int, model.Signal) {
	if len(records) == 0 {
		return 0, model.Signal{
			Type:        model.SignalEvidenceDensity,
			Severity:    model.SeverityInfo,
			Description: "No attributes inferred",
			Data:        map[string]interface{}{"phrases": 0},
		}
	}

	phraseCount := 0
	for _, r := range records {
		phraseCount += len(r.AnalysisPhrases)
	}
	avgPhrases := float64(phraseCount) / float64(len(records))

	score := int(math.Min(avgPhrases/2.0, 1.0) * 20)

	severity := model.SeverityInfo
	if avgPhrases >= 2 {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalEvidenceDensity,
		Severity:    severity,
		Description: fmt.Sprintf("%.1f evidence phrases per attribute", avgPhrases),
		Data: map[string]interface{}{
			"phrases":     phraseCount,
			"attributes":  len(records),
			"avg_phrases": avgPhrases,
			"score":       score,
			"formula":     "min(avg_phrases / 2, 1) * 20",
		},
	}
}

// calculateHallucination penalizes cited phrases absent from the text (up
// to 10 points). Evidence the locator cannot find weakens the inference
// the model claims to have made.
func (s *Scorer) calculateHallucination(validation []model.PhraseValidation) (int, model.Signal) {
	if len(validation) == 0 {
		return 0, model.Signal{}
	}

	missingCount := 0
	for _, v := range validation {
		if !v.Found {
			missingCount++
		}
	}
	if missingCount == 0 {
		return 0, model.Signal{}
	}

	ratio := float64(missingCount) / float64(len(validation))
	penalty := int(ratio * 10)

	severity := model.SeverityWarning
	if ratio > 0.5 {
		severity = model.SeverityCritical
	}

	return penalty, model.Signal{
		Type:        model.SignalHallucination,
		Severity:    severity,
		Description: fmt.Sprintf("%d/%d cited phrases not found in the text", missingCount, len(validation)),
		Data: map[string]interface{}{
			"missing": missingCount,
			"total":   len(validation),
			"ratio":   ratio,
			"penalty": penalty,
			"formula": "missing / total * 10 (subtracted)",
		},
	}
}

// calculateMitigation credits attributes with usable replacement proposals
// (up to 15 points)
func (s *Scorer) calculateMitigation(records []model.AttributeRecord, suggestions map[string][]model.SuggestionEntry) (int, model.Signal) {
	if len(records) == 0 || len(suggestions) == 0 {
		return 0, model.Signal{}
	}

	coveredCount := 0
	for _, r := range records {
		if len(suggestions[r.Key]) > 0 {
			coveredCount++
		}
	}
	if coveredCount == 0 {
		return 0, model.Signal{}
	}

	ratio := float64(coveredCount) / float64(len(records))
	credit := int(ratio * 15)

	return credit, model.Signal{
		Type:        model.SignalMitigationCoverage,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%d/%d attributes have replacement proposals", coveredCount, len(records)),
		Data: map[string]interface{}{
			"covered": coveredCount,
			"total":   len(records),
			"ratio":   ratio,
			"credit":  credit,
			"formula": "covered / total * 15 (subtracted)",
		},
	}
}

// determineLevel maps the index to a coarse exposure level
func (s *Scorer) determineLevel(index int) string {
	switch {
	case index < 30:
		return "low"
	case index < 60:
		return "medium"
	default:
		return "high"
	}
}
