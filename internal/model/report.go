package model

import "time"

// AnalysisReport is the complete result of one privacy analysis run
type AnalysisReport struct {
	Subject    string    `json:"subject"`              // Short label for the analyzed document
	Source     string    `json:"source"`               // File path, URL, or "stdin"
	AnalyzedAt time.Time `json:"analyzed_at"`          // When the run completed

	Text string `json:"text,omitempty"` // The analyzed text

	Attributes     []AttributeRecord            `json:"attributes"`            // Inferred attributes, in discovery order
	Suggestions    map[string][]SuggestionEntry `json:"suggestions,omitempty"` // Attribute -> replacement pairs
	Validation     []PhraseValidation           `json:"validation,omitempty"`  // Evidence phrase verification
	Score          ExposureScore                `json:"score"`                 // Exposure index and signal breakdown

	LLM *LLMMeta `json:"llm,omitempty"` // Which model produced the analysis
}

// LLMMeta records the provider and model used for a run
type LLMMeta struct {
	Provider      string  `json:"provider"`
	Model         string  `json:"model,omitempty"`
	InferenceTime float64 `json:"inference_time_ms,omitempty"`
}

// ExposureScore is the transparent privacy exposure breakdown
type ExposureScore struct {
	Index   int      `json:"index"`   // Overall exposure index (0-100, higher = more exposed)
	Level   string   `json:"level"`   // "low", "medium", "high"
	Signals []Signal `json:"signals"` // Diagnostic signals with scoring data
}

// Signal is one diagnostic scoring signal with its inputs exposed
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Formulas and inputs behind the number
}

// SignalType classifies a diagnostic signal
type SignalType string

const (
	SignalAttributeExposure  SignalType = "attribute_exposure"  // Confidence-weighted inferred attributes
	SignalHighConfidence     SignalType = "high_confidence"     // Attributes at confidence 4-5
	SignalEvidenceDensity    SignalType = "evidence_density"    // Cited phrases per attribute
	SignalHallucination      SignalType = "hallucination"       // Cited phrases absent from the text
	SignalMitigationCoverage SignalType = "mitigation_coverage" // Attributes with usable replacement proposals
)

// SignalSeverity indicates how much attention a signal deserves
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
