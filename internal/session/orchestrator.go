package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/alterego-ai/alterego/internal/extract"
	"github.com/alterego-ai/alterego/internal/llm"
	"github.com/alterego-ai/alterego/internal/model"
	"github.com/alterego-ai/alterego/internal/revision"
)

// ErrRunActive is returned when a run is started while another is streaming
var ErrRunActive = fmt.Errorf("analysis run already in progress")

// Orchestrator owns the inference session for one open document: it drives
// the streaming analysis, feeds each cumulative buffer through the attribute
// parser, resolves replacement proposals on completion, and hands the
// suggestion set to the reconciler. At most one run streams at a time;
// starting a new run clears all state derived from the previous one.
type Orchestrator struct {
	analyzer  llm.Provider
	rephraser llm.Provider
	parser    *extract.Parser
	rec       *revision.Reconciler

	mu          sync.Mutex
	running     bool
	buffer      strings.Builder
	records     map[string]model.AttributeRecord
	order       []string
	suggestions map[string][]model.SuggestionEntry
	meta        model.LLMMeta

	listeners []func()
}

// NewOrchestrator creates an orchestrator over the given providers. A nil
// rephraser falls back to the analyzer.
func NewOrchestrator(analyzer, rephraser llm.Provider) *Orchestrator {
	if rephraser == nil {
		rephraser = analyzer
	}
	return &Orchestrator{
		analyzer:  analyzer,
		rephraser: rephraser,
		parser:    extract.NewParser(),
		rec:       revision.NewReconciler(),
	}
}

// Subscribe registers a listener invoked after every state update: each
// applied chunk and the final proposal resolution
func (o *Orchestrator) Subscribe(listener func()) {
	o.mu.Lock()
	o.listeners = append(o.listeners, listener)
	o.mu.Unlock()
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	listeners := make([]func(), len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}

// Run streams one analysis over text. All derived state from a previous run
// is cleared before the first chunk is applied. Chunks are applied in
// arrival order against the cumulative buffer. On cancellation or stream
// failure the error is returned and whatever partial state was already
// derived stays in place for display.
func (o *Orchestrator) Run(ctx context.Context, text string) (*llm.AnalyzeResponse, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrRunActive
	}
	o.running = true
	o.buffer.Reset()
	o.records = make(map[string]model.AttributeRecord)
	o.order = nil
	o.suggestions = nil
	o.meta = model.LLMMeta{Provider: o.analyzer.Name()}
	o.mu.Unlock()

	// Stale highlight state from the previous document must not survive
	// into the new run
	o.rec.SetSuggestions(nil, nil)

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	resp, err := o.analyzer.Analyze(ctx, llm.AnalyzeRequest{Text: text}, func(chunk llm.Chunk) {
		if ctx.Err() != nil {
			// Interrupted: stop applying further chunks, keep what we have
			return
		}
		if chunk.Err != nil || chunk.Text == "" {
			return
		}
		o.applyChunk(chunk.Text)
		o.notify()
	})
	if err != nil {
		return nil, fmt.Errorf("analysis stream: %w", err)
	}

	o.mu.Lock()
	o.meta.Model = resp.Model
	o.meta.InferenceTime = resp.InferenceTime
	o.mu.Unlock()

	o.resolveSuggestions()
	o.notify()

	return resp, nil
}

// applyChunk appends the delta and re-parses the cumulative buffer, merging
// monotonically into the record set
func (o *Orchestrator) applyChunk(delta string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.buffer.WriteString(delta)

	for key, parsed := range o.parser.Ingest(o.buffer.String()) {
		existing, ok := o.records[key]
		if !ok {
			o.order = append(o.order, key)
			o.records[key] = parsed
			continue
		}
		existing.Merge(parsed)
		o.records[key] = existing
	}
}

// resolveSuggestions runs the proposal resolver over the completed buffer
// and hands the result to the reconciler
func (o *Orchestrator) resolveSuggestions() {
	o.mu.Lock()
	buffer := o.buffer.String()
	known := o.knownPhrasesLocked()
	attrPhrases := make(map[string][]string, len(o.records))
	for key, record := range o.records {
		attrPhrases[key] = record.AnalysisPhrases
	}
	o.mu.Unlock()

	suggestions := extract.ResolveProposals(buffer, known)
	if suggestions == nil {
		return
	}

	o.mu.Lock()
	o.suggestions = suggestions
	o.mu.Unlock()

	o.rec.SetSuggestions(attrPhrases, suggestions)
}

func (o *Orchestrator) knownPhrasesLocked() []string {
	var phrases []string
	for _, key := range o.order {
		phrases = append(phrases, o.records[key].AnalysisPhrases...)
	}
	return phrases
}

// Rephrase streams an anonymizing rewrite of text, focused on the current
// run's attributes and evidence phrases
func (o *Orchestrator) Rephrase(ctx context.Context, text string, onChunk llm.ChunkFunc) (*llm.RephraseResponse, error) {
	o.mu.Lock()
	attributes := make([]string, len(o.order))
	copy(attributes, o.order)
	phrases := o.knownPhrasesLocked()
	o.mu.Unlock()

	resp, err := o.rephraser.Rephrase(ctx, llm.RephraseRequest{
		Text:            text,
		Attributes:      attributes,
		AnalyzedPhrases: phrases,
	}, onChunk)
	if err != nil {
		return nil, fmt.Errorf("rephrase stream: %w", err)
	}
	return resp, nil
}

// Records returns the inferred attributes in discovery order
func (o *Orchestrator) Records() []model.AttributeRecord {
	o.mu.Lock()
	defer o.mu.Unlock()

	records := make([]model.AttributeRecord, 0, len(o.order))
	for _, key := range o.order {
		records = append(records, o.records[key])
	}
	return records
}

// Suggestions returns the attribute -> replacement pairs from the last
// completed run, or nil while streaming or when no proposals resolved
func (o *Orchestrator) Suggestions() map[string][]model.SuggestionEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.suggestions
}

// PhraseIndex returns the lowercase evidence phrase -> attribute key map
// for the current run
func (o *Orchestrator) PhraseIndex() map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return model.PhraseIndex(o.records, o.order)
}

// Meta returns provider and timing details for the last run
func (o *Orchestrator) Meta() model.LLMMeta {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.meta
}

// Reconciler returns the reconciler tracking replacement state for the
// current document
func (o *Orchestrator) Reconciler() *revision.Reconciler {
	return o.rec
}

// Buffer returns the raw accumulated model output, for diagnostics
func (o *Orchestrator) Buffer() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buffer.String()
}
