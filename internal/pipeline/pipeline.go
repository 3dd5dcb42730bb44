package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alterego-ai/alterego/internal/cache"
	"github.com/alterego-ai/alterego/internal/ingest"
	"github.com/alterego-ai/alterego/internal/llm"
	"github.com/alterego-ai/alterego/internal/model"
	"github.com/alterego-ai/alterego/internal/score"
	"github.com/alterego-ai/alterego/internal/session"
	"github.com/alterego-ai/alterego/internal/validate"
)

// Pipeline orchestrates the complete analysis: ingest a document, stream
// the inference run, verify cited evidence, score exposure, and render
type Pipeline struct {
	fetcher      *ingest.Fetcher
	orchestrator *session.Orchestrator
	validator    *validate.Validator
	scorer       *score.Scorer
	renderer     *Renderer
	store        cache.Cache
	config       *model.Config
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	analyzer, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("create analyzer provider: %w", err)
	}
	if analyzer == nil {
		return nil, fmt.Errorf("no LLM provider configured (set llm.provider to ollama or openai)")
	}

	rephraser, err := llm.NewProvider(llm.ConfigFromModel(cfg.Rephraser, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("create rephraser provider: %w", err)
	}

	var store cache.Cache
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			if home, err := os.UserHomeDir(); err == nil {
				dir = filepath.Join(home, ".alterego", "cache")
			}
		}
		if dir != "" {
			store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, dir, cfg.Cache.DiskTTL)
		}
	}

	return &Pipeline{
		fetcher:      ingest.NewFetcher(cfg.HTTP),
		orchestrator: session.NewOrchestrator(analyzer, rephraser),
		validator:    validate.NewValidator(cfg.Concurrency.ValidationWorkers),
		scorer:       score.NewScorer(),
		renderer:     NewRenderer(cfg.Output.IncludeFooter),
		store:        store,
		config:       cfg,
	}, nil
}

// Orchestrator exposes the streaming session for live display
func (p *Pipeline) Orchestrator() *session.Orchestrator {
	return p.orchestrator
}

// AnalyzeText analyzes raw text
func (p *Pipeline) AnalyzeText(ctx context.Context, text, source string) (*model.AnalysisReport, error) {
	return p.analyzeDocument(ctx, ingest.FromText(text, source))
}

// AnalyzeFile analyzes a document from disk
func (p *Pipeline) AnalyzeFile(ctx context.Context, path string) (*model.AnalysisReport, error) {
	doc, err := ingest.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest file: %w", err)
	}
	return p.analyzeDocument(ctx, doc)
}

// AnalyzeURL fetches and analyzes a web page
func (p *Pipeline) AnalyzeURL(ctx context.Context, url string) (*model.AnalysisReport, error) {
	doc, err := p.fetcher.FetchURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return p.analyzeDocument(ctx, doc)
}

// analyzeDocument runs the full analysis over one ingested document
func (p *Pipeline) analyzeDocument(ctx context.Context, doc *ingest.Document) (*model.AnalysisReport, error) {
	if doc.Text == "" {
		return nil, fmt.Errorf("document %q is empty", doc.Source)
	}

	key := cache.ReportKey(p.config.LLM.Model, doc.Text)
	if p.store != nil {
		if report, found := cache.LoadReport(p.store, key); found {
			p.verbosef("cache hit for %s\n", doc.Source)
			return report, nil
		}
	}

	// 1. Stream the inference run
	if _, err := p.orchestrator.Run(ctx, doc.Text); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	records := p.orchestrator.Records()

	// 2. Verify cited evidence concurrently
	validation := p.validator.ValidateRecords(ctx, records, doc.Text)

	// 3. Calculate exposure (after validation, so hallucinations count)
	suggestions := p.orchestrator.Suggestions()
	scoreResult := p.scorer.Calculate(records, validation, suggestions)

	meta := p.orchestrator.Meta()
	report := &model.AnalysisReport{
		Subject:     doc.Subject,
		Source:      doc.Source,
		AnalyzedAt:  time.Now().UTC(),
		Text:        doc.Text,
		Attributes:  records,
		Suggestions: suggestions,
		Validation:  validation,
		Score:       scoreResult,
		LLM:         &meta,
	}

	if p.store != nil {
		if err := cache.StoreReport(p.store, key, report, p.config.Cache.DiskTTL); err != nil {
			// A failed cache write never fails the analysis
			fmt.Fprintf(os.Stderr, "Warning: cache write failed: %v\n", err)
		}
	}

	return report, nil
}

// Rephrase streams an anonymizing rewrite of text using the context of the
// last analysis run
func (p *Pipeline) Rephrase(ctx context.Context, text string, onChunk llm.ChunkFunc) (*llm.RephraseResponse, error) {
	return p.orchestrator.Rephrase(ctx, text, onChunk)
}

// RenderReport renders the report to the requested outputs plus a stdout
// summary
func (p *Pipeline) RenderReport(report *model.AnalysisReport, jsonPath, mdPath string) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		p.verbosef("wrote JSON: %s\n", jsonPath)
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		p.verbosef("wrote Markdown: %s\n", mdPath)
	}

	p.renderer.RenderSummary(os.Stdout, report)

	return nil
}

func (p *Pipeline) verbosef(format string, args ...interface{}) {
	if p.config.Output.Verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
