package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alterego-ai/alterego/internal/model"
	"github.com/alterego-ai/alterego/internal/pipeline"
	"github.com/alterego-ai/alterego/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	rateLimit    float64
	outputDir    string
	batchTimeout time.Duration
	// noFooter is defined in analyze.go and shared here
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Analyze multiple documents from a manifest file in parallel",
	Long: `Batch processes multiple documents concurrently:
- Read file paths from a manifest (one per line, # for comments)
- Analyze documents in parallel with configurable worker count
- Each analysis uses concurrent evidence verification
- Generate individual reports for each document

Concurrency defaults low: a local inference server processes requests
serially, so extra workers mostly just queue.

Example:
  alterego batch documents.txt
  alterego batch documents.txt --concurrency 4 --output-dir ./reports
  alterego batch documents.txt --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 2, "number of concurrent workers")
	batchCmd.Flags().Float64Var(&rateLimit, "rate", 1, "max inference requests per second against the model endpoint")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./alterego-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	// Shared analysis flags
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh analysis)")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	batchCmd.Flags().StringVar(&llmProvider, "provider", "", "LLM provider (ollama, openai)")
	batchCmd.Flags().StringVar(&llmModel, "model", "", "LLM model name (e.g. llama3.1:8b, gpt-4o-mini)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  AlterEgo Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Manifest:     %s\n", manifest)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	timeout = batchTimeout
	cfg, err := buildAnalysisConfig()
	if err != nil {
		return err
	}
	cfg.Concurrency.Workers = concurrency

	fmt.Fprintf(os.Stderr, "  Provider:     %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "\n")

	// Create output directory
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// Each worker gets its own pipeline: an analysis run holds streaming
	// session state that must not be shared across documents. The shared
	// limiter keeps the worker fan-out from flooding the inference server
	analyzer := &batchAnalyzer{
		cfg:      cfg,
		limiter:  worker.NewLimiter(rateLimit, cfg.Concurrency.Burst),
		endpoint: inferenceEndpoint(cfg),
	}
	processor := worker.NewBatchProcessor(analyzer, concurrency)

	fmt.Fprintf(os.Stderr, "⚙️  Reading manifest...\n")
	results, err := processor.ProcessManifest(ctx, manifest)
	if err != nil {
		return fmt.Errorf("process manifest: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Processed %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "\n")

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}

		successCount++

		slug := sanitizeFilename(result.Report.Subject)
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		if err := renderer.RenderJSON(result.Report, jsonPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Path, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, mdPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Path, err)
			continue
		}

		fmt.Fprintf(os.Stderr, "✓ %s (exposure: %d/100)\n", result.Report.Subject, result.Report.Score.Index)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// batchAnalyzer builds a fresh pipeline per document
type batchAnalyzer struct {
	cfg      *model.Config
	limiter  *worker.Limiter
	endpoint string
}

func (b *batchAnalyzer) AnalyzeFile(ctx context.Context, path string) (*model.AnalysisReport, error) {
	if err := b.limiter.Wait(ctx, b.endpoint); err != nil {
		return nil, err
	}
	p, err := pipeline.NewPipeline(b.cfg)
	if err != nil {
		return nil, err
	}
	return p.AnalyzeFile(ctx, path)
}

// inferenceEndpoint resolves the URL the rate limiter keys on
func inferenceEndpoint(cfg *model.Config) string {
	if cfg.LLM.BaseURL != "" {
		return cfg.LLM.BaseURL
	}
	if cfg.LLM.Provider == "openai" {
		return "https://api.openai.com"
	}
	return "http://localhost:11434"
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "report"
	}

	return s
}
