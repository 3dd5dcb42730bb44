package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alterego-ai/alterego/internal/llm"
	"github.com/alterego-ai/alterego/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	rephraseFile    string
	rephraseTimeout time.Duration
	skipAnalysis    bool
)

// rephraseCmd represents the rephrase command
var rephraseCmd = &cobra.Command{
	Use:   "rephrase [text]",
	Short: "Rewrite text to suppress personal attribute leaks",
	Long: `Rephrase first analyzes the text, then streams a rewritten version
that preserves meaning and tone while neutralizing the phrases the
analysis pinned as attribute leaks.

With --skip-analysis the rewrite runs blind, without the leak context.

Example:
  alterego rephrase "I am 24 and just moved to Berlin for my PhD"
  alterego rephrase --file draft.txt
  cat draft.txt | alterego rephrase --skip-analysis`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRephrase,
}

func init() {
	rootCmd.AddCommand(rephraseCmd)

	rephraseCmd.Flags().StringVarP(&rephraseFile, "file", "f", "", "read text from file")
	rephraseCmd.Flags().DurationVar(&rephraseTimeout, "timeout", 5*time.Minute, "overall timeout for analysis plus rewrite")
	rephraseCmd.Flags().BoolVar(&skipAnalysis, "skip-analysis", false, "rewrite without running the analysis pass first")

	rephraseCmd.Flags().StringVar(&llmProvider, "provider", "", "LLM provider (ollama, openai)")
	rephraseCmd.Flags().StringVar(&llmModel, "model", "", "LLM model name (e.g. llama3.1:8b, gpt-4o-mini)")
	rephraseCmd.Flags().StringVar(&rephraseMdl, "rephrase-model", "", "model for rephrasing (defaults to the analysis model)")
	rephraseCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh analysis)")
}

func runRephrase(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rephraseTimeout)
	defer cancel()

	timeout = rephraseTimeout
	cfg, err := buildAnalysisConfig()
	if err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}

	var text string
	switch {
	case rephraseFile != "":
		data, readErr := os.ReadFile(rephraseFile)
		if readErr != nil {
			return fmt.Errorf("read file: %w", readErr)
		}
		text = string(data)
	case len(args) == 1:
		text = args[0]
	default:
		text, err = readStdin()
		if err != nil {
			return err
		}
	}

	if !skipAnalysis {
		if verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Analyzing before rewrite...\n")
		}
		report, analyzeErr := p.AnalyzeText(ctx, text, "rephrase input")
		if analyzeErr != nil {
			return fmt.Errorf("analyze failed: %w", analyzeErr)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Pinned %d attributes, rewriting...\n\n", len(report.Attributes))
		}
	}

	// Chunks carry the accumulated rewrite; print only what is new
	printed := 0
	resp, err := p.Rephrase(ctx, text, func(chunk llm.Chunk) {
		if chunk.Err != nil {
			return
		}
		if len(chunk.Text) > printed {
			fmt.Print(chunk.Text[printed:])
			printed = len(chunk.Text)
		}
	})
	if err != nil {
		return fmt.Errorf("rephrase failed: %w", err)
	}
	fmt.Println()

	if resp.Summary != "" {
		fmt.Fprintf(os.Stderr, "\nModel notes: %s\n", resp.Summary)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "\n✓ Rewrote with %s in %.0fms (%d tokens)\n", resp.Model, resp.InferenceTime, resp.TokensUsed)
	}

	return nil
}
