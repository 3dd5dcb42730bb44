package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alterego-ai/alterego/internal/model"
	"github.com/alterego-ai/alterego/internal/pipeline"
	"github.com/alterego-ai/alterego/internal/revision"
	"github.com/spf13/cobra"
)

var (
	inputFile   string
	inputURL    string
	outJSON     string
	outMD       string
	mode        string
	timeout     time.Duration
	userAgent   string
	maxBytes    int64
	noCache     bool
	noFooter    bool
	insecureTLS bool
	httpProxy   string
	httpsProxy  string
	llmProvider string
	llmModel    string
	rephraseMdl string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Analyze text for personal attribute inference",
	Long: `Analyze runs text through a language model to:
- Infer personal attributes (age, location, occupation, ...)
- Pin each inference to the exact phrases that reveal it
- Verify every cited phrase against the actual text
- Propose privacy-preserving replacements
- Calculate a transparent exposure index

Text can come from an argument, a file, a URL, or stdin.

Example:
  alterego analyze "I am 24 and just moved to Berlin for my PhD"
  alterego analyze --file diary.txt --json report.json --md report.md
  alterego analyze --url https://example.com/about-me
  cat draft.txt | alterego analyze --mode advanced`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Input flags
	analyzeCmd.Flags().StringVarP(&inputFile, "file", "f", "", "read text from file (.txt, .md, .html)")
	analyzeCmd.Flags().StringVarP(&inputURL, "url", "u", "", "fetch and analyze a web page")

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().StringVar(&mode, "mode", "normal", "display mode: normal (confident findings only) or advanced (everything)")
	analyzeCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// HTTP flags
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall analysis timeout (local models can be slow)")
	analyzeCmd.Flags().StringVar(&userAgent, "ua", "AlterEgo/0.2 (+https://github.com/alterego-ai/alterego)", "HTTP User-Agent for URL fetches")
	analyzeCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read from a URL")
	analyzeCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	analyzeCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	analyzeCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// Cache flags
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh analysis)")

	// LLM flags
	analyzeCmd.Flags().StringVar(&llmProvider, "provider", "", "LLM provider (ollama, openai)")
	analyzeCmd.Flags().StringVar(&llmModel, "model", "", "LLM model name (e.g. llama3.1:8b, gpt-4o-mini)")
	analyzeCmd.Flags().StringVar(&rephraseMdl, "rephrase-model", "", "model for rephrasing (defaults to the analysis model)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if mode != "normal" && mode != "advanced" {
		return fmt.Errorf("unknown mode %q (supported: normal, advanced)", mode)
	}

	cfg, err := buildAnalysisConfig()
	if err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Provider: %s\n", cfg.LLM.Provider)
		fmt.Fprintf(os.Stderr, "Model: %s\n", cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintln(os.Stderr)
	}

	var report *model.AnalysisReport

	switch {
	case inputURL != "":
		if verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Fetching: %s\n", inputURL)
		}
		report, err = p.AnalyzeURL(ctx, inputURL)
	case inputFile != "":
		report, err = p.AnalyzeFile(ctx, inputFile)
	case len(args) == 1:
		report, err = p.AnalyzeText(ctx, args[0], "argument")
	default:
		text, readErr := readStdin()
		if readErr != nil {
			return readErr
		}
		report, err = p.AnalyzeText(ctx, text, "stdin")
	}
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Inferred %d attributes\n", len(report.Attributes))
		fmt.Fprintf(os.Stderr, "✓ Verified %d cited phrases\n", len(report.Validation))
		fmt.Fprintf(os.Stderr, "✓ Exposure index: %d/100\n", report.Score.Index)
	}

	display := report
	if mode == "normal" {
		display = filterConfident(report)
	}

	if err := p.RenderReport(display, outJSON, outMD); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if mode == "advanced" {
		printHighlights(report)
	}

	return nil
}

// printHighlights shows the text with every leaking phrase marked, plus
// the replacement each marker toggles to
func printHighlights(report *model.AnalysisReport) {
	if len(report.Suggestions) == 0 {
		return
	}

	rec := revision.NewReconciler()
	attrPhrases := make(map[string][]string)
	for _, attr := range report.Attributes {
		attrPhrases[attr.Key] = attr.AnalysisPhrases
	}
	rec.SetSuggestions(attrPhrases, report.Suggestions)

	fmt.Println("\nLeaking phrases:")
	for _, seg := range rec.Render(report.Text) {
		if seg.Phrase == "" {
			fmt.Print(seg.Text)
			continue
		}
		fmt.Printf("[%s]", seg.Text)
	}
	fmt.Println()

	for _, attr := range report.Attributes {
		for _, entry := range report.Suggestions[attr.Key] {
			fmt.Printf("  [%s] → %s (%s)\n", entry.Original, entry.Suggestion, attr.DisplayLabel())
		}
	}
}

// buildAnalysisConfig assembles configuration from defaults, the config
// file, flags, and the environment
func buildAnalysisConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	applyFileConfig(cfg)

	cfg.HTTP.Timeout = timeout
	cfg.HTTP.UserAgent = userAgent
	cfg.HTTP.MaxBodyBytes = maxBytes
	cfg.HTTP.InsecureTLS = insecureTLS
	cfg.HTTP.HTTPProxy = httpProxy
	cfg.HTTP.HTTPSProxy = httpsProxy
	cfg.Cache.Enabled = cfg.Cache.Enabled && !noCache
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !noFooter

	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
		cfg.Rephraser.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
		if cfg.Rephraser.Model == "" {
			cfg.Rephraser.Model = llmModel
		}
	}
	if rephraseMdl != "" {
		cfg.Rephraser.Model = rephraseMdl
	}
	if cfg.Rephraser.Model == "" {
		cfg.Rephraser.Model = cfg.LLM.Model
	}

	if err := resolveAPIKeys(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// filterConfident hides low-confidence findings from the rendered report.
// The full record set still lands in JSON output when requested via the
// advanced mode
func filterConfident(report *model.AnalysisReport) *model.AnalysisReport {
	filtered := *report
	filtered.Attributes = nil
	for _, attr := range report.Attributes {
		if attr.Confidence >= 4 {
			filtered.Attributes = append(filtered.Attributes, attr)
		}
	}
	return &filtered
}

func readStdin() (string, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("stat stdin: %w", err)
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return "", fmt.Errorf("no input: pass text as an argument, use --file/--url, or pipe via stdin")
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("stdin was empty")
	}
	return text, nil
}
