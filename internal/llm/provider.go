package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alterego-ai/alterego/internal/model"
)

// Provider defines the interface for LLM inference providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool

	// Analyze streams an attribute-inference pass over the input text.
	// onChunk receives every decoded delta; the final chunk carries the
	// parsed response document.
	Analyze(ctx context.Context, req AnalyzeRequest, onChunk ChunkFunc) (*AnalyzeResponse, error)

	// Rephrase streams an anonymizing rewrite of the input text.
	Rephrase(ctx context.Context, req RephraseRequest, onChunk ChunkFunc) (*RephraseResponse, error)
}

// ChunkFunc receives streaming updates during inference. A nil callback
// disables streaming delivery; the final response is still returned.
type ChunkFunc func(Chunk)

// Chunk is a single streaming update
type Chunk struct {
	// Text is the latest decoded delta for Analyze, or the accumulated
	// main content for Rephrase
	Text string

	// Summary is the rephraser content after the last closing think tag
	Summary string

	// IsComplete is true once the accumulated output forms a complete
	// response (parseable JSON for Analyze, end of stream for Rephrase)
	IsComplete bool

	// Data is the parsed analysis document, set when IsComplete is true
	// during an Analyze call
	Data map[string]interface{}

	// Err is set on the terminal chunk when the stream failed
	Err error
}

// AnalyzeRequest contains the input for the attribute-inference agent
type AnalyzeRequest struct {
	// Text is the user text to analyze
	Text string

	// Model overrides the configured model name
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// AnalyzeResponse contains the completed analysis
type AnalyzeResponse struct {
	// Response is the parsed analysis document
	Response map[string]interface{}

	// Raw is the full decoded model output
	Raw string

	// Model is the model that generated the response
	Model string

	// InferenceTime is the wall-clock inference duration in milliseconds
	InferenceTime float64

	// TokensUsed tracks token consumption when the provider reports it
	TokensUsed int
}

// RephraseRequest contains the input for the anonymizing rewrite agent
type RephraseRequest struct {
	// Text is the user text to rewrite
	Text string

	// Attributes are the inferred attribute labels to obscure
	Attributes []string

	// AnalyzedPhrases are the evidence phrases to focus the rewrite on
	AnalyzedPhrases []string

	// Model overrides the configured model name
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// RephraseResponse contains the completed rewrite
type RephraseResponse struct {
	// Response is the full decoded model output including any think block
	Response string

	// MainContent is the output up to and including the last think tag,
	// or the whole output when no think tag is present
	MainContent string

	// Summary is the output after the last think tag
	Summary string

	// Model is the model that generated the response
	Model string

	// InferenceTime is the wall-clock inference duration in milliseconds
	InferenceTime float64

	// TokensUsed tracks token consumption when the provider reports it
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "ollama", "openai", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI-compatible endpoints
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for the full streaming call, in seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int

	// MaxInputTokens rejects over-long inputs before inference
	MaxInputTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:       "ollama",
		Model:          "",
		Timeout:        120,
		MaxTokens:      1024,
		MaxInputTokens: 1024,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig, http model.HTTPConfig) Config {
	return Config{
		Provider:       modelConfig.Provider,
		Model:          modelConfig.Model,
		APIKey:         modelConfig.APIKey,
		BaseURL:        modelConfig.BaseURL,
		Timeout:        modelConfig.Timeout,
		MaxTokens:      modelConfig.MaxTokens,
		MaxInputTokens: modelConfig.MaxInputTokens,
		HTTPProxy:      http.HTTPProxy,
		HTTPSProxy:     http.HTTPSProxy,
		NoProxy:        http.NoProxy,
	}
}

// analyzeSystemPrompt steers the inference agent toward evidence-backed
// attribute output only
const analyzeSystemPrompt = `You are a specialized AI assistant trained to analyze text for personal attribute inference and provide detailed analysis.

IMPORTANT: Only include attributes in your JSON output where you can make a reasonable inference. There can be more than one inferred attribute. Skip attributes entirely if there's insufficient evidence.`

// rephraseSystemPrompt keeps the rewrite agent on style-preserving rewrites
const rephraseSystemPrompt = `You are a smart AI assistant.
You NEVER overthink and you ALWAYS focus on rephrasing with same writing style and tone`

// thinkTag separates reasoning from the final summary in reasoning models
const thinkTag = "</think>"

// BuildRephrasePrompt constructs the rewrite instruction for the given
// attributes and evidence phrases. With no attributes it falls back to a
// general anonymization instruction.
func BuildRephrasePrompt(text string, attributes, analyzedPhrases []string) string {
	if len(attributes) > 0 {
		return fmt.Sprintf(`Modify the following text so that nobody could infer these attributes about myself %s, and follow these two instructions:
1) Focus on changing these phrases related to the above attributes: %s.
2) Give me the modified text with same length as the original text.
Original text to modify: "%s"`,
			strings.Join(attributes, ", "), strings.Join(analyzedPhrases, ", "), text)
	}

	return fmt.Sprintf(`Modify the following text so that nobody could infer any attributes about myself.
Follow these instructions:
1) Rephrase the text to obscure any personal identifiable information while maintaining the core message.
2) Give me the modified text with same length as the original text.
Original text to modify: "%s"`, text)
}

// unicodeEscapePattern matches \uXXXX escape sequences the model emits
// inside streamed JSON
var unicodeEscapePattern = regexp.MustCompile(`\\u([a-fA-F0-9]{4})`)

// decodeEscapes replaces \uXXXX sequences with their code points so the
// accumulated output reads as plain text
func decodeEscapes(s string) string {
	return unicodeEscapePattern.ReplaceAllStringFunc(s, func(match string) string {
		code, err := strconv.ParseUint(match[2:], 16, 32)
		if err != nil {
			return match
		}
		return string(rune(code))
	})
}

// splitThink splits accumulated rephraser output on the last think tag.
// MainContent includes the tag; Summary is everything after it.
func splitThink(accumulated string) (mainContent, summary string) {
	idx := strings.LastIndex(accumulated, thinkTag)
	if idx == -1 {
		return accumulated, ""
	}
	mainContent = strings.TrimSpace(accumulated[:idx+len(thinkTag)])
	summary = strings.TrimSpace(accumulated[idx+len(thinkTag):])
	return mainContent, summary
}

// checkInputLength rejects inputs over the configured token budget.
// Tokens are estimated at 4 characters each; local models have hard
// context limits and fail confusingly past them.
func checkInputLength(text string, maxInputTokens int) error {
	if maxInputTokens <= 0 {
		return nil
	}
	estimated := len(text) / 4
	if estimated > maxInputTokens {
		return fmt.Errorf("input too long - please reduce length (~%d tokens, limit %d)", estimated, maxInputTokens)
	}
	return nil
}
