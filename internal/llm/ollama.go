package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alterego-ai/alterego/internal/util"
)

// OllamaProvider implements the Provider interface for Ollama local models
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	config     Config
}

// Ollama API structures
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens
}

type ollamaChatChunk struct {
	Model     string        `json:"model"`
	CreatedAt string        `json:"created_at"`
	Message   ollamaMessage `json:"message"`
	Done      bool          `json:"done"`

	// Token counts (only present when done=true)
	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second // local models stream slowly
	}

	proxyFunc := util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy)

	return &OllamaProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: proxyFunc,
			},
		},
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks if the provider is properly configured
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	// Check if Ollama is running by trying to list models
	url := fmt.Sprintf("%s/api/tags", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ollama availability check failed (request creation): %v\n", err)
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ollama availability check failed (connection to %s): %v\n", p.baseURL, err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Ollama availability check failed (HTTP %d from %s)\n", resp.StatusCode, p.baseURL)
		return false
	}

	return true
}

// Analyze streams the attribute-inference agent over Ollama's chat API
func (p *OllamaProvider) Analyze(ctx context.Context, req AnalyzeRequest, onChunk ChunkFunc) (*AnalyzeResponse, error) {
	if err := checkInputLength(req.Text, p.config.MaxInputTokens); err != nil {
		return nil, err
	}

	model, err := p.resolveModel(req.Model)
	if err != nil {
		return nil, err
	}

	apiReq := ollamaChatRequest{
		Model: model,
		Messages: []ollamaMessage{
			{Role: "system", Content: analyzeSystemPrompt},
			{Role: "user", Content: req.Text},
		},
		Stream: true,
		Format: "json", // constrain output to valid JSON
		Options: ollamaOptions{
			Temperature: 0.1,
			NumPredict:  p.resolveMaxTokens(req.MaxTokens),
		},
	}

	startTime := time.Now()
	var accumulator strings.Builder
	var lastData map[string]interface{}
	var respModel string
	var tokensUsed int

	err = p.streamChat(ctx, apiReq, func(chunk ollamaChatChunk) {
		if chunk.Model != "" {
			respModel = chunk.Model
		}
		if chunk.Done {
			tokensUsed = chunk.PromptEvalCount + chunk.EvalCount
		}
		delta := decodeEscapes(chunk.Message.Content)
		if delta == "" {
			return
		}
		accumulator.WriteString(delta)

		// Surface a complete document as soon as the accumulated output
		// parses; partial output still streams through
		var parsed map[string]interface{}
		if jsonErr := json.Unmarshal([]byte(accumulator.String()), &parsed); jsonErr == nil {
			lastData = parsed
			emit(onChunk, Chunk{Text: delta, IsComplete: true, Data: parsed})
		} else {
			emit(onChunk, Chunk{Text: delta, IsComplete: false})
		}
	})
	if err != nil {
		emit(onChunk, Chunk{IsComplete: true, Err: err})
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	raw := accumulator.String()
	inferenceTime := float64(time.Since(startTime)) / float64(time.Millisecond)

	if lastData == nil {
		var parsed map[string]interface{}
		if jsonErr := json.Unmarshal([]byte(raw), &parsed); jsonErr != nil {
			return nil, fmt.Errorf("parse analysis response: %w", jsonErr)
		}
		lastData = parsed
	}

	if tokensUsed == 0 {
		// Rough estimate: 1 token is about 4 characters
		tokensUsed = (len(req.Text) + len(raw)) / 4
	}

	return &AnalyzeResponse{
		Response:      lastData,
		Raw:           raw,
		Model:         respModel,
		InferenceTime: inferenceTime,
		TokensUsed:    tokensUsed,
	}, nil
}

// Rephrase streams the anonymizing rewrite agent over Ollama's chat API
func (p *OllamaProvider) Rephrase(ctx context.Context, req RephraseRequest, onChunk ChunkFunc) (*RephraseResponse, error) {
	if err := checkInputLength(req.Text, p.config.MaxInputTokens); err != nil {
		return nil, err
	}

	model, err := p.resolveModel(req.Model)
	if err != nil {
		return nil, err
	}

	prompt := BuildRephrasePrompt(req.Text, req.Attributes, req.AnalyzedPhrases)

	apiReq := ollamaChatRequest{
		Model: model,
		Messages: []ollamaMessage{
			{Role: "system", Content: rephraseSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream: true,
		Options: ollamaOptions{
			Temperature: 0.3,
			NumPredict:  p.resolveMaxTokens(req.MaxTokens),
		},
	}

	startTime := time.Now()
	var accumulator strings.Builder
	var respModel string
	var tokensUsed int

	err = p.streamChat(ctx, apiReq, func(chunk ollamaChatChunk) {
		if chunk.Model != "" {
			respModel = chunk.Model
		}
		if chunk.Done {
			tokensUsed = chunk.PromptEvalCount + chunk.EvalCount
		}
		if chunk.Message.Content == "" {
			return
		}
		accumulator.WriteString(chunk.Message.Content)
		mainContent, summary := splitThink(accumulator.String())
		emit(onChunk, Chunk{Text: mainContent, Summary: summary, IsComplete: false})
	})
	if err != nil {
		emit(onChunk, Chunk{Text: fmt.Sprintf("Error: %v", err), IsComplete: true, Err: err})
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	raw := accumulator.String()
	mainContent, summary := splitThink(raw)
	emit(onChunk, Chunk{Text: mainContent, Summary: summary, IsComplete: true})

	inferenceTime := float64(time.Since(startTime)) / float64(time.Millisecond)

	if tokensUsed == 0 {
		tokensUsed = (len(prompt) + len(raw)) / 4
	}

	return &RephraseResponse{
		Response:      raw,
		MainContent:   mainContent,
		Summary:       summary,
		Model:         respModel,
		InferenceTime: inferenceTime,
		TokensUsed:    tokensUsed,
	}, nil
}

func (p *OllamaProvider) resolveModel(override string) (string, error) {
	model := override
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		return "", fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}
	return model, nil
}

func (p *OllamaProvider) resolveMaxTokens(override int) int {
	maxTokens := override
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 1024
	}
	return maxTokens
}

// streamChat POSTs to /api/chat and delivers each NDJSON line to handle
func (p *OllamaProvider) streamChat(ctx context.Context, apiReq ollamaChatRequest, handle func(ollamaChatChunk)) error {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		var apiErr ollamaError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("API error (%d): %s", httpResp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("API error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	reader := bufio.NewReader(httpResp.Body)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var chunk ollamaChatChunk
			if jsonErr := json.Unmarshal(line, &chunk); jsonErr == nil {
				handle(chunk)
				if chunk.Done {
					return nil
				}
			}
			// Malformed lines are skipped
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
	}
}

func emit(onChunk ChunkFunc, chunk Chunk) {
	if onChunk != nil {
		onChunk(chunk)
	}
}
