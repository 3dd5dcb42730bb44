package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alterego-ai/alterego/internal/util"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI-compatible
// endpoints, including local llama.cpp and vLLM servers
type OpenAIProvider struct {
	client *openai.Client
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" && config.BaseURL == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.HTTPProxy != "" || config.HTTPSProxy != "" {
		clientConfig.HTTPClient = &http.Client{
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		}
	}

	client := openai.NewClientWithConfig(clientConfig)

	return &OpenAIProvider{
		client: client,
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Simple check: try to list models (lightweight API call)
	_, err := p.client.ListModels(ctx)
	if err != nil {
		// Log the actual error for debugging (this helps users diagnose API key issues)
		fmt.Fprintf(os.Stderr, "OpenAI API check failed: %v\n", err)
		return false
	}
	return true
}

// Analyze streams the attribute-inference agent over the Chat Completions API
func (p *OpenAIProvider) Analyze(ctx context.Context, req AnalyzeRequest, onChunk ChunkFunc) (*AnalyzeResponse, error) {
	if err := checkInputLength(req.Text, p.config.MaxInputTokens); err != nil {
		return nil, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model: p.resolveModel(req.Model),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analyzeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
		MaxTokens:   p.resolveMaxTokens(req.MaxTokens),
		Temperature: 0.1,
		Stream:      true,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	startTime := time.Now()
	var accumulator strings.Builder
	var lastData map[string]interface{}

	err := p.streamCompletion(ctx, chatReq, func(delta string) {
		delta = decodeEscapes(delta)
		if delta == "" {
			return
		}
		accumulator.WriteString(delta)

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
		return nil, fmt.Errorf("OpenAI API error: %w", err)
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

	return &AnalyzeResponse{
		Response:      lastData,
		Raw:           raw,
		Model:         chatReq.Model,
		InferenceTime: inferenceTime,
		TokensUsed:    (len(req.Text) + len(raw)) / 4,
	}, nil
}

// Rephrase streams the anonymizing rewrite agent over the Chat Completions API
func (p *OpenAIProvider) Rephrase(ctx context.Context, req RephraseRequest, onChunk ChunkFunc) (*RephraseResponse, error) {
	if err := checkInputLength(req.Text, p.config.MaxInputTokens); err != nil {
		return nil, err
	}

	prompt := BuildRephrasePrompt(req.Text, req.Attributes, req.AnalyzedPhrases)

	chatReq := openai.ChatCompletionRequest{
		Model: p.resolveModel(req.Model),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rephraseSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   p.resolveMaxTokens(req.MaxTokens),
		Temperature: 0.3,
		Stream:      true,
	}

	startTime := time.Now()
	var accumulator strings.Builder

	err := p.streamCompletion(ctx, chatReq, func(delta string) {
		if delta == "" {
			return
		}
		accumulator.WriteString(delta)
		mainContent, summary := splitThink(accumulator.String())
		emit(onChunk, Chunk{Text: mainContent, Summary: summary, IsComplete: false})
	})
	if err != nil {
		emit(onChunk, Chunk{Text: fmt.Sprintf("Error: %v", err), IsComplete: true, Err: err})
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	raw := accumulator.String()
	mainContent, summary := splitThink(raw)
	emit(onChunk, Chunk{Text: mainContent, Summary: summary, IsComplete: true})

	inferenceTime := float64(time.Since(startTime)) / float64(time.Millisecond)

	return &RephraseResponse{
		Response:      raw,
		MainContent:   mainContent,
		Summary:       summary,
		Model:         chatReq.Model,
		InferenceTime: inferenceTime,
		TokensUsed:    (len(prompt) + len(raw)) / 4,
	}, nil
}

func (p *OpenAIProvider) resolveModel(override string) string {
	model := override
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return model
}

func (p *OpenAIProvider) resolveMaxTokens(override int) int {
	maxTokens := override
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 1024
	}
	return maxTokens
}

// streamCompletion runs a streaming chat completion and delivers each
// content delta to handle
func (p *OpenAIProvider) streamCompletion(ctx context.Context, chatReq openai.ChatCompletionRequest, handle func(delta string)) error {
	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stream, err := p.client.CreateChatCompletionStream(ctxWithTimeout, chatReq)
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receive stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		handle(resp.Choices[0].Delta.Content)
	}
}
