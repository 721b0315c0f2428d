package adjudicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/keifu-ai/keifu/internal/model"
)

// Ollama adjudicates via a local Ollama chat model.
type Ollama struct {
	baseURL    string
	chatModel  string
	httpClient *http.Client
}

// NewOllama creates an adjudicator backed by Ollama's chat API. The model
// should be a text generation model, not an embedding model.
func NewOllama(baseURL, chatModel string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		baseURL:   baseURL,
		chatModel: chatModel,
		httpClient: &http.Client{
			Timeout: perCallTimeout + 5*time.Second,
		},
	}
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Adjudicate implements Adjudicator.
func (o *Ollama) Adjudicate(ctx context.Context, input model.AdjudicationInput) (model.AdjudicationVerdict, error) {
	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	body, err := json.Marshal(ollamaChatRequest{
		Model:    o.chatModel,
		Messages: []chatMessage{{Role: "user", Content: formatPrompt(input)}},
		Stream:   false,
	})
	if err != nil {
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: ollama marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: ollama call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: ollama status %d: %s", resp.StatusCode, string(respBody))
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: ollama decode: %w", err)
	}
	return ParseVerdict(result.Message.Content, len(input.Assertions))
}

// OpenAI adjudicates via the OpenAI chat completions API.
type OpenAI struct {
	apiKey     string
	chatModel  string
	httpClient *http.Client
}

// NewOpenAI creates an adjudicator backed by OpenAI. An empty model defaults
// to gpt-4o-mini for cost efficiency.
func NewOpenAI(apiKey, chatModel string) *OpenAI {
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	return &OpenAI{
		apiKey:    apiKey,
		chatModel: chatModel,
		httpClient: &http.Client{
			Timeout: perCallTimeout + 5*time.Second,
		},
	}
}

type openAIChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Adjudicate implements Adjudicator.
func (o *OpenAI) Adjudicate(ctx context.Context, input model.AdjudicationInput) (model.AdjudicationVerdict, error) {
	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	body, err := json.Marshal(openAIChatRequest{
		Model:    o.chatModel,
		Messages: []chatMessage{{Role: "user", Content: formatPrompt(input)}},
	})
	if err != nil {
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: openai marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: openai call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: openai status %d: %s", resp.StatusCode, string(respBody))
	}

	var result openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: openai decode: %w", err)
	}
	if len(result.Choices) == 0 {
		return model.AdjudicationVerdict{}, fmt.Errorf("adjudicate: openai returned no choices")
	}
	return ParseVerdict(result.Choices[0].Message.Content, len(input.Assertions))
}
