// Package llm provides LLMProvider implementations. The Content Cache
// (C3) and the AI Orchestrator (C8) consume them; ai_provider selects
// which one main wires.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider generates completions via the OpenAI chat API,
// grounded on the teacher's go.mod already carrying
// github.com/sashabaranov/go-openai (it names the same client used
// elsewhere in the pack for LLM-backed tooling).
type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{client: openai.NewClient(apiKey)}
}

func (p *OpenAIProvider) GenerateResponse(ctx context.Context, prompt, model string, timeoutSeconds int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateEmbedding implements collaborators.EmbeddingProvider for C4's
// two-tier embedding cache (internal/embedding.Service), the other half
// of the OpenAI client the Content Cache/LLM side already wires.
func (p *OpenAIProvider) GenerateEmbedding(ctx context.Context, text, model string) ([]float64, error) {
	req := openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	}
	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding: empty data")
	}
	vec := make([]float64, len(resp.Data[0].Embedding))
	for i, f := range resp.Data[0].Embedding {
		vec[i] = float64(f)
	}
	return vec, nil
}
