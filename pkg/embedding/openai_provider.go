package embedding

import (
	"context"
	"fmt"
	"os"

	goopenai "github.com/sashabaranov/go-openai"
)

const openAIEmbeddingDimensions = 1536

type OpenAIProvider struct {
	client    *goopenai.Client
	modelName goopenai.EmbeddingModel
}

func NewOpenAIProvider(apiKey string, modelName string) *OpenAIProvider {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if modelName == "" {
		modelName = string(goopenai.SmallEmbedding3)
	}
	return &OpenAIProvider{
		client:    goopenai.NewClient(apiKey),
		modelName: goopenai.EmbeddingModel(modelName),
	}
}

var _ EmbeddingProvider = &OpenAIProvider{}

func (p *OpenAIProvider) Generate(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: p.modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding response contained no data")
	}
	return resp.Data[0].Embedding, nil
}

func (p *OpenAIProvider) Dimensions() int {
	return openAIEmbeddingDimensions
}
