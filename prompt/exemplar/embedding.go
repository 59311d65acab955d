package exemplar

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder turns texts into vectors, one per input text and in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Embedding scores questions by the cosine similarity of their embeddings.
type Embedding struct {
	embedder Embedder
}

func NewEmbedding(embedder Embedder) *Embedding {
	return &Embedding{embedder: embedder}
}

func (e *Embedding) Select(ctx context.Context, question string, pool []Exemplar) (Exemplar, error) {
	if len(pool) == 0 {
		return Exemplar{}, ErrEmptyPool
	}

	texts := make([]string, 0, len(pool)+1)
	texts = append(texts, question)
	for _, ex := range pool {
		texts = append(texts, ex.Question)
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return Exemplar{}, fmt.Errorf("failed to embed questions: %w", err)
	}
	if len(vectors) != len(texts) {
		return Exemplar{}, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	scores := make([]float64, len(pool))
	for i := range pool {
		scores[i] = Cosine(vectors[0], vectors[i+1])
	}
	return pool[bestIndex(scores)], nil
}

// OpenAIEmbedder embeds texts with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an embedder using text-embedding-3-small.
func NewOpenAIEmbedder(options ...option.RequestOption) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClient(options...),
		model:  openai.EmbeddingModelTextEmbedding3Small,
	}
}

// WithModel returns a copy of the embedder that uses model.
func (o *OpenAIEmbedder) WithModel(model openai.EmbeddingModel) *OpenAIEmbedder {
	cp := *o
	cp.model = model
	return &cp
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.F[openai.EmbeddingNewParamsInputUnion](openai.EmbeddingNewParamsInputArrayOfStrings(texts)),
		Model: openai.F(o.model),
	})
	if err != nil {
		return nil, err
	}

	vectors := make([][]float64, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		vectors[data.Index] = data.Embedding
	}
	return vectors, nil
}
