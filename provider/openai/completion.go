package openai

import (
	"context"
	"fmt"

	"github.com/casualjim/sqlowl/messages"
	"github.com/casualjim/sqlowl/prompt"
	"github.com/casualjim/sqlowl/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"
)

var _ provider.Provider = (*Completion)(nil)

// Completion streams text completions for raw and chatml prompts.
// Every stop sequence is forwarded since local servers do not cap them.
type Completion struct {
	client *openai.Client
	retry  RetryPolicy
}

func NewCompletion(options ...option.RequestOption) *Completion {
	return &Completion{
		client: openai.NewClient(options...),
		retry:  DefaultRetryPolicy(),
	}
}

// WithRetry returns a copy of the driver using the given rate limit policy.
func (c *Completion) WithRetry(policy RetryPolicy) *Completion {
	cp := *c
	cp.retry = policy.normalized()
	return &cp
}

func (c *Completion) buildRequest(params *provider.GenerateParams) (openai.CompletionNewParams, error) {
	if params.Prompt == nil {
		return openai.CompletionNewParams{}, fmt.Errorf("%w: missing prompt", ErrPromptVariant)
	}
	if params.Prompt.Variant() != prompt.VariantText {
		return openai.CompletionNewParams{}, fmt.Errorf("%w: completion needs a text prompt, got %s", ErrPromptVariant, params.Prompt.Encoding())
	}

	req := openai.CompletionNewParams{
		Model:  openai.F(openai.CompletionNewParamsModel(params.Model)),
		Prompt: openai.F[openai.CompletionNewParamsPromptUnion](shared.UnionString(params.Prompt.Text())),
		N:      openai.Int(1),
	}
	if len(params.Stop) > 0 {
		req.Stop = openai.F[openai.CompletionNewParamsStopUnion](openai.CompletionNewParamsStopArray(params.Stop))
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = openai.Int(int64(params.MaxTokens))
	}
	if params.Temperature != nil {
		req.Temperature = openai.Float(*params.Temperature)
	}
	if params.TopP != nil {
		req.TopP = openai.Float(*params.TopP)
	}
	return req, nil
}

func (c *Completion) Generate(ctx context.Context, params provider.GenerateParams) (<-chan provider.StreamEvent, error) {
	req, err := c.buildRequest(&params)
	if err != nil {
		return nil, err
	}

	events := make(chan provider.StreamEvent, 10)
	go func() {
		defer close(events)
		c.runStream(ctx, req, &emitter{
			ctx:       ctx,
			runID:     params.RunID,
			events:    events,
			maxTokens: params.MaxTokens,
		})
	}()
	return events, nil
}

func (c *Completion) runStream(ctx context.Context, req openai.CompletionNewParams, em *emitter) {
	strm, err := withRetry(ctx, c.retry, func() (*ssestream.Stream[openai.Completion], error) {
		s := c.client.Completions.NewStreaming(ctx, req)
		if err := s.Err(); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		em.fail(err)
		return
	}
	defer strm.Close()

	if !em.start() {
		return
	}
	for strm.Next() {
		chunk := strm.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.Text != "" || choice.FinishReason == "" {
			if !em.chunk(messages.RoleAssistant, choice.Text) {
				em.end()
				return
			}
		}
		if choice.FinishReason != "" {
			em.finish(finishReason(string(choice.FinishReason)))
			em.end()
			return
		}
	}

	if err := strm.Err(); err != nil {
		em.fail(err)
		return
	}
	em.end()
}
