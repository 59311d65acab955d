package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/casualjim/sqlowl/messages"
	"github.com/casualjim/sqlowl/prompt"
	"github.com/casualjim/sqlowl/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// maxChatStops is the number of stop sequences the chat API accepts.
const maxChatStops = 4

var ErrPromptVariant = errors.New("openai: unsupported prompt variant")

var _ provider.Provider = (*Chat)(nil)

// Chat streams chat completions for role-list prompts.
type Chat struct {
	client *openai.Client
	retry  RetryPolicy
}

func NewChat(options ...option.RequestOption) *Chat {
	return &Chat{
		client: openai.NewClient(options...),
		retry:  DefaultRetryPolicy(),
	}
}

// WithRetry returns a copy of the driver using the given rate limit policy.
func (c *Chat) WithRetry(policy RetryPolicy) *Chat {
	cp := *c
	cp.retry = policy.normalized()
	return &cp
}

func (c *Chat) buildRequest(params *provider.GenerateParams) (openai.ChatCompletionNewParams, error) {
	if params.Prompt == nil {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("%w: missing prompt", ErrPromptVariant)
	}
	if params.Prompt.Variant() != prompt.VariantTurns {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("%w: chat needs role-list turns, got %s", ErrPromptVariant, params.Prompt.Encoding())
	}

	turns := params.Prompt.Turns()
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case messages.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(turn.Content))
		case messages.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(turn.Content))
		default:
			msgs = append(msgs, openai.UserMessage(turn.Content))
		}
	}

	req := openai.ChatCompletionNewParams{
		Messages: openai.F(msgs),
		Model:    openai.F(params.Model),
		N:        openai.Int(1),
	}
	if stops := params.Stop; len(stops) > 0 {
		if len(stops) > maxChatStops {
			stops = stops[:maxChatStops]
		}
		req.Stop = openai.F[openai.ChatCompletionNewParamsStopUnion](openai.ChatCompletionNewParamsStopArray(stops))
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

func (c *Chat) Generate(ctx context.Context, params provider.GenerateParams) (<-chan provider.StreamEvent, error) {
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

func (c *Chat) runStream(ctx context.Context, req openai.ChatCompletionNewParams, em *emitter) {
	strm, err := withRetry(ctx, c.retry, func() (*ssestream.Stream[openai.ChatCompletionChunk], error) {
		s := c.client.Chat.Completions.NewStreaming(ctx, req)
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

		if role := string(choice.Delta.Role); role != "" && role != string(messages.RoleAssistant) {
			em.finish(provider.FinishRole)
			em.end()
			return
		}
		if choice.FinishReason != "" {
			if choice.Delta.Content != "" && !em.chunk(messages.RoleAssistant, choice.Delta.Content) {
				em.end()
				return
			}
			em.finish(finishReason(string(choice.FinishReason)))
			em.end()
			return
		}
		if !em.chunk(messages.RoleAssistant, choice.Delta.Content) {
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
