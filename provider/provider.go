package provider

import (
	"context"

	"github.com/casualjim/sqlowl/prompt"
	"github.com/google/uuid"
)

// Provider generates text for a prompt as a stream of events.
// The returned channel is closed when generation ends, and the producer stops
// when ctx is cancelled.
type Provider interface {
	Generate(ctx context.Context, params GenerateParams) (<-chan StreamEvent, error)
}

// GenerateParams configures one generation.
type GenerateParams struct {
	// RunID identifies the run this generation belongs to.
	RunID uuid.UUID

	// Model is the backend model name.
	Model string

	// Prompt is the current prompt state. Providers read it and never mutate it.
	Prompt *prompt.State

	// Stop lists literal sequences that end generation.
	Stop []string

	// MaxTokens is a hard ceiling on the number of increments produced.
	MaxTokens int

	// Temperature and TopP are sampling settings; nil keeps the backend default.
	Temperature *float64
	TopP        *float64

	// Prevents unkeyed literals
	_ struct{}
}
