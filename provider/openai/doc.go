/*
Package openai implements provider.Provider on top of the openai-go client.

Two drivers are available:

  - Chat streams chat completions and expects a role-list prompt state.
    Every delta becomes a provider.Chunk. A delta for a role other than the
    assistant ends the generation with provider.FinishRole.
  - Completion streams text completions from any OpenAI compatible
    /v1/completions endpoint, typically a local llama.cpp or vLLM server.
    It expects a raw or chatml prompt state.

Both drivers count increments and stop with provider.FinishLength once
GenerateParams.MaxTokens is reached. Requests rejected with HTTP 429 are
retried with exponential backoff before any output is produced. By default
they are retried until the context is done; MaxAttempts caps the attempts:

	drv := openai.NewChat(option.WithAPIKey(key)).WithRetry(openai.RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
	})

Models without request options are shared per name until every caller has
released them:

	m := openai.Model("gpt-4")
	defer api.ReleaseModel(m)
	local := openai.LocalModel("mistral", "http://localhost:8080/v1/")
*/
package openai
