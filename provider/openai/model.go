package openai

import (
	"fmt"
	"strings"
	"sync"

	"github.com/casualjim/sqlowl/api"
	"github.com/casualjim/sqlowl/provider"
	"github.com/casualjim/sqlowl/provider/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	KindOpenAI = "openai"
	KindLocal  = "local"
)

func init() {
	api.RegisterModelKind(KindOpenAI, func(ref string) (api.Model, error) {
		return Model(ref), nil
	})
	api.RegisterModelKind(KindLocal, func(ref string) (api.Model, error) {
		name, baseURL, ok := strings.Cut(ref, "@")
		if !ok || name == "" || baseURL == "" {
			return nil, fmt.Errorf("local model %q must look like <name>@<base-url>", ref)
		}
		return LocalModel(name, baseURL), nil
	})
}

func GPT4(opts ...option.RequestOption) api.Model {
	return Model(openai.ChatModelGPT4, opts...)
}

func GPT4oMini(opts ...option.RequestOption) api.Model {
	return Model(openai.ChatModelGPT4oMini, opts...)
}

// Model returns the chat model called name. Without options the handle is
// shared by every caller asking for the same name until each of them has
// called Release on it. With options the caller gets a handle of its own.
func Model(name string, opts ...option.RequestOption) api.Model {
	build := func() api.Model {
		return &model{
			name: name,
			newProvider: func() provider.Provider {
				return NewChat(opts...)
			},
		}
	}
	if len(opts) > 0 {
		return build()
	}
	return models.Acquire(KindOpenAI, name, func() api.Model {
		m := build().(*model)
		m.kind, m.key = KindOpenAI, name
		return m
	})
}

// LocalModel returns a text completion model served from baseURL. Handles
// are shared the same way as for Model.
func LocalModel(name, baseURL string, opts ...option.RequestOption) api.Model {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	build := func() api.Model {
		return &model{
			name: name,
			newProvider: func() provider.Provider {
				all := append([]option.RequestOption{
					option.WithBaseURL(baseURL),
					option.WithAPIKey("sk-no-key-required"),
				}, opts...)
				return NewCompletion(all...)
			},
		}
	}
	if len(opts) > 0 {
		return build()
	}
	key := name + "@" + baseURL
	return models.Acquire(KindLocal, key, func() api.Model {
		m := build().(*model)
		m.kind, m.key = KindLocal, key
		return m
	})
}

var _ api.Model = (*model)(nil)

type model struct {
	name        string
	newProvider func() provider.Provider

	// kind and key are set on shared handles.
	kind, key string

	prov     provider.Provider
	provOnce sync.Once
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Provider() provider.Provider {
	m.provOnce.Do(func() {
		m.prov = m.newProvider()
	})
	return m.prov
}

// Release gives back a shared handle. It does nothing for a handle built with options.
func (m *model) Release() {
	if m.kind != "" {
		models.Release(m.kind, m.key)
	}
}
