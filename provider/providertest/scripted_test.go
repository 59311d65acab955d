package providertest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/casualjim/sqlowl/provider"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan provider.StreamEvent) ([]string, []provider.StreamEvent) {
	t.Helper()
	var texts []string
	var all []provider.StreamEvent
	for ev := range ch {
		all = append(all, ev)
		if c, ok := ev.(provider.Chunk); ok {
			texts = append(texts, c.Text)
		}
	}
	return texts, all
}

func TestSplitText(t *testing.T) {
	text := "Thought: I need\nAction: tables\n"
	words := splitText(text, SplitWords)
	assert.Equal(t, text, strings.Join(words, ""))
	assert.Equal(t, []string{"Thought:", " I", " need", "\nAction:", " tables", "\n"}, words)

	assert.Equal(t, []string{"a", "b"}, splitText("ab", SplitChars))
	assert.Equal(t, []string{"ab c"}, splitText("ab c", SplitWhole))
	assert.Nil(t, splitText("", SplitWords))
}

func TestScripted_Generate(t *testing.T) {
	s := New("first answer", "second")
	params := provider.GenerateParams{RunID: uuid.New(), Model: "m"}

	ch, err := s.Generate(context.Background(), params)
	require.NoError(t, err)
	texts, all := drain(t, ch)
	assert.Equal(t, []string{"first", " answer"}, texts)
	assert.Equal(t, provider.Delim{RunID: params.RunID, Delim: "start"}, all[0])
	assert.Equal(t, provider.Delim{RunID: params.RunID, Delim: "end"}, all[len(all)-1])

	for range 2 {
		ch, err = s.Generate(context.Background(), params)
		require.NoError(t, err)
		texts, _ = drain(t, ch)
		assert.Equal(t, []string{"second"}, texts)
	}
	assert.Equal(t, 3, s.Calls())
	assert.Len(t, s.Requests(), 3)
}

func TestScripted_MaxTokens(t *testing.T) {
	s := FromScripts(Script{Increments: []string{"a", "b", "c"}})
	ch, err := s.Generate(context.Background(), provider.GenerateParams{MaxTokens: 2})
	require.NoError(t, err)

	texts, all := drain(t, ch)
	assert.Equal(t, []string{"a", "b"}, texts)
	var finish provider.Finish
	for _, ev := range all {
		if f, ok := ev.(provider.Finish); ok {
			finish = f
		}
	}
	assert.Equal(t, provider.FinishLength, finish.Reason)
}

func TestScripted_Errors(t *testing.T) {
	boom := errors.New("boom")
	s := FromScripts(Script{Err: boom})
	_, err := s.Generate(context.Background(), provider.GenerateParams{})
	require.ErrorIs(t, err, boom)

	s = FromScripts(Script{Text: "partial", StreamErr: boom})
	ch, err := s.Generate(context.Background(), provider.GenerateParams{})
	require.NoError(t, err)
	_, all := drain(t, ch)
	last, ok := all[len(all)-1].(provider.Error)
	require.True(t, ok)
	assert.ErrorIs(t, last, boom)
}

func TestScripted_Cancellation(t *testing.T) {
	s := FromScripts(Script{Increments: []string{"a", "b", "c"}})
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Generate(ctx, provider.GenerateParams{})
	require.NoError(t, err)

	<-ch
	<-ch
	cancel()
	for range ch {
	}
}

func TestModel(t *testing.T) {
	s := New("x")
	m := Model("scripted", s)
	assert.Equal(t, "scripted", m.Name())
	assert.Same(t, s, m.Provider())
}
