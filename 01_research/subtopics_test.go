package research

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fandom-explainer/config"
	"fandom-explainer/llm"
	"fandom-explainer/types"
)

type stubGenerator struct {
	reply string
	err   error
	last  llm.Request
}

func (s *stubGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	s.last = req
	return s.reply, s.err
}

func TestSubtopicsParsesFencedReply(t *testing.T) {
	gen := &stubGenerator{reply: "```json\n{\"subtopics\":[{\"title\":\"Cells\"},{\"title\":\"DNA\"},{\"title\":\"Proteins\"},{\"title\":\"Extra\"}]}\n```"}
	subs, err := New(config.Default(), gen).Subtopics(context.Background(), "biology")
	require.NoError(t, err)

	assert.Equal(t, []types.Subtopic{{Title: "Cells"}, {Title: "DNA"}, {Title: "Proteins"}}, subs)
	assert.Contains(t, gen.last.Prompt, "The educational concept is: biology")
	assert.NotNil(t, gen.last.Schema)
}

func TestSubtopicsFallsBack(t *testing.T) {
	want := []types.Subtopic{
		{Title: "Introduction to Machine Learning"},
		{Title: "Key Components of Machine Learning"},
		{Title: "Applications of Machine Learning"},
	}

	t.Run("garbage reply", func(t *testing.T) {
		subs, err := New(config.Default(), &stubGenerator{reply: "I cannot help with that"}).
			Subtopics(context.Background(), "machine learning")
		require.NoError(t, err)
		assert.Equal(t, want, subs)
	})

	t.Run("upstream failure", func(t *testing.T) {
		gen := &stubGenerator{err: fmt.Errorf("%w: boom", types.ErrUpstream)}
		subs, err := New(config.Default(), gen).Subtopics(context.Background(), "MACHINE learning")
		require.NoError(t, err)
		assert.Equal(t, want, subs)
	})
}

func TestSubtopicsRejectsBlankConcept(t *testing.T) {
	_, err := New(config.Default(), &stubGenerator{}).Subtopics(context.Background(), "  ")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}
