package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aitookmyjob/internal/models"
	"aitookmyjob/internal/store"
)

func TestRunSeedsAndIsIdempotent(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Run(ctx, st, 8, logger))

	count, err := st.CountStories(ctx, store.StoryFilter{Status: models.StoryStatusPublished})
	require.NoError(t, err)
	assert.Equal(t, 8, count)

	topics, err := st.ListTopics(ctx, "")
	require.NoError(t, err)
	assert.Len(t, topics, 5)

	// A second run leaves the store untouched.
	require.NoError(t, Run(ctx, st, 8, logger))
	count, err = st.CountStories(ctx, store.StoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestSeedStoriesAreWellFormed(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Run(ctx, st, 5, logger))

	stories, err := st.ListStories(ctx, store.StoryFilter{})
	require.NoError(t, err)
	require.Len(t, stories, 5)
	for _, story := range stories {
		assert.NotEmpty(t, story.ID)
		assert.NotEmpty(t, story.Profession)
		assert.NotEmpty(t, story.Moderation.RiskBand)
		assert.GreaterOrEqual(t, story.EstimatedLayoffs, 1)
		assert.Equal(t, models.EvidenceSelfReport, story.Details.EvidenceTier)
	}
}
