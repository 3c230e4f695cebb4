package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/application"
	"github.com/trezcool/njia/core/bookmark"
	"github.com/trezcool/njia/core/quiz"
	"github.com/trezcool/njia/core/timeline"
	"github.com/trezcool/njia/storage/docrepos"
	"github.com/trezcool/njia/tests"
)

func TestService_Summary(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	defer func() { core.NowFunc = orig }()

	env := testutil.NewEnv(t)
	env.SeedCatalog(t)
	ctx := context.Background()

	t.Run("fresh student", func(t *testing.T) {
		sum, err := env.Progress.Summary(ctx, "usr-1")
		require.NoError(t, err)
		assert.False(t, sum.QuizCompleted)
		assert.Empty(t, sum.PrimaryStream)
		assert.Nil(t, sum.NextDeadline)
		assert.Equal(t, map[string]int{}, sum.Applications)
		assert.Equal(t, 0, sum.CompletionPercent)
	})

	_, err := docrepos.NewQuizRepository(env.Store).CreateResult(ctx, quiz.Result{
		ID:        core.NewID(),
		UserID:    "usr-1",
		Ranked:    []quiz.StreamScore{{Stream: "engineering", Score: 12}, {Stream: "commerce", Score: 4}},
		CreatedAt: now,
	})
	require.NoError(t, err)
	_, err = env.Bookmark.Create(ctx, "usr-1", bookmark.NewBookmark{ItemType: "career", ItemID: "car-software-engineer"})
	require.NoError(t, err)
	_, err = env.Application.Create(ctx, "usr-1", application.NewApplication{ItemType: "college", ItemID: "col-iit-bombay"})
	require.NoError(t, err)
	overdue, err := env.Timeline.Create(ctx, "usr-1", timeline.NewEvent{Title: "Overdue", Kind: "deadline", DueAt: now.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = env.Timeline.Create(ctx, "usr-1", timeline.NewEvent{Title: "Call mentor", Kind: "reminder", DueAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = env.Timeline.SetCompleted(ctx, "usr-1", overdue.ID, true)
	require.NoError(t, err)

	t.Run("engaged student", func(t *testing.T) {
		sum, err := env.Progress.Summary(ctx, "usr-1")
		require.NoError(t, err)
		assert.True(t, sum.QuizCompleted)
		assert.Equal(t, "engineering", sum.PrimaryStream)
		assert.Equal(t, 1, sum.Bookmarks)
		assert.Equal(t, map[string]int{application.StatusApplied: 1}, sum.Applications)
		// overdue, reminder and the application deadline
		assert.Equal(t, 3, sum.EventsTotal)
		assert.Equal(t, 1, sum.EventsCompleted)
		require.NotNil(t, sum.NextDeadline)
		assert.Equal(t, "col-iit-bombay", sum.NextDeadline.ItemID)
		// 3 steps plus 1/3 of the events
		assert.Equal(t, 83, sum.CompletionPercent)
	})
}
