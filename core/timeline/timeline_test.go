package timeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/catalog"
	"github.com/trezcool/njia/core/timeline"
	"github.com/trezcool/njia/core/user"
	"github.com/trezcool/njia/storage/docrepos"
	"github.com/trezcool/njia/tests"
)

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return at }
	t.Cleanup(func() { core.NowFunc = orig })
}

func titles(events []timeline.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Title)
	}
	return out
}

func TestService_CreateList(t *testing.T) {
	freezeTime(t, now)
	env := testutil.NewEnv(t)
	ctx := context.Background()

	for _, ne := range []timeline.NewEvent{
		{Title: "Entrance exam", Kind: "milestone", DueAt: now.Add(72 * time.Hour)},
		{Title: " Submit form ", Kind: "Deadline", DueAt: now.Add(24 * time.Hour)},
		{Title: "Visit campus", Kind: "reminder", DueAt: now.Add(48 * time.Hour)},
	} {
		_, err := env.Timeline.Create(ctx, "usr-1", ne)
		require.NoError(t, err)
	}
	_, err := env.Timeline.Create(ctx, "usr-2", timeline.NewEvent{Title: "Other", Kind: "reminder", DueAt: now})
	require.NoError(t, err)

	events, err := env.Timeline.List(ctx, "usr-1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Submit form", "Visit campus", "Entrance exam"}, titles(events))
	assert.Equal(t, timeline.KindDeadline, events[0].Kind)
	assert.Equal(t, now, events[0].CreatedAt)

	tests := []struct {
		name string
		ne   timeline.NewEvent
	}{
		{name: "blank title", ne: timeline.NewEvent{Title: "   ", Kind: "reminder", DueAt: now}},
		{name: "bad kind", ne: timeline.NewEvent{Title: "x", Kind: "party", DueAt: now}},
		{name: "no due date", ne: timeline.NewEvent{Title: "x", Kind: "reminder"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Timeline.Create(ctx, "usr-1", tt.ne)
			var vErrs validator.ValidationErrors
			assert.True(t, errors.As(err, &vErrs))
		})
	}
}

func TestService_CreateDeadline(t *testing.T) {
	freezeTime(t, now)
	env := testutil.NewEnv(t)
	env.SeedCatalog(t)
	ctx := context.Background()

	item, err := env.Catalog.Get(ctx, catalog.KindCollege, "col-iit-bombay")
	require.NoError(t, err)
	due := catalog.Deadline(item).Time

	ev, err := env.Timeline.CreateDeadline(ctx, "usr-1", item, due)
	require.NoError(t, err)
	assert.Equal(t, "Application deadline: Indian Institute of Technology Bombay", ev.Title)
	assert.Equal(t, timeline.KindDeadline, ev.Kind)
	assert.Equal(t, catalog.KindCollege, ev.ItemType)
	assert.Equal(t, "col-iit-bombay", ev.ItemID)
	assert.True(t, due.Equal(ev.DueAt))
}

func TestService_ownership(t *testing.T) {
	freezeTime(t, now)
	env := testutil.NewEnv(t)
	ctx := context.Background()

	ev, err := env.Timeline.Create(ctx, "usr-1", timeline.NewEvent{Title: "Mine", Kind: "reminder", DueAt: now})
	require.NoError(t, err)

	_, err = env.Timeline.Get(ctx, "usr-2", ev.ID)
	assert.True(t, core.IsPermissionError(err))
	_, err = env.Timeline.SetCompleted(ctx, "usr-2", ev.ID, true)
	assert.True(t, core.IsPermissionError(err))
	assert.True(t, core.IsPermissionError(env.Timeline.Delete(ctx, "usr-2", ev.ID)))

	_, err = env.Timeline.Get(ctx, "usr-1", "nope")
	assert.Equal(t, timeline.ErrNotFound, errors.Cause(err))

	require.NoError(t, env.Timeline.Delete(ctx, "usr-1", ev.ID))
	_, err = env.Timeline.Get(ctx, "usr-1", ev.ID)
	assert.Equal(t, timeline.ErrNotFound, errors.Cause(err))
}

func TestService_SetCompleted(t *testing.T) {
	freezeTime(t, now)
	env := testutil.NewEnv(t)
	ctx := context.Background()

	ev, err := env.Timeline.Create(ctx, "usr-1", timeline.NewEvent{Title: "Task", Kind: "milestone", DueAt: now})
	require.NoError(t, err)
	_, err = env.Timeline.Create(ctx, "usr-1", timeline.NewEvent{Title: "Later", Kind: "milestone", DueAt: now.Add(time.Hour)})
	require.NoError(t, err)

	done, err := env.Timeline.SetCompleted(ctx, "usr-1", ev.ID, true)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, now, done.CompletedAt.Time)

	yes, no := true, false
	completed, err := env.Timeline.List(ctx, "usr-1", &yes)
	require.NoError(t, err)
	assert.Equal(t, []string{"Task"}, titles(completed))
	pending, err := env.Timeline.List(ctx, "usr-1", &no)
	require.NoError(t, err)
	assert.Equal(t, []string{"Later"}, titles(pending))

	undone, err := env.Timeline.SetCompleted(ctx, "usr-1", ev.ID, false)
	require.NoError(t, err)
	assert.False(t, undone.Completed)
	assert.False(t, undone.CompletedAt.Valid)
}

func TestService_Update_resetsReminder(t *testing.T) {
	freezeTime(t, now)
	env := testutil.NewEnv(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.UsrRepo, "Jane", "jane", "jane@example.com", []string{user.RoleStudent}, true)

	ne := timeline.NewEvent{Title: "Exam", Kind: "deadline", DueAt: now.Add(time.Hour)}
	ev, err := env.Timeline.Create(ctx, usr.ID, ne)
	require.NoError(t, err)

	n, err := env.Reminder.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// same due date: still reminded
	ne.Title = "Final exam"
	ev, err = env.Timeline.Update(ctx, usr.ID, ev.ID, ne)
	require.NoError(t, err)
	assert.Equal(t, "Final exam", ev.Title)
	assert.True(t, ev.RemindedAt.Valid)

	ne.DueAt = now.Add(2 * time.Hour)
	ev, err = env.Timeline.Update(ctx, usr.ID, ev.ID, ne)
	require.NoError(t, err)
	assert.False(t, ev.RemindedAt.Valid)

	n, err = env.Reminder.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReminder_RunOnce(t *testing.T) {
	freezeTime(t, now)
	env := testutil.NewEnv(t)
	ctx := context.Background()
	jane := testutil.CreateUser(t, env.UsrRepo, "Jane", "jane", "jane@example.com", []string{user.RoleStudent}, true)
	john := testutil.CreateUser(t, env.UsrRepo, "John", "johnd", "john@example.com", []string{user.RoleStudent}, false)

	create := func(userID, title string, due time.Time) timeline.Event {
		ev, err := env.Timeline.Create(ctx, userID, timeline.NewEvent{Title: title, Kind: "deadline", DueAt: due})
		require.NoError(t, err)
		return ev
	}
	create(jane.ID, "Overdue", now.Add(-time.Hour))
	create(jane.ID, "Tomorrow", now.Add(24*time.Hour))
	done := create(jane.ID, "Done already", now.Add(25*time.Hour))
	create(jane.ID, "Next month", now.Add(30*24*time.Hour))
	create(john.ID, "Inactive owner", now.Add(time.Hour))
	create("ghost", "Deleted owner", now.Add(time.Hour))
	_, err := env.Timeline.SetCompleted(ctx, jane.ID, done.ID, true)
	require.NoError(t, err)

	n, err := env.Reminder.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sent := env.Mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "jane@example.com", sent[0].To[0].Address)
	assert.Equal(t, "Upcoming: Tomorrow", sent[0].Subject)
	assert.Contains(t, sent[0].TextContent, "Tomorrow")

	// reminded events are not reminded twice
	n, err = env.Reminder.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, env.Mail.Sent(), 1)
	assert.Empty(t, env.Logger.Errors)
}

func TestReminder_Serve_stopsOnCancel(t *testing.T) {
	env := testutil.NewEnv(t)
	r := timeline.NewReminder(
		docrepos.NewTimelineRepository(env.Store), env.User, env.Mail, env.Logger,
		core.ReminderConfig{Interval: time.Hour, Window: time.Hour},
	)
	assert.Equal(t, "timeline.Reminder", r.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, r.Serve(ctx))
}

// editingUsers edits the owner's event while the reminder looks the owner up.
type editingUsers struct {
	users timeline.UserFinder
	edit  func(ctx context.Context)
}

func (u editingUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	u.edit(ctx)
	return u.users.GetByID(ctx, id)
}

func TestReminder_RunOnce_concurrentEdits(t *testing.T) {
	freezeTime(t, now)
	ctx := context.Background()

	tests := []struct {
		name string
		edit func(t *testing.T, env *testutil.Env, usr user.User, ev timeline.Event) func(context.Context)
		want func(t *testing.T, ev timeline.Event)
	}{
		{
			name: "completed",
			edit: func(t *testing.T, env *testutil.Env, usr user.User, ev timeline.Event) func(context.Context) {
				return func(ctx context.Context) {
					_, err := env.Timeline.SetCompleted(ctx, usr.ID, ev.ID, true)
					require.NoError(t, err)
				}
			},
			want: func(t *testing.T, ev timeline.Event) {
				assert.True(t, ev.Completed)
				assert.True(t, ev.CompletedAt.Valid)
				assert.False(t, ev.RemindedAt.Valid)
			},
		},
		{
			name: "postponed",
			edit: func(t *testing.T, env *testutil.Env, usr user.User, ev timeline.Event) func(context.Context) {
				return func(ctx context.Context) {
					_, err := env.Timeline.Update(ctx, usr.ID, ev.ID,
						timeline.NewEvent{Title: "Exam (moved)", Kind: "deadline", DueAt: now.Add(48 * time.Hour)})
					require.NoError(t, err)
				}
			},
			want: func(t *testing.T, ev timeline.Event) {
				assert.Equal(t, "Exam (moved)", ev.Title)
				assert.Equal(t, now.Add(48*time.Hour), ev.DueAt)
				assert.False(t, ev.RemindedAt.Valid)
			},
		},
		{
			name: "deleted",
			edit: func(t *testing.T, env *testutil.Env, usr user.User, ev timeline.Event) func(context.Context) {
				return func(ctx context.Context) {
					require.NoError(t, env.Timeline.Delete(ctx, usr.ID, ev.ID))
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t)
			usr := testutil.CreateUser(t, env.UsrRepo, "Jane", "jane", "jane@example.com", []string{user.RoleStudent}, true)
			ev, err := env.Timeline.Create(ctx, usr.ID, timeline.NewEvent{Title: "Exam", Kind: "deadline", DueAt: now.Add(time.Hour)})
			require.NoError(t, err)

			users := editingUsers{users: env.User, edit: tt.edit(t, env, usr, ev)}
			r := timeline.NewReminder(docrepos.NewTimelineRepository(env.Store), users, env.Mail, env.Logger, env.Conf.Reminder)
			n, err := r.RunOnce(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, n)
			assert.Empty(t, env.Mail.Sent())

			got, err := env.Timeline.Get(ctx, usr.ID, ev.ID)
			if tt.want == nil {
				assert.Equal(t, timeline.ErrNotFound, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			tt.want(t, got)
		})
	}
}
