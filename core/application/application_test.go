package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/application"
	"github.com/trezcool/njia/core/catalog"
	"github.com/trezcool/njia/core/timeline"
	"github.com/trezcool/njia/core/user"
	"github.com/trezcool/njia/storage/docrepos"
	"github.com/trezcool/njia/tests"
)

func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return at }
	t.Cleanup(func() { core.NowFunc = orig })
}

func statusErr(t *testing.T, err error) string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "want a ValidationError, got %v", err)
	require.Len(t, vErr.Fields, 1)
	return vErr.Fields[0].Field + ": " + vErr.Fields[0].Error
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{application.StatusApplied, application.StatusUnderReview, true},
		{application.StatusApplied, application.StatusWithdrawn, true},
		{application.StatusApplied, application.StatusAccepted, false},
		{application.StatusUnderReview, application.StatusAccepted, true},
		{application.StatusUnderReview, application.StatusRejected, true},
		{application.StatusUnderReview, application.StatusWithdrawn, true},
		{application.StatusAccepted, application.StatusWithdrawn, false},
		{application.StatusRejected, application.StatusUnderReview, false},
		{application.StatusWithdrawn, application.StatusApplied, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, application.CanTransition(tt.from, tt.to))
		})
	}
	assert.True(t, application.IsTerminal(application.StatusAccepted))
	assert.True(t, application.IsTerminal(application.StatusWithdrawn))
	assert.False(t, application.IsTerminal(application.StatusUnderReview))
}

func TestService_Create(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	freezeTime(t, now)
	env := testutil.NewEnv(t)
	env.SeedCatalog(t)
	ctx := context.Background()

	app, err := env.Application.Create(ctx, "usr-1", application.NewApplication{ItemType: "College", ItemID: "col-iit-bombay", Notes: " first choice "})
	require.NoError(t, err)
	assert.Equal(t, application.StatusApplied, app.Status)
	assert.Equal(t, "Indian Institute of Technology Bombay", app.ItemName)
	assert.Equal(t, "first choice", app.Notes)
	require.Len(t, app.History, 1)
	assert.Equal(t, application.StatusChange{To: application.StatusApplied, ChangedBy: "usr-1", At: now}, app.History[0])

	// the upcoming deadline lands on the timeline
	events, err := env.Timeline.List(ctx, "usr-1", nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "col-iit-bombay", events[0].ItemID)
	assert.Equal(t, time.Date(2027, 4, 30, 0, 0, 0, 0, time.UTC), events[0].DueAt)

	tests := []struct {
		name     string
		na       application.NewApplication
		wantErr  string
		wantTags bool
	}{
		{name: "active duplicate", na: application.NewApplication{ItemType: "college", ItemID: "col-iit-bombay"}, wantErr: "item_id: you already applied to this item"},
		{name: "unknown item", na: application.NewApplication{ItemType: "scholarship", ItemID: "sch-nope"}, wantErr: "item_id: item not found"},
		{name: "careers are not applied to", na: application.NewApplication{ItemType: "career", ItemID: "car-doctor"}, wantTags: true},
		{name: "missing id", na: application.NewApplication{ItemType: "course"}, wantTags: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Application.Create(ctx, "usr-1", tt.na)
			if tt.wantTags {
				var vErrs validator.ValidationErrors
				assert.True(t, errors.As(err, &vErrs))
				return
			}
			assert.Equal(t, tt.wantErr, statusErr(t, err))
		})
	}

	// a course has no deadline: no event
	_, err = env.Application.Create(ctx, "usr-1", application.NewApplication{ItemType: "course", ItemID: "crs-bcom"})
	require.NoError(t, err)
	events, err = env.Timeline.List(ctx, "usr-1", nil)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestService_Create_pastDeadline(t *testing.T) {
	freezeTime(t, time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC))
	env := testutil.NewEnv(t)
	env.SeedCatalog(t)
	ctx := context.Background()

	_, err := env.Application.Create(ctx, "usr-1", application.NewApplication{ItemType: "scholarship", ItemID: "sch-inspire"})
	require.NoError(t, err)
	events, err := env.Timeline.List(ctx, "usr-1", nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestService_workflow(t *testing.T) {
	env := testutil.NewEnv(t)
	env.SeedCatalog(t)
	ctx := context.Background()
	jane := testutil.CreateUser(t, env.UsrRepo, "Jane", "jane", "jane@example.com", []string{user.RoleStudent}, true)
	john := testutil.CreateUser(t, env.UsrRepo, "John", "johnd", "john@example.com", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, env.UsrRepo, "Ada", "admin", "admin@example.com", []string{user.RoleAdmin}, true)

	app, err := env.Application.Create(ctx, jane.ID, application.NewApplication{ItemType: "college", ItemID: "col-srcc"})
	require.NoError(t, err)

	t.Run("access", func(t *testing.T) {
		_, err := env.Application.Get(ctx, john, app.ID)
		assert.True(t, core.IsPermissionError(err))
		_, err = env.Application.Get(ctx, admin, app.ID)
		assert.NoError(t, err)
		_, err = env.Application.Get(ctx, jane, "nope")
		assert.Equal(t, application.ErrNotFound, errors.Cause(err))
		_, err = env.Application.Withdraw(ctx, john.ID, app.ID)
		assert.True(t, core.IsPermissionError(err))
	})

	t.Run("admin decisions", func(t *testing.T) {
		_, err := env.Application.SetStatus(ctx, admin, app.ID, application.StatusUpdate{Status: "accepted"})
		assert.Equal(t, "status: cannot change status from applied to accepted", statusErr(t, err))

		_, err = env.Application.SetStatus(ctx, admin, app.ID, application.StatusUpdate{Status: "withdrawn"})
		var vErrs validator.ValidationErrors
		assert.True(t, errors.As(err, &vErrs))

		app, err = env.Application.SetStatus(ctx, admin, app.ID, application.StatusUpdate{Status: " Under_Review "})
		require.NoError(t, err)
		app, err = env.Application.SetStatus(ctx, admin, app.ID, application.StatusUpdate{Status: "accepted", Notes: "Welcome!"})
		require.NoError(t, err)
		assert.Equal(t, application.StatusAccepted, app.Status)
		require.Len(t, app.History, 3)
		assert.Equal(t, application.StatusUnderReview, app.History[2].From)
		assert.Equal(t, admin.ID, app.History[2].ChangedBy)
		assert.Equal(t, "Welcome!", app.History[2].Notes)

		sent := env.Mail.Sent()
		require.Len(t, sent, 2)
		assert.Equal(t, "jane@example.com", sent[1].To[0].Address)
		assert.Equal(t, "Your application to Shri Ram College of Commerce", sent[1].Subject)
		assert.Contains(t, sent[1].TextContent, "is now: accepted")
		assert.Contains(t, sent[1].TextContent, "Welcome!")

		_, err = env.Application.Withdraw(ctx, jane.ID, app.ID)
		assert.Equal(t, "status: cannot change status from accepted to withdrawn", statusErr(t, err))
	})

	t.Run("withdraw then apply again", func(t *testing.T) {
		other, err := env.Application.Create(ctx, jane.ID, application.NewApplication{ItemType: "college", ItemID: "col-nid"})
		require.NoError(t, err)
		other, err = env.Application.Withdraw(ctx, jane.ID, other.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusWithdrawn, other.Status)

		_, err = env.Application.Create(ctx, jane.ID, application.NewApplication{ItemType: "college", ItemID: "col-nid"})
		assert.NoError(t, err)
	})

	t.Run("listing", func(t *testing.T) {
		apps, err := env.Application.List(ctx, jane.ID)
		require.NoError(t, err)
		assert.Len(t, apps, 3)
		assert.Equal(t, map[string]int{"accepted": 1, "withdrawn": 1, "applied": 1}, application.CountByStatus(apps))

		none, err := env.Application.List(ctx, john.ID)
		require.NoError(t, err)
		assert.Empty(t, none)

		withdrawn, err := env.Application.ListAll(ctx, application.QueryFilter{Status: "Withdrawn", ItemType: "college"})
		require.NoError(t, err)
		require.Len(t, withdrawn, 1)
		assert.Equal(t, "col-nid", withdrawn[0].ItemID)

		_, err = env.Application.ListAll(ctx, application.QueryFilter{Status: "lost"})
		var vErrs validator.ValidationErrors
		assert.True(t, errors.As(err, &vErrs))
	})

	assert.Empty(t, env.Logger.Errors)
}

func TestService_Create_itemKinds(t *testing.T) {
	env := testutil.NewEnv(t)
	env.SeedCatalog(t)
	for _, kind := range []catalog.Kind{catalog.KindCollege, catalog.KindCourse, catalog.KindScholarship} {
		items, err := env.Catalog.All(context.Background(), kind)
		require.NoError(t, err)
		_, err = env.Application.Create(context.Background(), "usr-1",
			application.NewApplication{ItemType: string(kind), ItemID: items[0].ItemID()})
		assert.NoError(t, err, kind)
	}
}

// failingRepo fails the next CreateApplication calls.
type failingRepo struct {
	application.Repository
	failures int
}

func (r *failingRepo) CreateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	if r.failures > 0 {
		r.failures--
		return application.Application{}, errors.New("connection reset")
	}
	return r.Repository.CreateApplication(ctx, app)
}

// failingDeadlines fails every CreateDeadline call.
type failingDeadlines struct {
	application.DeadlineScheduler
}

func (failingDeadlines) CreateDeadline(context.Context, string, catalog.Item, time.Time) (timeline.Event, error) {
	return timeline.Event{}, errors.New("timeline unavailable")
}

func TestService_Create_storeFailures(t *testing.T) {
	freezeTime(t, time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	env := testutil.NewEnv(t)
	env.SeedCatalog(t)
	ctx := context.Background()
	na := application.NewApplication{ItemType: "college", ItemID: "col-iit-bombay"}

	t.Run("deadline event fails", func(t *testing.T) {
		svc := application.NewService(docrepos.NewApplicationRepository(env.Store), env.Catalog,
			failingDeadlines{env.Timeline}, env.User, env.Mail, env.Validate, env.Logger)
		_, err := svc.Create(ctx, "usr-1", na)
		assert.EqualError(t, err, "creating deadline event: timeline unavailable")

		apps, err := env.Application.List(ctx, "usr-1")
		require.NoError(t, err)
		assert.Empty(t, apps)
	})

	t.Run("application insert fails", func(t *testing.T) {
		repo := &failingRepo{Repository: docrepos.NewApplicationRepository(env.Store), failures: 1}
		svc := application.NewService(repo, env.Catalog, env.Timeline, env.User, env.Mail, env.Validate, env.Logger)
		_, err := svc.Create(ctx, "usr-1", na)
		assert.EqualError(t, err, "creating application: connection reset")

		events, err := env.Timeline.List(ctx, "usr-1", nil)
		require.NoError(t, err)
		assert.Empty(t, events)

		// retrying is not mistaken for a duplicate
		app, err := svc.Create(ctx, "usr-1", na)
		require.NoError(t, err)
		assert.Equal(t, application.StatusApplied, app.Status)
		events, err = env.Timeline.List(ctx, "usr-1", nil)
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})
	assert.Empty(t, env.Logger.Errors)
}

func TestService_Create_afterRejection(t *testing.T) {
	env := testutil.NewEnv(t)
	env.SeedCatalog(t)
	ctx := context.Background()
	jane := testutil.CreateUser(t, env.UsrRepo, "Jane", "jane", "jane@example.com", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, env.UsrRepo, "Ada", "admin", "admin@example.com", []string{user.RoleAdmin}, true)
	na := application.NewApplication{ItemType: "college", ItemID: "col-srcc"}

	app, err := env.Application.Create(ctx, jane.ID, na)
	require.NoError(t, err)
	_, err = env.Application.SetStatus(ctx, admin, app.ID, application.StatusUpdate{Status: application.StatusUnderReview})
	require.NoError(t, err)
	_, err = env.Application.SetStatus(ctx, admin, app.ID, application.StatusUpdate{Status: application.StatusRejected})
	require.NoError(t, err)

	// a rejection is final for the item
	_, err = env.Application.Create(ctx, jane.ID, na)
	assert.Equal(t, "item_id: you already applied to this item", statusErr(t, err))
}
