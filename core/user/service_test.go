package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/user"
	"github.com/trezcool/njia/tests"
)

func usernames(users []user.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "want a ValidationError, got %v", err)
	require.Len(t, vErr.Fields, 1)
	return vErr.Fields[0].Field
}

func TestNewUser_Validate(t *testing.T) {
	env := testutil.NewEnv(t)
	testutil.CreateUser(t, env.UsrRepo, "Jane", "jane", "jane@example.com", []string{user.RoleStudent}, true)

	tests := []struct {
		name      string
		nu        user.NewUser
		wantField string
		wantTags  bool
	}{
		{name: "valid", nu: user.NewUser{Name: " John ", Username: "John_D", Email: "JOHN@example.com "}},
		{name: "missing name", nu: user.NewUser{Username: "johnd", Email: "john@example.com"}, wantTags: true},
		{name: "short username", nu: user.NewUser{Name: "J", Username: "jd", Email: "john@example.com"}, wantTags: true},
		{name: "bad role", nu: user.NewUser{Name: "J", Email: "john@example.com", Roles: []string{"root"}}, wantTags: true},
		{name: "username taken", nu: user.NewUser{Name: "J", Username: "JANE", Email: "john@example.com"}, wantField: "username"},
		{name: "email taken", nu: user.NewUser{Name: "J", Username: "johnd", Email: "Jane@Example.com"}, wantField: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(env.Validate, env.User)
			switch {
			case tt.wantTags:
				var vErrs validator.ValidationErrors
				assert.True(t, errors.As(err, &vErrs))
			case tt.wantField != "":
				assert.Equal(t, tt.wantField, fieldOf(t, err))
			default:
				require.NoError(t, err)
				assert.Equal(t, "John", tt.nu.Name)
				assert.Equal(t, "john_d", tt.nu.Username)
				assert.Equal(t, "john@example.com", tt.nu.Email)
			}
		})
	}
}

func TestService_CreateAndGet(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	usr, err := env.User.Create(ctx, user.NewUser{Name: "John", Username: "johnd", Email: "john@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.IsActive)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
	assert.True(t, usr.IsStudent())
	assert.False(t, usr.IsAdmin())

	got, err := env.User.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, usr.Username, got.Username)
	assert.Equal(t, usr.Roles, got.Roles)
	assert.True(t, usr.CreatedAt.Equal(got.CreatedAt))

	got, err = env.User.GetByUsernameOrEmail(ctx, " JOHN@example.com")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	_, err = env.User.GetByID(ctx, "nope")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	_, err = env.User.GetByUsernameOrEmail(ctx, "")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestService_Query(t *testing.T) {
	env := testutil.NewEnv(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	testutil.CreateUser(t, env.UsrRepo, "Alice Admin", "alice", "alice@example.com", []string{user.RoleAdminOwner}, true, base)
	testutil.CreateUser(t, env.UsrRepo, "Bob", "bob", "bob@school.org", []string{user.RoleStudent}, true, base.Add(time.Hour))
	testutil.CreateUser(t, env.UsrRepo, "Carol", "carol", "carol@example.com", []string{user.RoleStudent}, false, base.Add(2*time.Hour))

	yes, no := true, false
	tests := []struct {
		name     string
		filter   *user.QueryFilter
		ordering []core.DBOrdering
		want     []string
		wantErr  bool
	}{
		{name: "all by name", filter: nil, want: []string{"alice", "bob", "carol"}},
		{name: "newest first", ordering: []core.DBOrdering{{Field: "created_at"}}, want: []string{"carol", "bob", "alice"}},
		{name: "search", filter: &user.QueryFilter{Search: "example"}, want: []string{"alice", "carol"}},
		{name: "role prefix", filter: &user.QueryFilter{Roles: []string{user.RoleAdmin}}, want: []string{"alice"}},
		{name: "active", filter: &user.QueryFilter{IsActive: &yes}, want: []string{"alice", "bob"}},
		{name: "inactive students", filter: &user.QueryFilter{IsActive: &no, Roles: []string{"student:"}}, want: []string{"carol"}},
		{name: "bad ordering", ordering: []core.DBOrdering{{Field: "password"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := env.User.Query(context.Background(), tt.filter, tt.ordering)
			if tt.wantErr {
				assert.Equal(t, "ordering", fieldOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, usernames(users))
		})
	}
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	jane := testutil.CreateUser(t, env.UsrRepo, "Jane", "jane", "jane@example.com", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, env.UsrRepo, "John", "johnd", "john@example.com", []string{user.RoleStudent}, true)

	// blank fields keep their value; keeping one's own username is not a conflict
	uu := user.UpdateUser{Name: "Jane Doe"}
	require.NoError(t, uu.Validate(jane, env.Validate, env.User))
	assert.Equal(t, "jane", uu.Username)

	inactive := false
	uu.IsActive = &inactive
	uu.Roles = []string{user.RoleAdmin}
	usr, err := env.User.Update(ctx, jane, uu)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", usr.Name)
	assert.False(t, usr.IsActive)
	assert.True(t, usr.IsAdmin())

	uu = user.UpdateUser{Username: "johnd"}
	assert.Equal(t, "username", fieldOf(t, uu.Validate(jane, env.Validate, env.User)))
}

func TestService_Profile(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	jane := testutil.CreateUser(t, env.UsrRepo, "Jane", "jane", "jane@example.com", []string{user.RoleStudent}, true)

	up := user.UpdateProfile{
		Interests:    []string{" Coding", "coding", "Robots "},
		City:         " Pune ",
		Percentage:   88.5,
		AnnualBudget: null.IntFrom(250000),
		Category:     "OBC",
	}
	require.NoError(t, up.Validate(env.Validate))
	usr, err := env.User.UpdateProfile(ctx, jane, up)
	require.NoError(t, err)
	assert.Equal(t, []string{"coding", "robots"}, usr.Profile.Interests)
	assert.Equal(t, "Pune", usr.Profile.City)
	assert.Equal(t, "obc", usr.Profile.Category)
	assert.True(t, usr.Profile.HasLocation())

	usr, err = env.User.SetStreams(ctx, jane.ID, []string{"engineering", "commerce"}, []string{"computer_science"})
	require.NoError(t, err)
	assert.Equal(t, "engineering", usr.Profile.Stream)
	assert.Equal(t, 2, usr.Profile.StreamRank("commerce"))
	assert.Equal(t, 0, usr.Profile.StreamRank("law"))
	// self-edited fields survive a quiz
	assert.Equal(t, "Pune", usr.Profile.City)

	badCategory := user.UpdateProfile{Category: "vip"}
	var vErrs validator.ValidationErrors
	assert.True(t, errors.As(badCategory.Validate(env.Validate), &vErrs))

	negative := user.UpdateProfile{FamilyIncome: null.IntFrom(-1)}
	assert.Equal(t, "family_income", fieldOf(t, negative.Validate(env.Validate)))
}

func TestService_TouchDelete(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	jane := testutil.CreateUser(t, env.UsrRepo, "Jane", "jane", "jane@example.com", []string{user.RoleStudent}, true)

	usr, err := env.User.Touch(ctx, jane.ID)
	require.NoError(t, err)
	assert.True(t, usr.LastSeen.Valid)

	require.NoError(t, env.User.Delete(ctx, jane.ID))
	_, err = env.User.GetByID(ctx, jane.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	assert.Equal(t, user.ErrNotFound, errors.Cause(env.User.Delete(ctx, jane.ID)))
}

func TestService_Touch_keepsConcurrentChanges(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	jane := testutil.CreateUser(t, env.UsrRepo, "Jane", "jane", "jane@example.com", []string{user.RoleStudent}, true)

	// jane was loaded by a request; a quiz submission lands before her LastSeen is refreshed
	loaded, err := env.User.GetByID(ctx, jane.ID)
	require.NoError(t, err)
	_, err = env.User.SetStreams(ctx, jane.ID, []string{"engineering", "commerce"}, []string{"computer_science"})
	require.NoError(t, err)

	touched, err := env.User.Touch(ctx, loaded.ID)
	require.NoError(t, err)
	assert.True(t, touched.LastSeen.Valid)

	usr, err := env.User.GetByID(ctx, jane.ID)
	require.NoError(t, err)
	assert.True(t, usr.LastSeen.Valid)
	assert.Equal(t, "engineering", usr.Profile.Stream)
	assert.Equal(t, []string{"engineering", "commerce"}, usr.Profile.TopStreams)
	assert.Equal(t, []string{"computer_science"}, usr.Profile.Fields)

	_, err = env.User.Touch(ctx, "nope")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestMaxRolePriority(t *testing.T) {
	assert.Equal(t, 30, user.MaxRolePriority([]string{user.RoleStudent, user.RoleAdminOwner}))
	assert.Equal(t, 21, user.MaxRolePriority([]string{user.RoleAdmin}))
	assert.Equal(t, 0, user.MaxRolePriority(nil))
}
