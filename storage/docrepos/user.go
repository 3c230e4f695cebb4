package docrepos

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/user"
)

type userRepository struct {
	store core.DocumentStore
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(store core.DocumentStore) user.Repository {
	return &userRepository{store: store}
}

func (repo *userRepository) find(ctx context.Context, field, value string) ([]user.User, error) {
	var users []user.User
	q := core.DocQuery{Where: []core.DocFilter{core.Eq(field, value)}}
	if err := repo.store.Query(ctx, usersCollection, q, &users); err != nil {
		return nil, errors.Wrapf(err, "querying users by %s", field)
	}
	return users, nil
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	excluded := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded = append(excluded, u.ID)
	}
	sort.Strings(excluded)

	if username != "" {
		users, err := repo.find(ctx, "username", username)
		if err != nil {
			return err
		}
		for _, u := range users {
			if !isExcluded(u.ID, excluded) {
				return user.ErrUsernameExists
			}
		}
	}
	if email != "" {
		users, err := repo.find(ctx, "email", email)
		if err != nil {
			return err
		}
		for _, u := range users {
			if !isExcluded(u.ID, excluded) {
				return user.ErrEmailExists
			}
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := repo.store.Insert(ctx, usersCollection, usr.ID, usr); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

// QueryUsers filters on is_active in the store; search and roles are matched in memory.
// Users are ordered by name unless ordering is set.
func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	q := core.DocQuery{OrderBy: ordering}
	if filter.IsActive != nil {
		q.Where = append(q.Where, core.Eq("is_active", *filter.IsActive))
	}
	if len(q.OrderBy) == 0 {
		q.OrderBy = []core.DBOrdering{{Field: "name", Ascending: true}}
	}

	var users []user.User
	if err := repo.store.Query(ctx, usersCollection, q, &users); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	matched := users[:0]
	for _, u := range users {
		if filter.Match(u) {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var usr user.User
	if err := repo.store.Get(ctx, usersCollection, id, &usr); err != nil {
		return user.User{}, mapNotFound(err, user.ErrNotFound)
	}
	return usr, nil
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	if uname == "" {
		return user.User{}, user.ErrNotFound
	}
	for _, field := range []string{"username", "email"} {
		users, err := repo.find(ctx, field, uname)
		if err != nil {
			return user.User{}, err
		}
		if len(users) > 0 {
			return users[0], nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := repo.store.Replace(ctx, usersCollection, usr.ID, usr); err != nil {
		return user.User{}, mapNotFound(err, user.ErrNotFound)
	}
	return usr, nil
}

// DeleteUsersByID returns user.ErrNotFound when none of the users existed.
func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	n, err := repo.store.Delete(ctx, usersCollection, ids...)
	if err != nil {
		return errors.Wrap(err, "deleting users")
	}
	if n == 0 && len(ids) > 0 {
		return user.ErrNotFound
	}
	return nil
}

// isExcluded searches the sorted excluded IDs.
func isExcluded(id string, excluded []string) bool {
	idx := sort.SearchStrings(excluded, id)
	return idx < len(excluded) && excluded[idx] == id
}
