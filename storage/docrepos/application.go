package docrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/application"
)

type applicationRepository struct {
	store core.DocumentStore
}

var _ application.Repository = (*applicationRepository)(nil)

func NewApplicationRepository(store core.DocumentStore) application.Repository {
	return &applicationRepository{store: store}
}

func (repo *applicationRepository) CreateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	if err := repo.store.Insert(ctx, applicationsCollection, app.ID, app); err != nil {
		return application.Application{}, errors.Wrap(err, "inserting application")
	}
	return app, nil
}

func (repo *applicationRepository) GetApplication(ctx context.Context, id string) (application.Application, error) {
	var app application.Application
	if err := repo.store.Get(ctx, applicationsCollection, id, &app); err != nil {
		return application.Application{}, mapNotFound(err, application.ErrNotFound)
	}
	return app, nil
}

func (repo *applicationRepository) QueryApplications(ctx context.Context, aq application.Query) ([]application.Application, error) {
	q := core.DocQuery{OrderBy: newestFirst}
	for _, f := range []struct{ field, value string }{
		{"user_id", aq.UserID},
		{"item_type", string(aq.ItemType)},
		{"item_id", aq.ItemID},
		{"status", aq.Status},
	} {
		if f.value != "" {
			q.Where = append(q.Where, core.Eq(f.field, f.value))
		}
	}

	var apps []application.Application
	if err := repo.store.Query(ctx, applicationsCollection, q, &apps); err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	return apps, nil
}

func (repo *applicationRepository) UpdateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	if err := repo.store.Replace(ctx, applicationsCollection, app.ID, app); err != nil {
		return application.Application{}, mapNotFound(err, application.ErrNotFound)
	}
	return app, nil
}
