package docrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/catalog"
)

type catalogRepository struct {
	store core.DocumentStore
}

var _ catalog.Repository = (*catalogRepository)(nil)

func NewCatalogRepository(store core.DocumentStore) catalog.Repository {
	return &catalogRepository{store: store}
}

func (repo *catalogRepository) InsertItem(ctx context.Context, item catalog.Item) error {
	return errors.Wrapf(
		repo.store.Insert(ctx, item.ItemKind().Collection(), item.ItemID(), item),
		"inserting %s", item.ItemKind(),
	)
}

func (repo *catalogRepository) GetItem(ctx context.Context, kind catalog.Kind, id string) (catalog.Item, error) {
	item := catalog.NewItem(kind)
	if item == nil {
		return nil, catalog.ErrInvalidKind
	}
	if err := repo.store.Get(ctx, kind.Collection(), id, item); err != nil {
		return nil, mapNotFound(err, catalog.ErrNotFound)
	}
	return item, nil
}

func (repo *catalogRepository) ReplaceItem(ctx context.Context, item catalog.Item) error {
	err := repo.store.Replace(ctx, item.ItemKind().Collection(), item.ItemID(), item)
	return mapNotFound(err, catalog.ErrNotFound)
}

func (repo *catalogRepository) DeleteItems(ctx context.Context, kind catalog.Kind, ids ...string) (int, error) {
	return repo.store.Delete(ctx, kind.Collection(), ids...)
}

func (repo *catalogRepository) QueryItems(ctx context.Context, kind catalog.Kind, where []core.DocFilter, ordering []core.DBOrdering) ([]catalog.Item, error) {
	q := core.DocQuery{Where: where, OrderBy: ordering}
	switch kind {
	case catalog.KindCollege:
		return queryItems[catalog.College](ctx, repo.store, kind, q)
	case catalog.KindCourse:
		return queryItems[catalog.Course](ctx, repo.store, kind, q)
	case catalog.KindCareer:
		return queryItems[catalog.Career](ctx, repo.store, kind, q)
	case catalog.KindScholarship:
		return queryItems[catalog.Scholarship](ctx, repo.store, kind, q)
	case catalog.KindResource:
		return queryItems[catalog.Resource](ctx, repo.store, kind, q)
	}
	return nil, catalog.ErrInvalidKind
}

// queryItems decodes the documents of a kind into its concrete type, then exposes them as items.
func queryItems[T any, PT interface {
	*T
	catalog.Item
}](ctx context.Context, store core.DocumentStore, kind catalog.Kind, q core.DocQuery) ([]catalog.Item, error) {
	var docs []T
	if err := store.Query(ctx, kind.Collection(), q, &docs); err != nil {
		return nil, err
	}
	items := make([]catalog.Item, 0, len(docs))
	for i := range docs {
		items = append(items, PT(&docs[i]))
	}
	return items, nil
}
