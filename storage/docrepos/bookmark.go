package docrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/bookmark"
	"github.com/trezcool/njia/core/catalog"
)

type bookmarkRepository struct {
	store core.DocumentStore
}

var _ bookmark.Repository = (*bookmarkRepository)(nil)

func NewBookmarkRepository(store core.DocumentStore) bookmark.Repository {
	return &bookmarkRepository{store: store}
}

func (repo *bookmarkRepository) CreateBookmark(ctx context.Context, bm bookmark.Bookmark) (bookmark.Bookmark, error) {
	if err := repo.store.Insert(ctx, bookmarksCollection, bm.ID, bm); err != nil {
		return bookmark.Bookmark{}, errors.Wrap(err, "inserting bookmark")
	}
	return bm, nil
}

func (repo *bookmarkRepository) GetBookmark(ctx context.Context, id string) (bookmark.Bookmark, error) {
	var bm bookmark.Bookmark
	if err := repo.store.Get(ctx, bookmarksCollection, id, &bm); err != nil {
		return bookmark.Bookmark{}, mapNotFound(err, bookmark.ErrNotFound)
	}
	return bm, nil
}

func (repo *bookmarkRepository) QueryBookmarks(ctx context.Context, userID string, itemType catalog.Kind, itemID string) ([]bookmark.Bookmark, error) {
	q := core.DocQuery{
		Where:   []core.DocFilter{core.Eq("user_id", userID)},
		OrderBy: newestFirst,
	}
	if itemType != "" {
		q.Where = append(q.Where, core.Eq("item_type", string(itemType)))
	}
	if itemID != "" {
		q.Where = append(q.Where, core.Eq("item_id", itemID))
	}

	var bms []bookmark.Bookmark
	if err := repo.store.Query(ctx, bookmarksCollection, q, &bms); err != nil {
		return nil, errors.Wrap(err, "querying bookmarks")
	}
	return bms, nil
}

func (repo *bookmarkRepository) DeleteBookmark(ctx context.Context, id string) error {
	n, err := repo.store.Delete(ctx, bookmarksCollection, id)
	if err != nil {
		return errors.Wrap(err, "deleting bookmark")
	}
	if n == 0 {
		return bookmark.ErrNotFound
	}
	return nil
}
