package bookmark

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/catalog"
)

var (
	ErrNotFound = errors.New("bookmark not found")

	errAlreadyBookmarked = "this item is already bookmarked"
	errUnknownItem       = "item not found"
)

type (
	Bookmark struct {
		ID        string       `json:"id"`
		UserID    string       `json:"user_id"`
		ItemType  catalog.Kind `json:"item_type"`
		ItemID    string       `json:"item_id"`
		ItemName  string       `json:"item_name"`
		Note      string       `json:"note"`
		CreatedAt time.Time    `json:"created_at"` // UTC
	}

	NewBookmark struct {
		ItemType string `json:"item_type" validate:"required,itemtype"`
		ItemID   string `json:"item_id" validate:"required"`
		Note     string `json:"note" validate:"max=500"`
	}

	Repository interface {
		CreateBookmark(ctx context.Context, bm Bookmark) (Bookmark, error)
		GetBookmark(ctx context.Context, id string) (Bookmark, error)
		// QueryBookmarks returns the user's bookmarks newest first, optionally restricted to one item
		// type and item ID.
		QueryBookmarks(ctx context.Context, userID string, itemType catalog.Kind, itemID string) ([]Bookmark, error)
		DeleteBookmark(ctx context.Context, id string) error
	}

	// ItemFinder looks up catalog items.
	ItemFinder interface {
		Get(ctx context.Context, kind catalog.Kind, id string) (catalog.Item, error)
	}

	Service struct {
		repo     Repository
		items    ItemFinder
		validate *validator.Validate
	}
)

func NewService(repo Repository, items ItemFinder, validate *validator.Validate) *Service {
	return &Service{repo: repo, items: items, validate: validate}
}

func (nb *NewBookmark) clean() {
	nb.ItemType = core.CleanString(nb.ItemType, true /* lower */)
	nb.ItemID = core.CleanString(nb.ItemID)
	nb.Note = core.CleanString(nb.Note)
}

// Create bookmarks an existing catalog item. A user bookmarks an item at most once.
func (svc *Service) Create(ctx context.Context, userID string, nb NewBookmark) (Bookmark, error) {
	nb.clean()
	if err := svc.validate.Struct(nb); err != nil {
		return Bookmark{}, err
	}

	kind := catalog.Kind(nb.ItemType)
	item, err := svc.items.Get(ctx, kind, nb.ItemID)
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return Bookmark{}, core.NewFieldError("item_id", errUnknownItem)
		}
		return Bookmark{}, errors.Wrap(err, "finding item")
	}

	existing, err := svc.repo.QueryBookmarks(ctx, userID, kind, nb.ItemID)
	if err != nil {
		return Bookmark{}, errors.Wrap(err, "querying bookmarks")
	}
	if len(existing) > 0 {
		return Bookmark{}, core.NewFieldError("item_id", errAlreadyBookmarked)
	}

	bm := Bookmark{
		ID:        core.NewID(),
		UserID:    userID,
		ItemType:  kind,
		ItemID:    item.ItemID(),
		ItemName:  item.ItemName(),
		Note:      nb.Note,
		CreatedAt: core.Now(),
	}
	return svc.repo.CreateBookmark(ctx, bm)
}

// List returns the user's bookmarks, newest first. An empty itemType lists every type.
func (svc *Service) List(ctx context.Context, userID, itemType string) ([]Bookmark, error) {
	var kind catalog.Kind
	if itemType != "" {
		k, ok := catalog.ParseKind(itemType)
		if !ok {
			return nil, core.NewFieldError("item_type", "invalid item type")
		}
		kind = k
	}
	return svc.repo.QueryBookmarks(ctx, userID, kind, "")
}

// Delete removes one of the user's bookmarks.
func (svc *Service) Delete(ctx context.Context, userID, id string) error {
	bm, err := svc.repo.GetBookmark(ctx, id)
	if err != nil {
		return err
	}
	if bm.UserID != userID {
		return core.NewPermissionError("you cannot delete this bookmark")
	}
	return svc.repo.DeleteBookmark(ctx, id)
}
