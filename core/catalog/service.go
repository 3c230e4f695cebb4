package catalog

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/services/metrics"
)

var (
	ErrNotFound    = errors.New("item not found")
	ErrInvalidKind = errors.New("invalid catalog kind")

	errUnknownRef = "unknown id "
)

type (
	Repository interface {
		// InsertItem stores a new item; its ID must be set.
		InsertItem(ctx context.Context, item Item) error
		// GetItem returns ErrNotFound when the item does not exist.
		GetItem(ctx context.Context, kind Kind, id string) (Item, error)
		ReplaceItem(ctx context.Context, item Item) error
		DeleteItems(ctx context.Context, kind Kind, ids ...string) (int, error)
		QueryItems(ctx context.Context, kind Kind, where []core.DocFilter, ordering []core.DBOrdering) ([]Item, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		cache    *cache.Cache
	}
)

func NewService(repo Repository, validate *validator.Validate, conf core.CatalogConfig) *Service {
	ttl := conf.CacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Service{
		repo:     repo,
		validate: validate,
		cache:    cache.New(ttl, 2*ttl),
	}
}

func checkKind(kind Kind) error {
	for _, k := range Kinds {
		if k == kind {
			return nil
		}
	}
	return ErrInvalidKind
}

// Validate cleans the item, validates it and checks that the items it references exist.
func (svc *Service) Validate(ctx context.Context, item Item) error {
	item.clean()
	if err := svc.validate.Struct(item); err != nil {
		return err
	}

	var flds []core.FieldError
	for _, r := range item.refs() {
		for _, id := range r.ids {
			if _, err := svc.repo.GetItem(ctx, r.kind, id); err != nil {
				if errors.Cause(err) != ErrNotFound {
					return errors.Wrapf(err, "finding %s", r.kind)
				}
				flds = append(flds, core.FieldError{Field: r.field, Error: errUnknownRef + id})
				break
			}
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Create validates and stores a new item. Any ID or timestamp set on item is replaced.
func (svc *Service) Create(ctx context.Context, item Item) (Item, error) {
	if err := svc.Validate(ctx, item); err != nil {
		return nil, err
	}

	now := core.Now()
	b := item.base()
	b.ID = core.NewID()
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := svc.repo.InsertItem(ctx, item); err != nil {
		return nil, errors.Wrapf(err, "inserting %s", item.ItemKind())
	}
	svc.invalidate(item.ItemKind())
	return item, nil
}

func (svc *Service) Get(ctx context.Context, kind Kind, id string) (Item, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	return svc.repo.GetItem(ctx, kind, id)
}

// List returns the items of the kind matching filter, ordered by name (or title) unless ordering is set.
func (svc *Service) List(ctx context.Context, kind Kind, filter Filter, ordering []core.DBOrdering) ([]Item, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if err := core.CheckOrdering(ordering, OrderingFields(kind)...); err != nil {
		return nil, err
	}
	if len(ordering) == 0 {
		ordering = defaultOrdering(kind)
	}
	filter.Clean()

	items, err := svc.repo.QueryItems(ctx, kind, filter.where(kind), ordering)
	if err != nil {
		return nil, errors.Wrapf(err, "querying %s", kind.Collection())
	}
	matched := items[:0]
	for _, it := range items {
		if filter.match(it) {
			matched = append(matched, it)
		}
	}
	return matched, nil
}

// Update validates item and replaces the stored item of the same kind and id.
func (svc *Service) Update(ctx context.Context, id string, item Item) (Item, error) {
	orig, err := svc.repo.GetItem(ctx, item.ItemKind(), id)
	if err != nil {
		return nil, err
	}
	if err := svc.Validate(ctx, item); err != nil {
		return nil, err
	}

	b := item.base()
	b.ID = id
	b.CreatedAt = orig.base().CreatedAt
	b.UpdatedAt = core.Now()

	if err := svc.repo.ReplaceItem(ctx, item); err != nil {
		return nil, errors.Wrapf(err, "replacing %s", item.ItemKind())
	}
	svc.invalidate(item.ItemKind())
	return item, nil
}

// Delete removes the items; it returns ErrNotFound when none of them existed.
func (svc *Service) Delete(ctx context.Context, kind Kind, ids ...string) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	n, err := svc.repo.DeleteItems(ctx, kind, ids...)
	if err != nil {
		return errors.Wrapf(err, "deleting %s", kind.Collection())
	}
	svc.invalidate(kind)
	if n == 0 && len(ids) > 0 {
		return ErrNotFound
	}
	return nil
}

// Import stores items with the IDs they already carry, replacing existing ones.
// References are checked after every item is stored, so items may reference each other.
func (svc *Service) Import(ctx context.Context, items ...Item) (int, error) {
	now := core.Now()
	for _, item := range items {
		item.clean()
		if err := svc.validate.Struct(item); err != nil {
			return 0, errors.Wrapf(err, "validating %s %q", item.ItemKind(), item.ItemID())
		}
		b := item.base()
		if b.ID == "" {
			b.ID = core.NewID()
		}
		b.UpdatedAt = now

		switch orig, err := svc.repo.GetItem(ctx, item.ItemKind(), b.ID); errors.Cause(err) {
		case nil:
			b.CreatedAt = orig.base().CreatedAt
			err = svc.repo.ReplaceItem(ctx, item)
			if err != nil {
				return 0, errors.Wrapf(err, "replacing %s %q", item.ItemKind(), b.ID)
			}
		case ErrNotFound:
			b.CreatedAt = now
			if err = svc.repo.InsertItem(ctx, item); err != nil {
				return 0, errors.Wrapf(err, "inserting %s %q", item.ItemKind(), b.ID)
			}
		default:
			return 0, errors.Wrapf(err, "finding %s %q", item.ItemKind(), b.ID)
		}
		svc.invalidate(item.ItemKind())
	}

	for _, item := range items {
		if err := svc.Validate(ctx, item); err != nil {
			return 0, errors.Wrapf(err, "checking %s %q", item.ItemKind(), item.ItemID())
		}
	}
	return len(items), nil
}

// All returns every item of the kind, sorted by ID. Results are cached until the kind is written to.
// The returned items are shared and must not be modified.
func (svc *Service) All(ctx context.Context, kind Kind) ([]Item, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if cached, ok := svc.cache.Get(string(kind)); ok {
		metrics.RecordCacheLookup(string(kind), true)
		return cached.([]Item), nil
	}
	metrics.RecordCacheLookup(string(kind), false)

	items, err := svc.repo.QueryItems(ctx, kind, nil, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "querying %s", kind.Collection())
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ItemID() < items[j].ItemID() })
	svc.cache.Set(string(kind), items, cache.DefaultExpiration)
	return items, nil
}

func (svc *Service) invalidate(kind Kind) {
	svc.cache.Delete(string(kind))
}

// Colleges returns copies of every college.
func (svc *Service) Colleges(ctx context.Context) ([]College, error) {
	items, err := svc.All(ctx, KindCollege)
	if err != nil {
		return nil, err
	}
	out := make([]College, 0, len(items))
	for _, it := range items {
		out = append(out, *it.(*College))
	}
	return out, nil
}

// Courses returns copies of every course.
func (svc *Service) Courses(ctx context.Context) ([]Course, error) {
	items, err := svc.All(ctx, KindCourse)
	if err != nil {
		return nil, err
	}
	out := make([]Course, 0, len(items))
	for _, it := range items {
		out = append(out, *it.(*Course))
	}
	return out, nil
}

// Careers returns copies of every career.
func (svc *Service) Careers(ctx context.Context) ([]Career, error) {
	items, err := svc.All(ctx, KindCareer)
	if err != nil {
		return nil, err
	}
	out := make([]Career, 0, len(items))
	for _, it := range items {
		out = append(out, *it.(*Career))
	}
	return out, nil
}

// Scholarships returns copies of every scholarship.
func (svc *Service) Scholarships(ctx context.Context) ([]Scholarship, error) {
	items, err := svc.All(ctx, KindScholarship)
	if err != nil {
		return nil, err
	}
	out := make([]Scholarship, 0, len(items))
	for _, it := range items {
		out = append(out, *it.(*Scholarship))
	}
	return out, nil
}
