package docrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/timeline"
)

type timelineRepository struct {
	store core.DocumentStore
}

var _ timeline.Repository = (*timelineRepository)(nil)

func NewTimelineRepository(store core.DocumentStore) timeline.Repository {
	return &timelineRepository{store: store}
}

var soonestFirst = []core.DBOrdering{{Field: "due_at", Ascending: true}}

func (repo *timelineRepository) CreateEvent(ctx context.Context, ev timeline.Event) (timeline.Event, error) {
	if err := repo.store.Insert(ctx, eventsCollection, ev.ID, ev); err != nil {
		return timeline.Event{}, errors.Wrap(err, "inserting timeline event")
	}
	return ev, nil
}

func (repo *timelineRepository) GetEvent(ctx context.Context, id string) (timeline.Event, error) {
	var ev timeline.Event
	if err := repo.store.Get(ctx, eventsCollection, id, &ev); err != nil {
		return timeline.Event{}, mapNotFound(err, timeline.ErrNotFound)
	}
	return ev, nil
}

func (repo *timelineRepository) QueryEvents(ctx context.Context, userID string, completed *bool) ([]timeline.Event, error) {
	q := core.DocQuery{
		Where:   []core.DocFilter{core.Eq("user_id", userID)},
		OrderBy: soonestFirst,
	}
	if completed != nil {
		q.Where = append(q.Where, core.Eq("completed", *completed))
	}
	return repo.query(ctx, q)
}

func (repo *timelineRepository) QueryUnreminded(ctx context.Context) ([]timeline.Event, error) {
	return repo.query(ctx, core.DocQuery{
		Where:   []core.DocFilter{core.Eq("completed", false), core.Eq("reminded_at", nil)},
		OrderBy: soonestFirst,
	})
}

func (repo *timelineRepository) query(ctx context.Context, q core.DocQuery) ([]timeline.Event, error) {
	var events []timeline.Event
	if err := repo.store.Query(ctx, eventsCollection, q, &events); err != nil {
		return nil, errors.Wrap(err, "querying timeline events")
	}
	return events, nil
}

func (repo *timelineRepository) UpdateEvent(ctx context.Context, ev timeline.Event) (timeline.Event, error) {
	if err := repo.store.Replace(ctx, eventsCollection, ev.ID, ev); err != nil {
		return timeline.Event{}, mapNotFound(err, timeline.ErrNotFound)
	}
	return ev, nil
}

func (repo *timelineRepository) DeleteEvent(ctx context.Context, id string) error {
	n, err := repo.store.Delete(ctx, eventsCollection, id)
	if err != nil {
		return errors.Wrap(err, "deleting timeline event")
	}
	if n == 0 {
		return timeline.ErrNotFound
	}
	return nil
}
