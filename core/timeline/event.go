package timeline

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/catalog"
)

// Event kinds
const (
	KindDeadline  = "deadline"
	KindReminder  = "reminder"
	KindMilestone = "milestone"
)

var ErrNotFound = errors.New("timeline event not found")

type (
	Event struct {
		ID          string       `json:"id"`
		UserID      string       `json:"user_id"`
		Title       string       `json:"title"`
		Description string       `json:"description"`
		Kind        string       `json:"kind"`
		DueAt       time.Time    `json:"due_at"` // UTC
		Completed   bool         `json:"completed"`
		CompletedAt null.Time    `json:"completed_at"`
		RemindedAt  null.Time    `json:"reminded_at"`
		ItemType    catalog.Kind `json:"item_type,omitempty"`
		ItemID      string       `json:"item_id,omitempty"`
		CreatedAt   time.Time    `json:"created_at"` // UTC
		UpdatedAt   time.Time    `json:"updated_at"` // UTC
	}

	// NewEvent is also used for updates: it holds every field the owner may edit.
	NewEvent struct {
		Title       string    `json:"title" validate:"required,notblank,max=200"`
		Description string    `json:"description" validate:"max=2000"`
		Kind        string    `json:"kind" validate:"required,oneof=deadline reminder milestone"`
		DueAt       time.Time `json:"due_at" validate:"required"`
	}

	Repository interface {
		CreateEvent(ctx context.Context, ev Event) (Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		// QueryEvents returns the user's events by due date, soonest first.
		// A nil completed lists every event.
		QueryEvents(ctx context.Context, userID string, completed *bool) ([]Event, error)
		// QueryUnreminded returns the incomplete events of every user that were never reminded,
		// by due date, soonest first.
		QueryUnreminded(ctx context.Context) ([]Event, error)
		UpdateEvent(ctx context.Context, ev Event) (Event, error)
		DeleteEvent(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (ne *NewEvent) clean() {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.Kind = core.CleanString(ne.Kind, true /* lower */)
	ne.DueAt = core.NormalizeTime(ne.DueAt)
}

// Create adds an event to the user's timeline.
func (svc *Service) Create(ctx context.Context, userID string, ne NewEvent) (Event, error) {
	ne.clean()
	if err := svc.validate.Struct(ne); err != nil {
		return Event{}, err
	}
	now := core.Now()
	return svc.repo.CreateEvent(ctx, Event{
		ID:          core.NewID(),
		UserID:      userID,
		Title:       ne.Title,
		Description: ne.Description,
		Kind:        ne.Kind,
		DueAt:       ne.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// CreateDeadline adds the application deadline of a catalog item to the user's timeline.
func (svc *Service) CreateDeadline(ctx context.Context, userID string, item catalog.Item, dueAt time.Time) (Event, error) {
	now := core.Now()
	return svc.repo.CreateEvent(ctx, Event{
		ID:          core.NewID(),
		UserID:      userID,
		Title:       "Application deadline: " + item.ItemName(),
		Description: "Deadline for your " + string(item.ItemKind()) + " application.",
		Kind:        KindDeadline,
		DueAt:       core.NormalizeTime(dueAt),
		ItemType:    item.ItemKind(),
		ItemID:      item.ItemID(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// List returns the user's events, soonest first. A nil completed lists every event.
func (svc *Service) List(ctx context.Context, userID string, completed *bool) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, userID, completed)
}

// Get returns one of the user's events.
func (svc *Service) Get(ctx context.Context, userID, id string) (Event, error) {
	ev, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if ev.UserID != userID {
		return Event{}, core.NewPermissionError("you cannot access this event")
	}
	return ev, nil
}

// Update replaces the editable fields of one of the user's events.
// Moving the due date makes the event eligible for a new reminder.
func (svc *Service) Update(ctx context.Context, userID, id string, ne NewEvent) (Event, error) {
	ev, err := svc.Get(ctx, userID, id)
	if err != nil {
		return Event{}, err
	}
	ne.clean()
	if err := svc.validate.Struct(ne); err != nil {
		return Event{}, err
	}
	if !ne.DueAt.Equal(ev.DueAt) {
		ev.RemindedAt = null.Time{}
	}
	ev.Title = ne.Title
	ev.Description = ne.Description
	ev.Kind = ne.Kind
	ev.DueAt = ne.DueAt
	ev.UpdatedAt = core.Now()
	return svc.repo.UpdateEvent(ctx, ev)
}

// SetCompleted marks one of the user's events as completed or not.
func (svc *Service) SetCompleted(ctx context.Context, userID, id string, completed bool) (Event, error) {
	ev, err := svc.Get(ctx, userID, id)
	if err != nil {
		return Event{}, err
	}
	if ev.Completed == completed {
		return ev, nil
	}

	now := core.Now()
	ev.Completed = completed
	ev.CompletedAt = null.Time{}
	if completed {
		ev.CompletedAt = null.TimeFrom(now)
	}
	ev.UpdatedAt = now
	return svc.repo.UpdateEvent(ctx, ev)
}

// Delete removes one of the user's events.
func (svc *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := svc.Get(ctx, userID, id); err != nil {
		return err
	}
	return svc.repo.DeleteEvent(ctx, id)
}
