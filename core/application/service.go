package application

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/catalog"
	"github.com/trezcool/njia/core/timeline"
	"github.com/trezcool/njia/core/user"
)

const statusTemplate = "application_status"

var (
	ErrNotFound = errors.New("application not found")

	errUnknownItem    = "item not found"
	errAlreadyApplied = "you already applied to this item"
)

type (
	Query struct {
		UserID   string
		ItemType catalog.Kind
		ItemID   string
		Status   string
	}

	Repository interface {
		CreateApplication(ctx context.Context, app Application) (Application, error)
		GetApplication(ctx context.Context, id string) (Application, error)
		// QueryApplications returns the applications matching every non-empty Query field, newest first.
		QueryApplications(ctx context.Context, q Query) ([]Application, error)
		UpdateApplication(ctx context.Context, app Application) (Application, error)
	}

	ItemFinder interface {
		Get(ctx context.Context, kind catalog.Kind, id string) (catalog.Item, error)
	}

	DeadlineScheduler interface {
		CreateDeadline(ctx context.Context, userID string, item catalog.Item, dueAt time.Time) (timeline.Event, error)
		Delete(ctx context.Context, userID, id string) error
	}

	UserFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	// StatusData is the template data of the status change email.
	StatusData struct {
		ItemName string
		Status   string
		Notes    string
	}

	Service struct {
		repo      Repository
		items     ItemFinder
		deadlines DeadlineScheduler
		users     UserFinder
		mailSvc   core.EmailService
		validate  *validator.Validate
		logger    core.Logger
	}
)

func NewService(
	repo Repository,
	items ItemFinder,
	deadlines DeadlineScheduler,
	users UserFinder,
	mailSvc core.EmailService,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		items:     items,
		deadlines: deadlines,
		users:     users,
		mailSvc:   mailSvc,
		validate:  validate,
		logger:    logger,
	}
}

// Create applies the user to an existing college, course or scholarship.
// A user has at most one active application per item.
// When the item has an upcoming deadline, it is added to the user's timeline.
func (svc *Service) Create(ctx context.Context, userID string, na NewApplication) (Application, error) {
	na.clean()
	if err := svc.validate.Struct(na); err != nil {
		return Application{}, err
	}

	kind := catalog.Kind(na.ItemType)
	item, err := svc.items.Get(ctx, kind, na.ItemID)
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return Application{}, core.NewFieldError("item_id", errUnknownItem)
		}
		return Application{}, errors.Wrap(err, "finding item")
	}

	existing, err := svc.repo.QueryApplications(ctx, Query{UserID: userID, ItemType: kind, ItemID: na.ItemID})
	if err != nil {
		return Application{}, errors.Wrap(err, "querying applications")
	}
	for _, app := range existing {
		if app.IsActive() {
			return Application{}, core.NewFieldError("item_id", errAlreadyApplied)
		}
	}

	now := core.Now()
	app := Application{
		ID:        core.NewID(),
		UserID:    userID,
		ItemType:  kind,
		ItemID:    item.ItemID(),
		ItemName:  item.ItemName(),
		Status:    StatusApplied,
		Notes:     na.Notes,
		History:   []StatusChange{{To: StatusApplied, ChangedBy: userID, At: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	// deadline first: a stored application always has its event
	var deadline *timeline.Event
	if dl := catalog.Deadline(item); dl.Valid && dl.Time.After(now) {
		ev, err := svc.deadlines.CreateDeadline(ctx, userID, item, dl.Time)
		if err != nil {
			return Application{}, errors.Wrap(err, "creating deadline event")
		}
		deadline = &ev
	}

	app, err = svc.repo.CreateApplication(ctx, app)
	if err != nil {
		if deadline != nil {
			if dErr := svc.deadlines.Delete(ctx, userID, deadline.ID); dErr != nil {
				svc.logger.Error("application.Create: removing deadline event", dErr)
			}
		}
		return Application{}, errors.Wrap(err, "creating application")
	}
	return app, nil
}

// List returns the user's applications, newest first.
func (svc *Service) List(ctx context.Context, userID string) ([]Application, error) {
	return svc.repo.QueryApplications(ctx, Query{UserID: userID})
}

// ListAll returns every application matching filter, newest first.
func (svc *Service) ListAll(ctx context.Context, filter QueryFilter) ([]Application, error) {
	filter.Clean()
	if err := svc.validate.Struct(filter); err != nil {
		return nil, err
	}
	return svc.repo.QueryApplications(ctx, Query{ItemType: catalog.Kind(filter.ItemType), Status: filter.Status})
}

// Get returns an application; students may only get their own.
func (svc *Service) Get(ctx context.Context, caller user.User, id string) (Application, error) {
	app, err := svc.repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if app.UserID != caller.ID && !caller.IsAdmin() {
		return Application{}, core.NewPermissionError("you cannot access this application")
	}
	return app, nil
}

// Withdraw lets a student withdraw one of their pending applications.
func (svc *Service) Withdraw(ctx context.Context, userID, id string) (Application, error) {
	app, err := svc.repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if app.UserID != userID {
		return Application{}, core.NewPermissionError("you cannot withdraw this application")
	}
	return svc.transition(ctx, app, userID, StatusWithdrawn, "")
}

// SetStatus records an administrator's decision and emails the applicant.
func (svc *Service) SetStatus(ctx context.Context, admin user.User, id string, su StatusUpdate) (Application, error) {
	su.clean()
	if err := svc.validate.Struct(su); err != nil {
		return Application{}, err
	}
	app, err := svc.repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, err
	}
	app, err = svc.transition(ctx, app, admin.ID, su.Status, su.Notes)
	if err != nil {
		return Application{}, err
	}
	svc.notify(ctx, app, su.Notes)
	return app, nil
}

func (svc *Service) transition(ctx context.Context, app Application, by, to, notes string) (Application, error) {
	if !CanTransition(app.Status, to) {
		return Application{}, core.NewFieldError(
			"status", fmt.Sprintf("cannot change status from %s to %s", app.Status, to))
	}
	now := core.Now()
	app.History = append(app.History, StatusChange{From: app.Status, To: to, ChangedBy: by, Notes: notes, At: now})
	app.Status = to
	app.UpdatedAt = now
	return svc.repo.UpdateApplication(ctx, app)
}

func (svc *Service) notify(ctx context.Context, app Application, notes string) {
	usr, err := svc.users.GetByID(ctx, app.UserID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("application.notify(%s): %v", app.ID, err), err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your application to " + app.ItemName,
		TemplateName: statusTemplate,
		TemplateData: StatusData{ItemName: app.ItemName, Status: app.Status, Notes: notes},
	})
}

// CountByStatus counts the user's applications per status.
func CountByStatus(apps []Application) map[string]int {
	counts := make(map[string]int, len(Statuses))
	for _, app := range apps {
		counts[app.Status]++
	}
	return counts
}
