package timeline

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/user"
	"github.com/trezcool/njia/services/metrics"
)

const reminderTemplate = "deadline_reminder"

type (
	UserFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	// ReminderData is the template data of the deadline reminder email.
	ReminderData struct {
		Title       string
		Description string
		DueAt       time.Time
	}

	// Reminder emails users about their events that fall due soon. It runs as a supervised service.
	Reminder struct {
		repo     Repository
		users    UserFinder
		mailSvc  core.EmailService
		logger   core.Logger
		interval time.Duration
		window   time.Duration
	}
)

func NewReminder(repo Repository, users UserFinder, mailSvc core.EmailService, logger core.Logger, conf core.ReminderConfig) *Reminder {
	interval := conf.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Reminder{
		repo:     repo,
		users:    users,
		mailSvc:  mailSvc,
		logger:   logger,
		interval: interval,
		window:   conf.Window,
	}
}

// Serve runs a reminder pass every interval until ctx is cancelled.
func (r *Reminder) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error(fmt.Sprintf("timeline.Reminder: %v", err), err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Reminder) String() string { return "timeline.Reminder" }

// RunOnce emails the owners of incomplete events due between now and now+window
// that were never reminded, then marks them reminded. It returns how many events were reminded.
func (r *Reminder) RunOnce(ctx context.Context) (int, error) {
	now := core.Now()
	cutoff := now.Add(r.window)

	events, err := r.repo.QueryUnreminded(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying unreminded events")
	}

	var sent int
	for _, ev := range events {
		if ev.DueAt.After(cutoff) {
			break // sorted by due date
		}
		if ev.DueAt.Before(now) {
			continue
		}

		usr, err := r.users.GetByID(ctx, ev.UserID)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				continue
			}
			return sent, errors.Wrap(err, "finding event owner")
		}
		if !usr.IsActive {
			continue
		}

		// the owner may have edited the event since the query
		cur, err := r.repo.GetEvent(ctx, ev.ID)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				continue
			}
			return sent, errors.Wrap(err, "reloading event")
		}
		if cur.Completed || cur.RemindedAt.Valid || !cur.DueAt.Equal(ev.DueAt) {
			continue
		}
		ev = cur

		r.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "Upcoming: " + ev.Title,
			TemplateName: reminderTemplate,
			TemplateData: ReminderData{Title: ev.Title, Description: ev.Description, DueAt: ev.DueAt},
		})

		ev.RemindedAt = null.TimeFrom(now)
		if _, err := r.repo.UpdateEvent(ctx, ev); err != nil {
			return sent, errors.Wrap(err, "marking event reminded")
		}
		metrics.RecordReminderSent()
		sent++
	}
	return sent, nil
}
