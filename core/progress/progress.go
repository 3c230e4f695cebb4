// Package progress summarizes how far a student went through the guidance journey.
package progress

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/application"
	"github.com/trezcool/njia/core/bookmark"
	"github.com/trezcool/njia/core/quiz"
	"github.com/trezcool/njia/core/timeline"
)

type (
	Summary struct {
		QuizCompleted     bool            `json:"quiz_completed"`
		PrimaryStream     string          `json:"primary_stream"`
		Bookmarks         int             `json:"bookmarks"`
		Applications      map[string]int  `json:"applications"` // per status
		EventsTotal       int             `json:"events_total"`
		EventsCompleted   int             `json:"events_completed"`
		NextDeadline      *timeline.Event `json:"next_deadline"`
		CompletionPercent int             `json:"completion_percent"`
	}

	QuizResults interface {
		Latest(ctx context.Context, userID string) (quiz.Result, error)
	}
	Bookmarks interface {
		List(ctx context.Context, userID, itemType string) ([]bookmark.Bookmark, error)
	}
	Applications interface {
		List(ctx context.Context, userID string) ([]application.Application, error)
	}
	Events interface {
		List(ctx context.Context, userID string, completed *bool) ([]timeline.Event, error)
	}

	Service struct {
		quiz         QuizResults
		bookmarks    Bookmarks
		applications Applications
		events       Events
	}
)

func NewService(qz QuizResults, bms Bookmarks, apps Applications, events Events) *Service {
	return &Service{quiz: qz, bookmarks: bms, applications: apps, events: events}
}

func (svc *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	var sum Summary

	res, err := svc.quiz.Latest(ctx, userID)
	switch errors.Cause(err) {
	case nil:
		sum.QuizCompleted = true
		if len(res.Ranked) > 0 {
			sum.PrimaryStream = res.Ranked[0].Stream
		}
	case quiz.ErrNoResult:
	default:
		return Summary{}, errors.Wrap(err, "finding latest quiz result")
	}

	bms, err := svc.bookmarks.List(ctx, userID, "")
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing bookmarks")
	}
	sum.Bookmarks = len(bms)

	apps, err := svc.applications.List(ctx, userID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing applications")
	}
	sum.Applications = application.CountByStatus(apps)

	events, err := svc.events.List(ctx, userID, nil)
	if err != nil {
		return Summary{}, errors.Wrap(err, "listing timeline events")
	}
	now := core.Now()
	sum.EventsTotal = len(events)
	for i, ev := range events {
		if ev.Completed {
			sum.EventsCompleted++
			continue
		}
		// events are sorted by due date
		if sum.NextDeadline == nil && ev.Kind == timeline.KindDeadline && !ev.DueAt.Before(now) {
			sum.NextDeadline = &events[i]
		}
	}

	sum.CompletionPercent = completion(sum.QuizCompleted, sum.Bookmarks > 0, len(apps) > 0, sum.EventsCompleted, sum.EventsTotal)
	return sum, nil
}

// completion weighs four steps equally: taking the quiz, bookmarking, applying and completing timeline events.
func completion(quizDone, bookmarked, applied bool, eventsDone, eventsTotal int) int {
	var steps float64
	for _, done := range []bool{quizDone, bookmarked, applied} {
		if done {
			steps++
		}
	}
	if eventsTotal > 0 {
		steps += float64(eventsDone) / float64(eventsTotal)
	}
	return int(math.Round(100 * steps / 4))
}
