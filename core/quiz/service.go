package quiz

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/user"
	"github.com/trezcool/njia/services/metrics"
)

var (
	ErrNoResult = errors.New("quiz result not found")

	errUnknownQuestion  = "unknown question"
	errUnknownOption    = "unknown option"
	errSingleChoice     = "exactly one option must be selected"
	errNoOptionSelected = "at least one option must be selected"
	errMissingAnswer    = "this question must be answered"
)

type (
	// Result is a scored quiz submission.
	Result struct {
		ID        string        `json:"id"`
		UserID    string        `json:"user_id"`
		Answers   Answers       `json:"answers"`
		Scores    Scores        `json:"scores"`
		Ranked    []StreamScore `json:"ranked"`
		Fields    []string      `json:"fields"`
		CreatedAt time.Time     `json:"created_at"` // UTC
	}

	Submission struct {
		Answers Answers `json:"answers"`
	}

	Repository interface {
		CreateResult(ctx context.Context, res Result) (Result, error)
		// QueryResults returns the user's results, newest first. limit 0 returns all of them.
		QueryResults(ctx context.Context, userID string, limit int) ([]Result, error)
	}

	// ProfileWriter records a quiz outcome on a user profile.
	ProfileWriter interface {
		SetStreams(ctx context.Context, userID string, ranked, fields []string) (user.User, error)
	}

	Service struct {
		bank         *Bank
		repo         Repository
		users        ProfileWriter
		topStreams   int
		allowPartial bool
	}
)

func NewService(bank *Bank, repo Repository, users ProfileWriter, conf core.QuizConfig) *Service {
	return &Service{
		bank:         bank,
		repo:         repo,
		users:        users,
		topStreams:   conf.TopStreams,
		allowPartial: conf.AllowPartial,
	}
}

func (svc *Service) Bank() *Bank {
	return svc.bank
}

// Questions returns the questions in bank order.
func (svc *Service) Questions() []Question {
	return svc.bank.Questions
}

// Validate checks a submission against the bank and cleans its option IDs.
// Errors are keyed `answers.<question id>`.
func (sub *Submission) Validate(bank *Bank, allowPartial bool) error {
	var flds []core.FieldError
	cleaned := make(Answers, len(sub.Answers))

	for qID, optIDs := range sub.Answers {
		fld := "answers." + qID
		q, ok := bank.Question(qID)
		if !ok {
			flds = append(flds, core.FieldError{Field: fld, Error: errUnknownQuestion})
			continue
		}
		optIDs = core.CleanStrings(optIDs)
		switch {
		case len(optIDs) == 0:
			flds = append(flds, core.FieldError{Field: fld, Error: errNoOptionSelected})
			continue
		case !q.Multiple && len(optIDs) > 1:
			flds = append(flds, core.FieldError{Field: fld, Error: errSingleChoice})
			continue
		}
		for _, optID := range optIDs {
			if _, ok := q.Option(optID); !ok {
				flds = append(flds, core.FieldError{Field: fld, Error: errUnknownOption})
				break
			}
		}
		cleaned[qID] = optIDs
	}

	if !allowPartial {
		for _, q := range bank.Questions {
			if _, ok := sub.Answers[q.ID]; !ok {
				flds = append(flds, core.FieldError{Field: "answers." + q.ID, Error: errMissingAnswer})
			}
		}
	}
	if len(sub.Answers) == 0 && len(flds) == 0 {
		flds = append(flds, core.FieldError{Field: "answers", Error: "this field is required"})
	}

	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	sub.Answers = cleaned
	return nil
}

// Submit scores a submission, stores the result and records the top streams on the user's profile.
func (svc *Service) Submit(ctx context.Context, userID string, sub Submission) (Result, error) {
	if err := sub.Validate(svc.bank, svc.allowPartial); err != nil {
		return Result{}, err
	}

	scores := Score(svc.bank, sub.Answers)
	ranked := Rank(scores, svc.topStreams)
	res := Result{
		ID:        core.NewID(),
		UserID:    userID,
		Answers:   sub.Answers,
		Scores:    scores,
		Ranked:    ranked,
		Fields:    svc.bank.FieldsFor(ranked),
		CreatedAt: core.Now(),
	}

	res, err := svc.repo.CreateResult(ctx, res)
	if err != nil {
		return Result{}, errors.Wrap(err, "creating quiz result")
	}
	if _, err := svc.users.SetStreams(ctx, userID, Keys(ranked), res.Fields); err != nil {
		return Result{}, errors.Wrap(err, "setting user streams")
	}

	var primary string
	if len(ranked) > 0 {
		primary = ranked[0].Stream
	}
	metrics.RecordQuizSubmission(primary)
	return res, nil
}

// Results returns the user's results, newest first.
func (svc *Service) Results(ctx context.Context, userID string) ([]Result, error) {
	return svc.repo.QueryResults(ctx, userID, 0)
}

// Latest returns the user's newest result, or ErrNoResult.
func (svc *Service) Latest(ctx context.Context, userID string) (Result, error) {
	results, err := svc.repo.QueryResults(ctx, userID, 1)
	if err != nil {
		return Result{}, err
	}
	if len(results) == 0 {
		return Result{}, ErrNoResult
	}
	return results[0], nil
}
