package docrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/quiz"
)

type quizRepository struct {
	store core.DocumentStore
}

var _ quiz.Repository = (*quizRepository)(nil)

func NewQuizRepository(store core.DocumentStore) quiz.Repository {
	return &quizRepository{store: store}
}

func (repo *quizRepository) CreateResult(ctx context.Context, res quiz.Result) (quiz.Result, error) {
	if err := repo.store.Insert(ctx, quizResultsCollection, res.ID, res); err != nil {
		return quiz.Result{}, errors.Wrap(err, "inserting quiz result")
	}
	return res, nil
}

func (repo *quizRepository) QueryResults(ctx context.Context, userID string, limit int) ([]quiz.Result, error) {
	q := core.DocQuery{
		Where:   []core.DocFilter{core.Eq("user_id", userID)},
		OrderBy: newestFirst,
		Limit:   limit,
	}
	results := make([]quiz.Result, 0)
	if err := repo.store.Query(ctx, quizResultsCollection, q, &results); err != nil {
		return nil, errors.Wrap(err, "querying quiz results")
	}
	return results, nil
}
