package recommend

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/catalog"
	"github.com/trezcool/njia/core/user"
	"github.com/trezcool/njia/services/metrics"
)

type (
	Recommendation struct {
		Kind    catalog.Kind `json:"kind"`
		ItemID  string       `json:"item_id"`
		Name    string       `json:"name"`
		Score   int          `json:"score"` // 0 - 100
		Reasons []string     `json:"reasons"`
		Item    catalog.Item `json:"item"`
	}

	Catalog interface {
		Colleges(ctx context.Context) ([]catalog.College, error)
		Courses(ctx context.Context) ([]catalog.Course, error)
		Careers(ctx context.Context) ([]catalog.Career, error)
		Scholarships(ctx context.Context) ([]catalog.Scholarship, error)
	}

	Service struct {
		catalog      Catalog
		defaultLimit int
		maxLimit     int
	}
)

func NewService(cat Catalog, conf core.RecommendConfig) *Service {
	svc := &Service{catalog: cat, defaultLimit: conf.DefaultLimit, maxLimit: conf.MaxLimit}
	if svc.defaultLimit <= 0 {
		svc.defaultLimit = 10
	}
	if svc.maxLimit < svc.defaultLimit {
		svc.maxLimit = svc.defaultLimit
	}
	return svc
}

// Limit clamps a requested limit: 0 or less gives the default, the maximum caps it.
func (svc *Service) Limit(limit int) int {
	switch {
	case limit <= 0:
		return svc.defaultLimit
	case limit > svc.maxLimit:
		return svc.maxLimit
	}
	return limit
}

// Recommend ranks the catalog items of a kind for a profile, best first.
// Ties are broken by name, then by item ID.
func (svc *Service) Recommend(ctx context.Context, p user.Profile, kind catalog.Kind, limit int) ([]Recommendation, error) {
	var (
		recs []Recommendation
		err  error
	)
	switch kind {
	case catalog.KindCollege:
		recs, err = svc.colleges(ctx, p)
	case catalog.KindCourse:
		recs, err = svc.courses(ctx, p)
	case catalog.KindCareer:
		recs, err = svc.careers(ctx, p)
	case catalog.KindScholarship:
		recs, err = svc.scholarships(ctx, p)
	default:
		return nil, catalog.ErrInvalidKind
	}
	if err != nil {
		return nil, errors.Wrapf(err, "recommending %s", kind.Collection())
	}

	Sort(recs)
	if limit = svc.Limit(limit); len(recs) > limit {
		recs = recs[:limit]
	}
	metrics.RecordRecommendations(string(kind))
	return recs, nil
}

// Sort orders recommendations by score descending, then name, then item ID.
func Sort(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ItemID < b.ItemID
	})
}

func newRecommendation(item catalog.Item, s scored) Recommendation {
	reasons := s.reasons
	if reasons == nil {
		reasons = []string{}
	}
	return Recommendation{
		Kind:    item.ItemKind(),
		ItemID:  item.ItemID(),
		Name:    item.ItemName(),
		Score:   s.total(),
		Reasons: reasons,
		Item:    item,
	}
}

func (svc *Service) colleges(ctx context.Context, p user.Profile) ([]Recommendation, error) {
	colleges, err := svc.catalog.Colleges(ctx)
	if err != nil {
		return nil, err
	}
	recs := make([]Recommendation, 0, len(colleges))
	for i := range colleges {
		c := &colleges[i]
		recs = append(recs, newRecommendation(c, scoreCollege(p, c)))
	}
	return recs, nil
}

func (svc *Service) courses(ctx context.Context, p user.Profile) ([]Recommendation, error) {
	courses, err := svc.catalog.Courses(ctx)
	if err != nil {
		return nil, err
	}
	recs := make([]Recommendation, 0, len(courses))
	for i := range courses {
		c := &courses[i]
		recs = append(recs, newRecommendation(c, scoreCourse(p, c)))
	}
	return recs, nil
}

func (svc *Service) careers(ctx context.Context, p user.Profile) ([]Recommendation, error) {
	careers, err := svc.catalog.Careers(ctx)
	if err != nil {
		return nil, err
	}
	recs := make([]Recommendation, 0, len(careers))
	for i := range careers {
		c := &careers[i]
		recs = append(recs, newRecommendation(c, scoreCareer(p, c)))
	}
	return recs, nil
}

// scholarships skips the ones whose deadline passed.
func (svc *Service) scholarships(ctx context.Context, p user.Profile) ([]Recommendation, error) {
	all, err := svc.catalog.Scholarships(ctx)
	if err != nil {
		return nil, err
	}
	now := core.Now()
	open := all[:0]
	var maxAmount int64
	for _, sc := range all {
		if sc.Expired(now) {
			continue
		}
		if sc.Amount > maxAmount {
			maxAmount = sc.Amount
		}
		open = append(open, sc)
	}

	recs := make([]Recommendation, 0, len(open))
	for i := range open {
		sc := &open[i]
		recs = append(recs, newRecommendation(sc, scoreScholarship(p, sc, maxAmount)))
	}
	return recs, nil
}
