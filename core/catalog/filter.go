package catalog

import (
	"strings"

	"github.com/trezcool/njia/core"
)

// Filter narrows a catalog listing. Parameters a kind has no field for are ignored.
type Filter struct {
	Search  string `query:"search"`
	Stream  string `query:"stream"`
	Field   string `query:"field"`
	City    string `query:"city"`
	State   string `query:"state"`
	Type    string `query:"type"`
	Level   string `query:"level"`
	Kind    string `query:"kind"`
	Outlook string `query:"outlook"`
}

func (f *Filter) Clean() {
	f.Search = core.CleanString(f.Search, true /* lower */)
	f.Stream = core.CleanString(f.Stream, true /* lower */)
	f.Field = core.CleanString(f.Field, true /* lower */)
	f.City = core.CleanString(f.City)
	f.State = core.CleanString(f.State)
	f.Type = core.CleanString(f.Type, true /* lower */)
	f.Level = core.CleanString(f.Level, true /* lower */)
	f.Kind = core.CleanString(f.Kind, true /* lower */)
	f.Outlook = core.CleanString(f.Outlook, true /* lower */)
}

// where returns the filters the document store can apply for the kind.
func (f Filter) where(kind Kind) []core.DocFilter {
	var w []core.DocFilter
	add := func(field, value string) {
		if value != "" {
			w = append(w, core.Eq(field, value))
		}
	}

	switch kind {
	case KindCollege:
		if f.Stream != "" {
			w = append(w, core.Contains("streams", f.Stream))
		}
		add("type", f.Type)
	case KindCourse:
		add("stream", f.Stream)
		add("field", f.Field)
		add("level", f.Level)
	case KindCareer:
		add("stream", f.Stream)
		add("field", f.Field)
		add("outlook", f.Outlook)
	case KindResource:
		add("stream", f.Stream)
		add("field", f.Field)
		add("kind", f.Kind)
	}
	return w
}

// match applies what the document store cannot: substring search,
// case-insensitive location and open-to-all scholarship streams.
func (f Filter) match(item Item) bool {
	if f.Search != "" && !strings.Contains(item.searchText(), f.Search) {
		return false
	}
	switch it := item.(type) {
	case *College:
		if f.City != "" && !strings.EqualFold(it.City, f.City) {
			return false
		}
		if f.State != "" && !strings.EqualFold(it.State, f.State) {
			return false
		}
	case *Scholarship:
		if f.Stream != "" && !it.OpenTo(f.Stream) {
			return false
		}
	}
	return true
}

// OrderingFields returns the fields items of the kind may be ordered by.
func OrderingFields(kind Kind) []string {
	common := []string{"created_at", "updated_at"}
	switch kind {
	case KindCollege:
		return append(common, "name", "city", "state", "rating", "annual_fees", "application_deadline")
	case KindCourse:
		return append(common, "name", "stream", "level", "duration_years", "min_percentage")
	case KindCareer:
		return append(common, "title", "stream", "average_salary")
	case KindScholarship:
		return append(common, "name", "amount", "deadline", "min_percentage")
	case KindResource:
		return append(common, "title", "kind", "stream")
	}
	return common
}

// defaultOrdering sorts by name, or title for careers and resources.
func defaultOrdering(kind Kind) []core.DBOrdering {
	switch kind {
	case KindCareer, KindResource:
		return []core.DBOrdering{{Field: "title", Ascending: true}}
	}
	return []core.DBOrdering{{Field: "name", Ascending: true}}
}
