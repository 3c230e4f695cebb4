package core

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// field paths are snake_case JSON keys, optionally dotted for nested values: "location.state"
var fieldPathRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)*$`)

var ErrInvalidField = errors.New("invalid field path")

type FilterOp string

const (
	OpEqual    FilterOp = "eq"       // field == value
	OpContains FilterOp = "contains" // array field holds value
)

type DocFilter struct {
	Field string
	Op    FilterOp
	Value interface{}
}

// Eq is shorthand for an equality DocFilter.
func Eq(field string, value interface{}) DocFilter {
	return DocFilter{Field: field, Op: OpEqual, Value: value}
}

// Contains is shorthand for an array-membership DocFilter.
func Contains(field string, value interface{}) DocFilter {
	return DocFilter{Field: field, Op: OpContains, Value: value}
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// DocQuery selects documents of a collection.
// Filters are ANDed. Results are ordered by OrderBy, then by document ID ascending.
type DocQuery struct {
	Where   []DocFilter
	OrderBy []DBOrdering
	Limit   int // 0 = no limit
}

// Validate checks every field path used by the query.
func (q DocQuery) Validate() error {
	for _, f := range q.Where {
		if err := ValidateFieldPath(f.Field); err != nil {
			return err
		}
		if f.Op != OpEqual && f.Op != OpContains {
			return errors.Errorf("invalid filter operator %q", f.Op)
		}
	}
	for _, o := range q.OrderBy {
		if err := ValidateFieldPath(o.Field); err != nil {
			return err
		}
	}
	return nil
}

func ValidateFieldPath(path string) error {
	if !fieldPathRegex.MatchString(path) {
		return errors.Wrapf(ErrInvalidField, "%q", path)
	}
	return nil
}

// SplitFieldPath splits a dotted field path into its segments.
func SplitFieldPath(path string) []string {
	return strings.Split(path, ".")
}

// DocumentStore is the document database the app persists to:
// collection/document CRUD with equality queries and ordering.
// Documents are any JSON-serializable values; IDs are chosen by the caller.
type DocumentStore interface {
	// Insert stores a new document; it fails if the ID is already taken.
	Insert(ctx context.Context, collection, id string, doc interface{}) error
	// Get decodes the document into dst, or returns ErrNotFound.
	Get(ctx context.Context, collection, id string, dst interface{}) error
	// Replace overwrites an existing document, or returns ErrNotFound.
	Replace(ctx context.Context, collection, id string, doc interface{}) error
	// Delete removes the documents and returns how many existed.
	Delete(ctx context.Context, collection string, ids ...string) (int, error)
	// Query decodes matching documents into dst, which must be a pointer to a slice.
	Query(ctx context.Context, collection string, q DocQuery, dst interface{}) error
	Close() error
}

// CheckOrdering returns a ValidationError on the `ordering` param if any field is not allowed.
func CheckOrdering(orderings []DBOrdering, allowed ...string) error {
outer:
	for _, ord := range orderings {
		for _, fld := range allowed {
			if ord.Field == fld {
				continue outer
			}
		}
		return NewFieldError("ordering", "cannot order by "+strconv.Quote(ord.Field))
	}
	return nil
}
