package docstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
)

// unique_violation
const pqUniqueViolation = "23505"

// PostgresStore keeps every collection in the `documents` table, one jsonb row per document.
type PostgresStore struct {
	db *sqlx.DB
}

var _ core.DocumentStore = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: sqlx.NewDb(db, "postgres")}
}

func (s *PostgresStore) Insert(ctx context.Context, collection, id string, doc interface{}) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`,
		collection, id, string(data),
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
		return errors.Wrapf(ErrDuplicateID, "%s/%s", collection, id)
	}
	return errors.Wrapf(err, "inserting %s/%s", collection, id)
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string, dst interface{}) error {
	var data []byte
	err := s.db.GetContext(ctx, &data, `SELECT data FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.ErrNotFound
		}
		return errors.Wrapf(err, "selecting %s/%s", collection, id)
	}
	return decode(data, dst)
}

func (s *PostgresStore) Replace(ctx context.Context, collection, id string, doc interface{}) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET data = $3::jsonb, updated_at = now() WHERE collection = $1 AND id = $2`,
		collection, id, string(data),
	)
	if err != nil {
		return errors.Wrapf(err, "updating %s/%s", collection, id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting updated rows")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection string, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = ANY($2)`,
		collection, pq.Array(ids),
	)
	if err != nil {
		return 0, errors.Wrapf(err, "deleting from %s", collection)
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "counting deleted rows")
}

func (s *PostgresStore) Query(ctx context.Context, collection string, q core.DocQuery, dst interface{}) error {
	query, args, err := buildQuery(collection, q)
	if err != nil {
		return err
	}
	var docs [][]byte
	if err = s.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return errors.Wrapf(err, "querying %s", collection)
	}
	return decodeAll(docs, dst)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// buildQuery translates a DocQuery to SQL.
// Equality and array membership become jsonb containment (`@>`), so the GIN index serves them.
// Orderings sort by the jsonb value at the field path, nulls first when ascending, then by id.
func buildQuery(collection string, q core.DocQuery) (string, []interface{}, error) {
	q, err := normalizeQuery(q)
	if err != nil {
		return "", nil, err
	}

	args := []interface{}{collection}
	param := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	var sb strings.Builder
	sb.WriteString("SELECT data FROM documents WHERE collection = $1")

	for _, f := range q.Where {
		var contained interface{} = f.Value
		if f.Op == core.OpContains {
			contained = []interface{}{f.Value}
		}
		data, err := encode(nest(f.Field, contained))
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND data @> " + param(string(data)) + "::jsonb")
	}

	sb.WriteString(" ORDER BY ")
	for _, ord := range q.OrderBy {
		sb.WriteString("data #> " + param(pq.Array(core.SplitFieldPath(ord.Field))) + "::text[]")
		if ord.Ascending {
			sb.WriteString(" ASC NULLS FIRST, ")
		} else {
			sb.WriteString(" DESC NULLS LAST, ")
		}
	}
	sb.WriteString("id ASC")

	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	return sb.String(), args, nil
}
