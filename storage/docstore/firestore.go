package docstore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/trezcool/njia/core"
)

// FirestoreStore maps collections and documents one to one onto Firestore.
// Documents are written in their JSON form; queries that combine filters and orderings
// on different fields need a composite index.
type FirestoreStore struct {
	db *firestore.Client
}

var _ core.DocumentStore = (*FirestoreStore)(nil)

func NewFirestoreStore(ctx context.Context, projectID, databaseID string) (*FirestoreStore, error) {
	db, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, errors.Wrap(err, "creating firestore client")
	}
	return &FirestoreStore{db: db}, nil
}

func (s *FirestoreStore) Insert(ctx context.Context, collection, id string, doc interface{}) error {
	data, err := toMap(doc)
	if err != nil {
		return err
	}
	if _, err = s.db.Collection(collection).Doc(id).Create(ctx, data); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Wrapf(ErrDuplicateID, "%s/%s", collection, id)
		}
		return errors.Wrapf(err, "creating %s/%s", collection, id)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string, dst interface{}) error {
	snap, err := s.db.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return core.ErrNotFound
		}
		return errors.Wrapf(err, "getting %s/%s", collection, id)
	}
	return snapshotTo(snap, dst)
}

func (s *FirestoreStore) Replace(ctx context.Context, collection, id string, doc interface{}) error {
	data, err := toMap(doc)
	if err != nil {
		return err
	}
	ref := s.db.Collection(collection).Doc(id)
	err = s.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, data)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return core.ErrNotFound
		}
		return errors.Wrapf(err, "replacing %s/%s", collection, id)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, collection string, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, s.db.Collection(collection).Doc(id))
	}
	snaps, err := s.db.GetAll(ctx, refs)
	if err != nil {
		return 0, errors.Wrapf(err, "getting %s", collection)
	}

	bw := s.db.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		job, err := bw.Delete(snap.Ref)
		if err != nil {
			bw.End()
			return 0, errors.Wrapf(err, "deleting %s/%s", collection, snap.Ref.ID)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return 0, errors.Wrap(err, "committing bulk delete")
		}
	}
	return len(jobs), nil
}

func (s *FirestoreStore) Query(ctx context.Context, collection string, q core.DocQuery, dst interface{}) error {
	q, err := normalizeQuery(q)
	if err != nil {
		return err
	}

	query := s.db.Collection(collection).Query
	for _, f := range q.Where {
		op := "=="
		if f.Op == core.OpContains {
			op = "array-contains"
		}
		query = query.Where(f.Field, op, f.Value)
	}
	for _, ord := range q.OrderBy {
		dir := firestore.Desc
		if ord.Ascending {
			dir = firestore.Asc
		}
		query = query.OrderBy(ord.Field, dir)
	}
	query = query.OrderBy(firestore.DocumentID, firestore.Asc)
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var docs [][]byte
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "querying %s", collection)
		}
		data, err := json.Marshal(snap.Data())
		if err != nil {
			return errors.Wrap(err, "encoding snapshot")
		}
		docs = append(docs, data)
	}
	return decodeAll(docs, dst)
}

func (s *FirestoreStore) Close() error {
	return s.db.Close()
}

func snapshotTo(snap *firestore.DocumentSnapshot, dst interface{}) error {
	data, err := json.Marshal(snap.Data())
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	return decode(data, dst)
}
