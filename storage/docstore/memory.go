package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
)

var ErrDuplicateID = errors.New("document already exists")

type memDoc struct {
	raw  []byte
	data map[string]interface{}
}

// MemoryStore is an in-process core.DocumentStore, used by tests and the `memory` engine.
// Documents are stored serialized, so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]memDoc
}

var _ core.DocumentStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]memDoc)}
}

func newMemDoc(doc interface{}) (memDoc, error) {
	raw, err := encode(doc)
	if err != nil {
		return memDoc{}, err
	}
	var data map[string]interface{}
	if err = decode(raw, &data); err != nil {
		return memDoc{}, err
	}
	return memDoc{raw: raw, data: data}, nil
}

func (s *MemoryStore) Insert(_ context.Context, collection, id string, doc interface{}) error {
	md, err := newMemDoc(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]memDoc)
		s.collections[collection] = coll
	}
	if _, ok := coll[id]; ok {
		return errors.Wrapf(ErrDuplicateID, "%s/%s", collection, id)
	}
	coll[id] = md
	return nil
}

func (s *MemoryStore) Get(_ context.Context, collection, id string, dst interface{}) error {
	s.mu.RLock()
	md, ok := s.collections[collection][id]
	s.mu.RUnlock()
	if !ok {
		return core.ErrNotFound
	}
	return decode(md.raw, dst)
}

func (s *MemoryStore) Replace(_ context.Context, collection, id string, doc interface{}) error {
	md, err := newMemDoc(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection][id]; !ok {
		return core.ErrNotFound
	}
	s.collections[collection][id] = md
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection string, ids ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collections[collection]
	var n int
	for _, id := range ids {
		if _, ok := coll[id]; ok {
			delete(coll, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Query(_ context.Context, collection string, q core.DocQuery, dst interface{}) error {
	q, err := normalizeQuery(q)
	if err != nil {
		return err
	}

	type hit struct {
		id string
		memDoc
	}
	s.mu.RLock()
	hits := make([]hit, 0)
	for id, md := range s.collections[collection] {
		if matches(md.data, q.Where) {
			hits = append(hits, hit{id: id, memDoc: md})
		}
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		for _, ord := range q.OrderBy {
			a, _ := lookup(hits[i].data, ord.Field)
			b, _ := lookup(hits[j].data, ord.Field)
			if c := compare(a, b); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return hits[i].id < hits[j].id
	})
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}

	docs := make([][]byte, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, h.raw)
	}
	return decodeAll(docs, dst)
}

// Reset drops every collection.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	s.collections = make(map[string]map[string]memDoc)
	s.mu.Unlock()
}

func (s *MemoryStore) Close() error { return nil }
