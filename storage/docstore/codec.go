// Package docstore implements core.DocumentStore on top of PostgreSQL (jsonb), Firestore and memory.
//
// Documents are any JSON-serializable values: they go through the same JSON round-trip on every backend,
// so `json` struct tags decide field names and a field path such as "profile.stream" addresses nested values.
package docstore

import (
	"bytes"
	"reflect"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/trezcool/njia/core"
)

var errDstNotSlicePtr = errors.New("dst must be a non-nil pointer to a slice")

// encode serializes doc to a JSON object.
func encode(doc interface{}) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "encoding document")
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, errors.New("document must encode to a JSON object")
	}
	return data, nil
}

// toMap converts doc to its generic JSON form.
func toMap(doc interface{}) (map[string]interface{}, error) {
	data, err := encode(doc)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err = json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decoding document")
	}
	return m, nil
}

// normalize converts a filter value to its generic JSON form: numbers become float64, times RFC 3339 strings.
func normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding filter value")
	}
	var out interface{}
	if err = json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "decoding filter value")
	}
	return out, nil
}

func decode(data []byte, dst interface{}) error {
	return errors.Wrap(json.Unmarshal(data, dst), "decoding document")
}

// decodeAll decodes JSON documents into dst, a pointer to a slice.
func decodeAll(docs [][]byte, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return errDstNotSlicePtr
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, d := range docs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(d)
	}
	buf.WriteByte(']')
	return decode(buf.Bytes(), dst)
}

// lookup returns the value at a dotted field path.
func lookup(m map[string]interface{}, path string) (interface{}, bool) {
	segs := core.SplitFieldPath(path)
	var cur interface{} = m
	for _, seg := range segs {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = obj[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// nest builds {"a": {"b": v}} from the path "a.b".
func nest(path string, v interface{}) map[string]interface{} {
	segs := core.SplitFieldPath(path)
	out := map[string]interface{}{segs[len(segs)-1]: v}
	for i := len(segs) - 2; i >= 0; i-- {
		out = map[string]interface{}{segs[i]: out}
	}
	return out
}

// typeRank orders JSON types the way jsonb does: null < string < number < bool < array < object.
func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case string:
		return 1
	case float64:
		return 2
	case bool:
		return 3
	case []interface{}:
		return 4
	default:
		return 5
	}
}

// compare orders two generic JSON values; arrays and objects of the same type compare equal.
func compare(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	}
	return 0
}

// matches reports whether the document satisfies every filter.
// Filter values must have been normalized.
func matches(doc map[string]interface{}, where []core.DocFilter) bool {
	for _, f := range where {
		v, _ := lookup(doc, f.Field)
		switch f.Op {
		case core.OpEqual:
			if !reflect.DeepEqual(v, f.Value) {
				return false
			}
		case core.OpContains:
			arr, ok := v.([]interface{})
			if !ok {
				return false
			}
			var found bool
			for _, el := range arr {
				if reflect.DeepEqual(el, f.Value) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// normalizeQuery validates q and returns a copy with normalized filter values.
func normalizeQuery(q core.DocQuery) (core.DocQuery, error) {
	if err := q.Validate(); err != nil {
		return q, err
	}
	where := make([]core.DocFilter, 0, len(q.Where))
	for _, f := range q.Where {
		v, err := normalize(f.Value)
		if err != nil {
			return q, err
		}
		where = append(where, core.DocFilter{Field: f.Field, Op: f.Op, Value: v})
	}
	q.Where = where
	return q, nil
}
