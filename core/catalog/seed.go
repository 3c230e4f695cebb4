package catalog

import (
	"io/fs"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	appfs "github.com/trezcool/njia/fs"
)

const defaultSeedPath = "assets/seed/catalog.yaml"

// seedOrder lists the kinds in the order they are decoded.
var seedOrder = []Kind{KindCareer, KindCourse, KindCollege, KindScholarship, KindResource}

// DecodeSeed decodes a YAML catalog keyed by collection name ("colleges", "courses"...).
// Items are decoded through their JSON form, so seed keys are the items' JSON field names.
func DecodeSeed(data []byte) ([]Item, error) {
	var raw map[string][]map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decoding seed")
	}
	for key := range raw {
		if _, ok := ParseKind(key); !ok {
			return nil, errors.Errorf("seed: unknown collection %q", key)
		}
	}

	var items []Item
	for _, kind := range seedOrder {
		for i, doc := range raw[kind.Collection()] {
			b, err := json.Marshal(doc)
			if err != nil {
				return nil, errors.Wrapf(err, "seed: encoding %s #%d", kind, i)
			}
			item := NewItem(kind)
			if err = json.Unmarshal(b, item); err != nil {
				return nil, errors.Wrapf(err, "seed: decoding %s #%d", kind, i)
			}
			if item.ItemID() == "" {
				return nil, errors.Errorf("seed: %s #%d has no id", kind, i)
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// DefaultSeed returns the embedded sample catalog.
func DefaultSeed() ([]Item, error) {
	data, err := fs.ReadFile(appfs.FS, defaultSeedPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading seed")
	}
	return DecodeSeed(data)
}
