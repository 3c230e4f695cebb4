package quiz

import (
	"io/fs"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	appfs "github.com/trezcool/njia/fs"
)

const defaultBankPath = "assets/quiz/aptitude.yaml"

type (
	Stream struct {
		Key    string   `yaml:"key" json:"key"`
		Name   string   `yaml:"name" json:"name"`
		Fields []string `yaml:"fields" json:"fields"`
	}

	Option struct {
		ID     string         `yaml:"id" json:"id"`
		Text   string         `yaml:"text" json:"text"`
		Scores map[string]int `yaml:"scores" json:"-"`
	}

	Question struct {
		ID       string   `yaml:"id" json:"id"`
		Text     string   `yaml:"text" json:"text"`
		Weight   int      `yaml:"weight" json:"weight"`
		Multiple bool     `yaml:"multiple" json:"multiple"`
		Options  []Option `yaml:"options" json:"options"`
	}

	// Bank is an ordered set of streams and weighted questions.
	// Stream declaration order is the tie-break order of the ranking.
	Bank struct {
		Streams   []Stream   `yaml:"streams" json:"streams"`
		Questions []Question `yaml:"questions" json:"questions"`

		streamIdx   map[string]int
		questionIdx map[string]int
	}
)

// LoadBank parses and validates a YAML question bank.
func LoadBank(data []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, errors.Wrap(err, "decoding quiz bank")
	}
	if err := b.init(); err != nil {
		return nil, err
	}
	return &b, nil
}

// DefaultBank loads the embedded aptitude quiz.
func DefaultBank() (*Bank, error) {
	data, err := fs.ReadFile(appfs.FS, defaultBankPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading quiz bank")
	}
	return LoadBank(data)
}

func (b *Bank) init() error {
	if len(b.Streams) == 0 {
		return errors.New("quiz bank: no streams")
	}
	b.streamIdx = make(map[string]int, len(b.Streams))
	for i, s := range b.Streams {
		if s.Key == "" {
			return errors.Errorf("quiz bank: stream #%d has no key", i+1)
		}
		if _, ok := b.streamIdx[s.Key]; ok {
			return errors.Errorf("quiz bank: duplicate stream %q", s.Key)
		}
		b.streamIdx[s.Key] = i
	}

	b.questionIdx = make(map[string]int, len(b.Questions))
	for i, q := range b.Questions {
		if q.ID == "" {
			return errors.Errorf("quiz bank: question #%d has no id", i+1)
		}
		if _, ok := b.questionIdx[q.ID]; ok {
			return errors.Errorf("quiz bank: duplicate question %q", q.ID)
		}
		if q.Weight < 1 {
			return errors.Errorf("quiz bank: question %q: weight must be at least 1", q.ID)
		}
		if len(q.Options) == 0 {
			return errors.Errorf("quiz bank: question %q has no options", q.ID)
		}
		optIDs := make(map[string]struct{}, len(q.Options))
		for _, o := range q.Options {
			if _, ok := optIDs[o.ID]; ok || o.ID == "" {
				return errors.Errorf("quiz bank: question %q: invalid or duplicate option %q", q.ID, o.ID)
			}
			optIDs[o.ID] = struct{}{}
			for stream := range o.Scores {
				if _, ok := b.streamIdx[stream]; !ok {
					return errors.Errorf("quiz bank: question %q option %q: unknown stream %q", q.ID, o.ID, stream)
				}
			}
		}
		b.questionIdx[q.ID] = i
	}
	return nil
}

// StreamKeys returns the stream keys in declaration order.
func (b *Bank) StreamKeys() []string {
	keys := make([]string, 0, len(b.Streams))
	for _, s := range b.Streams {
		keys = append(keys, s.Key)
	}
	return keys
}

func (b *Bank) Stream(key string) (Stream, bool) {
	i, ok := b.streamIdx[key]
	if !ok {
		return Stream{}, false
	}
	return b.Streams[i], true
}

func (b *Bank) Question(id string) (Question, bool) {
	i, ok := b.questionIdx[id]
	if !ok {
		return Question{}, false
	}
	return b.Questions[i], true
}

func (q Question) Option(id string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// FieldsFor returns the fields of the ranked streams, deduplicated, in rank order.
func (b *Bank) FieldsFor(ranked []StreamScore) []string {
	seen := make(map[string]struct{})
	fields := make([]string, 0)
	for _, rs := range ranked {
		s, ok := b.Stream(rs.Stream)
		if !ok {
			continue
		}
		for _, f := range s.Fields {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			fields = append(fields, f)
		}
	}
	return fields
}
