package quiz

import "sort"

// rank labels of the top streams
var rankLabels = []string{"primary", "secondary", "tertiary"}

type (
	// Answers maps a question ID to the selected option IDs.
	Answers map[string][]string

	StreamScore struct {
		Stream string `json:"stream"`
		Score  int    `json:"score"`
		Label  string `json:"label,omitempty"`
	}

	// Scores holds one entry per bank stream, in declaration order.
	Scores []StreamScore
)

// Score accumulates option.score[stream] * question.weight for every selected option.
// Every declared stream is present, starting at 0.
// Unknown questions and options are ignored; an option selected twice counts once.
func Score(bank *Bank, answers Answers) Scores {
	scores := make(Scores, len(bank.Streams))
	for i, s := range bank.Streams {
		scores[i] = StreamScore{Stream: s.Key}
	}

	for _, q := range bank.Questions {
		selected, ok := answers[q.ID]
		if !ok {
			continue
		}
		seen := make(map[string]struct{}, len(selected))
		for _, optID := range selected {
			if _, dup := seen[optID]; dup {
				continue
			}
			seen[optID] = struct{}{}

			opt, ok := q.Option(optID)
			if !ok {
				continue
			}
			for stream, pts := range opt.Scores {
				if i, ok := bank.streamIdx[stream]; ok {
					scores[i].Score += pts * q.Weight
				}
			}
		}
	}
	return scores
}

// Rank returns the n best streams, highest score first.
// Equal scores keep declaration order. n <= 0 or n > len(scores) returns every stream.
func Rank(scores Scores, n int) []StreamScore {
	ranked := make([]StreamScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if n <= 0 || n > len(ranked) {
		n = len(ranked)
	}
	ranked = ranked[:n]
	for i := range ranked {
		ranked[i].Label = ""
		if i < len(rankLabels) {
			ranked[i].Label = rankLabels[i]
		}
	}
	return ranked
}

// Keys returns the stream keys of ranked, in order.
func Keys(ranked []StreamScore) []string {
	keys := make([]string, 0, len(ranked))
	for _, rs := range ranked {
		keys = append(keys, rs.Stream)
	}
	return keys
}
