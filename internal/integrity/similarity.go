package integrity

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// SimilarityCutoff is the Jaccard value a pair must exceed to count.
const SimilarityCutoff = 0.7

// PeerAnswers are the answers of another session on the same exam.
type PeerAnswers struct {
	SessionID uuid.UUID
	Answers   []model.Answer
}

// wordSet lowercases and splits on whitespace.
func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard returns |A∩B| / |A∪B| over the word sets of a and b. Two empty
// texts have similarity 0.
func Jaccard(a, b string) float64 {
	sa, sb := wordSet(a), wordSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for w := range sa {
		if _, ok := sb[w]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// PeerSimilarityIndex compares own answers with every peer's answer to the
// same question and returns the mean of similarities above the cutoff,
// scaled to 0..100. It is 0 when no pair qualifies.
func PeerSimilarityIndex(own []model.Answer, peers []PeerAnswers) float64 {
	mine := make(map[uuid.UUID]string, len(own))
	for _, a := range own {
		mine[a.QuestionID] = a.Answer
	}

	var sum float64
	var n int
	for _, p := range peers {
		for _, a := range p.Answers {
			text, ok := mine[a.QuestionID]
			if !ok {
				continue
			}
			if sim := Jaccard(text, a.Answer); sim > SimilarityCutoff {
				sum += sim
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
