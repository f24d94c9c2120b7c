package search

import (
	"sort"
	"strconv"
)

// rrfConstant is the RRF k constant: RRF(d) = sum over ranked lists of
// 1 / (k + rank_i(d) + 1), with zero-based ranks.
const rrfConstant = 60

// RankedResult is one entry from a single ranked list (lexical or semantic),
// identified by kind+id so results from different lists can be merged.
type RankedResult struct {
	Kind string
	ID   int64
}

func (r RankedResult) key() string {
	return r.Kind + ":" + strconv.FormatInt(r.ID, 10)
}

// Source tags which ranked list(s) a fused result appeared in.
type Source string

const (
	SourceFTS  Source = "fts"
	SourceVec  Source = "vec"
	SourceBoth Source = "both"
)

// Fused is one entry in a fused result set: the identity plus its combined
// RRF score and which list(s) it appeared in.
type Fused struct {
	Kind   string
	ID     int64
	Score  float64
	Source Source
}

// ReciprocalRankFusion merges a lexical-ranked list and a semantic-ranked
// list into one fused, score-descending ordering, deduplicating identical
// (kind, id) pairs across both and summing their per-list RRF
// contributions. Each fused entry is tagged fts, vec, or both depending on
// which list(s) it was found in.
//
//	RRF(d) = sum over lists containing d of 1 / (k + rank_i(d) + 1)
//
// where rank_i(d) is d's zero-based rank within list i.
func ReciprocalRankFusion(lexical, semantic []RankedResult) []Fused {
	scores := make(map[string]float64)
	identity := make(map[string]RankedResult)
	inLexical := make(map[string]bool)
	inSemantic := make(map[string]bool)

	for rank, r := range lexical {
		k := r.key()
		scores[k] += 1.0 / float64(rrfConstant+rank+1)
		identity[k] = r
		inLexical[k] = true
	}
	for rank, r := range semantic {
		k := r.key()
		scores[k] += 1.0 / float64(rrfConstant+rank+1)
		if _, ok := identity[k]; !ok {
			identity[k] = r
		}
		inSemantic[k] = true
	}

	out := make([]Fused, 0, len(scores))
	for k, score := range scores {
		r := identity[k]
		src := SourceFTS
		switch {
		case inLexical[k] && inSemantic[k]:
			src = SourceBoth
		case inSemantic[k]:
			src = SourceVec
		}
		out = append(out, Fused{Kind: r.Kind, ID: r.ID, Score: score, Source: src})
	}

	sort.Slice(out, func(i, j int) bool { return fusedLess(out[i], out[j]) })
	return out
}

// fusedLess orders by score descending, breaking ties by (kind, id) for
// deterministic output.
func fusedLess(a, b Fused) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.ID < b.ID
}
