package search

import "testing"

func TestReciprocalRankFusionMatchesFormula(t *testing.T) {
	lexical := []RankedResult{{Kind: "message", ID: 1}, {Kind: "message", ID: 2}}
	fused := ReciprocalRankFusion(lexical, nil)
	if len(fused) != 2 {
		t.Fatalf("ReciprocalRankFusion() = %d entries, want 2", len(fused))
	}
	want0 := 1.0 / float64(rrfConstant+0+1)
	want1 := 1.0 / float64(rrfConstant+1+1)
	if fused[0].ID != 1 || fused[0].Score != want0 {
		t.Errorf("fused[0] = %+v, want ID=1 Score=%v", fused[0], want0)
	}
	if fused[1].ID != 2 || fused[1].Score != want1 {
		t.Errorf("fused[1] = %+v, want ID=2 Score=%v", fused[1], want1)
	}
	if fused[0].Source != SourceFTS || fused[1].Source != SourceFTS {
		t.Errorf("lexical-only fused results should be tagged fts, got %v, %v", fused[0].Source, fused[1].Source)
	}
}

func TestReciprocalRankFusionIdempotentDoubling(t *testing.T) {
	list := []RankedResult{{Kind: "message", ID: 1}, {Kind: "message", ID: 2}}
	once := ReciprocalRankFusion(list, nil)
	twice := ReciprocalRankFusion(list, list)
	if len(once) != len(twice) {
		t.Fatalf("len(twice) = %d, want %d", len(twice), len(once))
	}
	for i := range once {
		if twice[i].ID != once[i].ID {
			t.Fatalf("twice[%d].ID = %d, want %d (order must match)", i, twice[i].ID, once[i].ID)
		}
		if twice[i].Score != 2*once[i].Score {
			t.Errorf("twice[%d].Score = %v, want %v (2x once)", i, twice[i].Score, 2*once[i].Score)
		}
		if twice[i].Source != SourceBoth {
			t.Errorf("twice[%d].Source = %v, want both (present in both lists)", i, twice[i].Source)
		}
	}
}

func TestReciprocalRankFusionDedupesAcrossLists(t *testing.T) {
	lexical := []RankedResult{{Kind: "decision", ID: 5}, {Kind: "decision", ID: 6}}
	semantic := []RankedResult{{Kind: "decision", ID: 6}, {Kind: "decision", ID: 5}}
	fused := ReciprocalRankFusion(lexical, semantic)
	if len(fused) != 2 {
		t.Fatalf("ReciprocalRankFusion() = %d entries, want 2 (deduped)", len(fused))
	}
	// id 5 ranks 0 in lexical, 1 in semantic; id 6 ranks 1 in lexical, 0 in
	// semantic — symmetric, so both should score equally and tie-break by id.
	if fused[0].ID != 5 || fused[1].ID != 6 {
		t.Errorf("fused = %+v, want [id=5, id=6] tie-broken by id", fused)
	}
	if fused[0].Score != fused[1].Score {
		t.Errorf("fused scores = %v, %v, want equal for symmetric ranks", fused[0].Score, fused[1].Score)
	}
	if fused[0].Source != SourceBoth || fused[1].Source != SourceBoth {
		t.Errorf("both entries appear in both lists, want Source=both, got %v, %v", fused[0].Source, fused[1].Source)
	}
}

func TestReciprocalRankFusionTagsSourceByList(t *testing.T) {
	lexical := []RankedResult{{Kind: "decision", ID: 1}}
	semantic := []RankedResult{{Kind: "decision", ID: 2}}
	fused := ReciprocalRankFusion(lexical, semantic)
	if len(fused) != 2 {
		t.Fatalf("ReciprocalRankFusion() = %d entries, want 2", len(fused))
	}
	sources := map[int64]Source{}
	for _, f := range fused {
		sources[f.ID] = f.Source
	}
	if sources[1] != SourceFTS {
		t.Errorf("lexical-only id=1 Source = %v, want fts", sources[1])
	}
	if sources[2] != SourceVec {
		t.Errorf("semantic-only id=2 Source = %v, want vec", sources[2])
	}
}

func TestExtractSearchTermsFiltersStopWords(t *testing.T) {
	terms := ExtractSearchTerms("What is the RRF formula for hybrid search?")
	for _, t2 := range terms {
		if searchStopWords[t2] {
			t.Errorf("ExtractSearchTerms() kept stop word %q", t2)
		}
	}
	found := false
	for _, t2 := range terms {
		if t2 == "rrf" {
			found = true
		}
	}
	if !found {
		t.Errorf("ExtractSearchTerms(%q) = %v, want to include \"rrf\"", "...", terms)
	}
}
