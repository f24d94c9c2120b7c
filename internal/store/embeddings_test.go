package store

import (
	"math"
	"testing"

	"github.com/sgx-labs/loa/internal/config"
)

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.1, -0.2, 0.3, 1.5, -9.25}
	blob := EncodeVector(v)
	got, err := DecodeVector(blob, len(v))
	if err != nil {
		t.Fatalf("DecodeVector() error = %v", err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("DecodeVector()[%d] = %v, want %v", i, got[i], v[i])
		}
	}
}

func TestDecodeVectorRejectsWrongDimensions(t *testing.T) {
	blob := EncodeVector([]float32{1, 2, 3})
	if _, err := DecodeVector(blob, 4); err == nil {
		t.Error("DecodeVector() with mismatched dimension want error, got nil")
	}
}

func TestDecodeVectorRejectsMisalignedBlob(t *testing.T) {
	if _, err := DecodeVector([]byte{1, 2, 3}, 0); err == nil {
		t.Error("DecodeVector() with misaligned blob want error, got nil")
	}
}

func TestCosineSimilaritySelfIsOne(t *testing.T) {
	v := []float32{0.3, 0.4, 0.5, -0.1}
	got := CosineSimilarity(v, v)
	if math.Abs(got-1.0) > 1e-6 {
		t.Errorf("CosineSimilarity(v, v) = %v, want 1.0", got)
	}
}

func TestUpsertAndGetEmbedding(t *testing.T) {
	db := newTestDB(t)
	v := make([]float32, config.EmbeddingDim())
	for i := range v {
		v[i] = float32(i) * 0.1
	}

	if _, err := db.UpsertEmbedding(Embedding{
		SourceKind: "message", SourceID: 1, Model: "nomic-embed-text", Vector: v, CreatedAt: 1,
	}); err != nil {
		t.Fatalf("UpsertEmbedding() error = %v", err)
	}

	got, err := db.GetEmbedding("message", 1)
	if err != nil {
		t.Fatalf("GetEmbedding() error = %v", err)
	}
	if len(got.Vector) != len(v) {
		t.Fatalf("GetEmbedding().Vector len = %d, want %d", len(got.Vector), len(v))
	}
	for i := range v {
		if got.Vector[i] != v[i] {
			t.Errorf("GetEmbedding().Vector[%d] = %v, want %v", i, got.Vector[i], v[i])
		}
	}
}

func TestCosineScoreMatchesDirectComputation(t *testing.T) {
	db := newTestDB(t)
	v := make([]float32, config.EmbeddingDim())
	copy(v, []float32{0.2, 0.4, -0.1, 0.9})
	if _, err := db.UpsertEmbedding(Embedding{SourceKind: "decision", SourceID: 1, Model: "m1", Vector: v, CreatedAt: 1}); err != nil {
		t.Fatalf("UpsertEmbedding() error = %v", err)
	}

	got, err := db.CosineScore(v, "decision", 1)
	if err != nil {
		t.Fatalf("CosineScore() error = %v", err)
	}
	want := CosineSimilarity(v, v)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("CosineScore() = %v, want %v", got, want)
	}
}

func TestVectorSearchFiltersByKind(t *testing.T) {
	db := newTestDB(t)
	a := make([]float32, config.EmbeddingDim())
	b := make([]float32, config.EmbeddingDim())
	a[0], b[0] = 1, 1
	if _, err := db.UpsertEmbedding(Embedding{SourceKind: "message", SourceID: 1, Model: "m", Vector: a, CreatedAt: 1}); err != nil {
		t.Fatalf("UpsertEmbedding(message) error = %v", err)
	}
	if _, err := db.UpsertEmbedding(Embedding{SourceKind: "decision", SourceID: 2, Model: "m", Vector: b, CreatedAt: 2}); err != nil {
		t.Fatalf("UpsertEmbedding(decision) error = %v", err)
	}

	matches, err := db.VectorSearch(a, []string{"decision"}, 10)
	if err != nil {
		t.Fatalf("VectorSearch() error = %v", err)
	}
	if len(matches) != 1 || matches[0].SourceKind != "decision" {
		t.Fatalf("VectorSearch(kinds=[decision]) = %+v, want only the decision match", matches)
	}
}

func TestUpsertEmbeddingReplacesExisting(t *testing.T) {
	db := newTestDB(t)
	first := make([]float32, config.EmbeddingDim())
	second := make([]float32, config.EmbeddingDim())
	for i := range first {
		first[i] = 1.0
		second[i] = 2.0
	}

	if _, err := db.UpsertEmbedding(Embedding{SourceKind: "message", SourceID: 1, Model: "m1", Vector: first, CreatedAt: 1}); err != nil {
		t.Fatalf("first UpsertEmbedding() error = %v", err)
	}
	if _, err := db.UpsertEmbedding(Embedding{SourceKind: "message", SourceID: 1, Model: "m2", Vector: second, CreatedAt: 2}); err != nil {
		t.Fatalf("second UpsertEmbedding() error = %v", err)
	}

	n, err := db.EmbeddingCount("message")
	if err != nil {
		t.Fatalf("EmbeddingCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("EmbeddingCount() = %d after replace, want 1 (unique source_kind,source_id)", n)
	}

	got, err := db.GetEmbedding("message", 1)
	if err != nil {
		t.Fatalf("GetEmbedding() error = %v", err)
	}
	if got.Model != "m2" {
		t.Errorf("GetEmbedding().Model = %q, want m2 (latest upsert)", got.Model)
	}
}
