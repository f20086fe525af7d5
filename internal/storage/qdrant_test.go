//go:build integration

package storage

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 8

// wordEmbedder hashes words into a small bag-of-words vector so similarity
// tracks word overlap without a model.
type wordEmbedder struct{}

func (wordEmbedder) GenerateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, testDimension)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(word))
			vec[h.Sum32()%testDimension]++
		}
		vec[0] += 0.01 // never all zeros
		out[i] = vec
	}
	return out, nil
}

// setupTestStorage creates a test storage instance and ensures collections exist.
// Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T) *QdrantStorage {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	storage, err := NewQdrantStorage(ctx, Config{Host: "localhost", Port: 6334, Dimension: testDimension}, wordEmbedder{})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	// Needs a fresh Qdrant: existing collections keep their vector size.
	require.NoError(t, storage.EnsureCollections(context.Background()), "Failed to ensure collections")

	return storage
}

func TestDocumentRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	defer storage.Close()

	ctx := context.Background()
	doc := &Document{
		ID:         uuid.New().String(),
		Filename:   "report.pdf",
		UploadDate: time.Now().UTC().Truncate(time.Millisecond),
		PageCount:  3,
	}

	require.NoError(t, storage.UpsertDocument(ctx, doc))

	got, err := storage.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Filename, got.Filename)
	assert.Equal(t, doc.PageCount, got.PageCount)
	assert.WithinDuration(t, doc.UploadDate, got.UploadDate, time.Millisecond)

	docs, err := storage.ListDocuments(ctx)
	require.NoError(t, err)
	var found bool
	for _, d := range docs {
		if d.ID == doc.ID {
			found = true
		}
	}
	assert.True(t, found, "uploaded document should be listed")
}

func TestGetDocumentNotFound(t *testing.T) {
	storage := setupTestStorage(t)
	defer storage.Close()

	_, err := storage.GetDocument(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestPagesSearchAndReingest(t *testing.T) {
	storage := setupTestStorage(t)
	defer storage.Close()

	ctx := context.Background()
	docID := uuid.New().String()
	pages := []*Page{
		{DocumentID: docID, PageNumber: 1, Content: "introduction and table of contents"},
		{DocumentID: docID, PageNumber: 4, Content: "refund policy refunds within thirty days"},
		{DocumentID: docID, PageNumber: 7, Content: "shipping costs and delivery times"},
	}
	require.NoError(t, storage.UpsertPages(ctx, pages))

	hits, err := storage.SearchPages(ctx, docID, "refund policy", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, 4, hits[0].Page.PageNumber)
	require.NotNil(t, hits[0].Score)
	for _, h := range hits {
		assert.Equal(t, docID, h.Page.DocumentID)
	}

	// Writing the same pages again overwrites instead of duplicating.
	again := []*Page{
		{DocumentID: docID, PageNumber: 1, Content: "introduction and table of contents"},
		{DocumentID: docID, PageNumber: 4, Content: "refund policy refunds within thirty days"},
		{DocumentID: docID, PageNumber: 7, Content: "shipping costs and delivery times"},
	}
	require.NoError(t, storage.UpsertPages(ctx, again))

	count, err := storage.CountPages(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestUpsertPagesDimensionMismatch(t *testing.T) {
	storage := setupTestStorage(t)
	defer storage.Close()

	err := storage.UpsertPages(context.Background(), []*Page{
		{DocumentID: uuid.New().String(), PageNumber: 1, Content: "x", Embedding: []float32{1, 2}},
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
