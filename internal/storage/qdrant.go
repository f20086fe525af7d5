package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Embedder turns texts into vectors. Implemented by embedding.Embedder.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Config holds Qdrant connection settings.
type Config struct {
	Host      string
	Port      int
	APIKey    string
	Dimension int // size of the content vector
}

// QdrantStorage wraps the Qdrant client with connection management and health checks.
// It embeds page text on write and query text on search.
type QdrantStorage struct {
	client    *qdrant.Client
	embedder  Embedder
	dimension int
	host      string
	port      int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(ctx context.Context, cfg Config, embedder Embedder) (*QdrantStorage, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("invalid vector dimension %d", cfg.Dimension)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:    client,
		embedder:  embedder,
		dimension: cfg.Dimension,
		host:      cfg.Host,
		port:      cfg.Port,
	}

	if err := storage.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s:%d: %v", ErrQdrantUnreachable, cfg.Host, cfg.Port, err)
	}

	return storage, nil
}

func newBackOff(ctx context.Context, maxElapsed time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = maxElapsed
	return backoff.WithContext(b, ctx)
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, newBackOff(ctx, 30*time.Second))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return errors.New("health check returned invalid response")
	}

	return nil
}

// EnsureCollections creates the Document and PDFPage collections when they
// are missing. Idempotent - safe to call on every startup.
func (s *QdrantStorage) EnsureCollections(ctx context.Context) error {
	existing, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	for _, name := range []string{DocumentCollection, PageCollection} {
		if have[name] {
			continue
		}
		if err := s.createCollection(ctx, name); err != nil {
			return err
		}
	}

	return nil
}

func (s *QdrantStorage) createCollection(ctx context.Context, name string) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			ContentVector: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	// Without a payload index, per-document filtering scans the whole collection.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: name,
		FieldName:      "document_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create document_id index on %s: %w", name, err)
	}

	return nil
}

// Addr reports the Qdrant gRPC address for logs.
func (s *QdrantStorage) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertWithRetry retries transient failures of a single write for up to 30s.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, newBackOff(ctx, 30*time.Second))
}

// UpsertDocument writes the document record. The point ID is the document ID,
// so writing the same document again replaces it.
func (s *QdrantStorage) UpsertDocument(ctx context.Context, doc *Document) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(doc.ID),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
		Payload: qdrant.NewValueMap(map[string]any{
			"document_id": doc.ID,
			"filename":    doc.Filename,
			"upload_date": doc.UploadDate.UTC().Format(time.RFC3339Nano),
			"page_count":  int64(doc.PageCount),
		}),
	}

	if err := s.upsertWithRetry(ctx, DocumentCollection, []*qdrant.PointStruct{point}); err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
	}
	return nil
}

// UpsertPages embeds pages that have no embedding yet and writes them in one
// request. Page IDs are derived with PageID when empty.
func (s *QdrantStorage) UpsertPages(ctx context.Context, pages []*Page) error {
	if len(pages) == 0 {
		return nil
	}

	if err := s.embedMissing(ctx, pages); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(pages))
	for i, page := range pages {
		if len(page.Embedding) != s.dimension {
			return fmt.Errorf("%w: page %d has %d dimensions, expected %d",
				ErrDimensionMismatch, page.PageNumber, len(page.Embedding), s.dimension)
		}
		if page.ID == "" {
			page.ID = PageID(page.DocumentID, page.PageNumber)
		}

		points[i] = &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(page.ID),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				ContentVector: qdrant.NewVector(page.Embedding...),
			}),
			Payload: qdrant.NewValueMap(map[string]any{
				"document_id": page.DocumentID,
				"page_number": int64(page.PageNumber),
				"content":     page.Content,
			}),
		}
	}

	if err := s.upsertWithRetry(ctx, PageCollection, points); err != nil {
		return fmt.Errorf("failed to upsert %d pages: %w", len(points), err)
	}
	return nil
}

func (s *QdrantStorage) embedMissing(ctx context.Context, pages []*Page) error {
	var texts []string
	var targets []*Page
	for _, page := range pages {
		if page.Embedding == nil {
			texts = append(texts, page.Content)
			targets = append(targets, page)
		}
	}
	if len(texts) == 0 {
		return nil
	}
	if s.embedder == nil {
		return errors.New("pages have no embeddings and no embedder is configured")
	}

	embeddings, err := s.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed pages: %w", err)
	}
	if len(embeddings) != len(targets) {
		return fmt.Errorf("embedder returned %d vectors for %d pages", len(embeddings), len(targets))
	}

	for i, page := range targets {
		page.Embedding = embeddings[i]
	}
	return nil
}

// GetDocument retrieves a document record by ID.
// Returns ErrDocumentNotFound if it doesn't exist.
func (s *QdrantStorage) GetDocument(ctx context.Context, id string) (*Document, error) {
	// Point IDs are UUIDs; anything else can't have been uploaded.
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrDocumentNotFound
	}

	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: DocumentCollection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrDocumentNotFound
	}

	return documentFromPayload(id, result[0].Payload), nil
}

// ListDocuments returns every document record, newest upload first.
func (s *QdrantStorage) ListDocuments(ctx context.Context) ([]*Document, error) {
	docs := []*Document{}
	seen := make(map[string]bool)
	var offset *qdrant.PointId

	batchSize := uint32(100)

	for {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: DocumentCollection,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll documents: %w", err)
		}

		for _, result := range results {
			id := result.Id.GetUuid()
			// The offset point is returned again as the first hit of the next page.
			if seen[id] {
				continue
			}
			seen[id] = true
			docs = append(docs, documentFromPayload(id, result.Payload))
		}

		if uint32(len(results)) < batchSize {
			break
		}

		offset = results[len(results)-1].Id
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].UploadDate.Equal(docs[j].UploadDate) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].UploadDate.After(docs[j].UploadDate)
	})
	return docs, nil
}

func documentFromPayload(id string, payload map[string]*qdrant.Value) *Document {
	uploadDate, err := time.Parse(time.RFC3339Nano, payload["upload_date"].GetStringValue())
	if err != nil {
		uploadDate = time.Time{}
	}

	return &Document{
		ID:         id,
		Filename:   payload["filename"].GetStringValue(),
		UploadDate: uploadDate,
		PageCount:  int(payload["page_count"].GetIntegerValue()),
	}
}

// SearchPages embeds query and returns the limit most similar pages of one
// document, best match first.
func (s *QdrantStorage) SearchPages(ctx context.Context, documentID, query string, limit int) ([]*ScoredPage, error) {
	if s.embedder == nil {
		return nil, errors.New("search requires an embedder")
	}

	embeddings, err := s.embedder.GenerateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) != 1 || len(embeddings[0]) != s.dimension {
		return nil, fmt.Errorf("%w: query embedding does not have %d dimensions", ErrDimensionMismatch, s.dimension)
	}

	vectorName := ContentVector
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: PageCollection,
		Query:          qdrant.NewQuery(embeddings[0]...),
		Using:          &vectorName,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
		WithVectors: qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search pages: %w", err)
	}

	scored := make([]*ScoredPage, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		score := float64(result.Score) // Qdrant returns float32

		scored = append(scored, &ScoredPage{
			Page: &Page{
				ID:         result.Id.GetUuid(),
				DocumentID: payload["document_id"].GetStringValue(),
				PageNumber: int(payload["page_number"].GetIntegerValue()),
				Content:    payload["content"].GetStringValue(),
			},
			Score: &score,
		})
	}

	return scored, nil
}

// CountPages returns how many pages of a document are indexed.
func (s *QdrantStorage) CountPages(ctx context.Context, documentID string) (int, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: PageCollection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		},
		Exact: qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return int(count), nil
}
