package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/ingestion/chunk"
	"github.com/jinford/doc-rag/internal/core/ingestion/parser"
	"github.com/jinford/doc-rag/internal/core/search"
	testutil "github.com/jinford/doc-rag/internal/core/testing"
)

func newTestService(t *testing.T, embedder Embedder, registry *document.Registry, opts ...IngestServiceOption) *IngestService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]IngestServiceOption{WithIngestLogger(logger)}, opts...)
	return NewIngestService(
		parser.NewDispatcher(),
		chunk.NewSegmenter(chunk.WordCounter{}),
		embedder,
		registry,
		func() document.VectorIndex { return search.NewMemoryIndex() },
		opts...,
	)
}

func textFile(name, mediaType, content string) document.File {
	return document.File{Name: name, MediaType: mediaType, Size: int64(len(content)), Content: strings.NewReader(content)}
}

func TestIngestService_IngestRegistersDocument(t *testing.T) {
	registry := document.NewRegistry()
	svc := newTestService(t, testutil.NewFakeEmbedder(), registry)

	result, err := svc.Ingest(context.Background(), textFile("test.txt", "text/plain", "Test content"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.DocumentID)
	assert.Equal(t, 1, result.Segments)

	doc, ok := registry.Find(result.DocumentID).Get()
	require.True(t, ok)
	assert.Equal(t, "test.txt", doc.FileName)
	assert.Equal(t, "text/plain", doc.MediaType)
	assert.Equal(t, 1, doc.Index.Len())
	assert.Equal(t, len("Test content"), doc.Chars)
}

func TestIngestService_SerialIDsIncrease(t *testing.T) {
	registry := document.NewRegistry()
	svc := newTestService(t, testutil.NewFakeEmbedder(), registry)

	a, err := svc.Ingest(context.Background(), textFile("a.txt", "text/plain", "first document"))
	require.NoError(t, err)
	b, err := svc.Ingest(context.Background(), textFile("b.txt", "text/plain", "second document"))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, a.DocumentID, int64(1))
	assert.Greater(t, b.DocumentID, a.DocumentID)
}

func TestIngestService_FailuresDoNotRegister(t *testing.T) {
	tests := []struct {
		name     string
		file     document.File
		embedErr error
		kind     error
	}{
		{
			name: "unsupported media type",
			file: textFile("test.pgn", "image/jpeg", "content"),
			kind: document.ErrUnsupportedMediaType,
		},
		{
			name: "blank document",
			file: textFile("blank.txt", "text/plain", "  \n\n "),
			kind: document.ErrBlankDocument,
		},
		{
			name:     "embedding failure",
			file:     textFile("test.txt", "text/plain", "some content"),
			embedErr: errors.New("embedding service unavailable"),
			kind:     document.ErrFileProcessing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := document.NewRegistry()
			embedder := testutil.NewFakeEmbedder()
			embedder.Err = tt.embedErr
			svc := newTestService(t, embedder, registry)

			before := registry.NextID()
			_, err := svc.Ingest(context.Background(), tt.file)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "unexpected error: %v", err)

			assert.Equal(t, before, registry.NextID(), "ID must not be consumed")
			assert.Equal(t, 0, registry.Len())
			assert.True(t, registry.Find(before).IsAbsent())
		})
	}
}

func TestIngestService_CancelledContextDiscardsDocument(t *testing.T) {
	registry := document.NewRegistry()
	svc := newTestService(t, testutil.NewFakeEmbedder(), registry)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Ingest(ctx, textFile("test.txt", "text/plain", "some content"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, registry.Len())
	assert.Equal(t, int64(1), registry.NextID())
}

func TestIngestService_EmbedsInOrderedBatches(t *testing.T) {
	registry := document.NewRegistry()
	embedder := testutil.NewFakeEmbedder()
	svc := newTestService(t, embedder, registry, WithEmbeddingBatchSize(2), WithEmbeddingWorkerCount(3))

	paragraphs := []string{
		"apple banana", "cherry date", "elder fig",
		"grape honeydew", "kiwi lemon",
	}
	content := strings.Join(paragraphs, "\n\n")

	// 1段落1セグメントになるように上限を小さくする
	svc.splitter = chunk.NewSegmenter(chunk.WordCounter{}, chunk.WithMaxTokens(2))

	result, err := svc.Ingest(context.Background(), textFile("fruits.txt", "text/plain", content))
	require.NoError(t, err)
	assert.Equal(t, 5, result.Segments)

	sizes := embedder.BatchSizes()
	sort.Ints(sizes)
	assert.Equal(t, []int{1, 2, 2}, sizes)

	doc, ok := registry.Find(result.DocumentID).Get()
	require.True(t, ok)

	// 各段落をクエリにすると、その段落自身が最上位に来る
	for i, paragraph := range paragraphs {
		query, err := embedder.Embed(context.Background(), paragraph)
		require.NoError(t, err)
		results, err := doc.Index.Search(query, 1, 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, paragraph, results[0].Segment.Text)
		assert.Equal(t, i, results[0].Segment.Ordinal)
	}
}

func TestIngestService_ConcurrentIngestsAreIsolated(t *testing.T) {
	registry := document.NewRegistry()
	svc := newTestService(t, testutil.NewFakeEmbedder(), registry)

	const workers = 16
	type outcome struct {
		id   int64
		text string
	}
	outcomes := make([]outcome, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text := strings.Repeat(string(rune('a'+i)), 5) + " unique marker"
			result, err := svc.Ingest(context.Background(), textFile("doc.txt", "text/plain", text))
			if err != nil {
				t.Error(err)
				return
			}
			outcomes[i] = outcome{id: result.DocumentID, text: text}
		}()
	}
	wg.Wait()

	ids := make([]int64, 0, workers)
	for _, o := range outcomes {
		ids = append(ids, o.id)

		doc, ok := registry.Find(o.id).Get()
		require.True(t, ok)
		results, err := doc.Index.Search(make([]float32, testutil.DefaultFakeDimension), 10, 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, o.text, results[0].Segment.Text)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}
}
