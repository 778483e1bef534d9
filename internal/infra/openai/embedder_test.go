package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRequest struct {
	Model      string          `json:"model"`
	Input      json.RawMessage `json:"input"`
	Dimensions int             `json:"dimensions"`
}

// fakeEmbeddingServer は "t<number>" 形式の入力に [number, 1, 0] を返す
// レスポンスは index の降順で返し、並べ替えを検証できるようにする
type fakeEmbeddingServer struct {
	mu         sync.Mutex
	batchSizes []int
	models     []string
	dimension  int
}

func (f *fakeEmbeddingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req embeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var inputs []string
	if err := json.Unmarshal(req.Input, &inputs); err != nil {
		var single string
		if err := json.Unmarshal(req.Input, &single); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		inputs = []string{single}
	}

	f.mu.Lock()
	f.batchSizes = append(f.batchSizes, len(inputs))
	f.models = append(f.models, req.Model)
	f.mu.Unlock()

	data := make([]string, 0, len(inputs))
	for i := len(inputs) - 1; i >= 0; i-- {
		n, _ := strconv.Atoi(strings.TrimPrefix(inputs[i], "t"))
		vector := []string{strconv.Itoa(n), "1"}
		for len(vector) < f.dimension {
			vector = append(vector, "0")
		}
		data = append(data, fmt.Sprintf(`{"object":"embedding","index":%d,"embedding":[%s]}`, i, strings.Join(vector, ",")))
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"object":"list","model":%q,"data":[%s],"usage":{"prompt_tokens":1,"total_tokens":1}}`,
		req.Model, strings.Join(data, ","))
}

func (f *fakeEmbeddingServer) BatchSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.batchSizes...)
}

func newTestEmbedder(t *testing.T, serverDimension int, opts ...EmbedderOption) (*Embedder, *fakeEmbeddingServer) {
	t.Helper()

	fake := &fakeEmbeddingServer{dimension: serverDimension}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	opts = append([]EmbedderOption{WithEmbeddingBaseURL(server.URL + "/")}, opts...)
	embedder, err := NewEmbedder("test-key", opts...)
	require.NoError(t, err)
	return embedder, fake
}

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder, err := NewEmbedder("dummy-key",
		WithEmbeddingModel("custom-model"),
		WithEmbeddingDimension(42),
	)
	require.NoError(t, err)

	assert.Equal(t, "custom-model", embedder.ModelName())
	assert.Equal(t, 42, embedder.Dimension())
}

func TestNewEmbedder_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbedder("")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}

func TestEmbedder_Embed(t *testing.T) {
	embedder, fake := newTestEmbedder(t, 3, WithEmbeddingDimension(3))

	vector, err := embedder.Embed(context.Background(), "t7")
	require.NoError(t, err)
	assert.Equal(t, []float32{7, 1, 0}, vector)
	assert.Equal(t, []int{1}, fake.BatchSizes())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{DefaultEmbeddingModel}, fake.models)
}

func TestEmbedder_BatchEmbedSplitsAndKeepsOrder(t *testing.T) {
	embedder, fake := newTestEmbedder(t, 3, WithEmbeddingDimension(3))

	texts := make([]string, 150)
	for i := range texts {
		texts[i] = fmt.Sprintf("t%d", i)
	}

	vectors, err := embedder.BatchEmbed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0], "vector %d out of order", i)
	}
	assert.Equal(t, []int{100, 50}, fake.BatchSizes())
}

func TestEmbedder_RejectsDimensionMismatch(t *testing.T) {
	embedder, _ := newTestEmbedder(t, 3, WithEmbeddingDimension(4))

	_, err := embedder.BatchEmbed(context.Background(), []string{"t1", "t2"})
	assert.ErrorIs(t, err, ErrEmbeddingDimension)
}

func TestEmbedder_RejectsEmptyInput(t *testing.T) {
	embedder, fake := newTestEmbedder(t, 3)

	_, err := embedder.BatchEmbed(context.Background(), nil)
	assert.Error(t, err)
	assert.Empty(t, fake.BatchSizes())
}

func TestEmbedder_PropagatesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": {"message": "invalid input", "type": "invalid_request_error"}}`)
	}))
	defer server.Close()

	embedder, err := NewEmbedder("test-key", WithEmbeddingBaseURL(server.URL+"/"))
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), "t1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate embeddings")
}
