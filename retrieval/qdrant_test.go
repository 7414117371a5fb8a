package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridrag/hybridrag/types"
)

func fakeQdrant(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	mux := http.NewServeMux()

	mux.HandleFunc("PUT /collections/docs", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, "create")
		json.NewEncoder(w).Encode(map[string]any{"result": true, "status": "ok"})
	})
	mux.HandleFunc("PUT /collections/docs/points", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, "upsert")
		var body struct {
			Points []struct {
				ID     string    `json:"id"`
				Vector []float64 `json:"vector"`
			} `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotEmpty(t, body.Points)
		assert.NotEmpty(t, body.Points[0].ID)
		json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"status": "completed"}})
	})
	mux.HandleFunc("POST /collections/docs/points/search", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, "search")
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.98, "payload": map[string]any{"doc_id": "a", "content": "doc a", "source": "kb"}},
				{"score": 0.91, "payload": map[string]any{"doc_id": "b", "content": "doc b"}},
			},
		})
	})
	mux.HandleFunc("POST /collections/docs/points/count", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"count": 2}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &paths
}

func TestQdrantIndex_AddAndRetrieve(t *testing.T) {
	srv, paths := fakeQdrant(t)
	ctx := context.Background()

	idx := NewQdrantIndex(QdrantConfig{
		BaseURL:    srv.URL,
		Collection: "docs",
		VectorSize: 3,
	}, nil)

	err := idx.Add(ctx, []types.Document{
		{DocID: "a", Content: "doc a", Embedding: []float64{1, 0, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"create", "upsert"}, *paths)

	got, err := idx.Retrieve(ctx, []float64{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].DocID)
	assert.Equal(t, 0.98, got[0].Score)
	assert.Equal(t, "kb", got[0].Source)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestQdrantIndex_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	idx := NewQdrantIndex(QdrantConfig{BaseURL: srv.URL, Collection: "docs", VectorSize: 3}, nil)
	_, err := idx.Retrieve(context.Background(), []float64{1, 0, 0}, 3)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrResourceUnavailable))
}

func TestPointID_Stable(t *testing.T) {
	assert.Equal(t, pointID("doc-1"), pointID("doc-1"))
	assert.NotEqual(t, pointID("doc-1"), pointID("doc-2"))
}
