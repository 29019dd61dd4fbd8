package vectorstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLogger implements Logger for tests
type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{t: l.t, fields: merged}
}

func sampleRecords() []Record {
	return []Record{
		{ID: RecordID("cuentas.txt", 0), Source: "cuentas.txt", Ordinal: 0, Text: "abrir cuenta", Vector: []float32{1, 0, 0}},
		{ID: RecordID("tarjetas.txt", 0), Source: "tarjetas.txt", Ordinal: 0, Text: "tarjeta de crédito", Vector: []float32{0, 1, 0}},
		{ID: RecordID("transferencias.txt", 0), Source: "transferencias.txt", Ordinal: 0, Text: "transferencia", Vector: []float32{0, 0, 1}},
		{ID: RecordID("cuentas.txt", 1), Source: "cuentas.txt", Ordinal: 1, Text: "requisitos cuenta", Vector: []float32{0.9, 0.1, 0}},
	}
}

// ==========================
// Memory index
// ==========================

func TestRecordID_Stable(t *testing.T) {
	assert.Equal(t, RecordID("a.txt", 3), RecordID("a.txt", 3))
	assert.NotEqual(t, RecordID("a.txt", 3), RecordID("a.txt", 4))
}

func TestMemoryIndex_Search(t *testing.T) {
	idx, err := NewMemoryIndex(sampleRecords())
	require.NoError(t, err)

	matches, err := idx.Search([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "abrir cuenta", matches[0].Text)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "requisitos cuenta", matches[1].Text)
}

func TestMemoryIndex_KLargerThanIndex(t *testing.T) {
	idx, err := NewMemoryIndex(sampleRecords())
	require.NoError(t, err)

	matches, err := idx.Search([]float32{0, 0, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 4)
}

func TestMemoryIndex_TiesKeepCorpusOrder(t *testing.T) {
	idx, err := NewMemoryIndex([]Record{
		{ID: "a", Text: "first", Vector: []float32{1, 1}},
		{ID: "b", Text: "second", Vector: []float32{1, 1}},
	})
	require.NoError(t, err)

	matches, err := idx.Search([]float32{1, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, "first", matches[0].Text)
	assert.Equal(t, "second", matches[1].Text)
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	_, err := NewMemoryIndex([]Record{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{1, 0, 0}},
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	idx, err := NewMemoryIndex(sampleRecords())
	require.NoError(t, err)
	_, err = idx.Search([]float32{1, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemoryIndex_ZeroVector(t *testing.T) {
	idx, err := NewMemoryIndex(sampleRecords())
	require.NoError(t, err)

	matches, err := idx.Search([]float32{0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0.0, matches[0].Score)
}

func TestMemoryStore_SearchBeforeLoad(t *testing.T) {
	store := NewMemoryStore(nil)
	_, err := store.Search(context.Background(), []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrIndexNotLoaded)
	assert.Equal(t, 0, store.Size())

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded)
}

func TestMemoryStore_ConcurrentReplace(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	require.NoError(t, store.Replace(ctx, sampleRecords()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				matches, err := store.Search(ctx, []float32{0, 1, 0}, 1)
				assert.NoError(t, err)
				assert.Len(t, matches, 1)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, store.Replace(ctx, sampleRecords()))
	}
	wg.Wait()
	assert.Equal(t, 4, store.Size())
}

// ==========================
// SQLite snapshot
// ==========================

func TestSQLiteSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "vectorstore")
	snap := NewSQLiteSnapshot(dir)
	assert.False(t, snap.Exists())

	store := NewMemoryStore(snap)
	require.NoError(t, store.Replace(ctx, sampleRecords()))
	assert.True(t, snap.Exists())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, SnapshotFile, entries[0].Name())

	restored := NewMemoryStore(NewSQLiteSnapshot(dir))
	loaded, err := restored.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, 4, restored.Size())

	matches, err := restored.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "tarjeta de crédito", matches[0].Text)
	assert.Equal(t, "tarjetas.txt", matches[0].Source)
}

func TestSQLiteSnapshot_Overwrite(t *testing.T) {
	ctx := context.Background()
	snap := NewSQLiteSnapshot(t.TempDir())

	require.NoError(t, snap.Save(ctx, sampleRecords()))
	require.NoError(t, snap.Save(ctx, sampleRecords()[:1]))

	records, err := snap.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []float32{1, 0, 0}, records[0].Vector)
}

func TestSQLiteSnapshot_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SnapshotFile), []byte("not a database"), 0o644))

	store := NewMemoryStore(NewSQLiteSnapshot(dir))
	loaded, err := store.Load(context.Background())
	assert.Error(t, err)
	assert.False(t, loaded)
}

func TestFloat32Encoding(t *testing.T) {
	in := []float32{0.25, -1.5, 3.125}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
}

// ==========================
// Elasticsearch store
// ==========================

type fakeES struct {
	mu       sync.Mutex
	aliased  []string
	created  []string
	deleted  []string
	bulkBody string
	aliasOps string
}

func (f *fakeES) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		body, _ := io.ReadAll(r.Body)

		switch {
		case r.Method == http.MethodHead && strings.HasPrefix(r.URL.Path, "/_alias/"):
			if len(f.aliased) == 0 {
				w.WriteHeader(http.StatusNotFound)
			}
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/_alias/"):
			if len(f.aliased) == 0 {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{}`))
				return
			}
			resp := map[string]interface{}{}
			for _, idx := range f.aliased {
				resp[idx] = map[string]interface{}{"aliases": map[string]interface{}{"knowledge-base": map[string]interface{}{}}}
			}
			_ = json.NewEncoder(w).Encode(resp)
		case strings.HasSuffix(r.URL.Path, "/_count"):
			_, _ = w.Write([]byte(`{"count": 4}`))
		case r.URL.Path == "/_bulk":
			f.bulkBody = string(body)
			_, _ = w.Write([]byte(`{"errors": false, "items": []}`))
		case r.URL.Path == "/_aliases":
			f.aliasOps = string(body)
			_, _ = w.Write([]byte(`{"acknowledged": true}`))
		case strings.HasSuffix(r.URL.Path, "/_search"):
			assert.Contains(t, string(body), `"knn"`)
			_, _ = w.Write([]byte(`{"hits": {"hits": [
				{"_score": 1.0, "_source": {"id": "x", "source": "cuentas.txt", "ordinal": 0, "text": "abrir cuenta"}},
				{"_score": 0.5, "_source": {"id": "y", "source": "tarjetas.txt", "ordinal": 0, "text": "tarjeta"}}
			]}}`))
		case r.Method == http.MethodPut:
			f.created = append(f.created, strings.TrimPrefix(r.URL.Path, "/"))
			assert.Contains(t, string(body), "dense_vector")
			_, _ = w.Write([]byte(`{"acknowledged": true}`))
		case r.Method == http.MethodDelete:
			f.deleted = append(f.deleted, strings.TrimPrefix(r.URL.Path, "/"))
			_, _ = w.Write([]byte(`{"acknowledged": true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{}`))
		}
	})
}

func newElasticStore(t *testing.T, fake *fakeES) *ElasticStore {
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return NewElasticStore(es, "knowledge-base", &TestLogger{t: t})
}

func TestElasticStore_LoadMissingAlias(t *testing.T) {
	store := newElasticStore(t, &fakeES{})

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded)

	_, err = store.Search(context.Background(), []float32{1, 0, 0}, 3)
	assert.ErrorIs(t, err, ErrIndexNotLoaded)
}

func TestElasticStore_LoadExistingAlias(t *testing.T) {
	store := newElasticStore(t, &fakeES{aliased: []string{"knowledge-base-old"}})

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, 4, store.Size())
}

func TestElasticStore_ReplaceSwapsAlias(t *testing.T) {
	fake := &fakeES{aliased: []string{"knowledge-base-old"}}
	store := newElasticStore(t, fake)

	require.NoError(t, store.Replace(context.Background(), sampleRecords()))

	require.Len(t, fake.created, 1)
	assert.True(t, strings.HasPrefix(fake.created[0], "knowledge-base-"))
	assert.Contains(t, fake.bulkBody, "tarjeta de crédito")
	assert.Contains(t, fake.aliasOps, `"remove"`)
	assert.Contains(t, fake.aliasOps, "knowledge-base-old")
	assert.Contains(t, fake.aliasOps, fake.created[0])
	assert.Equal(t, []string{"knowledge-base-old"}, fake.deleted)
	assert.Equal(t, 4, store.Size())
}

func TestElasticStore_ReplaceRejectsEmpty(t *testing.T) {
	store := newElasticStore(t, &fakeES{})
	assert.Error(t, store.Replace(context.Background(), nil))
}

func TestElasticStore_Search(t *testing.T) {
	store := newElasticStore(t, &fakeES{aliased: []string{"knowledge-base-old"}})
	_, err := store.Load(context.Background())
	require.NoError(t, err)

	matches, err := store.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "abrir cuenta", matches[0].Text)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.InDelta(t, 0.0, matches[1].Score, 1e-9)
}
