// internal/workers/assistant/search-knowledge-base/handler_test.go
package searchknowledgebase

import (
	"context"
	"errors"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bank-assistant/internal/common/errors"
	"bank-assistant/internal/models"
	"bank-assistant/internal/vectorstore"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
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
	newLogger := &TestLogger{t: l.t, fields: make(map[string]interface{})}
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	for k, v := range fields {
		newLogger.fields[k] = v
	}
	return newLogger
}

// ==========================
// Fakes
// ==========================

// wordEmbedder hashes each lower-cased word into a small bag-of-words vector.
type wordEmbedder struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (e *wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.fail.Load() {
		return nil, errors.New("embedding backend unavailable")
	}
	vec := make([]float32, 64)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, "¿?¡!.,:;")
		if len(word) < 4 {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%64]++
	}
	return vec, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.IndexEvent
}

func (n *recordingNotifier) Notify(ctx context.Context, event models.IndexEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

type emptyStore struct{}

func (emptyStore) Load(ctx context.Context) (bool, error)                          { return true, nil }
func (emptyStore) Replace(ctx context.Context, records []vectorstore.Record) error { return nil }
func (emptyStore) Search(ctx context.Context, v []float32, k int) ([]vectorstore.Match, error) {
	return nil, nil
}
func (emptyStore) Size() int       { return 0 }
func (emptyStore) Backend() string { return "empty" }

// ==========================
// Test Helpers
// ==========================

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return root
}

func bankCorpus(t *testing.T) string {
	return writeCorpus(t, map[string]string{
		"cuentas.txt":            "Para abrir una cuenta de ahorro necesitas tu cédula de identidad y un depósito inicial.",
		"productos/tarjetas.txt": "Para solicitar una tarjeta de crédito presenta constancia de trabajo y referencias bancarias.",
		"transferencias.txt":     "Las transferencias internacionales tienen una comisión del uno por ciento.",
		"notas.md":               "ignorado",
	})
}

func newTestHandler(t *testing.T, corpusPath string, store vectorstore.Store, emb *wordEmbedder) *Handler {
	t.Helper()
	h, err := NewHandler(&Config{
		CorpusPath:   corpusPath,
		ChunkSize:    500,
		ChunkOverlap: 50,
		TopK:         3,
	}, emb, store, NewTestLogger(t))
	require.NoError(t, err)
	return h
}

// ==========================
// Initialization
// ==========================

func TestHandler_Initialize_BuildsAndPersists(t *testing.T) {
	ctx := context.Background()
	root := bankCorpus(t)
	vsDir := filepath.Join(t.TempDir(), "vectorstore")
	emb := &wordEmbedder{}

	h := newTestHandler(t, root, vectorstore.NewMemoryStore(vectorstore.NewSQLiteSnapshot(vsDir)), emb)
	require.NoError(t, h.Initialize(ctx))
	assert.True(t, h.Ready())
	assert.Equal(t, 3, h.Size())
	assert.Equal(t, int32(3), emb.calls.Load())
	assert.FileExists(t, filepath.Join(vsDir, vectorstore.SnapshotFile))

	// A second instance loads the snapshot without embedding the corpus again.
	emb2 := &wordEmbedder{}
	h2 := newTestHandler(t, root, vectorstore.NewMemoryStore(vectorstore.NewSQLiteSnapshot(vsDir)), emb2)
	require.NoError(t, h2.Initialize(ctx))
	assert.Equal(t, int32(0), emb2.calls.Load())
	assert.Equal(t, 3, h2.Size())
}

func TestHandler_Initialize_CorruptSnapshotRebuilds(t *testing.T) {
	vsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(vsDir, vectorstore.SnapshotFile), []byte("garbage"), 0o644))

	h := newTestHandler(t, bankCorpus(t), vectorstore.NewMemoryStore(vectorstore.NewSQLiteSnapshot(vsDir)), &wordEmbedder{})
	require.NoError(t, h.Initialize(context.Background()))
	assert.Equal(t, 3, h.Size())
}

func TestHandler_Initialize_EmptyCorpus(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"no files", map[string]string{}},
		{"only other extensions", map[string]string{"readme.md": "hola"}},
		{"blank documents", map[string]string{"vacio.txt": "   \n\t "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, writeCorpus(t, tt.files), vectorstore.NewMemoryStore(nil), &wordEmbedder{})
			err := h.Initialize(context.Background())
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeEmptyCorpus, apperrors.Normalize(err).Code)
			assert.False(t, h.Ready())
		})
	}
}

func TestHandler_Initialize_EmbeddingFailure(t *testing.T) {
	emb := &wordEmbedder{}
	emb.fail.Store(true)

	h := newTestHandler(t, bankCorpus(t), vectorstore.NewMemoryStore(nil), emb)
	err := h.Initialize(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeEmbeddingFailed, apperrors.Normalize(err).Code)
}

func TestNewHandler_InvalidChunking(t *testing.T) {
	_, err := NewHandler(&Config{ChunkSize: 50, ChunkOverlap: 50}, &wordEmbedder{}, vectorstore.NewMemoryStore(nil), NewTestLogger(t))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfiguration, apperrors.Normalize(err).Code)
}

// ==========================
// Search
// ==========================

func TestHandler_Search(t *testing.T) {
	h := newTestHandler(t, bankCorpus(t), vectorstore.NewMemoryStore(nil), &wordEmbedder{})
	require.NoError(t, h.Initialize(context.Background()))

	res := h.Search(context.Background(), "¿Cómo puedo abrir una cuenta de ahorro?", 1)
	require.True(t, res.Success)
	require.Len(t, res.Passages, 1)
	assert.True(t, strings.HasSuffix(res.Sources[0], "cuentas.txt"))
	assert.Contains(t, res.Context, "abrir una cuenta")
}

func TestHandler_Search_DefaultK(t *testing.T) {
	h := newTestHandler(t, bankCorpus(t), vectorstore.NewMemoryStore(nil), &wordEmbedder{})
	require.NoError(t, h.Initialize(context.Background()))

	res := h.Search(context.Background(), "tarjeta de crédito", 0)
	require.True(t, res.Success)
	assert.Len(t, res.Passages, 3)
	assert.Len(t, res.Sources, 3)
	assert.Equal(t, 2, strings.Count(res.Context, "\n\n"))
	assert.True(t, strings.HasSuffix(res.Sources[0], "tarjetas.txt"))
}

func TestHandler_Search_DistinctSources(t *testing.T) {
	long := strings.Repeat("requisitos para abrir cuenta corriente. ", 40)
	root := writeCorpus(t, map[string]string{"cuentas.txt": long})

	h := newTestHandler(t, root, vectorstore.NewMemoryStore(nil), &wordEmbedder{})
	require.NoError(t, h.Initialize(context.Background()))
	require.Greater(t, h.Size(), 2)

	res := h.Search(context.Background(), "abrir cuenta", 3)
	require.True(t, res.Success)
	assert.Len(t, res.Passages, 3)
	assert.Len(t, res.Sources, 1)
}

func TestHandler_Search_Errors(t *testing.T) {
	t.Run("index not loaded", func(t *testing.T) {
		h := newTestHandler(t, bankCorpus(t), vectorstore.NewMemoryStore(nil), &wordEmbedder{})
		res := h.Search(context.Background(), "tarjeta", 3)
		assert.False(t, res.Success)
		assert.Equal(t, "search_error", res.ErrorCode)
		assert.Contains(t, res.Message, "VECTOR_INDEX_NOT_LOADED")
	})

	t.Run("embedding failure", func(t *testing.T) {
		emb := &wordEmbedder{}
		h := newTestHandler(t, bankCorpus(t), vectorstore.NewMemoryStore(nil), emb)
		require.NoError(t, h.Initialize(context.Background()))

		emb.fail.Store(true)
		res := h.Search(context.Background(), "tarjeta", 3)
		assert.Equal(t, "search_error", res.ErrorCode)
		assert.Contains(t, res.Message, "embedding backend unavailable")
	})

	t.Run("no results", func(t *testing.T) {
		h := newTestHandler(t, bankCorpus(t), emptyStore{}, &wordEmbedder{})
		res := h.Search(context.Background(), "tarjeta", 3)
		assert.Equal(t, "no_results", res.ErrorCode)
		assert.NotEmpty(t, res.Message)
	})
}

// ==========================
// Rebuild
// ==========================

func TestHandler_Rebuild_Notifies(t *testing.T) {
	root := bankCorpus(t)
	notifier := &recordingNotifier{}
	h := newTestHandler(t, root, vectorstore.NewMemoryStore(nil), &wordEmbedder{})
	h.SetNotifier(notifier)

	require.NoError(t, h.Initialize(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(root, "prestamos.txt"), []byte("Los préstamos personales requieren historial crediticio."), 0o644))
	require.NoError(t, h.Rebuild(context.Background()))
	assert.Equal(t, 4, h.Size())

	require.Len(t, notifier.events, 2)
	assert.Equal(t, models.EventIndexRebuilt, notifier.events[1].Type)
	assert.Equal(t, 4, notifier.events[1].Documents)
	assert.Equal(t, "memory", notifier.events[1].Backend)
}

func TestHandler_Rebuild_FailureKeepsPreviousIndex(t *testing.T) {
	emb := &wordEmbedder{}
	notifier := &recordingNotifier{}
	h := newTestHandler(t, bankCorpus(t), vectorstore.NewMemoryStore(nil), emb)
	h.SetNotifier(notifier)
	require.NoError(t, h.Initialize(context.Background()))

	emb.fail.Store(true)
	require.Error(t, h.Rebuild(context.Background()))
	assert.Equal(t, 3, h.Size())
	assert.True(t, h.Ready())
	assert.Equal(t, models.EventIndexRebuildFailed, notifier.events[len(notifier.events)-1].Type)
}

func TestHandler_SearchDuringRebuild(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(t, bankCorpus(t), vectorstore.NewMemoryStore(nil), &wordEmbedder{})
	require.NoError(t, h.Initialize(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				res := h.Search(ctx, "transferencias internacionales", 2)
				assert.True(t, res.Success)
			}
		}()
	}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Rebuild(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, h.Size())
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute(t *testing.T) {
	h := newTestHandler(t, bankCorpus(t), vectorstore.NewMemoryStore(nil), &wordEmbedder{})

	_, err := h.Execute(context.Background(), &Input{Query: "tarjeta"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeIndexNotReady, apperrors.Normalize(err).Code)

	require.NoError(t, h.Initialize(context.Background()))
	out, err := h.Execute(context.Background(), &Input{Query: "tarjeta de crédito", K: 1})
	require.NoError(t, err)
	assert.True(t, out.Result.Success)
	assert.Len(t, out.Result.Passages, 1)

	_, err = h.Execute(context.Background(), &Input{Query: " "})
	assert.Error(t, err)
}
