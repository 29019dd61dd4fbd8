package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Helpers
// ==========================

type fixture struct {
	dir    string
	csv    string
	kbPath string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "saldos.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("ID_Cedula,Nombre,Balance\nV-12345678,Juan Pérez,1250.50\n"), 0o644))

	kbPath := filepath.Join(dir, "kb")
	require.NoError(t, os.MkdirAll(kbPath, 0o755))

	for _, name := range []string{"LLM_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY", "EMBEDDING_API_KEY", "DB_USER", "DB_PASSWORD"} {
		t.Setenv(name, "")
	}

	return fixture{dir: dir, csv: csvPath, kbPath: kbPath}
}

func (f fixture) write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(f.dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func (f fixture) base() string {
	return "assistant:\n" +
		"  data_csv_path: " + f.csv + "\n" +
		"  knowledge_base_path: " + f.kbPath + "\n"
}

// ==========================
// Load tests
// ==========================

func TestLoadFromFile_Defaults(t *testing.T) {
	f := newFixture(t)
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := LoadFromFile(f.write(t, f.base()))
	require.NoError(t, err)

	assert.Equal(t, 8501, cfg.Server.Port)
	assert.Equal(t, 500, cfg.Assistant.ChunkSize)
	assert.Equal(t, 50, cfg.Assistant.ChunkOverlap)
	assert.Equal(t, 3, cfg.Assistant.TopK)
	assert.Equal(t, AccountSourceCSV, cfg.Assistant.AccountSource)
	assert.Equal(t, IndexBackendMemory, cfg.Assistant.IndexBackend)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "llama3-70b-8192", cfg.LLM.Model)
	assert.InDelta(t, 0.1, cfg.LLM.ClassifierTemperature, 1e-9)
	assert.InDelta(t, 0.3, cfg.LLM.AnswerTemperature, 1e-9)
	assert.Equal(t, "gsk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gsk-test", cfg.Embedding.APIKey, "embedding key falls back to the llm key")
	assert.False(t, cfg.Camunda.Enabled())
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	f := newFixture(t)
	t.Setenv("TEST_GATEWAY_URL", "http://gateway.local")

	body := f.base() + "llm:\n  provider: gateway\n  base_url: ${TEST_GATEWAY_URL}\n"
	cfg, err := LoadFromFile(f.write(t, body))
	require.NoError(t, err)

	assert.Equal(t, "http://gateway.local", cfg.LLM.BaseURL)
	assert.Equal(t, "http://gateway.local", cfg.Embedding.BaseURL)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		extra   func(f fixture) string
		wantErr string
	}{
		{
			name:    "openai provider without key",
			extra:   func(f fixture) string { return f.base() },
			wantErr: "llm.api_key is required",
		},
		{
			name: "missing csv file",
			extra: func(f fixture) string {
				return "assistant:\n  data_csv_path: " + filepath.Join(f.dir, "missing.csv") +
					"\n  knowledge_base_path: " + f.kbPath + "\nllm:\n  api_key: k\n"
			},
			wantErr: "assistant.data_csv_path",
		},
		{
			name: "missing knowledge base",
			extra: func(f fixture) string {
				return "assistant:\n  data_csv_path: " + f.csv +
					"\n  knowledge_base_path: " + filepath.Join(f.dir, "nope") + "\nllm:\n  api_key: k\n"
			},
			wantErr: "assistant.knowledge_base_path",
		},
		{
			name: "overlap not smaller than size",
			extra: func(f fixture) string {
				return f.base() + "  chunk_size: 100\n  chunk_overlap: 100\nllm:\n  api_key: k\n"
			},
			wantErr: "chunk_overlap",
		},
		{
			name: "postgres source without host",
			extra: func(f fixture) string {
				return f.base() + "  account_source: postgres\nllm:\n  api_key: k\n"
			},
			wantErr: "database.postgres.host is required",
		},
		{
			name: "elasticsearch backend without address",
			extra: func(f fixture) string {
				return f.base() + "  index_backend: elasticsearch\nllm:\n  api_key: k\n"
			},
			wantErr: "database.elasticsearch",
		},
		{
			name: "unknown provider",
			extra: func(f fixture) string {
				return f.base() + "llm:\n  provider: bedrock\n"
			},
			wantErr: "llm.provider must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := LoadFromFile(f.write(t, tt.extra(f)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_WorkerDefaults(t *testing.T) {
	f := newFixture(t)
	body := f.base() + "llm:\n  api_key: k\nworkers:\n  classify-intent:\n    enabled: false\n"

	cfg, err := LoadFromFile(f.write(t, body))
	require.NoError(t, err)

	w := GetWorkerConfig(cfg, "classify-intent")
	assert.False(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)

	assert.False(t, IsWorkerEnabled(cfg, "classify-intent"))
	assert.True(t, IsWorkerEnabled(cfg, "process-query"))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "bank", Password: "s3cret", Database: "accounts", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=bank password=s3cret dbname=accounts sslmode=disable", p.GetDSN())
}
