// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, the optional config.<APP_ENVIRONMENT>.yaml overlay,
// the .env file and the process environment.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// LLM_API_KEY overrides llm.api_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // overlay is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found walking from the working directory to the module root.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // test/e2e
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills credentials from well-known variables when the YAML left them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		for _, name := range []string{"LLM_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY"} {
			if val := os.Getenv(name); val != "" {
				cfg.LLM.APIKey = val
				break
			}
		}
	}
	if cfg.Embedding.APIKey == "" {
		if val := os.Getenv("EMBEDDING_API_KEY"); val != "" {
			cfg.Embedding.APIKey = val
		} else {
			cfg.Embedding.APIKey = cfg.LLM.APIKey
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}

	if cfg.Auth.Keycloak.ClientSecret == "" {
		if val := os.Getenv("KEYCLOAK_CLIENT_SECRET"); val != "" {
			cfg.Auth.Keycloak.ClientSecret = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "bank-assistant"
	}
	if cfg.App.Title == "" {
		cfg.App.Title = "BANCO HENRY"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8501
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 90000
	}
	if cfg.Server.RateLimitPerSec == 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = 20
	}

	a := &cfg.Assistant
	if a.DataCSVPath == "" {
		a.DataCSVPath = "data/saldos.csv"
	}
	if a.KnowledgeBasePath == "" {
		a.KnowledgeBasePath = "knowledge_base/"
	}
	if a.VectorstorePath == "" {
		a.VectorstorePath = "vectorstore/"
	}
	if a.ChunkSize == 0 {
		a.ChunkSize = 500
	}
	if a.ChunkOverlap == 0 {
		a.ChunkOverlap = 50
	}
	if a.TopK == 0 {
		a.TopK = 3
	}
	if a.AccountSource == "" {
		a.AccountSource = AccountSourceCSV
	}
	if a.AccountTable == "" {
		a.AccountTable = "accounts"
	}
	if a.IndexBackend == "" {
		a.IndexBackend = IndexBackendMemory
	}
	if a.EmbedConcurrency == 0 {
		a.EmbedConcurrency = 4
	}
	if a.WatchDebounce == 0 {
		a.WatchDebounce = 2000
	}

	l := &cfg.LLM
	if l.Provider == "" {
		l.Provider = ProviderOpenAI
	}
	if l.BaseURL == "" && l.Provider == ProviderOpenAI {
		l.BaseURL = "https://api.groq.com/openai/v1"
	}
	if l.Model == "" {
		l.Model = "llama3-70b-8192"
	}
	if l.ClassifierTemperature == 0 {
		l.ClassifierTemperature = 0.1
	}
	if l.AnswerTemperature == 0 {
		l.AnswerTemperature = 0.3
	}
	if l.MaxTokens == 0 {
		l.MaxTokens = 1024
	}
	if l.Timeout == 0 {
		l.Timeout = 30000
	}
	if l.MaxRetries == 0 {
		l.MaxRetries = 2
	}
	if l.ContextTokenBudget == 0 {
		l.ContextTokenBudget = 3000
	}

	e := &cfg.Embedding
	if e.Provider == "" {
		e.Provider = l.Provider
	}
	if e.BaseURL == "" {
		e.BaseURL = l.BaseURL
	}
	if e.Model == "" {
		e.Model = "text-embedding-3-small"
	}
	if e.Timeout == 0 {
		e.Timeout = 15000
	}
	if e.CacheTTL == 0 {
		e.CacheTTL = 3600000
	}
	if e.CacheSize == 0 {
		e.CacheSize = 1000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "knowledge-base"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.App.Name
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig rejects configurations the assistant cannot start with.
func validateConfig(cfg *Config) error {
	switch cfg.LLM.Provider {
	case ProviderOpenAI:
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for provider %q", cfg.LLM.Provider)
		}
	case ProviderGateway:
		if cfg.LLM.BaseURL == "" {
			return fmt.Errorf("llm.base_url is required for provider %q", cfg.LLM.Provider)
		}
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", ProviderOpenAI, ProviderGateway, cfg.LLM.Provider)
	}

	a := cfg.Assistant
	switch a.AccountSource {
	case AccountSourceCSV:
		if _, err := os.Stat(a.DataCSVPath); err != nil {
			return fmt.Errorf("assistant.data_csv_path: %w", err)
		}
	case AccountSourcePostgres:
		pg := cfg.Database.Postgres
		if pg.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if pg.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if pg.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	default:
		return fmt.Errorf("assistant.account_source must be %q or %q, got %q", AccountSourceCSV, AccountSourcePostgres, a.AccountSource)
	}

	info, err := os.Stat(a.KnowledgeBasePath)
	if err != nil {
		return fmt.Errorf("assistant.knowledge_base_path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("assistant.knowledge_base_path %s is not a directory", a.KnowledgeBasePath)
	}

	switch a.IndexBackend {
	case IndexBackendMemory:
	case IndexBackendElasticsearch:
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return fmt.Errorf("database.elasticsearch.addresses or url is required")
		}
	default:
		return fmt.Errorf("assistant.index_backend must be %q or %q, got %q", IndexBackendMemory, IndexBackendElasticsearch, a.IndexBackend)
	}

	if a.ChunkSize <= 0 {
		return fmt.Errorf("assistant.chunk_size must be positive")
	}
	if a.ChunkOverlap < 0 || a.ChunkOverlap >= a.ChunkSize {
		return fmt.Errorf("assistant.chunk_overlap must be in [0, chunk_size)")
	}

	if cfg.Integrations.AWS.SNS.Enabled && cfg.Integrations.AWS.SNS.TopicARN == "" {
		return fmt.Errorf("integrations.aws.sns.topic_arn is required when sns is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
