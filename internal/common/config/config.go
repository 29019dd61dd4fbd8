// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Server       ServerConfig            `mapstructure:"server"`
	Assistant    AssistantConfig         `mapstructure:"assistant"`
	LLM          LLMConfig               `mapstructure:"llm"`
	Embedding    EmbeddingConfig         `mapstructure:"embedding"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Auth         AuthConfig              `mapstructure:"auth"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Tracing      TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Title       string `mapstructure:"title"`
}

type ServerConfig struct {
	Port            int     `mapstructure:"port"`
	ReadTimeout     int     `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout    int     `mapstructure:"write_timeout"` // milliseconds
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
}

// Account source and index backend selectors.
const (
	AccountSourceCSV      = "csv"
	AccountSourcePostgres = "postgres"

	IndexBackendMemory        = "memory"
	IndexBackendElasticsearch = "elasticsearch"

	ProviderOpenAI  = "openai"
	ProviderGateway = "gateway"
)

// AssistantConfig holds the data locations and retrieval parameters.
type AssistantConfig struct {
	DataCSVPath       string `mapstructure:"data_csv_path"`
	KnowledgeBasePath string `mapstructure:"knowledge_base_path"`
	VectorstorePath   string `mapstructure:"vectorstore_path"`
	ChunkSize         int    `mapstructure:"chunk_size"`
	ChunkOverlap      int    `mapstructure:"chunk_overlap"`
	TopK              int    `mapstructure:"top_k"`
	AccountSource     string `mapstructure:"account_source"`
	AccountTable      string `mapstructure:"account_table"`
	IndexBackend      string `mapstructure:"index_backend"`
	EmbedConcurrency  int    `mapstructure:"embed_concurrency"`
	WatchCorpus       bool   `mapstructure:"watch_corpus"`
	WatchDebounce     int    `mapstructure:"watch_debounce"` // milliseconds
}

// LLMConfig configures the text-generation backend.
type LLMConfig struct {
	Provider              string  `mapstructure:"provider"`
	BaseURL               string  `mapstructure:"base_url"`
	APIKey                string  `mapstructure:"api_key"`
	Model                 string  `mapstructure:"model"`
	ClassifierTemperature float64 `mapstructure:"classifier_temperature"`
	AnswerTemperature     float64 `mapstructure:"answer_temperature"`
	MaxTokens             int     `mapstructure:"max_tokens"`
	Timeout               int     `mapstructure:"timeout"` // milliseconds
	MaxRetries            int     `mapstructure:"max_retries"`
	ContextTokenBudget    int     `mapstructure:"context_token_budget"`
	TokenizerEncoding     string  `mapstructure:"tokenizer_encoding"`
}

// EmbeddingConfig configures the embedding backend and its cache.
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	Timeout   int    `mapstructure:"timeout"`   // milliseconds
	CacheTTL  int    `mapstructure:"cache_ttl"` // milliseconds
	CacheSize int    `mapstructure:"cache_size"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	RegistryPath   string `mapstructure:"registry_path"`   // empty uses the built-in activity registry
}

// Enabled reports whether job workers should be started.
func (c CamundaConfig) Enabled() bool {
	return c.BrokerAddress != ""
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // single URL shorthand
	Index     string   `mapstructure:"index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// RedisConfig is optional; an empty address disables the L2 embedding cache.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// AuthConfig protects the administrative routes. An empty URL leaves them open.
type AuthConfig struct {
	Keycloak KeycloakConfig `mapstructure:"keycloak"`
}

type KeycloakConfig struct {
	URL          string `mapstructure:"url"`
	Realm        string `mapstructure:"realm"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RequiredRole string `mapstructure:"required_role"`
}

// IntegrationConfig holds settings for external notification services.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracingConfig enables span export to jaeger.
type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}
