package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for repolens.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Filter    FilterConfig    `yaml:"filter"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Lock      LockConfig      `yaml:"lock"`
	GitHub    GitHubConfig    `yaml:"github"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig holds chunking and indexing configuration.
type IndexConfig struct {
	ScriptThreshold int      `yaml:"script_threshold"` // script files below this many characters also get a file chunk
	WindowSize      int      `yaml:"window_size"`
	WindowStride    int      `yaml:"window_stride"`
	Workers         int      `yaml:"workers"`
	ExcludeDirs     []string `yaml:"exclude_dirs"`
	Excludes        []string `yaml:"excludes"` // doublestar patterns applied at listing time
	GoAST           bool     `yaml:"go_ast"`
	ProgressEvery   int      `yaml:"progress_every"`
}

// FilterConfig holds file eligibility rules.
type FilterConfig struct {
	MaxFileSize        int64    `yaml:"max_file_size"`
	DeniedExtensions   []string `yaml:"denied_extensions"`
	DeniedPathContains []string `yaml:"denied_path_contains"`
	DeniedNames        []string `yaml:"denied_names"`
}

// EmbeddingConfig holds embedding service configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"` // "huggingface", "openai", "none"
	URL       string        `yaml:"url"`
	Model     string        `yaml:"model"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
	Breaker   BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of the embedding service.
type BreakerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Backend     string `yaml:"backend"` // "memory", "bolt", "postgres"
	BoltPath    string `yaml:"bolt_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// LockConfig selects how concurrent index runs are prevented.
type LockConfig struct {
	Backend   string        `yaml:"backend"` // "local", "redis"
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// GitHubConfig holds repository content provider configuration.
type GitHubConfig struct {
	TokenEnv       string        `yaml:"token_env"`
	BaseURL        string        `yaml:"base_url"`
	Branch         string        `yaml:"branch"`
	RequestsPerSec float64       `yaml:"requests_per_sec"`
	Burst          int           `yaml:"burst"`
	Timeout        time.Duration `yaml:"timeout"`
}

// SearchConfig holds retrieval configuration.
type SearchConfig struct {
	TopK      int           `yaml:"top_k"`
	CacheSize int           `yaml:"cache_size"` // 0 disables the query cache
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			ScriptThreshold: 2000,
			WindowSize:      5000,
			WindowStride:    4500,
			Workers:         1,
			ExcludeDirs:     []string{"node_modules", ".git", ".next", "build", "dist"},
			ProgressEvery:   10,
		},
		Filter: FilterConfig{
			MaxFileSize: 1024 * 1024,
			DeniedExtensions: []string{
				".jpg", ".jpeg", ".png", ".gif", ".svg", ".ico",
				".woff", ".ttf", ".eot", ".otf",
				".pdf", ".zip", ".tar", ".gz", ".exe", ".dll",
			},
			DeniedPathContains: []string{"node_modules", "dist/", "build/", ".git/"},
			DeniedNames:        []string{"package-lock.json", "yarn.lock", ".eslintcache"},
		},
		Embedding: EmbeddingConfig{
			Provider:  "huggingface",
			URL:       "https://api-inference.huggingface.co/pipeline/feature-extraction/sentence-transformers/all-MiniLM-L6-v2",
			Model:     "sentence-transformers/all-MiniLM-L6-v2",
			APIKeyEnv: "HF_API_KEY",
			Timeout:   30 * time.Second,
			Breaker: BreakerConfig{
				Enabled:             true,
				ConsecutiveFailures: 5,
				OpenTimeout:         30 * time.Second,
			},
		},
		Store: StoreConfig{
			Backend:  "bolt",
			BoltPath: filepath.Join(".repolens", "index.db"),
		},
		Lock: LockConfig{
			Backend: "local",
			TTL:     30 * time.Minute,
		},
		GitHub: GitHubConfig{
			TokenEnv:       "GITHUB_TOKEN",
			Branch:         "main",
			RequestsPerSec: 10,
			Burst:          10,
			Timeout:        60 * time.Second,
		},
		Search: SearchConfig{
			TopK:      5,
			CacheSize: 256,
			CacheTTL:  5 * time.Minute,
		},
		Server: ServerConfig{
			Addr:        ":3001",
			CORSOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory. It reads a .env file
// first, then looks for repolens.yaml and .repolens/config.yaml.
func LoadFromDir(dir string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	for _, path := range []string{
		filepath.Join(dir, "repolens.yaml"),
		filepath.Join(dir, ".repolens", "config.yaml"),
	} {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Index.WindowSize <= 0 {
		return fmt.Errorf("index.window_size must be positive")
	}
	if c.Index.WindowStride <= 0 || c.Index.WindowStride > c.Index.WindowSize {
		return fmt.Errorf("index.window_stride must be in (0, window_size], got %d", c.Index.WindowStride)
	}
	if c.Index.Workers < 1 {
		return fmt.Errorf("index.workers must be at least 1")
	}
	switch c.Store.Backend {
	case "memory", "bolt", "postgres":
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}
	switch c.Lock.Backend {
	case "local", "redis":
	default:
		return fmt.Errorf("unknown lock backend: %q", c.Lock.Backend)
	}
	switch c.Embedding.Provider {
	case "huggingface", "openai", "none":
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.Embedding.Provider)
	}
	return nil
}

// APIKey returns the embedding service credential from the environment.
func (c *Config) APIKey() string {
	return os.Getenv(c.Embedding.APIKeyEnv)
}

// GitHubToken returns the default GitHub credential from the environment.
func (c *Config) GitHubToken() string {
	return os.Getenv(c.GitHub.TokenEnv)
}

func (c *Config) applyEnv() {
	c.Store.Backend = envOrDefault("REPOLENS_STORE", c.Store.Backend)
	c.Store.BoltPath = envOrDefault("REPOLENS_BOLT_PATH", c.Store.BoltPath)
	c.Store.PostgresDSN = envOrDefault("DATABASE_URL", c.Store.PostgresDSN)
	c.Lock.RedisAddr = envOrDefault("REDIS_ADDR", c.Lock.RedisAddr)
	if c.Lock.RedisAddr != "" && os.Getenv("REPOLENS_LOCK") == "" {
		c.Lock.Backend = "redis"
	}
	c.Lock.Backend = envOrDefault("REPOLENS_LOCK", c.Lock.Backend)
	c.Embedding.Provider = envOrDefault("REPOLENS_EMBEDDING_PROVIDER", c.Embedding.Provider)
	c.Embedding.URL = envOrDefault("REPOLENS_EMBEDDING_URL", c.Embedding.URL)
	c.Index.Workers = envOrDefaultInt("REPOLENS_WORKERS", c.Index.Workers)
	c.Search.TopK = envOrDefaultInt("REPOLENS_TOP_K", c.Search.TopK)
	c.Logging.Level = envOrDefault("REPOLENS_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = envOrDefault("REPOLENS_LOG_FORMAT", c.Logging.Format)
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
}

// IndexDBPath returns the path to the bolt index under dir unless the
// configured path is absolute.
func (c *Config) IndexDBPath(dir string) string {
	if filepath.IsAbs(c.Store.BoltPath) {
		return c.Store.BoltPath
	}
	return filepath.Join(dir, c.Store.BoltPath)
}

// EnsureDBDir ensures the directory holding the bolt index exists.
func (c *Config) EnsureDBDir(dir string) error {
	return os.MkdirAll(filepath.Dir(c.IndexDBPath(dir)), 0755)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
