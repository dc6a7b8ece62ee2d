package config

import (
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Server
	Port           string
	AppName        string
	FrontendURL    string
	RequestTimeout time.Duration // per analysis run; 0 = none

	// Storage: Postgres when DatabaseURL is set, in-memory otherwise.
	DatabaseURL       string
	AnalysisCacheSize int

	// GitHub
	GitHubToken  string // server-wide fallback when a request carries none
	GitHubAPIURL string // empty = api.github.com
	GitHubRPS    float64
	GitHubBurst  int

	// Gemini
	GeminiBaseURL string
	DefaultModel  string

	// File tree walk
	TreeMaxDepth int
	TreeMaxNodes int
	TreeWorkers  int

	// Chat relay
	ChatBuffer int

	// MCP
	MCPEnabled bool
	MCPPort    string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:           envOrDefault("PORT", "3001"),
		AppName:        envOrDefault("APP_NAME", "CodeAtlas"),
		FrontendURL:    envOrDefault("FRONTEND_URL", "http://localhost:3000"),
		RequestTimeout: time.Duration(envOrDefaultInt("REQUEST_TIMEOUT_SECONDS", 300)) * time.Second,

		DatabaseURL:       os.Getenv("DATABASE_URL"),
		AnalysisCacheSize: envOrDefaultInt("ANALYSIS_CACHE_SIZE", 128),

		GitHubToken:  os.Getenv("GITHUB_TOKEN"),
		GitHubAPIURL: os.Getenv("GITHUB_API_URL"),
		GitHubRPS:    envOrDefaultFloat("GITHUB_RPS", 10),
		GitHubBurst:  envOrDefaultInt("GITHUB_BURST", 20),

		GeminiBaseURL: os.Getenv("GEMINI_BASE_URL"),
		DefaultModel:  envOrDefault("DEFAULT_MODEL", "gemini-1.5-flash"),

		TreeMaxDepth: envOrDefaultInt("TREE_MAX_DEPTH", 12),
		TreeMaxNodes: envOrDefaultInt("TREE_MAX_NODES", 5000),
		TreeWorkers:  envOrDefaultInt("TREE_WORKERS", 8),

		ChatBuffer: envOrDefaultInt("CHAT_BUFFER", 16),

		MCPEnabled: envOrDefaultBool("MCP_ENABLED", false),
		MCPPort:    envOrDefault("MCP_PORT", "3002"),
	}
}

// StorageName names the analysis backend selected by the configuration.
func (c *Config) StorageName() string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "memory"
}

// DSN returns the database URL with the password masked, for logging.
func (c *Config) DSN() string {
	if c.DatabaseURL == "" {
		return ""
	}
	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}
