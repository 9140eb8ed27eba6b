package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a jobsift run.
type Config struct {
	Search       SearchConfig
	Filters      FilterConfig
	Fetch        FetchConfig
	AI           AIConfig
	Storage      StorageConfig
	Schedule     ScheduleConfig
	Notification NotificationConfig
	LogFile      string
}

// SearchConfig describes the search-results page to scrape.
type SearchConfig struct {
	Keywords     string // search term sent to the site
	Location     string
	LookbackDays int    // only postings from the last N days
	SearchURL    string // base of the guest search endpoint
	ViewURL      string // prefix for canonical posting URLs
}

// LookbackSeconds returns the lookback window as the site's f_TPR value.
func (s SearchConfig) LookbackSeconds() int {
	return s.LookbackDays * 24 * 60 * 60
}

// FilterConfig holds the title keywords that select listings for enrichment.
type FilterConfig struct {
	TitleKeywords []string
}

// FetchConfig controls the HTTP fetcher and detail-page pacing.
type FetchConfig struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	MinDelay          time.Duration // lower bound of the randomized gap between detail fetches
	MaxDelay          time.Duration // upper bound of the randomized gap between detail fetches
	SearchRetries     int
	SearchRetryDelay  time.Duration
}

// AIConfig controls the classification layer.
type AIConfig struct {
	Enabled    bool
	Provider   string // gemini, openai, ollama, anthropic
	Model      string
	APIKey     string // expanded from env var by Load, keychain fallback in cmd
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// StorageConfig names the database file, its tables and the snapshot directory.
type StorageConfig struct {
	DBPath               string
	OutputDir            string
	ListingsTable        string
	ClassificationsTable string
}

// ScheduleConfig controls the daemon loop.
type ScheduleConfig struct {
	Interval time.Duration
}

// NotificationConfig selects where new listings are announced.
type NotificationConfig struct {
	Type       string // "log", "slack" or "none"
	WebhookURL string
}

// Known AI providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

const (
	defaultSearchURL     = "https://www.linkedin.com/jobs/search"
	defaultViewURL       = "https://www.linkedin.com/jobs/view/"
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Search       rawSearchConfig       `yaml:"search"`
	Filters      rawFilterConfig       `yaml:"filters"`
	Fetch        rawFetchConfig        `yaml:"fetch"`
	AI           rawAIConfig           `yaml:"ai"`
	Storage      rawStorageConfig      `yaml:"storage"`
	Schedule     rawScheduleConfig     `yaml:"schedule"`
	Notification rawNotificationConfig `yaml:"notification"`
	LogFile      string                `yaml:"log_file"`
}

type rawNotificationConfig struct {
	Type       string `yaml:"type"`
	WebhookURL string `yaml:"webhook_url"`
}

type rawSearchConfig struct {
	Keywords     string `yaml:"keywords"`
	Location     string `yaml:"location"`
	LookbackDays int    `yaml:"lookback_days"`
	SearchURL    string `yaml:"search_url"`
	ViewURL      string `yaml:"view_url"`
}

type rawFilterConfig struct {
	TitleKeywords []string `yaml:"title_keywords"`
}

type rawFetchConfig struct {
	Timeout           string  `yaml:"timeout"`
	UserAgent         string  `yaml:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MinDelay          string  `yaml:"min_delay"`
	MaxDelay          string  `yaml:"max_delay"`
	SearchRetries     *int    `yaml:"search_retries"`
	SearchRetryDelay  string  `yaml:"search_retry_delay"`
}

type rawAIConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
	RetryDelay string `yaml:"retry_delay"`
}

type rawStorageConfig struct {
	DBPath               string `yaml:"db_path"`
	OutputDir            string `yaml:"output_dir"`
	ListingsTable        string `yaml:"listings_table"`
	ClassificationsTable string `yaml:"classifications_table"`
}

type rawScheduleConfig struct {
	Interval string `yaml:"interval"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes. Environment variables are expanded first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{
		Search: SearchConfig{
			Keywords:     raw.Search.Keywords,
			Location:     raw.Search.Location,
			LookbackDays: raw.Search.LookbackDays,
			SearchURL:    orDefault(raw.Search.SearchURL, defaultSearchURL),
			ViewURL:      orDefault(raw.Search.ViewURL, defaultViewURL),
		},
		Filters: FilterConfig{TitleKeywords: raw.Filters.TitleKeywords},
		Fetch: FetchConfig{
			UserAgent:         orDefault(raw.Fetch.UserAgent, defaultUserAgent),
			RequestsPerSecond: raw.Fetch.RequestsPerSecond,
			SearchRetries:     2,
		},
		AI: AIConfig{
			Enabled:    raw.AI.Enabled,
			Provider:   orDefault(raw.AI.Provider, ProviderGemini),
			Model:      raw.AI.Model,
			APIKey:     raw.AI.APIKey,
			BaseURL:    raw.AI.BaseURL,
			MaxRetries: raw.AI.MaxRetries,
		},
		Storage: StorageConfig{
			DBPath:               orDefault(raw.Storage.DBPath, "jobs.db"),
			OutputDir:            orDefault(raw.Storage.OutputDir, "output"),
			ListingsTable:        orDefault(raw.Storage.ListingsTable, "base_table"),
			ClassificationsTable: orDefault(raw.Storage.ClassificationsTable, "genai_table"),
		},
		Notification: NotificationConfig{
			Type:       orDefault(raw.Notification.Type, "log"),
			WebhookURL: raw.Notification.WebhookURL,
		},
		LogFile: raw.LogFile,
	}

	if cfg.Search.LookbackDays == 0 {
		cfg.Search.LookbackDays = 1
	}
	if cfg.Fetch.RequestsPerSecond == 0 {
		cfg.Fetch.RequestsPerSecond = 1
	}
	if raw.Fetch.SearchRetries != nil {
		cfg.Fetch.SearchRetries = *raw.Fetch.SearchRetries
	}
	if cfg.AI.MaxRetries == 0 {
		cfg.AI.MaxRetries = 3
	}
	if cfg.AI.BaseURL == "" {
		switch cfg.AI.Provider {
		case ProviderOpenAI:
			cfg.AI.BaseURL = defaultOpenAIBaseURL
		case ProviderOllama:
			cfg.AI.BaseURL = defaultOllamaBaseURL
		}
	}

	durations := []durationField{
		{"fetch.timeout", raw.Fetch.Timeout, 5 * time.Second, &cfg.Fetch.Timeout},
		{"fetch.min_delay", raw.Fetch.MinDelay, 2 * time.Second, &cfg.Fetch.MinDelay},
		{"fetch.max_delay", raw.Fetch.MaxDelay, 5 * time.Second, &cfg.Fetch.MaxDelay},
		{"fetch.search_retry_delay", raw.Fetch.SearchRetryDelay, 5 * time.Second, &cfg.Fetch.SearchRetryDelay},
		{"ai.timeout", raw.AI.Timeout, 60 * time.Second, &cfg.AI.Timeout},
		{"ai.retry_delay", raw.AI.RetryDelay, 5 * time.Second, &cfg.AI.RetryDelay},
		{"schedule.interval", raw.Schedule.Interval, time.Hour, &cfg.Schedule.Interval},
	}
	for _, d := range durations {
		if err := d.parse(); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// durationField maps a raw YAML duration string onto its typed destination.
type durationField struct {
	name string
	raw  string
	def  time.Duration
	dst  *time.Duration
}

func (d durationField) parse() error {
	if d.raw == "" {
		*d.dst = d.def
		return nil
	}
	v, err := time.ParseDuration(d.raw)
	if err != nil {
		return fmt.Errorf("parse %s %q: %w", d.name, d.raw, err)
	}
	*d.dst = v
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func validate(cfg *Config) error {
	if cfg.Search.Keywords == "" {
		return fmt.Errorf("search.keywords is required")
	}
	if cfg.Search.LookbackDays < 0 {
		return fmt.Errorf("search.lookback_days must be positive, got %d", cfg.Search.LookbackDays)
	}
	if len(cfg.Filters.TitleKeywords) == 0 {
		return fmt.Errorf("filters.title_keywords must list at least one keyword")
	}

	if cfg.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %v", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.RequestsPerSecond < 0 {
		return fmt.Errorf("fetch.requests_per_second must be positive, got %v", cfg.Fetch.RequestsPerSecond)
	}
	if cfg.Fetch.MinDelay < 0 || cfg.Fetch.MaxDelay < 0 {
		return fmt.Errorf("fetch delays must not be negative")
	}
	if cfg.Fetch.MinDelay > cfg.Fetch.MaxDelay {
		return fmt.Errorf("fetch.min_delay (%v) must not exceed fetch.max_delay (%v)", cfg.Fetch.MinDelay, cfg.Fetch.MaxDelay)
	}
	if cfg.Fetch.SearchRetries < 0 {
		return fmt.Errorf("fetch.search_retries must not be negative, got %d", cfg.Fetch.SearchRetries)
	}

	if cfg.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule.interval must be positive, got %v", cfg.Schedule.Interval)
	}

	switch cfg.Notification.Type {
	case "log", "none":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required for slack")
		}
	default:
		return fmt.Errorf("notification.type %q is not supported (log, slack, none)", cfg.Notification.Type)
	}

	if cfg.AI.Enabled {
		switch cfg.AI.Provider {
		case ProviderGemini, ProviderOpenAI, ProviderOllama, ProviderAnthropic:
		default:
			return fmt.Errorf("ai.provider %q is not supported (gemini, openai, ollama, anthropic)", cfg.AI.Provider)
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
		if cfg.AI.MaxRetries < 1 {
			return fmt.Errorf("ai.max_retries must be at least 1, got %d", cfg.AI.MaxRetries)
		}
		if cfg.AI.RetryDelay < 0 {
			return fmt.Errorf("ai.retry_delay must not be negative, got %v", cfg.AI.RetryDelay)
		}
	}

	return nil
}

// NeedsAPIKey reports whether the configured provider authenticates with a key.
func (a AIConfig) NeedsAPIKey() bool {
	return a.Provider != ProviderOllama
}
