package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ContentDigest/internal/cleaner"
	"ContentDigest/internal/extractor"
	"ContentDigest/internal/report"
	"ContentDigest/internal/scoring"
)

// PathEnv names the environment variable holding the YAML config path.
const PathEnv = "CONTENT_DIGEST_CONFIG"

const (
	defaultTimezone  = "UTC"
	databaseDSNEnv   = "DATABASE_DSN"
	redisURLEnv      = "REDIS_URL"
	chatGPTAPIKeyEnv = "CHATGPT_API_KEY"
	chatGPTModelEnv  = "CHATGPT_MODEL"
	logLevelEnv      = "LOG_LEVEL"
	metricsAddrEnv   = "METRICS_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Processing ProcessingConfig `yaml:"processing"`
	Scoring    scoring.Config   `yaml:"scoring"`
	Extraction extractor.Config `yaml:"extraction"`
	Cleaner    cleaner.Config   `yaml:"cleaner"`
	ChatGPT    ChatGPTConfig    `yaml:"chatgpt"`
	Report     ReportConfig     `yaml:"report"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Sites      []SiteConfig     `yaml:"sites"`
}

// LoggingConfig selects the slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN disables persistence.
type DatabaseConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// RedisConfig describes the dedup cache backend. With neither URL nor Addrs set an in-process
// cache bounded by MemoryMaxEntries is used instead.
type RedisConfig struct {
	URL              string        `yaml:"url"`
	Addrs            []string      `yaml:"addrs"`
	MasterName       string        `yaml:"masterName"`
	Username         string        `yaml:"username"`
	Password         string        `yaml:"password"`
	DB               int           `yaml:"db"`
	KeyPrefix        string        `yaml:"keyPrefix"`
	DialTimeout      time.Duration `yaml:"dialTimeout"`
	ReadTimeout      time.Duration `yaml:"readTimeout"`
	WriteTimeout     time.Duration `yaml:"writeTimeout"`
	MemoryMaxEntries int           `yaml:"memoryMaxEntries"`
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || len(r.Addrs) > 0
}

// SchedulerConfig defines how often ingest cycles run and how far back each one looks.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Lookback time.Duration  `yaml:"lookback"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ProcessingConfig tunes the document processor.
type ProcessingConfig struct {
	Workers          int     `yaml:"workers"`
	MinCleanedLength int     `yaml:"minCleanedLength"`
	MaxKeywords      int     `yaml:"maxKeywords"`
	Domain           string  `yaml:"domain"`
	BaseAuthority    float64 `yaml:"baseAuthority"`
	SerializeDedup   bool    `yaml:"serializeDedup"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
	Temperature  float64       `yaml:"temperature"`
}

// ReportConfig holds the default report layout.
type ReportConfig struct {
	SummaryTimeout time.Duration        `yaml:"summaryTimeout"`
	IncludeSummary bool                 `yaml:"includeSummary"`
	Sections       []report.SectionSpec `yaml:"sections"`
}

// MetricsConfig sets where Prometheus metrics are served.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds the concrete endpoints to crawl (feed URLs, arXiv listings).
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(PathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Default returns the built-in configuration without reading files or the environment.
func Default() Config {
	cfg := defaultConfig()
	cfg.bindTimezone()
	return cfg
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(redisURLEnv); v != "" {
		c.Redis.URL = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(metricsAddrEnv); v != "" {
		c.Metrics.Addr = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Database.Table != "" {
		base.Database.Table = override.Database.Table
	}

	base.Redis = mergeRedis(base.Redis, override.Redis)

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Lookback > 0 {
		base.Scheduler.Lookback = override.Scheduler.Lookback
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	base.Processing = mergeProcessing(base.Processing, override.Processing)
	base.Scoring = mergeScoring(base.Scoring, override.Scoring)

	if len(override.Extraction.DomainTerms) > 0 {
		base.Extraction.DomainTerms = override.Extraction.DomainTerms
	}
	if len(override.Extraction.AIIndicators) > 0 {
		base.Extraction.AIIndicators = override.Extraction.AIIndicators
	}

	if len(override.Cleaner.RemoveTags) > 0 {
		base.Cleaner.RemoveTags = override.Cleaner.RemoveTags
	}
	if len(override.Cleaner.AdPatterns) > 0 {
		base.Cleaner.AdPatterns = override.Cleaner.AdPatterns
	}
	if len(override.Cleaner.NoisePhrases) > 0 {
		base.Cleaner.NoisePhrases = override.Cleaner.NoisePhrases
	}
	if override.Cleaner.MinLineLength > 0 {
		base.Cleaner.MinLineLength = override.Cleaner.MinLineLength
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}
	if override.ChatGPT.Timeout > 0 {
		base.ChatGPT.Timeout = override.ChatGPT.Timeout
	}
	if override.ChatGPT.Temperature > 0 {
		base.ChatGPT.Temperature = override.ChatGPT.Temperature
	}

	if override.Report.SummaryTimeout > 0 {
		base.Report.SummaryTimeout = override.Report.SummaryTimeout
	}
	if override.Report.IncludeSummary {
		base.Report.IncludeSummary = true
	}
	if len(override.Report.Sections) > 0 {
		base.Report.Sections = override.Report.Sections
	}

	if override.Metrics.Addr != "" {
		base.Metrics.Addr = override.Metrics.Addr
	}
	if override.Metrics.Path != "" {
		base.Metrics.Path = override.Metrics.Path
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func mergeRedis(base, override RedisConfig) RedisConfig {
	if override.Enabled() {
		base.URL = override.URL
		base.Addrs = override.Addrs
		base.MasterName = override.MasterName
		base.Username = override.Username
		base.Password = override.Password
		base.DB = override.DB
	}
	if override.KeyPrefix != "" {
		base.KeyPrefix = override.KeyPrefix
	}
	if override.DialTimeout > 0 {
		base.DialTimeout = override.DialTimeout
	}
	if override.ReadTimeout > 0 {
		base.ReadTimeout = override.ReadTimeout
	}
	if override.WriteTimeout > 0 {
		base.WriteTimeout = override.WriteTimeout
	}
	if override.MemoryMaxEntries > 0 {
		base.MemoryMaxEntries = override.MemoryMaxEntries
	}
	return base
}

func mergeProcessing(base, override ProcessingConfig) ProcessingConfig {
	if override.Workers > 0 {
		base.Workers = override.Workers
	}
	if override.MinCleanedLength > 0 {
		base.MinCleanedLength = override.MinCleanedLength
	}
	if override.MaxKeywords > 0 {
		base.MaxKeywords = override.MaxKeywords
	}
	if override.Domain != "" {
		base.Domain = override.Domain
	}
	if override.BaseAuthority > 0 {
		base.BaseAuthority = override.BaseAuthority
	}
	if override.SerializeDedup {
		base.SerializeDedup = true
	}
	return base
}

func mergeScoring(base, override scoring.Config) scoring.Config {
	if override.Weights != (scoring.Weights{}) {
		base.Weights = override.Weights
	}
	if len(override.AuthoritySources) > 0 {
		base.AuthoritySources = override.AuthoritySources
	}
	if len(override.ImportantKeywords) > 0 {
		base.ImportantKeywords = override.ImportantKeywords
	}
	if len(override.AIKeywords) > 0 {
		base.AIKeywords = override.AIKeywords
	}
	if len(override.AICategories) > 0 {
		base.AICategories = override.AICategories
	}
	if len(override.NoveltyTerms) > 0 {
		base.NoveltyTerms = override.NoveltyTerms
	}
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Table: "processed_content"},
		Redis: RedisConfig{
			KeyPrefix:        "content-digest:",
			DialTimeout:      5 * time.Second,
			ReadTimeout:      3 * time.Second,
			WriteTimeout:     3 * time.Second,
			MemoryMaxEntries: 100_000,
		},
		Scheduler: SchedulerConfig{
			Interval: time.Hour,
			Lookback: 24 * time.Hour,
			Timezone: defaultTimezone,
			location: tz,
		},
		Processing: ProcessingConfig{
			Workers:          8,
			MinCleanedLength: 50,
			MaxKeywords:      20,
			Domain:           "AI",
			BaseAuthority:    0.7,
		},
		Scoring:    scoring.DefaultConfig(),
		Extraction: extractor.DefaultConfig(),
		Cleaner:    cleaner.DefaultConfig(),
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are an analyst summarizing AI industry news.",
			Timeout:      20 * time.Second,
			Temperature:  0.7,
		},
		Report: ReportConfig{
			SummaryTimeout: 20 * time.Second,
			IncludeSummary: true,
			Sections: []report.SectionSpec{
				{ID: "executive", Name: "Executive summary", Kind: report.KindExecutiveSummary, Order: 1},
				{
					ID:       "top",
					Name:     "Top stories",
					Kind:     report.KindNewsList,
					Order:    2,
					MaxItems: 10,
					Filters:  map[string]any{"importance_score": map[string]any{"$gte": 0.7}},
				},
				{ID: "categories", Name: "By category", Kind: report.KindCategorizedList, Order: 3, MaxItems: 30},
				{ID: "companies", Name: "Companies", Kind: report.KindGroupedList, Order: 4, MaxItems: 30},
				{ID: "trends", Name: "Trends", Kind: report.KindTrendAnalysis, Order: 5},
			},
		},
		Metrics: MetricsConfig{Addr: ":9090", Path: "/metrics"},
		Sites: []SiteConfig{
			{
				Name:    "arxiv-ai",
				Scanner: "arxiv",
				Categories: []CategoryConfig{
					{Name: "cs.AI", URL: "https://export.arxiv.org/list/cs.AI/pastweek"},
				},
			},
			{
				Name:    "techcrunch-ai",
				Scanner: "rss",
				Categories: []CategoryConfig{
					{Name: "ai", URL: "https://techcrunch.com/category/artificial-intelligence/feed/"},
				},
			},
		},
	}
}
