package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the immutable option set passed into every builder call
type Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	BaseURL         string `mapstructure:"base_url"`
	SiteTitle       string `mapstructure:"site_title"`
	SiteDescription string `mapstructure:"site_description"`
	LogoURL         string `mapstructure:"logo_url"`
	DefaultOGImage  string `mapstructure:"default_og_image"`
	DefaultLocale   string `mapstructure:"default_locale"`

	EnableWebsiteSchema bool   `mapstructure:"enable_website_schema"`
	EnableBreadcrumbs   bool   `mapstructure:"enable_breadcrumbs"`
	ContentType         string `mapstructure:"content_type"`
	MaxAnswers          int    `mapstructure:"max_answers"`
	MaxComments         int    `mapstructure:"max_comments"`
	IncludeUserStats    bool   `mapstructure:"include_user_stats"`
	OGAlternateLocales  string `mapstructure:"og_alternate_locales"`

	// CategoryContentTypes maps a content type to the category slugs that
	// use it instead of ContentType
	CategoryContentTypes map[string][]string `mapstructure:"category_content_types"`

	Social       SocialLinks `mapstructure:"social"`
	Repo         RepoLinks   `mapstructure:"repo"`
	ContactEmail string      `mapstructure:"contact_email"`

	CacheTTLSeconds int         `mapstructure:"cache_ttl_seconds"`
	Cache           CacheConfig `mapstructure:"cache"`
	DebugMode       bool        `mapstructure:"debug_mode"`

	Translations map[string]string `mapstructure:"translations"`
}

// SocialLinks are the organization's social and video profiles
type SocialLinks struct {
	VK        string `mapstructure:"vk"`
	Telegram  string `mapstructure:"telegram"`
	YouTube   string `mapstructure:"youtube"`
	Dzen      string `mapstructure:"dzen"`
	TikTok    string `mapstructure:"tiktok"`
	TenChat   string `mapstructure:"tenchat"`
	LinkedIn  string `mapstructure:"linkedin"`
	Twitter   string `mapstructure:"twitter"`
	Facebook  string `mapstructure:"facebook"`
	Instagram string `mapstructure:"instagram"`
}

// RepoLinks are the organization's code repositories
type RepoLinks struct {
	GitHub      string `mapstructure:"github"`
	GitLab      string `mapstructure:"gitlab"`
	SourceCraft string `mapstructure:"sourcecraft"`
	Bitbucket   string `mapstructure:"bitbucket"`
}

// CacheConfig selects and configures the cache backend
type CacheConfig struct {
	Backend       string `mapstructure:"backend"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	MemorySize    int    `mapstructure:"memory_size"`
}

var validContentTypes = map[string]bool{
	"discussion": true,
	"qa":         true,
	"article":    true,
	"news":       true,
	"review":     true,
	"recipe":     true,
	"event":      true,
}

const envPrefix = "MICRODATA"

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("enabled", true)
	v.SetDefault("base_url", "http://localhost:3000")
	v.SetDefault("site_title", "")
	v.SetDefault("default_locale", "en")
	v.SetDefault("enable_website_schema", true)
	v.SetDefault("enable_breadcrumbs", true)
	v.SetDefault("content_type", "discussion")
	v.SetDefault("max_answers", 5)
	v.SetDefault("max_comments", 3)
	v.SetDefault("include_user_stats", true)
	v.SetDefault("og_alternate_locales", "")
	v.SetDefault("cache_ttl_seconds", 3600)
	v.SetDefault("debug_mode", false)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.sqlite_path", "microdata.db")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.memory_size", 1024)

	// string keys without a real default still need registering so that
	// AutomaticEnv picks them up during Unmarshal
	for _, key := range []string{
		"site_description", "logo_url", "default_og_image", "contact_email",
		"social.vk", "social.telegram", "social.youtube", "social.dzen", "social.tiktok",
		"social.tenchat", "social.linkedin", "social.twitter", "social.facebook", "social.instagram",
		"repo.github", "repo.gitlab", "repo.sourcecraft", "repo.bitbucket",
		"cache.redis_password",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("cache.redis_db", 0)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	cfg, err := decodeConfig(newViper())
	if err != nil {
		// defaults are static and always valid
		panic(err)
	}
	return cfg
}

// LoadConfig loads configuration with fallback priority:
// 1. .env file in the working directory (if present)
// 2. Config file or http(s) URL (if specified)
// 3. MICRODATA_* environment variables override both
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	v := newViper()

	switch {
	case path == "":
		slog.Debug("No config file specified, using defaults and environment")
	case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
		slog.Debug("Loading config from remote URL", "url", path)
		data, err := fetchRemoteConfig(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigType(configTypeFor(path))
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to parse remote config: %w", err)
		}
	default:
		slog.Debug("Loading config from local file", "path", path)
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decodeConfig(v)
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if !validContentTypes[cfg.ContentType] {
		return fmt.Errorf("invalid content_type %q", cfg.ContentType)
	}
	for contentType := range cfg.CategoryContentTypes {
		if !validContentTypes[contentType] {
			return fmt.Errorf("invalid content type %q in category_content_types", contentType)
		}
	}
	if cfg.MaxAnswers < 0 {
		return fmt.Errorf("max_answers must not be negative, got %d", cfg.MaxAnswers)
	}
	if cfg.MaxComments < 0 {
		return fmt.Errorf("max_comments must not be negative, got %d", cfg.MaxComments)
	}
	if cfg.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache_ttl_seconds must not be negative, got %d", cfg.CacheTTLSeconds)
	}
	switch cfg.Cache.Backend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	return nil
}

// fetchRemoteConfig loads a config document from a URL with timeout
func fetchRemoteConfig(url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch config: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

func configTypeFor(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch ext := strings.TrimPrefix(filepath.Ext(path), "."); ext {
	case "yaml", "yml", "toml", "json":
		return ext
	default:
		return "json"
	}
}

// CacheTTL returns the configured cache lifetime
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// alternateLocales parses the comma-separated og_alternate_locales setting
func (c *Config) alternateLocales() []string {
	var locales []string
	for _, part := range strings.Split(c.OGAlternateLocales, ",") {
		if part = strings.TrimSpace(part); part != "" {
			locales = append(locales, part)
		}
	}
	return locales
}

// ogType maps a content type onto a standard Open Graph type
func ogType(contentType string) string {
	switch contentType {
	case "discussion", "event":
		return "website"
	default:
		return "article"
	}
}

// twitterHandle returns the configured Twitter account as @handle
func (c *Config) twitterHandle() string {
	handle := strings.TrimSpace(c.Social.Twitter)
	if handle == "" {
		return ""
	}
	if strings.HasPrefix(handle, "http") {
		handle = strings.TrimRight(handle, "/")
		if i := strings.LastIndex(handle, "/"); i >= 0 {
			handle = handle[i+1:]
		}
	}
	return "@" + strings.TrimPrefix(handle, "@")
}

func (c *Config) absoluteURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if strings.HasPrefix(path, "//") {
		return "https:" + path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}

// siteLogoURL returns the configured logo or the bundled fallback image
func (c *Config) siteLogoURL() string {
	if c.LogoURL != "" {
		return c.absoluteURL(c.LogoURL)
	}
	return c.absoluteURL("/images/discourse-logo-sketch-small.png")
}
