package wiki

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Defaults shared by DefaultConfig and the env-default tags below
const (
	DefaultAPIURL             = "https://en.wikipedia.org/w/api.php"
	DefaultLanguage           = "en"
	DefaultCategoryPrefix     = "Category"
	DefaultTimeout            = 15 * time.Second
	DefaultUserAgent          = "MediaWikiMCPServer/1.0 (https://github.com/olgasafonova/mediawiki-mcp-server)"
	DefaultMaxRetries         = 3
	DefaultRateLimitWait      = 50 * time.Millisecond
	DefaultMaxRedirects       = 20
	DefaultCategoryRetries    = 10
	DefaultCategoryRetryDelay = time.Second
)

// Config holds MediaWiki connection and behaviour settings
type Config struct {
	// APIURL is the wiki API endpoint (e.g., https://en.wikipedia.org/w/api.php)
	APIURL string `yaml:"api_url" env:"MEDIAWIKI_URL" env-default:"https://en.wikipedia.org/w/api.php"`

	// Language rewrites the language subdomain of Wikimedia project URLs
	Language string `yaml:"language" env:"MEDIAWIKI_LANG" env-default:"en"`

	// CategoryPrefix is the localized name of the category namespace
	CategoryPrefix string `yaml:"category_prefix" env:"MEDIAWIKI_CATEGORY_PREFIX" env-default:"Category"`

	// Timeout for API requests
	Timeout time.Duration `yaml:"timeout" env:"MEDIAWIKI_TIMEOUT" env-default:"15s"`

	// UserAgent identifies the client to the wiki
	UserAgent string `yaml:"user_agent" env:"MEDIAWIKI_USER_AGENT" env-default:"MediaWikiMCPServer/1.0 (https://github.com/olgasafonova/mediawiki-mcp-server)"`

	// MaxRetries for failed HTTP requests
	MaxRetries int `yaml:"max_retries" env:"MEDIAWIKI_MAX_RETRIES" env-default:"3"`

	// RateLimit enables a minimum wait of RateLimitWait between requests
	RateLimit     bool          `yaml:"rate_limit" env:"MEDIAWIKI_RATE_LIMIT" env-default:"false"`
	RateLimitWait time.Duration `yaml:"rate_limit_wait" env:"MEDIAWIKI_RATE_LIMIT_WAIT" env-default:"50ms"`

	// UseCache memoizes search, summary and category results
	UseCache bool `yaml:"use_cache" env:"MEDIAWIKI_USE_CACHE" env-default:"true"`

	// RefreshInterval recomputes memoized results older than this; zero keeps them forever
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"MEDIAWIKI_REFRESH_INTERVAL" env-default:"0s"`

	// MaxRedirects bounds the redirect chain followed during page resolution
	MaxRedirects int `yaml:"max_redirects" env:"MEDIAWIKI_MAX_REDIRECTS" env-default:"20"`

	// CategoryRetries is the number of retries per category while building a tree
	CategoryRetries    int           `yaml:"category_retries" env:"MEDIAWIKI_CATEGORY_RETRIES" env-default:"10"`
	CategoryRetryDelay time.Duration `yaml:"category_retry_delay" env:"MEDIAWIKI_CATEGORY_RETRY_DELAY" env-default:"1s"`

	// Username for bot password authentication (optional)
	Username string `yaml:"username" env:"MEDIAWIKI_USERNAME"`

	// Password for bot password authentication (optional)
	Password string `yaml:"password" env:"MEDIAWIKI_PASSWORD"`
}

// DefaultConfig returns the built-in settings without consulting the environment
func DefaultConfig() *Config {
	return &Config{
		APIURL:             DefaultAPIURL,
		Language:           DefaultLanguage,
		CategoryPrefix:     DefaultCategoryPrefix,
		Timeout:            DefaultTimeout,
		UserAgent:          DefaultUserAgent,
		MaxRetries:         DefaultMaxRetries,
		RateLimitWait:      DefaultRateLimitWait,
		UseCache:           true,
		MaxRedirects:       DefaultMaxRedirects,
		CategoryRetries:    DefaultCategoryRetries,
		CategoryRetryDelay: DefaultCategoryRetryDelay,
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigFile loads configuration from a YAML file; environment variables override file values
func LoadConfigFile(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail at request time
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{
			Field:      "api_url",
			Value:      c.APIURL,
			Message:    "must be an absolute URL",
			Suggestion: "Set MEDIAWIKI_URL to the wiki's api.php endpoint, e.g. https://en.wikipedia.org/w/api.php",
		}
	}
	if strings.TrimSpace(c.CategoryPrefix) == "" {
		return &ValidationError{Field: "category_prefix", Message: "must not be empty"}
	}
	if c.MaxRetries < 0 {
		return &ValidationError{Field: "max_retries", Value: fmt.Sprint(c.MaxRetries), Message: "must not be negative"}
	}
	if c.MaxRedirects < 0 {
		return &ValidationError{Field: "max_redirects", Value: fmt.Sprint(c.MaxRedirects), Message: "must not be negative"}
	}
	if c.CategoryRetries < 0 {
		return &ValidationError{Field: "category_retries", Value: fmt.Sprint(c.CategoryRetries), Message: "must not be negative"}
	}
	return nil
}

// HasCredentials returns true if authentication credentials are configured
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// wikimediaHost matches language-prefixed hosts of Wikimedia projects
var wikimediaHost = regexp.MustCompile(`^[a-z][a-z0-9-]*\.(wikipedia|wiktionary|wikibooks|wikiquote|wikisource|wikinews|wikiversity|wikivoyage)\.org$`)

// languageURL swaps the language subdomain of a Wikimedia API URL. Other wikis
// are returned unchanged.
func languageURL(apiURL, lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return apiURL
	}
	u, err := url.Parse(apiURL)
	if err != nil || !wikimediaHost.MatchString(u.Host) {
		return apiURL
	}
	_, rest, _ := strings.Cut(u.Host, ".")
	u.Host = lang + "." + rest
	return u.String()
}

// baseURL returns scheme and host of the API endpoint, used to absolutize relative links
func baseURL(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
