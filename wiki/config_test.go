package wiki

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnv = []string{
	"MEDIAWIKI_URL", "MEDIAWIKI_LANG", "MEDIAWIKI_CATEGORY_PREFIX", "MEDIAWIKI_TIMEOUT",
	"MEDIAWIKI_USER_AGENT", "MEDIAWIKI_MAX_RETRIES", "MEDIAWIKI_RATE_LIMIT", "MEDIAWIKI_RATE_LIMIT_WAIT",
	"MEDIAWIKI_USE_CACHE", "MEDIAWIKI_REFRESH_INTERVAL", "MEDIAWIKI_MAX_REDIRECTS",
	"MEDIAWIKI_CATEGORY_RETRIES", "MEDIAWIKI_CATEGORY_RETRY_DELAY", "MEDIAWIKI_USERNAME", "MEDIAWIKI_PASSWORD",
}

// unsetEnv removes variables for the duration of the test; an empty value would
// still count as set
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	unsetEnv(t, configEnv...)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	want := DefaultConfig()
	if *cfg != *want {
		t.Errorf("LoadConfig() = %+v\nwant %+v", *cfg, *want)
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	unsetEnv(t, configEnv...)
	t.Setenv("MEDIAWIKI_URL", "https://wiki.example.org/api.php")
	t.Setenv("MEDIAWIKI_CATEGORY_PREFIX", "Kategorie")
	t.Setenv("MEDIAWIKI_TIMEOUT", "30s")
	t.Setenv("MEDIAWIKI_USE_CACHE", "false")
	t.Setenv("MEDIAWIKI_CATEGORY_RETRIES", "2")
	t.Setenv("MEDIAWIKI_USERNAME", "Bot@tool")
	t.Setenv("MEDIAWIKI_PASSWORD", "secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.APIURL != "https://wiki.example.org/api.php" || cfg.CategoryPrefix != "Kategorie" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Timeout != 30*time.Second || cfg.UseCache || cfg.CategoryRetries != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.HasCredentials() {
		t.Error("HasCredentials should be true")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	unsetEnv(t, configEnv...)
	t.Setenv("MEDIAWIKI_URL", "/w/api.php")

	_, err := LoadConfig()
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "api_url" {
		t.Errorf("err = %v, want ValidationError for api_url", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	unsetEnv(t, configEnv...)
	t.Setenv("MEDIAWIKI_MAX_REDIRECTS", "5")

	path := filepath.Join(t.TempDir(), "wiki.yaml")
	content := "api_url: https://fr.wikipedia.org/w/api.php\nlanguage: fr\ncategory_prefix: Catégorie\nmax_redirects: 8\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if cfg.Language != "fr" || cfg.CategoryPrefix != "Catégorie" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MaxRedirects != 5 {
		t.Errorf("MaxRedirects = %d, environment should override the file", cfg.MaxRedirects)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want default", cfg.Timeout)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"valid", func(c *Config) {}, ""},
		{"relative url", func(c *Config) { c.APIURL = "api.php" }, "api_url"},
		{"empty prefix", func(c *Config) { c.CategoryPrefix = "  " }, "category_prefix"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max_retries"},
		{"negative redirects", func(c *Config) { c.MaxRedirects = -1 }, "max_redirects"},
		{"negative category retries", func(c *Config) { c.CategoryRetries = -1 }, "category_retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("Validate() = %v, want field %s", err, tt.field)
			}
		})
	}
}

func TestLanguageURL(t *testing.T) {
	tests := []struct {
		apiURL, lang, want string
	}{
		{"https://en.wikipedia.org/w/api.php", "de", "https://de.wikipedia.org/w/api.php"},
		{"https://en.wikipedia.org/w/api.php", " PT ", "https://pt.wikipedia.org/w/api.php"},
		{"https://en.wiktionary.org/w/api.php", "zh-classical", "https://zh-classical.wiktionary.org/w/api.php"},
		{"https://en.wikipedia.org/w/api.php", "", "https://en.wikipedia.org/w/api.php"},
		{"https://wiki.example.org/api.php", "de", "https://wiki.example.org/api.php"},
		{"https://commons.wikimedia.org/w/api.php", "de", "https://commons.wikimedia.org/w/api.php"},
	}
	for _, tt := range tests {
		if got := languageURL(tt.apiURL, tt.lang); got != tt.want {
			t.Errorf("languageURL(%q, %q) = %q, want %q", tt.apiURL, tt.lang, got, tt.want)
		}
	}
}

func TestBaseURL(t *testing.T) {
	if got := baseURL("https://en.wikipedia.org/w/api.php"); got != "https://en.wikipedia.org" {
		t.Errorf("baseURL = %q", got)
	}
}
