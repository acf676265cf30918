package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds audit configuration.
type Config struct {
	SiteURL          string
	Workers          int
	MaxPages         int
	Timeout          time.Duration
	UserAgent        string
	RespectRobotsTxt bool

	// Relay fetcher knobs.
	RelayTimeout time.Duration
	RelayDelay   time.Duration

	// Cache sizing. Products get a long TTL and a large capacity, analysis
	// results a short TTL and a small one.
	CacheDir          string
	ProductCacheTTL   time.Duration
	ProductCacheSize  int
	AnalysisCacheTTL  time.Duration
	AnalysisCacheSize int

	// Content-management API credentials. Empty means unauthenticated
	// operation: scrape-only resolution, markup-only discovery.
	CMSBaseURL string
	CMSUser    string
	CMSToken   string

	// Enrichment oracle. An empty key degrades to extraction-only operation.
	EnrichAPIKey        string
	EnrichMinConfidence float64

	// Product-data oracle.
	ProductAPIBaseURL string
	ProductAPIKey     string
	// ProductLimit bounds how many merged products are resolved against the
	// product-data oracle per page.
	ProductLimit int

	OutputFile  string
	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:             10,
		MaxPages:            200,
		Timeout:             15 * time.Second,
		UserAgent:           "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RespectRobotsTxt:    false,
		RelayTimeout:        10 * time.Second,
		RelayDelay:          500 * time.Millisecond,
		CacheDir:            ".cache",
		ProductCacheTTL:     24 * time.Hour,
		ProductCacheSize:    1000,
		AnalysisCacheTTL:    time.Hour,
		AnalysisCacheSize:   200,
		EnrichMinConfidence: 0.6,
		ProductAPIBaseURL:   "https://productdata.example.com/v1",
		ProductLimit:        10,
		OutputFile:          "output/products.json",
		MetricsAddr:         "",
		Verbose:             false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.SiteURL == "" {
		return fmt.Errorf("site URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.SiteURL)
	if err != nil {
		return fmt.Errorf("invalid site URL: %w", err)
	}
	if parsedURL.Host == "" && parsedURL.Path == "" {
		return fmt.Errorf("site URL must include a host")
	}

	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RelayTimeout <= 0 {
		return fmt.Errorf("relay timeout must be positive")
	}
	if c.RelayDelay < 0 {
		return fmt.Errorf("relay delay cannot be negative")
	}
	if c.ProductCacheSize <= 0 {
		return fmt.Errorf("product cache size must be positive")
	}
	if c.AnalysisCacheSize <= 0 {
		return fmt.Errorf("analysis cache size must be positive")
	}
	if c.ProductCacheTTL <= 0 || c.AnalysisCacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.EnrichMinConfidence < 0 || c.EnrichMinConfidence > 1 {
		return fmt.Errorf("enrichment confidence threshold must be within [0,1]")
	}
	if c.ProductLimit <= 0 {
		return fmt.Errorf("product limit must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if (c.CMSUser == "") != (c.CMSToken == "") {
		return fmt.Errorf("CMS credentials require both user and token")
	}

	return nil
}

// HasCMSCredentials reports whether authenticated CMS access is configured.
func (c *Config) HasCMSCredentials() bool {
	return c.CMSUser != "" && c.CMSToken != ""
}

// EnvString reads a string environment variable, reporting whether it was set.
func EnvString(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	return value, ok
}

// EnvInt reads an integer environment variable.
func EnvInt(name string) (int, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", name, err)
	}
	return value, true, nil
}
