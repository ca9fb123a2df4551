package infoprovider

import (
	"errors"
	"strings"
	"time"
)

const (
	// LCSCDefaultAPIURL is the public LCSC web shop API
	LCSCDefaultAPIURL = "https://wmsc.lcsc.com/ftps/wm"
	// LCSCProductURL is the prefix of product pages
	LCSCProductURL = "https://www.lcsc.com/product-detail/"
)

// Errors for LCSC configuration
var (
	ErrLCSCConfigMissingURL      = errors.New("lcsc: api url is required")
	ErrLCSCConfigInvalidCurrency = errors.New("lcsc: currency must be a three letter ISO code")
)

// LCSCConfig holds configuration for the LCSC provider
type LCSCConfig struct {
	Enabled bool
	// APIBaseURL is the base URL of the search and detail endpoints
	APIBaseURL string
	// Currency is the ISO code prices are requested in
	Currency string
	Timeout  time.Duration
	// RequestsPerSecond limits outgoing requests, 0 disables the limit
	RequestsPerSecond float64
}

// NewLCSCConfig creates a configuration with defaults
func NewLCSCConfig(enabled bool) *LCSCConfig {
	return &LCSCConfig{
		Enabled:           enabled,
		APIBaseURL:        LCSCDefaultAPIURL,
		Currency:          "EUR",
		Timeout:           15 * time.Second,
		RequestsPerSecond: 2,
	}
}

// Validate validates the configuration and fills defaults
func (c *LCSCConfig) Validate() error {
	if c.APIBaseURL == "" {
		return ErrLCSCConfigMissingURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.Currency == "" {
		c.Currency = "EUR"
	}
	c.Currency = strings.ToUpper(c.Currency)
	if len(c.Currency) != 3 {
		return ErrLCSCConfigInvalidCurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return nil
}
