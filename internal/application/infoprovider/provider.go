// Package infoprovider searches external part information providers and
// creates parts from their results.
package infoprovider

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/partdb/backend/internal/domain/shared"
)

// Errors returned by the provider registry
var (
	ErrProviderNotFound = shared.NewDomainError("PROVIDER_NOT_FOUND", "Info provider not found")
	ErrProviderDisabled = shared.NewDomainError("PROVIDER_DISABLED", "Info provider is not active")
	ErrResultNotFound   = shared.NewDomainError("PROVIDER_RESULT_NOT_FOUND", "The provider has no part with this ID")
	ErrEmptyKeyword     = shared.NewDomainError("INVALID_KEYWORD", "Search keyword must not be empty")
	ErrNoProviders      = shared.NewDomainError("NO_PROVIDERS", "At least one active info provider must be selected")
)

// ErrUpstream wraps failures of the remote provider API
var ErrUpstream = errors.New("info provider request failed")

// ProviderInfo describes a provider for display
type ProviderInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	// DisabledHelp explains how to enable an inactive provider
	DisabledHelp string `json:"disabled_help,omitempty"`
}

// SearchResult is one hit of a keyword search
type SearchResult struct {
	ProviderKey         string `json:"provider_key"`
	ProviderID          string `json:"provider_id"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	Category            string `json:"category,omitempty"`
	Manufacturer        string `json:"manufacturer,omitempty"`
	MPN                 string `json:"mpn,omitempty"`
	Footprint           string `json:"footprint,omitempty"`
	ManufacturingStatus string `json:"manufacturing_status,omitempty"`
	PreviewImageURL     string `json:"preview_image_url,omitempty"`
	ProviderURL         string `json:"provider_url,omitempty"`
}

// File is a datasheet or image offered by a provider
type File struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// Parameter is a technical parameter of a part
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// PriceBreak is the unit price from a minimum quantity on
type PriceBreak struct {
	MinQuantity float64         `json:"min_quantity"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
}

// VendorInfo is the offer of one distributor
type VendorInfo struct {
	Distributor string       `json:"distributor"`
	OrderNumber string       `json:"order_number"`
	ProductURL  string       `json:"product_url,omitempty"`
	Prices      []PriceBreak `json:"prices,omitempty"`
}

// PartDetail is the full information a provider has about one part
type PartDetail struct {
	SearchResult
	Notes       string       `json:"notes,omitempty"`
	Mass        *float64     `json:"mass,omitempty"`
	Datasheets  []File       `json:"datasheets,omitempty"`
	Images      []File       `json:"images,omitempty"`
	Parameters  []Parameter  `json:"parameters,omitempty"`
	VendorInfos []VendorInfo `json:"vendor_infos,omitempty"`
}

// Provider is a source of part information
type Provider interface {
	// Key identifies the provider in URLs and on parts
	Key() string
	Info() ProviderInfo
	IsActive() bool
	SearchByKeyword(ctx context.Context, keyword string) ([]SearchResult, error)
	GetDetails(ctx context.Context, id string) (*PartDetail, error)
}

// ProviderView is a provider as listed to clients
type ProviderView struct {
	Key    string       `json:"key"`
	Active bool         `json:"active"`
	Info   ProviderInfo `json:"info"`
}

// Registry holds all known providers
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a registry. Duplicate keys are an error.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if _, dup := r.providers[p.Key()]; dup {
			return nil, fmt.Errorf("info provider %q registered twice", p.Key())
		}
		r.providers[p.Key()] = p
	}
	return r, nil
}

// All returns every provider ordered by key
func (r *Registry) All() []Provider {
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Active returns the active providers
func (r *Registry) Active() []Provider {
	return r.filter(true)
}

// Disabled returns the inactive providers
func (r *Registry) Disabled() []Provider {
	return r.filter(false)
}

func (r *Registry) filter(active bool) []Provider {
	var out []Provider
	for _, p := range r.All() {
		if p.IsActive() == active {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the active provider with key
func (r *Registry) Get(key string) (Provider, error) {
	p, ok := r.providers[key]
	if !ok {
		return nil, ErrProviderNotFound
	}
	if !p.IsActive() {
		return nil, ErrProviderDisabled
	}
	return p, nil
}

// Views lists all providers for clients
func (r *Registry) Views() []ProviderView {
	all := r.All()
	out := make([]ProviderView, len(all))
	for i, p := range all {
		out[i] = ProviderView{Key: p.Key(), Active: p.IsActive(), Info: p.Info()}
	}
	return out
}
