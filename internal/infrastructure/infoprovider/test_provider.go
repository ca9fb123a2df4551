// Package infoprovider contains the part information providers.
package infoprovider

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	app "github.com/partdb/backend/internal/application/infoprovider"
)

// TestKey is the provider key of the static test provider
const TestKey = "test"

// TestProvider serves a fixed set of parts. It is meant for development
// and demo installations.
type TestProvider struct {
	enabled bool
	parts   []app.PartDetail
}

// NewTestProvider creates the test provider
func NewTestProvider(enabled bool) *TestProvider {
	return &TestProvider{enabled: enabled, parts: testParts()}
}

// Key implements Provider
func (p *TestProvider) Key() string { return TestKey }

// Info implements Provider
func (p *TestProvider) Info() app.ProviderInfo {
	return app.ProviderInfo{
		Name:         "Test Provider",
		Description:  "Static example parts",
		DisabledHelp: "Set info_providers.test_enabled to true",
	}
}

// IsActive implements Provider
func (p *TestProvider) IsActive() bool { return p.enabled }

// SearchByKeyword matches keyword case insensitively against name, MPN
// and description
func (p *TestProvider) SearchByKeyword(_ context.Context, keyword string) ([]app.SearchResult, error) {
	keyword = strings.ToLower(keyword)
	out := []app.SearchResult{}
	for _, part := range p.parts {
		haystack := strings.ToLower(part.Name + " " + part.MPN + " " + part.Description)
		if strings.Contains(haystack, keyword) {
			out = append(out, part.SearchResult)
		}
	}
	return out, nil
}

// GetDetails implements Provider
func (p *TestProvider) GetDetails(_ context.Context, id string) (*app.PartDetail, error) {
	for _, part := range p.parts {
		if part.ProviderID == id {
			d := part
			return &d, nil
		}
	}
	return nil, app.ErrResultNotFound
}

func testParts() []app.PartDetail {
	mass := 0.5
	return []app.PartDetail{
		{
			SearchResult: app.SearchResult{
				ProviderKey:         TestKey,
				ProviderID:          "element1",
				Name:                "NE555",
				Description:         "Precision timer, single",
				Category:            "ICs -> Timers",
				Manufacturer:        "Texas Instruments",
				MPN:                 "NE555P",
				Footprint:           "DIP-8",
				ManufacturingStatus: "active",
			},
			Notes: "Example part",
			Mass:  &mass,
			Parameters: []app.Parameter{
				{Name: "Supply voltage", Value: "4.5 to 16", Unit: "V"},
			},
			VendorInfos: []app.VendorInfo{{
				Distributor: "Test distributor",
				OrderNumber: "TD-555",
				Prices: []app.PriceBreak{
					{MinQuantity: 1, Price: decimal.RequireFromString("0.50"), Currency: "EUR"},
					{MinQuantity: 10, Price: decimal.RequireFromString("0.35"), Currency: "EUR"},
				},
			}},
		},
		{
			SearchResult: app.SearchResult{
				ProviderKey:         TestKey,
				ProviderID:          "element2",
				Name:                "BC547",
				Description:         "NPN transistor, 45 V, 100 mA",
				Category:            "Transistors -> BJT",
				Manufacturer:        "onsemi",
				MPN:                 "BC547BTA",
				Footprint:           "TO-92",
				ManufacturingStatus: "nrfnd",
			},
		},
		{
			SearchResult: app.SearchResult{
				ProviderKey:         TestKey,
				ProviderID:          "element3",
				Name:                "10k resistor",
				Description:         "Thick film resistor 10 kOhm 1%",
				Category:            "Passives -> Resistors",
				Manufacturer:        "Yageo",
				MPN:                 "RC0603FR-0710KL",
				Footprint:           "0603",
				ManufacturingStatus: "active",
			},
		},
	}
}
