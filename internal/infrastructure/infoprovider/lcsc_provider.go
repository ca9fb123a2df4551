package infoprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	app "github.com/partdb/backend/internal/application/infoprovider"
)

// maxResponseSize is the maximum allowed response size from the LCSC API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// LCSCKey is the provider key of LCSC
const LCSCKey = "lcsc"

// ErrLCSCInvalidProductCode indicates a malformed LCSC part number
var ErrLCSCInvalidProductCode = errors.New("lcsc: product code must look like C12345")

// LCSCProvider fetches part information from the LCSC web shop API
type LCSCProvider struct {
	config     *LCSCConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewLCSCProvider creates a new LCSC provider with the given configuration
func NewLCSCProvider(config *LCSCConfig, logger *zap.Logger) (*LCSCProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}
	return &LCSCProvider{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    limiter,
		logger:     logger.With(zap.String("provider", LCSCKey)),
	}, nil
}

// Key implements Provider
func (p *LCSCProvider) Key() string { return LCSCKey }

// Info implements Provider
func (p *LCSCProvider) Info() app.ProviderInfo {
	return app.ProviderInfo{
		Name:         "LCSC",
		Description:  "Part data and prices from the LCSC web shop",
		URL:          "https://www.lcsc.com/",
		DisabledHelp: "Set info_providers.lcsc_enabled to true",
	}
}

// IsActive implements Provider
func (p *LCSCProvider) IsActive() bool { return p.config.Enabled }

// SearchByKeyword implements Provider
func (p *LCSCProvider) SearchByKeyword(ctx context.Context, keyword string) ([]app.SearchResult, error) {
	var result lcscSearchResult
	if err := p.get(ctx, "/search/global", url.Values{"keyword": {keyword}}, &result); err != nil {
		return nil, err
	}

	// an exact part number redirects to the product page
	if result.TipProductDetailURLVO != nil && result.TipProductDetailURLVO.ProductCode != "" {
		detail, err := p.GetDetails(ctx, result.TipProductDetailURLVO.ProductCode)
		if err != nil {
			return nil, err
		}
		return []app.SearchResult{detail.SearchResult}, nil
	}

	if result.ProductSearchResultVO == nil {
		return []app.SearchResult{}, nil
	}
	out := make([]app.SearchResult, 0, len(result.ProductSearchResultVO.ProductList))
	for _, product := range result.ProductSearchResultVO.ProductList {
		out = append(out, p.toSearchResult(product))
	}
	return out, nil
}

// GetDetails implements Provider
func (p *LCSCProvider) GetDetails(ctx context.Context, id string) (*app.PartDetail, error) {
	if !validProductCode(id) {
		return nil, ErrLCSCInvalidProductCode
	}
	var product lcscProduct
	if err := p.get(ctx, "/product/detail", url.Values{"productCode": {id}}, &product); err != nil {
		return nil, err
	}
	if product.ProductCode == "" {
		return nil, app.ErrResultNotFound
	}
	return p.toDetail(product), nil
}

func validProductCode(code string) bool {
	if len(code) < 2 || (code[0] != 'C' && code[0] != 'c') {
		return false
	}
	for _, r := range code[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// get calls an endpoint and decodes the result field of the envelope into dest
func (p *LCSCProvider) get(ctx context.Context, path string, query url.Values, dest any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.APIBaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("lcsc: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: "currencyCode", Value: p.config.Currency})

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", app.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("lcsc: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		p.logger.Warn("LCSC request failed", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: HTTP %d", app.ErrUpstream, resp.StatusCode)
	}

	var envelope lcscResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("lcsc: failed to parse response: %w", err)
	}
	if envelope.Code != http.StatusOK {
		return fmt.Errorf("%w: code %d %s", app.ErrUpstream, envelope.Code, envelope.Msg)
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, dest); err != nil {
		return fmt.Errorf("lcsc: failed to parse result: %w", err)
	}
	return nil
}

func (p *LCSCProvider) toSearchResult(product lcscProduct) app.SearchResult {
	description := product.ProductIntroEn
	if description == "" {
		description = product.ProductDescEn
	}
	category := product.ParentCatalogName
	if product.CatalogName != "" {
		if category != "" {
			category += " -> "
		}
		category += product.CatalogName
	}
	preview := product.ProductImageURL
	if preview == "" && len(product.ProductImages) > 0 {
		preview = product.ProductImages[0]
	}
	status := "active"
	if product.IsDiscontinued {
		status = "discontinued"
	}
	return app.SearchResult{
		ProviderKey:         LCSCKey,
		ProviderID:          product.ProductCode,
		Name:                product.ProductModel,
		Description:         strings.TrimSpace(description),
		Category:            category,
		Manufacturer:        product.BrandNameEn,
		MPN:                 product.ProductModel,
		Footprint:           product.EncapStandard,
		ManufacturingStatus: status,
		PreviewImageURL:     preview,
		ProviderURL:         LCSCProductURL + product.ProductCode + ".html",
	}
}

func (p *LCSCProvider) toDetail(product lcscProduct) *app.PartDetail {
	detail := &app.PartDetail{SearchResult: p.toSearchResult(product)}
	if product.Weight > 0 {
		mass := product.Weight
		detail.Mass = &mass
	}
	if product.PdfURL != "" {
		detail.Datasheets = []app.File{{URL: product.PdfURL, Name: product.ProductModel + ".pdf"}}
	}
	for _, img := range product.ProductImages {
		detail.Images = append(detail.Images, app.File{URL: img})
	}
	for _, param := range product.ParamVOList {
		if param.ParamNameEn == "" || param.ParamValueEn == "" || param.ParamValueEn == "-" {
			continue
		}
		detail.Parameters = append(detail.Parameters, app.Parameter{Name: param.ParamNameEn, Value: param.ParamValueEn})
	}
	vendor := app.VendorInfo{
		Distributor: "LCSC",
		OrderNumber: product.ProductCode,
		ProductURL:  detail.ProviderURL,
	}
	for _, price := range product.ProductPriceList {
		vendor.Prices = append(vendor.Prices, app.PriceBreak{
			MinQuantity: float64(price.Ladder),
			Price:       decimal.NewFromFloat(price.CurrencyPrice),
			Currency:    p.config.Currency,
		})
	}
	detail.VendorInfos = []app.VendorInfo{vendor}
	return detail
}
