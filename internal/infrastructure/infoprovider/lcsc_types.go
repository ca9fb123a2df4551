package infoprovider

import "encoding/json"

// lcscResponse is the envelope of every LCSC API response
type lcscResponse struct {
	Code   int             `json:"code"`
	Msg    string          `json:"msg"`
	Result json.RawMessage `json:"result"`
}

type lcscSearchResult struct {
	ProductSearchResultVO *struct {
		ProductList []lcscProduct `json:"productList"`
	} `json:"productSearchResultVO"`
	// TipProductDetailURLVO is set instead of a list when the keyword is an
	// exact LCSC part number
	TipProductDetailURLVO *struct {
		ProductCode string `json:"productCode"`
	} `json:"tipProductDetailUrlVO"`
}

type lcscProduct struct {
	ProductCode       string          `json:"productCode"`
	ProductModel      string          `json:"productModel"`
	BrandNameEn       string          `json:"brandNameEn"`
	ProductIntroEn    string          `json:"productIntroEn"`
	ProductDescEn     string          `json:"productDescEn"`
	EncapStandard     string          `json:"encapStandard"`
	ParentCatalogName string          `json:"parentCatalogName"`
	CatalogName       string          `json:"catalogName"`
	ProductImages     []string        `json:"productImages"`
	ProductImageURL   string          `json:"productImageUrl"`
	PdfURL            string          `json:"pdfUrl"`
	Weight            float64         `json:"weight"`
	IsDiscontinued    bool            `json:"isDiscontinued"`
	ProductPriceList  []lcscPrice     `json:"productPriceList"`
	ParamVOList       []lcscParameter `json:"paramVOList"`
}

type lcscPrice struct {
	Ladder         int     `json:"ladder"`
	CurrencyPrice  float64 `json:"currencyPrice"`
	CurrencySymbol string  `json:"currencySymbol"`
}

type lcscParameter struct {
	ParamNameEn  string `json:"paramNameEn"`
	ParamValueEn string `json:"paramValueEn"`
}
