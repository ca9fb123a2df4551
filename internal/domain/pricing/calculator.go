package pricing

import (
	"github.com/shopspring/decimal"
)

// ConvertToBase converts value in the given currency into the base currency.
// A nil currency is the base currency. Returns false if the currency has no
// exchange rate.
func ConvertToBase(value decimal.Decimal, currency *Currency) (decimal.Decimal, bool) {
	if currency == nil {
		return value, true
	}
	if currency.ExchangeRate == nil {
		return decimal.Zero, false
	}
	return value.Mul(*currency.ExchangeRate).Round(PriceScale), true
}

// AveragePrice returns the mean unit price in the base currency over all
// non-obsolete orderdetails that have a price for quantity. currencies maps
// currency IDs to currencies. Returns nil if no price could be determined.
func AveragePrice(orderdetails []Orderdetail, quantity decimal.Decimal, currencies map[uint]*Currency) *decimal.Decimal {
	sum := decimal.Zero
	count := 0
	for i := range orderdetails {
		od := &orderdetails[i]
		if od.Obsolete {
			continue
		}
		pd := od.PricedetailForQuantity(quantity)
		if pd == nil {
			continue
		}
		var currency *Currency
		if pd.CurrencyID != nil {
			currency = currencies[*pd.CurrencyID]
			if currency == nil {
				continue
			}
		}
		price, ok := ConvertToBase(pd.PricePerUnit(), currency)
		if !ok {
			continue
		}
		sum = sum.Add(price)
		count++
	}
	if count == 0 {
		return nil
	}
	avg := sum.DivRound(decimal.NewFromInt(int64(count)), PriceScale)
	return &avg
}
