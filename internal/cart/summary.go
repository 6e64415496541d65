package cart

import "github.com/shopspring/decimal"

// Summary aggregates the cart for headers and checkout totals.
type Summary struct {
	Items int             `json:"items"`
	Units int             `json:"units"`
	Total decimal.Decimal `json:"total"`
}

// Summarize computes the totals of s.
func (s State) Summarize() Summary {
	sum := Summary{Items: len(s), Total: decimal.Zero}
	for _, item := range s {
		sum.Units += item.Amount
		sum.Total = sum.Total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Amount))))
	}
	return sum
}
