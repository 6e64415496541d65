package cart

import (
	"github.com/shopspring/decimal"
)

// LineItem is one product entry in the cart together with its ordered quantity.
type LineItem struct {
	ProductID int             `json:"productId" validate:"required,min=1"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"imageUrl"`
	Amount    int             `json:"amount" validate:"required,min=1"`
}

// State is the full set of line items, unique by product id. Order carries no meaning
// but is kept stable across commits.
type State []LineItem

// Find returns the line item for productID.
func (s State) Find(productID int) (LineItem, bool) {
	if i := s.index(productID); i >= 0 {
		return s[i], true
	}
	return LineItem{}, false
}

// Clone returns a copy that shares nothing with s.
func (s State) Clone() State {
	out := make(State, len(s))
	copy(out, s)
	return out
}

func (s State) index(productID int) int {
	for i := range s {
		if s[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// upsert returns a new state with item replacing the entry of the same product, or
// appended when the product is not in the cart yet.
func (s State) upsert(item LineItem) State {
	out := s.Clone()
	if i := out.index(item.ProductID); i >= 0 {
		out[i] = item
		return out
	}
	return append(out, item)
}

func (s State) without(productID int) State {
	out := make(State, 0, len(s))
	for _, item := range s {
		if item.ProductID != productID {
			out = append(out, item)
		}
	}
	return out
}

func (s State) withAmount(productID, amount int) State {
	out := s.Clone()
	if i := out.index(productID); i >= 0 {
		out[i].Amount = amount
	}
	return out
}
