package catalog

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Product is the catalog metadata for a product id.
type Product struct {
	ID       int             `json:"id" validate:"required,min=1"`
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl"`
}

// Stock is the maximum orderable quantity of a product.
type Stock struct {
	ProductID int `json:"productId" validate:"required,min=1"`
	Amount    int `json:"amount" validate:"min=0"`
}

var (
	validate         = validator.New()
	errNegativePrice = errors.New("price must not be negative")
)

func (p Product) check() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if p.Price.IsNegative() {
		return errNegativePrice
	}
	return nil
}
