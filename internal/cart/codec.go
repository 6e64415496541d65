package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate = validator.New()

	errNotArray = errors.New("stored cart is not a JSON array")
)

// storedItem reads both the current keys and the ones written by older clients
// (id, title, image). Current keys win when both are present.
type storedItem struct {
	ProductID *int            `json:"productId"`
	ID        *int            `json:"id"`
	Name      *string         `json:"name"`
	Title     *string         `json:"title"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  *string         `json:"imageUrl"`
	Image     *string         `json:"image"`
	Amount    int             `json:"amount"`
}

func (w storedItem) lineItem() LineItem {
	return LineItem{
		ProductID: firstOf(w.ProductID, w.ID),
		Name:      firstOf(w.Name, w.Title),
		Price:     w.Price,
		ImageURL:  firstOf(w.ImageURL, w.Image),
		Amount:    w.Amount,
	}
}

func firstOf[T any](preferred, fallback *T) T {
	if preferred != nil {
		return *preferred
	}
	if fallback != nil {
		return *fallback
	}
	var zero T
	return zero
}

// checkItem holds every line item to the same rules, whether it came from the
// slot or from a catalog lookup.
func checkItem(item LineItem) error {
	if err := validate.Struct(item); err != nil {
		return err
	}
	if item.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	return nil
}

func encodeState(s State) ([]byte, error) {
	if s == nil {
		s = State{}
	}
	return json.Marshal(s)
}

// decodeState parses a slot payload. Items must validate and product ids must not repeat.
func decodeState(payload []byte) (State, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errNotArray
	}

	var stored []storedItem
	if err := json.Unmarshal(trimmed, &stored); err != nil {
		return nil, fmt.Errorf("decode stored cart: %w", err)
	}

	items := make(State, 0, len(stored))
	seen := make(map[int]struct{}, len(stored))
	for i, raw := range stored {
		item := raw.lineItem()
		if err := checkItem(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, fmt.Errorf("item %d: duplicate product id %d", i, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
		items = append(items, item)
	}
	return items, nil
}
