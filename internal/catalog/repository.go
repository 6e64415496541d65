package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
)

// Seed is the JSON document the development catalog is loaded from.
type Seed struct {
	Products []Product `json:"products" validate:"dive"`
	Stock    []Stock   `json:"stock" validate:"dive"`
}

// LoadSeed decodes and validates a seed document.
func LoadSeed(r io.Reader) (Seed, error) {
	var seed Seed
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&seed); err != nil {
		return Seed{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode catalog seed")
	}
	if err := validate.Struct(seed); err != nil {
		return Seed{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid catalog seed")
	}
	return seed, nil
}

// LoadSeedFile reads a seed document from disk.
func LoadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("open catalog seed: %w", err)
	}
	defer f.Close()
	return LoadSeed(f)
}

// Repository is an in-memory catalog with mutable stock. It backs the development
// catalog API and satisfies the cart's stock and product lookups in-process.
type Repository struct {
	mu       sync.RWMutex
	products map[int]Product
	stock    map[int]Stock
}

func NewRepository(seed Seed) (*Repository, error) {
	repo := &Repository{
		products: make(map[int]Product, len(seed.Products)),
		stock:    make(map[int]Stock, len(seed.Stock)),
	}
	for _, p := range seed.Products {
		if err := p.check(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seed product").
				WithDetails(map[string]any{"id": p.ID})
		}
		if _, dup := repo.products[p.ID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate seed product").
				WithDetails(map[string]any{"id": p.ID})
		}
		repo.products[p.ID] = p
	}
	for _, s := range seed.Stock {
		if _, dup := repo.stock[s.ProductID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate seed stock").
				WithDetails(map[string]any{"productId": s.ProductID})
		}
		repo.stock[s.ProductID] = s
	}
	return repo, nil
}

func (r *Repository) GetProduct(ctx context.Context, productID int) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "product lookup canceled")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[productID]
	if !ok {
		return Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return p, nil
}

func (r *Repository) GetStock(ctx context.Context, productID int) (Stock, error) {
	if err := ctx.Err(); err != nil {
		return Stock{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stock lookup canceled")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stock[productID]
	if !ok {
		return Stock{}, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
	}
	return s, nil
}

// Products lists the catalog ordered by id.
func (r *Repository) Products() []Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetStock overwrites the available amount for a known product.
func (r *Repository) SetStock(productID, amount int) (Stock, error) {
	stock := Stock{ProductID: productID, Amount: amount}
	if err := validate.Struct(stock); err != nil {
		return Stock{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stock")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[productID]; !ok {
		return Stock{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	r.stock[productID] = stock
	return stock, nil
}
