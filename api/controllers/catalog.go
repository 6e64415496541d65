package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/cartsync/api/responses"
	"github.com/angelmondragon/cartsync/api/validators"
	"github.com/angelmondragon/cartsync/internal/catalog"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/angelmondragon/cartsync/pkg/pagination"
)

const nextCursorHeader = "X-Next-Cursor"

// CatalogService is the catalog surface served over HTTP.
type CatalogService interface {
	Products() []catalog.Product
	GetProduct(ctx context.Context, productID int) (catalog.Product, error)
	GetStock(ctx context.Context, productID int) (catalog.Stock, error)
	SetStock(productID, amount int) (catalog.Stock, error)
}

type setStockRequest struct {
	Amount *int `json:"amount" validate:"required,min=0"`
}

func ListProducts(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, next, err := pagination.Page(svc.Products(), func(p catalog.Product) int { return p.ID }, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}
		if next != "" {
			w.Header().Set(nextCursorHeader, next)
		}
		responses.WriteSuccess(w, page)
	}
}

func GetProduct(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func GetStock(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stock, err := svc.GetStock(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stock)
	}
}

// SetStock replaces the available amount of a product. Used to exercise out-of-stock
// paths against a running catalog.
func SetStock(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req setStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stock, err := svc.SetStock(id, *req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{"product_id": id, "amount": stock.Amount})
			logg.Info(ctx, "catalog.stock.updated")
		}
		responses.WriteSuccess(w, stock)
	}
}
