package cart

import (
	"errors"
	"fmt"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
)

// Kind distinguishes why a cart operation failed.
type Kind string

const (
	KindLookupFailure   Kind = "lookup_failure"
	KindOutOfStock      Kind = "out_of_stock"
	KindProductNotFound Kind = "product_not_found"
	KindInvalidAmount   Kind = "invalid_amount"
	KindPersistFailure  Kind = "persist_failure"
	KindCanceled        Kind = "canceled"
)

// Sentinels for errors.Is. Every failed operation returns an *OpError matching one of them.
var (
	ErrLookupFailed    = pkgerrors.New(pkgerrors.CodeDependency, "stock or product lookup failed")
	ErrOutOfStock      = pkgerrors.New(pkgerrors.CodeOutOfStock, "requested quantity exceeds stock")
	ErrProductNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
	ErrInvalidAmount   = pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least 1")
	ErrPersistFailed   = pkgerrors.New(pkgerrors.CodeDependency, "could not write cart to storage")
	ErrCanceled        = pkgerrors.New(pkgerrors.CodeDependency, "operation canceled while waiting for product lock")
)

var sentinelByKind = map[Kind]*pkgerrors.Error{
	KindLookupFailure:   ErrLookupFailed,
	KindOutOfStock:      ErrOutOfStock,
	KindProductNotFound: ErrProductNotFound,
	KindInvalidAmount:   ErrInvalidAmount,
	KindPersistFailure:  ErrPersistFailed,
	KindCanceled:        ErrCanceled,
}

// OpError reports a rejected or failed cart operation. Err is a coded error so callers
// can map it to an HTTP status or exit code through pkg/errors.
type OpError struct {
	Op        string
	ProductID int
	Kind      Kind
	Err       error
}

func newOpError(op string, productID int, kind Kind, cause error) *OpError {
	sentinel := sentinelByKind[kind]
	var err error = sentinel
	if cause != nil {
		err = pkgerrors.Wrap(sentinel.Code(), cause, sentinel.Message())
	}
	return &OpError{Op: op, ProductID: productID, Kind: kind, Err: err}
}

func (e *OpError) Error() string {
	return fmt.Sprintf("cart %s product %d: %v", e.Op, e.ProductID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *OpError) Is(target error) bool {
	sentinel, ok := sentinelByKind[e.Kind]
	return ok && target == error(sentinel)
}

// KindOf returns the failure kind carried by err, or "" when err is not an *OpError.
func KindOf(err error) Kind {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return ""
}
