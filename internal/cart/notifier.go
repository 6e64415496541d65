package cart

import (
	"context"

	"github.com/angelmondragon/cartsync/pkg/logger"
)

// Operation names used in logs, metrics and notices.
const (
	OpAddProduct          = "add_product"
	OpRemoveProduct       = "remove_product"
	OpUpdateProductAmount = "update_product_amount"
)

const messageOutOfStock = "requested quantity exceeds stock"

var failureMessages = map[string]string{
	OpAddProduct:          "could not add product",
	OpRemoveProduct:       "could not remove product",
	OpUpdateProductAmount: "could not update product amount",
}

// Notice is the user-facing report of a failed operation.
type Notice struct {
	Op        string
	ProductID int
	Kind      Kind
	Message   string
}

// Notifier surfaces failures to the user.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, notice Notice)

func (f NotifierFunc) Notify(ctx context.Context, notice Notice) {
	f(ctx, notice)
}

// LogNotifier writes notices to the structured log. It is the default when no notifier
// is configured.
type LogNotifier struct {
	Logger *logger.Logger
}

func (n LogNotifier) Notify(ctx context.Context, notice Notice) {
	if n.Logger == nil {
		return
	}
	ctx = n.Logger.WithFields(ctx, map[string]any{
		"notice_kind": string(notice.Kind),
	})
	n.Logger.Warn(ctx, notice.Message)
}

// noticeFor picks the message shown to the user. Out-of-stock shares one message
// across operations; every other kind collapses to the operation's message.
func noticeFor(op string, productID int, kind Kind) Notice {
	msg := failureMessages[op]
	if kind == KindOutOfStock {
		msg = messageOutOfStock
	}
	return Notice{Op: op, ProductID: productID, Kind: kind, Message: msg}
}
