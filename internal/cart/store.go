package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/cartsync/internal/catalog"
	"github.com/angelmondragon/cartsync/internal/slot"
	"github.com/angelmondragon/cartsync/pkg/config"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/angelmondragon/cartsync/pkg/metrics"
	"github.com/google/uuid"
)

const defaultSlotKey = "cart"

// StockService reports how many units of a product can be ordered.
type StockService interface {
	GetStock(ctx context.Context, productID int) (catalog.Stock, error)
}

// ProductCatalog resolves product metadata.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID int) (catalog.Product, error)
}

// Params wires a Store. Slot, Stock and Catalog are required.
type Params struct {
	Slot     slot.Store
	Key      string
	Stock    StockService
	Catalog  ProductCatalog
	Notifier Notifier
	Logger   *logger.Logger
	Metrics  *metrics.CartMetrics

	// OnMalformed is config.MalformedReset (default) or config.MalformedFail.
	OnMalformed string
	// LockTimeout bounds the wait for another operation on the same product. Zero waits
	// as long as ctx allows.
	LockTimeout time.Duration
}

// UpdateProductAmount is the input of Store.UpdateProductAmount.
type UpdateProductAmount struct {
	ProductID int
	Amount    int
}

// Store owns the cart state and mirrors it to a durable slot after every mutation.
// Operations on the same product run one at a time; commits are serialized store-wide.
type Store struct {
	slot        slot.Store
	key         string
	stock       StockService
	catalog     ProductCatalog
	notifier    Notifier
	logg        *logger.Logger
	metrics     *metrics.CartMetrics
	lockTimeout time.Duration

	locks    *keyLock
	commitMu sync.Mutex
	state    atomic.Pointer[State]

	subsMu sync.RWMutex
	subs   map[uuid.UUID]func(State)
}

// New builds a Store seeded from the durable slot. A missing slot starts an empty cart.
func New(ctx context.Context, p Params) (*Store, error) {
	if p.Slot == nil {
		return nil, fmt.Errorf("cart slot required")
	}
	if p.Stock == nil {
		return nil, fmt.Errorf("stock service required")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Notifier == nil {
		p.Notifier = LogNotifier{Logger: p.Logger}
	}
	key := strings.TrimSpace(p.Key)
	if key == "" {
		key = defaultSlotKey
	}

	s := &Store{
		slot:        p.Slot,
		key:         key,
		stock:       p.Stock,
		catalog:     p.Catalog,
		notifier:    p.Notifier,
		logg:        p.Logger,
		metrics:     p.Metrics,
		lockTimeout: p.LockTimeout,
		locks:       newKeyLock(),
		subs:        make(map[uuid.UUID]func(State)),
	}

	initial, err := s.load(ctx, p.OnMalformed)
	if err != nil {
		return nil, err
	}
	s.state.Store(&initial)
	s.metrics.SetItems(len(initial))
	return s, nil
}

func (s *Store) load(ctx context.Context, onMalformed string) (State, error) {
	ctx = s.logg.WithField(ctx, "slot_key", s.key)

	payload, err := s.slot.Load(ctx, s.key)
	if errors.Is(err, slot.ErrNotFound) {
		s.logg.Debug(ctx, "cart.load.empty")
		return State{}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart slot")
	}

	state, err := decodeState(payload)
	if err != nil {
		if strings.EqualFold(onMalformed, config.MalformedFail) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "stored cart is malformed")
		}
		ctx = s.logg.WithField(ctx, "error", err.Error())
		s.logg.Warn(ctx, "cart.load.malformed_reset")
		return State{}, nil
	}

	ctx = s.logg.WithField(ctx, "items", len(state))
	s.logg.Info(ctx, "cart.load.restored")
	return state, nil
}

// Cart returns a snapshot of the current state.
func (s *Store) Cart() State {
	return s.current().Clone()
}

// Summary returns the totals of the current state.
func (s *Store) Summary() Summary {
	return s.current().Summarize()
}

func (s *Store) current() State {
	if st := s.state.Load(); st != nil {
		return *st
	}
	return State{}
}

// Subscribe registers fn to receive every committed state. fn runs synchronously inside
// the commit and must not call back into the store's operations.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	id := uuid.New()
	s.subsMu.Lock()
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) publish(state State) {
	s.subsMu.RLock()
	observers := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		observers = append(observers, fn)
	}
	s.subsMu.RUnlock()

	for _, fn := range observers {
		fn(state.Clone())
	}
}

// AddProduct adds one unit of productID, refreshing its metadata from the catalog.
func (s *Store) AddProduct(ctx context.Context, productID int) error {
	return s.run(ctx, OpAddProduct, productID, func(ctx context.Context) (func(State) State, *OpError) {
		current, _ := s.current().Find(productID)
		desired := current.Amount + 1

		stock, err := s.stock.GetStock(ctx, productID)
		if err != nil {
			return nil, newOpError(OpAddProduct, productID, KindLookupFailure, err)
		}
		if desired > stock.Amount {
			return nil, newOpError(OpAddProduct, productID, KindOutOfStock, nil)
		}

		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, newOpError(OpAddProduct, productID, KindLookupFailure, err)
		}

		item := LineItem{
			ProductID: productID,
			Name:      product.Name,
			Price:     product.Price,
			ImageURL:  product.ImageURL,
			Amount:    desired,
		}
		if err := checkItem(item); err != nil {
			return nil, newOpError(OpAddProduct, productID, KindLookupFailure, fmt.Errorf("catalog returned an unusable product: %w", err))
		}
		return func(st State) State { return st.upsert(item) }, nil
	})
}

// RemoveProduct drops productID from the cart.
func (s *Store) RemoveProduct(ctx context.Context, productID int) error {
	return s.run(ctx, OpRemoveProduct, productID, func(ctx context.Context) (func(State) State, *OpError) {
		if _, ok := s.current().Find(productID); !ok {
			return nil, newOpError(OpRemoveProduct, productID, KindProductNotFound, nil)
		}
		return func(st State) State { return st.without(productID) }, nil
	})
}

// UpdateProductAmount sets the ordered quantity of a product already in the cart.
func (s *Store) UpdateProductAmount(ctx context.Context, in UpdateProductAmount) error {
	productID := in.ProductID
	return s.run(ctx, OpUpdateProductAmount, productID, func(ctx context.Context) (func(State) State, *OpError) {
		if _, ok := s.current().Find(productID); !ok {
			return nil, newOpError(OpUpdateProductAmount, productID, KindProductNotFound, nil)
		}

		stock, err := s.stock.GetStock(ctx, productID)
		if err != nil {
			return nil, newOpError(OpUpdateProductAmount, productID, KindLookupFailure, err)
		}
		if in.Amount > stock.Amount {
			return nil, newOpError(OpUpdateProductAmount, productID, KindOutOfStock, nil)
		}
		if in.Amount < 1 {
			return nil, newOpError(OpUpdateProductAmount, productID, KindInvalidAmount, nil)
		}
		return func(st State) State { return st.withAmount(productID, in.Amount) }, nil
	})
}

// run holds the product lock while prepare performs lookups and decides the mutation,
// then commits it. The item for productID cannot change between prepare and commit.
func (s *Store) run(ctx context.Context, op string, productID int, prepare func(ctx context.Context) (func(State) State, *OpError)) error {
	start := time.Now()
	ctx = s.logg.WithOperation(ctx, op, uuid.NewString())
	ctx = s.logg.WithProductID(ctx, productID)
	defer func() {
		s.metrics.ObserveDuration(op, time.Since(start))
	}()

	release, err := s.lock(ctx, productID)
	if err != nil {
		return s.fail(ctx, newOpError(op, productID, KindCanceled, err))
	}
	defer release()

	apply, opErr := prepare(ctx)
	if opErr != nil {
		return s.fail(ctx, opErr)
	}

	next, err := s.commit(ctx, apply)
	if err != nil {
		return s.fail(ctx, newOpError(op, productID, KindPersistFailure, err))
	}

	s.metrics.IncSuccess(op)
	s.metrics.SetItems(len(next))
	if item, ok := next.Find(productID); ok {
		ctx = s.logg.WithField(ctx, "amount", item.Amount)
	}
	s.logg.Info(ctx, "cart."+op+".committed")
	return nil
}

func (s *Store) lock(ctx context.Context, productID int) (func(), error) {
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}
	return s.locks.acquire(ctx, productID)
}

// commit applies the mutation to the latest state, writes it through to the slot and only
// then makes it visible. A failed write leaves memory untouched.
func (s *Store) commit(ctx context.Context, apply func(State) State) (State, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	next := apply(s.current())
	payload, err := encodeState(next)
	if err != nil {
		return nil, err
	}
	if err := s.slot.Save(ctx, s.key, payload); err != nil {
		return nil, err
	}
	s.state.Store(&next)
	s.publish(next)
	return next, nil
}

func (s *Store) fail(ctx context.Context, opErr *OpError) error {
	s.metrics.IncFailure(opErr.Op, string(opErr.Kind))

	ctx = s.logg.WithField(ctx, "kind", string(opErr.Kind))
	switch opErr.Kind {
	case KindLookupFailure, KindPersistFailure:
		ctx = s.logg.WithFields(ctx, pkgerrors.Dump(opErr.Err).Fields())
		s.logg.Error(ctx, "cart."+opErr.Op+".failed", opErr)
	default:
		s.logg.Warn(ctx, "cart."+opErr.Op+".rejected")
	}

	s.notifier.Notify(ctx, noticeFor(opErr.Op, opErr.ProductID, opErr.Kind))
	return opErr
}
