package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/angelmondragon/cartsync/internal/catalog"
	"github.com/angelmondragon/cartsync/internal/slot"
	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeStock struct {
	mu     sync.Mutex
	limits map[int]int
	err    error
	calls  int
}

func (f *fakeStock) GetStock(ctx context.Context, productID int) (catalog.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return catalog.Stock{}, f.err
	}
	limit, ok := f.limits[productID]
	if !ok {
		return catalog.Stock{}, pkgerrors.New(pkgerrors.CodeNotFound, "stock not found")
	}
	return catalog.Stock{ProductID: productID, Amount: limit}, nil
}

func (f *fakeStock) set(productID, amount int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits[productID] = amount
}

type fakeCatalog struct {
	mu       sync.Mutex
	products map[int]catalog.Product
	err      error
}

func (f *fakeCatalog) GetProduct(ctx context.Context, productID int) (catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return catalog.Product{}, f.err
	}
	if p, ok := f.products[productID]; ok {
		return p, nil
	}
	return catalog.Product{
		ID:       productID,
		Name:     fmt.Sprintf("Sneaker %d", productID),
		Price:    decimal.NewFromInt(int64(100 + productID)),
		ImageURL: fmt.Sprintf("https://img.example.com/%d.jpg", productID),
	}, nil
}

// flakySlot wraps a memory slot and fails saves while saveErr is set.
type flakySlot struct {
	*slot.MemoryStore
	mu      sync.Mutex
	saveErr error
	saves   int
}

func (f *flakySlot) Save(ctx context.Context, key string, payload []byte) error {
	f.mu.Lock()
	err := f.saveErr
	f.saves++
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStore.Save(ctx, key, payload)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(ctx context.Context, notice Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

func (r *recordingNotifier) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

type harness struct {
	store    *Store
	slot     *flakySlot
	stock    *fakeStock
	catalog  *fakeCatalog
	notifier *recordingNotifier
}

func item(productID, amount int) LineItem {
	return LineItem{
		ProductID: productID,
		Name:      fmt.Sprintf("Sneaker %d", productID),
		Price:     decimal.NewFromInt(int64(100 + productID)),
		ImageURL:  fmt.Sprintf("https://img.example.com/%d.jpg", productID),
		Amount:    amount,
	}
}

func newHarness(t *testing.T, initial State, limits map[int]int) *harness {
	t.Helper()
	h := &harness{
		slot:     &flakySlot{MemoryStore: slot.NewMemoryStore()},
		stock:    &fakeStock{limits: map[int]int{}},
		catalog:  &fakeCatalog{products: map[int]catalog.Product{}},
		notifier: &recordingNotifier{},
	}
	for id, amount := range limits {
		h.stock.limits[id] = amount
	}
	if initial != nil {
		payload, err := encodeState(initial)
		require.NoError(t, err)
		require.NoError(t, h.slot.MemoryStore.Save(context.Background(), "cart", payload))
	}

	store, err := New(context.Background(), Params{
		Slot:     h.slot,
		Stock:    h.stock,
		Catalog:  h.catalog,
		Notifier: h.notifier,
	})
	require.NoError(t, err)
	h.store = store
	return h
}

// stored decodes what the slot currently holds.
func (h *harness) stored(t *testing.T) State {
	t.Helper()
	payload, err := h.slot.Load(context.Background(), "cart")
	if errors.Is(err, slot.ErrNotFound) {
		return State{}
	}
	require.NoError(t, err)
	state, err := decodeState(payload)
	require.NoError(t, err)
	return state
}

// requireSameState compares states item by item; prices compare by value.
func requireSameState(t *testing.T, want, got State) {
	t.Helper()
	require.Len(t, got, len(want), "state: %+v", got)
	for i := range want {
		w, g := want[i], got[i]
		require.Equal(t, w.ProductID, g.ProductID, "item %d product id", i)
		require.Equal(t, w.Name, g.Name, "item %d name", i)
		require.Equal(t, w.ImageURL, g.ImageURL, "item %d image", i)
		require.Equal(t, w.Amount, g.Amount, "item %d amount", i)
		require.True(t, w.Price.Equal(g.Price), "item %d price: want %s got %s", i, w.Price, g.Price)
	}
}
