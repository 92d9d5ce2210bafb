package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Repository with real unit-of-work semantics: a
// store-wide mutex serializes commits, and writes land only when fn succeeds.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*AccountState
	items    map[string]*ItemState
	orders   []Order
	lines    map[string][]Line
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*AccountState),
		items:    make(map[string]*ItemState),
		lines:    make(map[string][]Line),
	}
}

func (s *memStore) addAccount(id, balance string) {
	s.accounts[id] = &AccountState{ID: id, Balance: mustDec(balance)}
}

func (s *memStore) addItem(id, price string, qty int) {
	s.items[id] = &ItemState{ID: id, Price: mustDec(price), Quantity: qty}
}

func mustDec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

type memTx struct {
	accounts map[string]*AccountState
	items    map[string]*ItemState
	orders   []Order
	lines    map[string][]Line
}

func (s *memStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		accounts: make(map[string]*AccountState, len(s.accounts)),
		items:    make(map[string]*ItemState, len(s.items)),
		lines:    make(map[string][]Line, len(s.lines)),
	}
	for id, a := range s.accounts {
		cp := *a
		tx.accounts[id] = &cp
	}
	for id, it := range s.items {
		cp := *it
		tx.items[id] = &cp
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.accounts = tx.accounts
	s.items = tx.items
	s.orders = append(s.orders, tx.orders...)
	for oid, ls := range tx.lines {
		s.lines[oid] = append(s.lines[oid], ls...)
	}
	return nil
}

func (t *memTx) AccountForUpdate(ctx context.Context, accountID string) (*AccountState, error) {
	a, ok := t.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (t *memTx) ItemsForUpdate(ctx context.Context, ids []string) (map[string]*ItemState, error) {
	out := make(map[string]*ItemState, len(ids))
	for _, id := range ids {
		if it, ok := t.items[id]; ok {
			cp := *it
			out[id] = &cp
		}
	}
	return out, nil
}

func (t *memTx) SetItemQuantity(ctx context.Context, itemID string, quantity int) error {
	it, ok := t.items[itemID]
	if !ok {
		return fmt.Errorf("unknown item %s", itemID)
	}
	if quantity < 0 {
		return fmt.Errorf("negative quantity for %s", itemID)
	}
	it.Quantity = quantity
	return nil
}

func (t *memTx) SetAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	a, ok := t.accounts[accountID]
	if !ok {
		return fmt.Errorf("unknown account %s", accountID)
	}
	if balance.IsNegative() {
		return fmt.Errorf("negative balance for %s", accountID)
	}
	a.Balance = balance
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *Order) error {
	t.orders = append(t.orders, *o)
	return nil
}

func (t *memTx) InsertLines(ctx context.Context, lines []Line) error {
	for _, l := range lines {
		t.lines[l.OrderID] = append(t.lines[l.OrderID], l)
	}
	return nil
}

func (s *memStore) History(ctx context.Context, userID string) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Summary
	for _, o := range s.orders {
		if o.UserID != userID {
			continue
		}
		sum := Summary{ID: o.ID, Total: o.Total, Status: o.Status, CreatedAt: o.CreatedAt}
		for _, l := range s.lines[o.ID] {
			sum.Items = append(sum.Items, HistoryLine{ItemID: l.ItemID, Quantity: l.Quantity, Price: l.Price})
		}
		sum.ItemsCount = len(sum.Items)
		out = append(out, sum)
	}
	return out, nil
}

func (s *memStore) Detail(ctx context.Context, userID, orderID string) (*Detail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID != orderID || o.UserID != userID {
			continue
		}
		d := &Detail{ID: o.ID, Total: o.Total, Status: o.Status, CreatedAt: o.CreatedAt}
		for _, l := range s.lines[o.ID] {
			d.Items = append(d.Items, DetailLine{
				HistoryLine: HistoryLine{ItemID: l.ItemID, Quantity: l.Quantity, Price: l.Price},
				Total:       l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))),
			})
		}
		d.ItemsCount = len(d.Items)
		return d, nil
	}
	return nil, ErrNotFound
}

func (s *memStore) Recent(ctx context.Context, limit int) ([]AdminSummary, error) {
	return nil, nil
}

func (s *memStore) Totals(ctx context.Context) (int, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, o := range s.orders {
		total = total.Add(o.Total)
	}
	return len(s.orders), total, nil
}

func TestCommitScenario(t *testing.T) {
	store := newMemStore()
	store.addAccount("acct", "100.00")
	store.addItem("item-a", "10.00", 5)
	engine := NewEngine(store)
	ctx := context.Background()

	receipt, err := engine.Commit(ctx, "acct", []LineRequest{{ItemID: "item-a", Quantity: 3}})
	require.NoError(t, err)
	require.True(t, receipt.Total.Equal(mustDec("30.00")), "total=%s", receipt.Total)
	require.True(t, receipt.Balance.Equal(mustDec("70.00")), "balance=%s", receipt.Balance)
	require.Equal(t, StatusProcessing, receipt.Status)
	require.Equal(t, 2, store.items["item-a"].Quantity)
	require.True(t, store.accounts["acct"].Balance.Equal(mustDec("70.00")))

	_, err = engine.Commit(ctx, "acct", []LineRequest{{ItemID: "item-a", Quantity: 3}})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 2, stockErr.Available)
	require.Equal(t, 3, stockErr.Requested)
	require.True(t, store.accounts["acct"].Balance.Equal(mustDec("70.00")), "failed commit must not touch balance")
	require.Equal(t, 2, store.items["item-a"].Quantity)
}

func TestCommitValidatesInput(t *testing.T) {
	engine := NewEngine(newMemStore())
	ctx := context.Background()

	_, err := engine.Commit(ctx, "acct", nil)
	require.ErrorIs(t, err, ErrEmptyCart)

	_, err = engine.Commit(ctx, "acct", []LineRequest{{ItemID: "x", Quantity: 0}})
	require.ErrorIs(t, err, ErrInvalidLine)

	_, err = engine.Commit(ctx, "acct", []LineRequest{{ItemID: "", Quantity: 1}})
	require.ErrorIs(t, err, ErrInvalidLine)
}

func TestCommitAccountMissing(t *testing.T) {
	store := newMemStore()
	store.addItem("item-a", "10.00", 5)
	engine := NewEngine(store)

	_, err := engine.Commit(context.Background(), "ghost", []LineRequest{{ItemID: "item-a", Quantity: 1}})
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestCommitItemMissingAndHidden(t *testing.T) {
	store := newMemStore()
	store.addAccount("acct", "100.00")
	store.addItem("gone-dark", "10.00", 5)
	store.items["gone-dark"].Hidden = true
	engine := NewEngine(store)
	ctx := context.Background()

	_, err := engine.Commit(ctx, "acct", []LineRequest{{ItemID: "ghost", Quantity: 1}})
	var nf *ItemNotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "ghost", nf.ItemID)

	// delisted items are not purchasable
	_, err = engine.Commit(ctx, "acct", []LineRequest{{ItemID: "gone-dark", Quantity: 1}})
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "gone-dark", nf.ItemID)
}

func TestCommitAtomicity(t *testing.T) {
	store := newMemStore()
	store.addAccount("acct", "1000.00")
	store.addItem("a", "10.00", 10)
	store.addItem("b", "5.00", 10)
	store.addItem("c", "1.00", 1)
	engine := NewEngine(store)

	_, err := engine.Commit(context.Background(), "acct", []LineRequest{
		{ItemID: "a", Quantity: 2},
		{ItemID: "b", Quantity: 3},
		{ItemID: "c", Quantity: 5}, // fails: only 1 on hand
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, "c", stockErr.ItemID)

	require.Equal(t, 10, store.items["a"].Quantity, "earlier lines must not be applied")
	require.Equal(t, 10, store.items["b"].Quantity)
	require.Equal(t, 1, store.items["c"].Quantity)
	require.True(t, store.accounts["acct"].Balance.Equal(mustDec("1000.00")))
	require.Empty(t, store.orders)
}

func TestCommitInsufficientFunds(t *testing.T) {
	store := newMemStore()
	store.addAccount("acct", "25.00")
	store.addItem("a", "10.00", 5)
	engine := NewEngine(store)

	_, err := engine.Commit(context.Background(), "acct", []LineRequest{{ItemID: "a", Quantity: 3}})
	var fundsErr *InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	require.True(t, fundsErr.Required.Equal(mustDec("30.00")))
	require.True(t, fundsErr.Available.Equal(mustDec("25.00")))

	require.Equal(t, 5, store.items["a"].Quantity, "no decrement on funds failure")
	require.Empty(t, store.orders)
}

func TestCommitDuplicateLines(t *testing.T) {
	store := newMemStore()
	store.addAccount("acct", "100.00")
	store.addItem("a", "10.00", 5)
	engine := NewEngine(store)
	ctx := context.Background()

	// 3 + 3 of a 5-quantity item: the second line sees the staged decrement.
	_, err := engine.Commit(ctx, "acct", []LineRequest{
		{ItemID: "a", Quantity: 3},
		{ItemID: "a", Quantity: 3},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 2, stockErr.Available)
	require.Equal(t, 5, store.items["a"].Quantity)

	// 3 + 2 fits exactly and produces two lines on one order
	receipt, err := engine.Commit(ctx, "acct", []LineRequest{
		{ItemID: "a", Quantity: 3},
		{ItemID: "a", Quantity: 2},
	})
	require.NoError(t, err)
	require.Equal(t, 2, receipt.LineCount)
	require.True(t, receipt.Total.Equal(mustDec("50.00")))
	require.Equal(t, 0, store.items["a"].Quantity)
}

func TestPriceStability(t *testing.T) {
	store := newMemStore()
	store.addAccount("acct", "100.00")
	store.addItem("a", "10.00", 5)
	engine := NewEngine(store)
	ctx := context.Background()

	receipt, err := engine.Commit(ctx, "acct", []LineRequest{{ItemID: "a", Quantity: 2}})
	require.NoError(t, err)

	// reprice after the fact
	store.items["a"].Price = mustDec("99.99")

	detail, err := store.Detail(ctx, "acct", receipt.OrderID)
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	require.True(t, detail.Items[0].Price.Equal(mustDec("10.00")), "captured price must not drift")
	require.True(t, detail.Total.Equal(mustDec("20.00")))
}

func TestConcurrentLastUnit(t *testing.T) {
	store := newMemStore()
	store.addAccount("u1", "50.00")
	store.addAccount("u2", "50.00")
	store.addItem("last", "10.00", 1)
	engine := NewEngine(store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, acct := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(i int, acct string) {
			defer wg.Done()
			_, errs[i] = engine.Commit(context.Background(), acct, []LineRequest{{ItemID: "last", Quantity: 1}})
		}(i, acct)
	}
	wg.Wait()

	var successes, stockFails int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		default:
			var stockErr *InsufficientStockError
			if errors.As(err, &stockErr) || errors.Is(err, ErrConflict) {
				stockFails++
			} else {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	}
	require.Equal(t, 1, successes, "exactly one commit may take the last unit")
	require.Equal(t, 1, stockFails)
	require.Equal(t, 0, store.items["last"].Quantity)
}

func TestConservationUnderConcurrency(t *testing.T) {
	store := newMemStore()
	store.addItem("a", "1.00", 40)
	const buyers = 8
	const perBuyer = 10
	for i := 0; i < buyers; i++ {
		store.addAccount(fmt.Sprintf("u%d", i), "100.00")
	}
	engine := NewEngine(store)

	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(acct string) {
			defer wg.Done()
			for j := 0; j < perBuyer; j++ {
				_, _ = engine.Commit(context.Background(), acct, []LineRequest{{ItemID: "a", Quantity: 1}})
			}
		}(fmt.Sprintf("u%d", i))
	}
	wg.Wait()

	// 80 attempts against 40 units: quantity drains to exactly zero and
	// every decrement is accounted for by an order line.
	require.Equal(t, 0, store.items["a"].Quantity)

	sold := 0
	spent := decimal.Zero
	for _, lines := range store.lines {
		for _, l := range lines {
			sold += l.Quantity
			spent = spent.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
	}
	require.Equal(t, 40, sold, "line quantities must equal total decrements")

	// balance invariant: initial minus sum of order totals
	remaining := decimal.Zero
	for _, a := range store.accounts {
		remaining = remaining.Add(a.Balance)
	}
	initial := mustDec("100.00").Mul(decimal.NewFromInt(buyers))
	require.True(t, initial.Sub(spent).Equal(remaining),
		"initial=%s spent=%s remaining=%s", initial, spent, remaining)
}

// conflictRepo always fails with a retryable error, to exercise the budget.
type conflictRepo struct {
	memStore
	attempts int
}

func (r *conflictRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.attempts++
	return fmt.Errorf("%w: simulated", errSerialization)
}

func TestConflictRetryExhaustion(t *testing.T) {
	repo := &conflictRepo{}
	engine := NewEngine(repo, WithMaxAttempts(3))

	_, err := engine.Commit(context.Background(), "acct", []LineRequest{{ItemID: "a", Quantity: 1}})
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, 3, repo.attempts)
}

type brokenRepo struct{ memStore }

func (r *brokenRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return errors.New("disk on fire")
}

func TestPersistenceFailureIsWrapped(t *testing.T) {
	engine := NewEngine(&brokenRepo{})

	_, err := engine.Commit(context.Background(), "acct", []LineRequest{{ItemID: "a", Quantity: 1}})
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	require.NotContains(t, pe.Error(), "disk", "storage detail must not leak")
}
