package order

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultMaxAttempts = 3
	defaultLockTimeout = 5 * time.Second
	retryBaseDelay     = 20 * time.Millisecond
)

// Engine turns a list of line requests into a durable order, or rejects the
// whole thing with no partial effect. Stock and funds are checked across the
// entire cart before any write is applied.
type Engine struct {
	repo        Repository
	maxAttempts int
	lockTimeout time.Duration
}

type EngineOption func(*Engine)

// WithMaxAttempts bounds the transparent retries on storage-level conflicts.
func WithMaxAttempts(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithLockTimeout bounds how long one attempt may wait on row locks.
func WithLockTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.lockTimeout = d
		}
	}
}

func NewEngine(repo Repository, opts ...EngineOption) *Engine {
	e := &Engine{repo: repo, maxAttempts: defaultMaxAttempts, lockTimeout: defaultLockTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Commit executes the order as one atomic unit of work. On any validation
// failure nothing is written; the first offending line picks the error.
// Storage-level conflicts are retried up to the attempt budget and then
// surfaced as ErrConflict.
func (e *Engine) Commit(ctx context.Context, accountID string, reqs []LineRequest) (*Receipt, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyCart
	}
	for _, r := range reqs {
		if r.ItemID == "" || r.Quantity <= 0 {
			return nil, ErrInvalidLine
		}
	}

	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * retryBaseDelay
			delay += time.Duration(rand.Int63n(int64(retryBaseDelay)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ErrConflict
			}
		}

		receipt, err := e.tryCommit(ctx, accountID, reqs)
		if err == nil {
			return receipt, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			// lock-wait budget exhausted for this attempt
			lastErr = err
			continue
		}
		if errors.Is(err, errSerialization) {
			lastErr = err
			continue
		}
		return nil, err
	}
	_ = lastErr
	return nil, ErrConflict
}

func (e *Engine) tryCommit(ctx context.Context, accountID string, reqs []LineRequest) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.lockTimeout)
	defer cancel()

	var receipt *Receipt
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acct, err := tx.AccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		// Lock items in ascending id order so two carts touching the same
		// items in opposite order cannot deadlock.
		ids := uniqueSortedIDs(reqs)
		items, err := tx.ItemsForUpdate(ctx, ids)
		if err != nil {
			return err
		}

		total := decimal.Zero
		remaining := make(map[string]int, len(ids))
		lines := make([]Line, 0, len(reqs))
		for _, r := range reqs {
			it, ok := items[r.ItemID]
			if !ok || it.Hidden {
				return &ItemNotFoundError{ItemID: r.ItemID}
			}
			avail, staged := remaining[r.ItemID]
			if !staged {
				avail = it.Quantity
			}
			if avail < r.Quantity {
				return &InsufficientStockError{ItemID: r.ItemID, Available: avail, Requested: r.Quantity}
			}
			remaining[r.ItemID] = avail - r.Quantity
			total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(r.Quantity))))
			lines = append(lines, Line{
				ID:       uuid.NewString(),
				ItemID:   r.ItemID,
				Quantity: r.Quantity,
				Price:    it.Price,
			})
		}

		if acct.Balance.LessThan(total) {
			return &InsufficientFundsError{Required: total, Available: acct.Balance}
		}

		// Every check passed: apply the staged decrements, debit, persist.
		for _, id := range ids {
			if err := tx.SetItemQuantity(ctx, id, remaining[id]); err != nil {
				return err
			}
		}
		newBalance := acct.Balance.Sub(total)
		if err := tx.SetAccountBalance(ctx, accountID, newBalance); err != nil {
			return err
		}

		o := &Order{
			ID:        uuid.NewString(),
			UserID:    accountID,
			Total:     total,
			Status:    StatusProcessing,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderID = o.ID
		}
		if err := tx.InsertLines(ctx, lines); err != nil {
			return err
		}

		receipt = &Receipt{
			OrderID:   o.ID,
			Total:     total,
			Status:    o.Status,
			Balance:   newBalance,
			CreatedAt: o.CreatedAt,
			LineCount: len(lines),
		}
		return nil
	})
	if err != nil {
		return nil, wrapCommitErr(err)
	}
	return receipt, nil
}

// wrapCommitErr keeps domain and retry errors as-is and hides everything else
// behind PersistenceError so raw storage detail never reaches a client.
func wrapCommitErr(err error) error {
	var (
		itemNotFound *ItemNotFoundError
		noStock      *InsufficientStockError
		noFunds      *InsufficientFundsError
	)
	switch {
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, errSerialization),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &itemNotFound),
		errors.As(err, &noStock),
		errors.As(err, &noFunds):
		return err
	}
	return &PersistenceError{Err: err}
}

func uniqueSortedIDs(reqs []LineRequest) []string {
	seen := make(map[string]struct{}, len(reqs))
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if _, ok := seen[r.ItemID]; ok {
			continue
		}
		seen[r.ItemID] = struct{}{}
		ids = append(ids, r.ItemID)
	}
	sort.Strings(ids)
	return ids
}
