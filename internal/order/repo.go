package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/abbashop/storefront/internal/db"
)

// AccountState is the locked snapshot of the paying account inside a commit.
type AccountState struct {
	ID      string
	Balance decimal.Decimal
}

// ItemState is the locked snapshot of one item inside a commit.
type ItemState struct {
	ID       string
	Price    decimal.Decimal
	Quantity int
	Hidden   bool
}

// TxRepository is the slice of storage the commit engine may touch inside one
// unit of work. Implementations must hold row locks on everything returned by
// the *ForUpdate methods until the unit of work ends.
type TxRepository interface {
	AccountForUpdate(ctx context.Context, accountID string) (*AccountState, error)
	// ItemsForUpdate locks the given rows. Callers pass ids sorted ascending
	// so concurrent multi-item commits take locks in the same order. Missing
	// ids are simply absent from the result.
	ItemsForUpdate(ctx context.Context, ids []string) (map[string]*ItemState, error)
	SetItemQuantity(ctx context.Context, itemID string, quantity int) error
	SetAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal) error
	InsertOrder(ctx context.Context, o *Order) error
	InsertLines(ctx context.Context, lines []Line) error
}

type Repository interface {
	// WithTx runs fn as one atomic unit of work. A retryable concurrency
	// failure (serialization, deadlock, lock timeout) is reported via
	// errSerialization so the engine can retry.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	History(ctx context.Context, userID string) ([]Summary, error)
	Detail(ctx context.Context, userID, orderID string) (*Detail, error)
	Recent(ctx context.Context, limit int) ([]AdminSummary, error)
	Totals(ctx context.Context) (count int, revenue decimal.Decimal, err error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(pool *pgxpool.Pool) *PGRepo { return &PGRepo{db: pool} }

// Retryable pg failures: serialization_failure, deadlock_detected,
// lock_not_available.
func isRetryablePG(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

func (r *PGRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
	if isRetryablePG(err) {
		return errors.Join(errSerialization, err)
	}
	return err
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) AccountForUpdate(ctx context.Context, accountID string) (*AccountState, error) {
	var st AccountState
	var balance string
	err := t.tx.QueryRow(ctx, `
		SELECT id, balance::text FROM users WHERE id=$1 FOR UPDATE
	`, accountID).Scan(&st.ID, &balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, err
	}
	st.Balance = b
	return &st, nil
}

func (t *pgTx) ItemsForUpdate(ctx context.Context, ids []string) (map[string]*ItemState, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, price::text, quantity, hidden
		FROM items
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*ItemState, len(ids))
	for rows.Next() {
		var st ItemState
		var price string
		if err := rows.Scan(&st.ID, &price, &st.Quantity, &st.Hidden); err != nil {
			return nil, err
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, err
		}
		st.Price = p
		out[st.ID] = &st
	}
	return out, rows.Err()
}

func (t *pgTx) SetItemQuantity(ctx context.Context, itemID string, quantity int) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE items SET quantity=$2, updated_at=NOW() WHERE id=$1
	`, itemID, quantity)
	return err
}

func (t *pgTx) SetAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE users SET balance=$2 WHERE id=$1
	`, accountID, balance.StringFixed(2))
	return err
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, total, status, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, o.ID, o.UserID, o.Total.StringFixed(2), o.Status, o.CreatedAt)
	return err
}

func (t *pgTx) InsertLines(ctx context.Context, lines []Line) error {
	for _, l := range lines {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_lines (id, order_id, item_id, quantity, price)
			VALUES ($1,$2,$3,$4,$5)
		`, l.ID, l.OrderID, l.ItemID, l.Quantity, l.Price.StringFixed(2)); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepo) History(ctx context.Context, userID string) ([]Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT o.id, o.total::text, o.status, o.created_at,
		       l.item_id, i.name, l.quantity, l.price::text, i.category, i.rarity
		FROM orders o
		JOIN order_lines l ON l.order_id = o.id
		JOIN items i ON i.id = l.item_id
		WHERE o.user_id=$1
		ORDER BY o.created_at DESC, o.id, l.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	var cur *Summary
	for rows.Next() {
		var (
			id, total, status string
			createdAt         time.Time
			hl                HistoryLine
			price             string
		)
		if err := rows.Scan(&id, &total, &status, &createdAt,
			&hl.ItemID, &hl.Name, &hl.Quantity, &price, &hl.Category, &hl.Rarity); err != nil {
			return nil, err
		}
		if cur == nil || cur.ID != id {
			t, err := decimal.NewFromString(total)
			if err != nil {
				return nil, err
			}
			out = append(out, Summary{ID: id, Total: t, Status: Status(status), CreatedAt: createdAt})
			cur = &out[len(out)-1]
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, err
		}
		hl.Price = p
		cur.Items = append(cur.Items, hl)
		cur.ItemsCount = len(cur.Items)
	}
	return out, rows.Err()
}

// Detail enforces ownership: an order belonging to another account reads as
// not found, so order ids leak nothing across accounts.
func (r *PGRepo) Detail(ctx context.Context, userID, orderID string) (*Detail, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var d Detail
	var total string
	err := r.db.QueryRow(ctx, `
		SELECT id, total::text, status, created_at, completed_at
		FROM orders WHERE id=$1 AND user_id=$2
	`, orderID, userID).Scan(&d.ID, &total, &d.Status, &d.CreatedAt, &d.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t, err := decimal.NewFromString(total)
	if err != nil {
		return nil, err
	}
	d.Total = t

	rows, err := r.db.Query(ctx, `
		SELECT l.item_id, i.name, i.description, i.item_code, l.quantity, l.price::text,
		       i.category, i.rarity, i.image_url
		FROM order_lines l
		JOIN items i ON i.id = l.item_id
		WHERE l.order_id=$1
		ORDER BY l.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var dl DetailLine
		var price string
		if err := rows.Scan(&dl.ItemID, &dl.Name, &dl.Description, &dl.ItemCode, &dl.Quantity,
			&price, &dl.Category, &dl.Rarity, &dl.ImageURL); err != nil {
			return nil, err
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, err
		}
		dl.Price = p
		dl.Total = p.Mul(decimal.NewFromInt(int64(dl.Quantity)))
		d.Items = append(d.Items, dl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	d.ItemsCount = len(d.Items)
	return &d, nil
}

func (r *PGRepo) Recent(ctx context.Context, limit int) ([]AdminSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.Query(ctx, `
		SELECT o.id, u.username, o.total::text, o.status, o.created_at
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdminSummary
	for rows.Next() {
		var s AdminSummary
		var total string
		if err := rows.Scan(&s.ID, &s.Username, &total, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		t, err := decimal.NewFromString(total)
		if err != nil {
			return nil, err
		}
		s.Total = t
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepo) Totals(ctx context.Context) (int, decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var count int
	var revenue string
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)::text FROM orders
	`).Scan(&count, &revenue)
	if err != nil {
		return 0, decimal.Zero, err
	}
	rev, err := decimal.NewFromString(revenue)
	if err != nil {
		return 0, decimal.Zero, err
	}
	return count, rev, nil
}
