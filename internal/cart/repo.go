// Package cart persists per-user carts. The order commit itself takes its line
// requests from the request body; the stored cart is a convenience that gets
// cleared after a successful checkout.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("cart entry not found")

// Entry is a cart row joined with the current item state.
type Entry struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available int             `json:"available"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
}

type Repository interface {
	Add(ctx context.Context, userID, itemID string, qty int) error
	SetQuantity(ctx context.Context, userID, itemID string, qty int) error
	Remove(ctx context.Context, userID, itemID string) error
	Clear(ctx context.Context, userID string) error
	List(ctx context.Context, userID string) ([]Entry, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(pool *pgxpool.Pool) *PGRepo { return &PGRepo{db: pool} }

// Add accumulates quantity into the (user, item) row.
func (r *PGRepo) Add(ctx context.Context, userID, itemID string, qty int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO cart_items (id, user_id, item_id, quantity, added_at)
		VALUES ($1,$2,$3,$4,NOW())
		ON CONFLICT (user_id, item_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`, uuid.NewString(), userID, itemID, qty)
	return err
}

func (r *PGRepo) SetQuantity(ctx context.Context, userID, itemID string, qty int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE cart_items SET quantity=$3 WHERE user_id=$1 AND item_id=$2
	`, userID, itemID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Remove(ctx context.Context, userID, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND item_id=$2`, userID, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Clear(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}

func (r *PGRepo) List(ctx context.Context, userID string) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT c.item_id, i.name, i.price::text, i.quantity, c.quantity, c.added_at
		FROM cart_items c
		JOIN items i ON i.id = c.item_id
		WHERE c.user_id=$1
		ORDER BY c.added_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var price string
		if err := rows.Scan(&e.ItemID, &e.Name, &price, &e.Available, &e.Quantity, &e.AddedAt); err != nil {
			return nil, err
		}
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, err
		}
		e.Price = p
		out = append(out, e)
	}
	return out, rows.Err()
}
