package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("item not found")
	ErrCodeTaken = errors.New("item code already exists")
)

type Query struct {
	Q      string
	Limit  int
	Offset int
}

type Repository interface {
	Create(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, q Query) ([]Item, error)
	ListAll(ctx context.Context) ([]Item, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Item, error)
	Update(ctx context.Context, it *Item) error
	CountOrderRefs(ctx context.Context, itemID string) (int, error)
	Hide(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) (bool, error)
	OwnerStats(ctx context.Context, ownerID string) (*OwnerStats, error)
	SalesStats(ctx context.Context, itemID string) (*SalesStats, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(pool *pgxpool.Pool) *PGRepo { return &PGRepo{db: pool} }

const itemCols = `id, name, description, item_code, price::text, quantity, image_url, rarity, category, owner_id, hidden, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	var price string
	if err := row.Scan(&it.ID, &it.Name, &it.Description, &it.ItemCode, &price, &it.Quantity,
		&it.ImageURL, &it.Rarity, &it.Category, &it.OwnerID, &it.Hidden, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	it.Price = p
	return &it, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PGRepo) Create(ctx context.Context, it *Item) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO items (id, name, description, item_code, price, quantity, image_url, rarity, category, owner_id, hidden, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,FALSE,NOW())
	`, it.ID, it.Name, it.Description, it.ItemCode, it.Price.StringFixed(2), it.Quantity,
		it.ImageURL, it.Rarity, it.Category, it.OwnerID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	it, err := scanItem(r.db.QueryRow(ctx, `SELECT `+itemCols+` FROM items WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return it, nil
}

// List returns visible catalog items, newest first.
func (r *PGRepo) List(ctx context.Context, q Query) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	search := strings.TrimSpace(q.Q)

	rows, err := r.db.Query(ctx, `
		SELECT `+itemCols+`
		FROM items
		WHERE NOT hidden
		  AND ($1 = '' OR name ILIKE '%'||$1||'%' OR description ILIKE '%'||$1||'%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// ListAll returns every item including hidden ones (admin view).
func (r *PGRepo) ListAll(ctx context.Context) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+itemCols+` FROM items ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+itemCols+` FROM items WHERE owner_id=$1 ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectItems(rows pgx.Rows) ([]Item, error) {
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, it *Item) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE items
		SET name=$2, description=$3, item_code=$4, price=$5, quantity=$6,
		    image_url=$7, rarity=$8, category=$9, owner_id=$10, hidden=$11, updated_at=NOW()
		WHERE id=$1
	`, it.ID, it.Name, it.Description, it.ItemCode, it.Price.StringFixed(2), it.Quantity,
		it.ImageURL, it.Rarity, it.Category, it.OwnerID, it.Hidden)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) CountOrderRefs(ctx context.Context, itemID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM order_lines WHERE item_id=$1`, itemID).Scan(&n)
	return n, err
}

func (r *PGRepo) Hide(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE items SET hidden=TRUE, quantity=0, updated_at=NOW() WHERE id=$1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDelete removes the row; cart rows go with it via ON DELETE CASCADE.
func (r *PGRepo) HardDelete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGRepo) OwnerStats(ctx context.Context, ownerID string) (*OwnerStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s OwnerStats
	var value string
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(quantity), 0),
		       COALESCE(SUM(price * quantity), 0)::text,
		       COUNT(*) FILTER (WHERE quantity = 0)
		FROM items WHERE owner_id=$1
	`, ownerID).Scan(&s.TotalItems, &s.TotalQuantity, &value, &s.OutOfStock)
	if err != nil {
		return nil, err
	}
	v, err := decimal.NewFromString(value)
	if err != nil {
		return nil, err
	}
	s.TotalValue = v
	return &s, nil
}

func (r *PGRepo) SalesStats(ctx context.Context, itemID string) (*SalesStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s SalesStats
	var revenue string
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(DISTINCT user_id) FROM cart_items WHERE item_id=$1),
			(SELECT COUNT(DISTINCT order_id) FROM order_lines WHERE item_id=$1),
			COALESCE((SELECT SUM(quantity) FROM order_lines WHERE item_id=$1), 0),
			COALESCE((SELECT SUM(quantity * price) FROM order_lines WHERE item_id=$1), 0)::text
	`, itemID).Scan(&s.InCartsCount, &s.InOrdersCount, &s.TotalSold, &revenue)
	if err != nil {
		return nil, err
	}
	rev, err := decimal.NewFromString(revenue)
	if err != nil {
		return nil, err
	}
	s.TotalRevenue = rev
	return &s, nil
}
