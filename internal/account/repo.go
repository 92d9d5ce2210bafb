package account

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

var (
	ErrNotFound      = errors.New("account not found")
	ErrAlreadyExists = errors.New("account already exists")
)

// Stats aggregates a user's activity for the admin detail view.
type Stats struct {
	TotalOrders int             `json:"total_orders"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	TotalItems  int             `json:"total_items"`
	ActiveItems int             `json:"active_items"`
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	TouchLastLogin(ctx context.Context, id string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	CreditBalance(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error)
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	GetStats(ctx context.Context, id string) (*Stats, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(pool *pgxpool.Pool) *PGRepo { return &PGRepo{db: pool} }

const userCols = `id, username, email, password_hash, avatar_url, balance::text, is_admin, created_at, last_login`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var balance string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.AvatarURL,
		&balance, &u.IsAdmin, &u.CreatedAt, &u.LastLogin); err != nil {
		return nil, err
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, err
	}
	u.Balance = b
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PGRepo) Create(ctx context.Context, u *User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, avatar_url, balance, is_admin, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.AvatarURL, u.Balance.StringFixed(2), u.IsAdmin)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *PGRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username=$1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *PGRepo) List(ctx context.Context) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *PGRepo) TouchLastLogin(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `UPDATE users SET last_login=NOW() WHERE id=$1`, id)
	return err
}

func (r *PGRepo) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE users SET avatar_url=$2 WHERE id=$1`, id, avatarURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreditBalance adds amount to the user's balance under a row lock and returns
// the resulting balance. Order commits debit through the same row, so the lock
// keeps concurrent credits and debits from losing updates.
func (r *PGRepo) CreditBalance(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var newBalance decimal.Decimal
	err := db.WithTx(ctx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var cur string
		if err := tx.QueryRow(ctx, `SELECT balance::text FROM users WHERE id=$1 FOR UPDATE`, id).Scan(&cur); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		b, err := decimal.NewFromString(cur)
		if err != nil {
			return err
		}
		newBalance = b.Add(amount)
		if newBalance.IsNegative() {
			newBalance = decimal.Zero
		}
		_, err = tx.Exec(ctx, `UPDATE users SET balance=$2 WHERE id=$1`, id, newBalance.StringFixed(2))
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

func (r *PGRepo) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE users SET is_admin=$2 WHERE id=$1`, id, isAdmin)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash=$2 WHERE id=$1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) GetStats(ctx context.Context, id string) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s Stats
	var spent string
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM orders WHERE user_id=$1),
			COALESCE((SELECT SUM(total) FROM orders WHERE user_id=$1), 0)::text,
			(SELECT COUNT(*) FROM items WHERE owner_id=$1),
			(SELECT COUNT(*) FROM items WHERE owner_id=$1 AND quantity > 0 AND NOT hidden)
	`, id).Scan(&s.TotalOrders, &spent, &s.TotalItems, &s.ActiveItems)
	if err != nil {
		return nil, err
	}
	sp, err := decimal.NewFromString(spent)
	if err != nil {
		return nil, err
	}
	s.TotalSpent = sp
	return &s, nil
}
