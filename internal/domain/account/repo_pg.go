package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/platform/apperr"
	"github.com/medvault/medvault/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const accountColumns = `id, username, password_hash, email, first_name, last_name, phone_number,
	role, status, is_first_login, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, a *Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO account (
			id, username, password_hash, email, first_name, last_name, phone_number,
			role, status, is_first_login
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		a.ID, a.Username, a.PasswordHash, a.Email, a.FirstName, a.LastName, a.PhoneNumber,
		a.Role, a.Status, a.IsFirstLogin,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return db.MapError(err, "account")
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.scanOne(r.conn(ctx).QueryRow(ctx, `SELECT `+accountColumns+` FROM account WHERE id = $1`, id))
}

func (r *repoPG) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return r.scanOne(r.conn(ctx).QueryRow(ctx, `SELECT `+accountColumns+` FROM account WHERE username = $1`, username))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.scanOne(r.conn(ctx).QueryRow(ctx, `SELECT `+accountColumns+` FROM account WHERE email = $1`, email))
}

func (r *repoPG) GetByPhone(ctx context.Context, phone string) (*Account, error) {
	return r.scanOne(r.conn(ctx).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE phone_number = $1 ORDER BY created_at LIMIT 1`, phone))
}

func (r *repoPG) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM account WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

func (r *repoPG) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, isFirstLogin bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE account SET password_hash = $2, is_first_login = $3, updated_at = NOW()
		WHERE id = $1`, id, hash, isFirstLogin)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", apperr.ErrNotFound, id)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, status Status, limit, offset int) ([]*Account, int, error) {
	where := ""
	var args []interface{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM account`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+accountColumns+` FROM account`+where+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *repoPG) scanOne(row pgx.Row) (*Account, error) {
	a, err := scanAccount(row)
	if err != nil {
		return nil, db.MapError(err, "account")
	}
	return a, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Email, &a.FirstName, &a.LastName, &a.PhoneNumber,
		&a.Role, &a.Status, &a.IsFirstLogin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
