package onboarding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medvault/medvault/internal/platform/apperr"
	"github.com/medvault/medvault/internal/platform/db"
)

type requestRepoPG struct {
	pool *pgxpool.Pool
}

func NewRequestRepo(pool *pgxpool.Pool) RequestRepository {
	return &requestRepoPG{pool: pool}
}

func (r *requestRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const requestColumns = `id, first_name, last_name, email, phone_number, role, status,
	specialization, license_number, department,
	date_of_birth, gender, address, emergency_contact,
	admin_notes, created_at, updated_at, processed_at, processed_by`

func (r *requestRepoPG) Create(ctx context.Context, req *RegistrationRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO registration_request (
			id, first_name, last_name, email, phone_number, role, status,
			specialization, license_number, department,
			date_of_birth, gender, address, emergency_contact
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10,
			$11, $12, $13, $14
		)
		RETURNING created_at, updated_at`,
		req.ID, req.FirstName, req.LastName, req.Email, req.PhoneNumber, req.Role, req.Status,
		req.Specialization, req.LicenseNumber, req.Department,
		req.DateOfBirth, req.Gender, req.Address, req.EmergencyContact,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	return db.MapError(err, "registration request")
}

func (r *requestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*RegistrationRequest, error) {
	return r.scanOne(r.conn(ctx).QueryRow(ctx, `SELECT `+requestColumns+` FROM registration_request WHERE id = $1`, id))
}

func (r *requestRepoPG) GetByEmail(ctx context.Context, email string) (*RegistrationRequest, error) {
	return r.scanOne(r.conn(ctx).QueryRow(ctx, `SELECT `+requestColumns+` FROM registration_request WHERE email = $1`, email))
}

func (r *requestRepoPG) GetByPhone(ctx context.Context, phone string) (*RegistrationRequest, error) {
	return r.scanOne(r.conn(ctx).QueryRow(ctx, `SELECT `+requestColumns+` FROM registration_request WHERE phone_number = $1`, phone))
}

func (r *requestRepoPG) List(ctx context.Context, status Status, limit, offset int) ([]*RegistrationRequest, int, error) {
	where := ""
	var args []interface{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM registration_request`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+requestColumns+` FROM registration_request`+where+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*RegistrationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, req)
	}
	return out, total, rows.Err()
}

func (r *requestRepoPG) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT status, COUNT(*) FROM registration_request GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	return counts, rows.Err()
}

func (r *requestRepoPG) MarkProcessed(ctx context.Context, id uuid.UUID, status Status, d Decision, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE registration_request SET
			status = $2, admin_notes = $3, processed_at = $4, processed_by = $5, updated_at = $4
		WHERE id = $1 AND status = 'PENDING'`,
		id, status, d.AdminNotes, at, d.AdminID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: request %s is not pending", apperr.ErrInvalidState, id)
	}
	return nil
}

func (r *requestRepoPG) scanOne(row pgx.Row) (*RegistrationRequest, error) {
	req, err := scanRequest(row)
	if err != nil {
		return nil, db.MapError(err, "registration request")
	}
	return req, nil
}

func scanRequest(row pgx.Row) (*RegistrationRequest, error) {
	var req RegistrationRequest
	err := row.Scan(
		&req.ID, &req.FirstName, &req.LastName, &req.Email, &req.PhoneNumber, &req.Role, &req.Status,
		&req.Specialization, &req.LicenseNumber, &req.Department,
		&req.DateOfBirth, &req.Gender, &req.Address, &req.EmergencyContact,
		&req.AdminNotes, &req.CreatedAt, &req.UpdatedAt, &req.ProcessedAt, &req.ProcessedBy,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
