package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/devmadlani/auth-service/internal/model"
)

// UserRepo reads and writes the users table. The password hash is only
// selected by GetByEmail, the credential lookup used by login.
type UserRepo struct{ db DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{db: db} }

// UserUpdate is the full set of mutable profile fields. A nil TenantID
// detaches the user from its tenant.
type UserUpdate struct {
	FirstName string
	LastName  string
	Email     string
	Role      string
	TenantID  *uint64
}

var userColumns = []string{"id", "first_name", "last_name", "email", "role", "tenant_id", "created_at", "updated_at"}

// Create inserts u and sets u.ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = "INSERT INTO users (first_name, last_name, email, password_hash, role, tenant_id) VALUES (?, ?, ?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Role, nullableID(u.TenantID))
	if err != nil {
		switch {
		case isDuplicateEntry(err):
			return ErrEmailExists
		case isMissingReference(err):
			return ErrInvalidReference
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// ExistsByEmail reports whether a user with exactly this email exists.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE email = ? LIMIT 1", email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByEmail fetches a user including its password hash.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	const q = "SELECT id, first_name, last_name, email, password_hash, role, tenant_id, created_at, updated_at FROM users WHERE email = ? LIMIT 1"
	var (
		u        model.User
		tenantID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Role, &tenantID, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.TenantID = idFromNull(tenantID)
	return u, nil
}

// GetByID fetches a user and its tenant, without the password hash.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	const q = `SELECT u.id, u.first_name, u.last_name, u.email, u.role, u.tenant_id, u.created_at, u.updated_at,
       t.name, t.address, t.created_at, t.updated_at
  FROM users u LEFT JOIN tenants t ON t.id = u.tenant_id
 WHERE u.id = ? LIMIT 1`
	var (
		u                    model.User
		tenantID             sql.NullInt64
		tName, tAddr         sql.NullString
		tCreated, tUpdatedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Role, &tenantID, &u.CreatedAt, &u.UpdatedAt,
		&tName, &tAddr, &tCreated, &tUpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.TenantID = idFromNull(tenantID)
	if u.TenantID != nil && tName.Valid {
		u.Tenant = &model.Tenant{
			ID:        *u.TenantID,
			Name:      tName.String,
			Address:   tAddr.String,
			CreatedAt: tCreated.Time,
			UpdatedAt: tUpdatedAt.Time,
		}
	}
	return u, nil
}

// Update replaces the profile fields of user id.
func (r *UserRepo) Update(ctx context.Context, id uint64, in UserUpdate) error {
	query, args, err := sq.Update("users").
		SetMap(map[string]any{
			"first_name": in.FirstName,
			"last_name":  in.LastName,
			"email":      in.Email,
			"role":       in.Role,
			"tenant_id":  nullableID(in.TenantID),
		}).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		switch {
		case isDuplicateEntry(err):
			return ErrEmailExists
		case isMissingReference(err):
			return ErrInvalidReference
		}
		return err
	}
	return expectOneRow(res)
}

// Delete removes user id. Its refresh tokens go with it (ON DELETE CASCADE).
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// List returns one page of users, newest first, and the total match count.
func (r *UserRepo) List(ctx context.Context, q ListQuery) ([]model.User, int, error) {
	q = q.Normalize()
	filter := func(b sq.SelectBuilder) sq.SelectBuilder {
		if q.Search != "" {
			p := containsPattern(q.Search)
			b = b.Where(sq.Or{sq.Like{"first_name": p}, sq.Like{"last_name": p}, sq.Like{"email": p}})
		}
		if q.Role != "" {
			b = b.Where(sq.Eq{"role": q.Role})
		}
		return b
	}

	countSQL, countArgs, err := filter(sq.Select("COUNT(*)").From("users")).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL, listArgs, err := filter(sq.Select(userColumns...).From("users")).
		OrderBy("id DESC").
		Limit(uint64(q.PerPage)).
		Offset(q.offset()).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]model.User, 0, q.PerPage)
	for rows.Next() {
		var (
			u        model.User
			tenantID sql.NullInt64
		)
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Role, &tenantID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		u.TenantID = idFromNull(tenantID)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func nullableID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}

func idFromNull(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	id := uint64(n.Int64)
	return &id
}

// expectOneRow maps "no row matched" to ErrNotFound. The DSN sets
// clientFoundRows, so a no-op update still counts its matched row.
func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
