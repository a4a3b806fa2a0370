package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/devmadlani/auth-service/internal/model"
)

// TenantRepo encapsulates all database queries related to tenants.
type TenantRepo struct{ db DBTX }

func NewTenantRepo(db DBTX) *TenantRepo { return &TenantRepo{db: db} }

var tenantColumns = []string{"id", "name", "address", "created_at", "updated_at"}

// Create inserts t and sets t.ID.
func (r *TenantRepo) Create(ctx context.Context, t *model.Tenant) error {
	const q = "INSERT INTO tenants (name, address) VALUES (?, ?)"
	res, err := r.db.ExecContext(ctx, q, t.Name, t.Address)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID returns ErrNotFound when no tenant has this id.
func (r *TenantRepo) GetByID(ctx context.Context, id uint64) (model.Tenant, error) {
	const q = "SELECT id, name, address, created_at, updated_at FROM tenants WHERE id = ?"
	var t model.Tenant
	err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Name, &t.Address, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tenant{}, ErrNotFound
	}
	return t, err
}

// Update changes name and address of tenant id.
func (r *TenantRepo) Update(ctx context.Context, id uint64, name, address string) error {
	const q = "UPDATE tenants SET name = ?, address = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, q, name, address, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Delete removes tenant id. Member users keep existing with a NULL tenant.
func (r *TenantRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// List returns one page of tenants, newest first, and the total match count.
func (r *TenantRepo) List(ctx context.Context, q ListQuery) ([]model.Tenant, int, error) {
	q = q.Normalize()
	filter := func(b sq.SelectBuilder) sq.SelectBuilder {
		if q.Search != "" {
			p := containsPattern(q.Search)
			b = b.Where(sq.Or{sq.Like{"name": p}, sq.Like{"address": p}})
		}
		return b
	}

	countSQL, countArgs, err := filter(sq.Select("COUNT(*)").From("tenants")).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL, listArgs, err := filter(sq.Select(tenantColumns...).From("tenants")).
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

	tenants := make([]model.Tenant, 0, q.PerPage)
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Address, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}
