package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/devmadlani/auth-service/internal/apperrors"
	"github.com/devmadlani/auth-service/internal/model"
	"github.com/devmadlani/auth-service/internal/password"
	"github.com/devmadlani/auth-service/internal/queue"
	"github.com/devmadlani/auth-service/internal/repository"
)

func newStoreMock(t *testing.T) (*repository.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return repository.NewStore(db), mock
}

func TestTenantService_Create(t *testing.T) {
	t.Parallel()
	store, mock := newStoreMock(t)
	events := &recorder{}
	svc := NewTenantService(store, events)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tenants (name, address) VALUES (?, ?)")).
		WithArgs("Acme", "1 Main St").
		WillReturnResult(sqlmock.NewResult(3, 1))

	id, err := svc.Create(context.Background(), 1, TenantInput{Name: " Acme ", Address: "1 Main St"})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
	require.Len(t, events.events, 1)
	assert.Equal(t, queue.Event{Type: queue.TenantCreated, SubjectID: 3, ActorID: 1, OccurredAt: events.events[0].OccurredAt}, events.events[0])

	_, err = svc.Create(context.Background(), 1, TenantInput{Name: "  "})
	require.Error(t, err)
	fields := apperrors.ErrorFields(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "Name is required", fields[0].Msg)
	assert.Equal(t, "Address is required", fields[1].Msg)
}

func TestTenantService_Missing(t *testing.T) {
	t.Parallel()
	store, mock := newStoreMock(t)
	svc := NewTenantService(store, nil)

	mock.ExpectQuery("SELECT id, name, address, created_at, updated_at FROM tenants WHERE id").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("UPDATE tenants SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM tenants").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	_, err := svc.Get(ctx, 9)
	assert.Equal(t, "Tenant does not exist.", apperrors.ErrorMessage(err))
	assert.Equal(t, apperrors.ENotFound, apperrors.ErrorCode(err))

	err = svc.Update(ctx, 1, 9, TenantInput{Name: "A", Address: "B"})
	assert.Equal(t, apperrors.ENotFound, apperrors.ErrorCode(err))

	err = svc.Delete(ctx, 1, 9)
	assert.Equal(t, apperrors.ENotFound, apperrors.ErrorCode(err))
}

func TestTenantService_List(t *testing.T) {
	t.Parallel()
	store, mock := newStoreMock(t)
	svc := NewTenantService(store, nil)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tenants")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(8))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, address, created_at, updated_at FROM tenants ORDER BY id DESC LIMIT 6 OFFSET 6")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "address", "created_at", "updated_at"}).
			AddRow(2, "B", "b", now, now).
			AddRow(1, "A", "a", now, now))

	page, err := svc.List(context.Background(), repository.ListQuery{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, repository.DefaultPerPage, page.PerPage)
	assert.Equal(t, 8, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "B", page.Data[0].Name)
}

func TestUserService_Create(t *testing.T) {
	t.Parallel()
	valid := CreateUserInput{FirstName: "Ann", LastName: "Lee", Email: "a@x.com", Password: "Secret123", Role: model.RoleManager}

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		store, mock := newStoreMock(t)
		events := &recorder{}
		svc := NewUserService(store, password.NewHasher(bcrypt.MinCost), events)

		tenantID := uint64(4)
		in := valid
		in.TenantID = &tenantID
		mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).WillReturnRows(sqlmock.NewRows([]string{"1"}))
		mock.ExpectExec(regexp.QuoteMeta(insertUser)).
			WithArgs("Ann", "Lee", "a@x.com", bcryptOf("Secret123"), model.RoleManager, uint64(4)).
			WillReturnResult(sqlmock.NewResult(8, 1))

		id, err := svc.Create(context.Background(), 1, in)
		require.NoError(t, err)
		assert.Equal(t, uint64(8), id)
		assert.Equal(t, []string{queue.UserCreated}, events.types())
	})

	t.Run("password is hashed as given", func(t *testing.T) {
		t.Parallel()
		store, mock := newStoreMock(t)
		svc := NewUserService(store, password.NewHasher(bcrypt.MinCost), nil)

		in := valid
		in.Password = " Secret123 "
		mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).WillReturnRows(sqlmock.NewRows([]string{"1"}))
		mock.ExpectExec(regexp.QuoteMeta(insertUser)).
			WithArgs("Ann", "Lee", "a@x.com", bcryptOf(" Secret123 "), model.RoleManager, nil).
			WillReturnResult(sqlmock.NewResult(9, 1))

		_, err := svc.Create(context.Background(), 1, in)
		require.NoError(t, err)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		t.Parallel()
		store, mock := newStoreMock(t)
		svc := NewUserService(store, password.NewHasher(bcrypt.MinCost), nil)

		mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).WillReturnRows(sqlmock.NewRows([]string{"1"}))
		mock.ExpectExec(regexp.QuoteMeta(insertUser)).
			WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

		_, err := svc.Create(context.Background(), 1, valid)
		assert.Equal(t, apperrors.EInvalid, apperrors.ErrorCode(err))
		assert.Equal(t, "Tenant does not exist.", apperrors.ErrorMessage(err))
		assert.Equal(t, "tenantId", apperrors.ErrorFields(err)[0].Path)
	})

	t.Run("bad role", func(t *testing.T) {
		t.Parallel()
		store, _ := newStoreMock(t)
		svc := NewUserService(store, password.NewHasher(bcrypt.MinCost), nil)

		in := valid
		in.Role = "admin"
		_, err := svc.Create(context.Background(), 1, in)
		assert.Equal(t, "Role must be one of ADMIN, MANAGER, CUSTOMER", apperrors.ErrorMessage(err))
	})
}

func TestUserService_UpdateDelete(t *testing.T) {
	t.Parallel()
	store, mock := newStoreMock(t)
	events := &recorder{}
	svc := NewUserService(store, password.NewHasher(bcrypt.MinCost), events)
	ctx := context.Background()
	in := UpdateUserInput{FirstName: "Ann", LastName: "Lee", Email: "a@x.com", Role: model.RoleCustomer}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET email = ?, first_name = ?, last_name = ?, role = ?, tenant_id = ? WHERE id = ?")).
		WithArgs("a@x.com", "Ann", "Lee", model.RoleCustomer, nil, uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = ?")).WithArgs(uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.Update(ctx, 1, 8, in))

	err := svc.Update(ctx, 1, 8, in)
	assert.Equal(t, apperrors.EConflict, apperrors.ErrorCode(err))

	err = svc.Update(ctx, 1, 99, in)
	assert.Equal(t, "User does not exist.", apperrors.ErrorMessage(err))

	require.NoError(t, svc.Delete(ctx, 1, 8))
	assert.Equal(t, []string{queue.UserUpdated, queue.UserDeleted}, events.types())
}

func TestUserService_ListRejectsUnknownRole(t *testing.T) {
	t.Parallel()
	store, _ := newStoreMock(t)
	svc := NewUserService(store, password.NewHasher(bcrypt.MinCost), nil)

	_, err := svc.List(context.Background(), repository.ListQuery{Role: "OWNER"})
	assert.Equal(t, apperrors.EInvalid, apperrors.ErrorCode(err))
}
