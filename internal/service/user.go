package service

import (
	"context"
	"errors"

	"github.com/devmadlani/auth-service/internal/apperrors"
	"github.com/devmadlani/auth-service/internal/model"
	"github.com/devmadlani/auth-service/internal/password"
	"github.com/devmadlani/auth-service/internal/queue"
	"github.com/devmadlani/auth-service/internal/repository"
)

var (
	errUserNotFound  = apperrors.NotFound("User does not exist.")
	errUnknownTenant = apperrors.Invalid(apperrors.Field("tenantId", "Tenant does not exist."))
)

// UserService is the admin CRUD over user accounts. Unlike registration,
// an admin may assign any role and tenant.
type UserService struct {
	store  *repository.Store
	hasher *password.Hasher
	notifier
}

func NewUserService(store *repository.Store, hasher *password.Hasher, events queue.Publisher) *UserService {
	return &UserService{store: store, hasher: hasher, notifier: newNotifier(events)}
}

func (s *UserService) Create(ctx context.Context, actorID uint64, in CreateUserInput) (uint64, error) {
	const op = "service.UserService.Create"
	in.normalize()
	if err := in.validate(); err != nil {
		return 0, err
	}
	exists, err := s.store.Users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return 0, storageErr(op, err)
	}
	if exists {
		return 0, errEmailTaken
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return 0, apperrors.Internal(op, "Failed to hash password", err)
	}

	u := model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		TenantID:     in.TenantID,
	}
	if err := mapUserWrite(op, s.store.Users.Create(ctx, &u)); err != nil {
		return 0, err
	}
	s.publish(ctx, queue.Event{Type: queue.UserCreated, SubjectID: u.ID, ActorID: actorID, Email: u.Email, Role: u.Role})
	return u.ID, nil
}

func (s *UserService) List(ctx context.Context, q repository.ListQuery) (model.Page[model.User], error) {
	q = q.Normalize()
	if q.Role != "" {
		if err := validateRoleFilter(q.Role); err != nil {
			return model.Page[model.User]{}, err
		}
	}
	users, total, err := s.store.Users.List(ctx, q)
	if err != nil {
		return model.Page[model.User]{}, storageErr("service.UserService.List", err)
	}
	return model.Page[model.User]{CurrentPage: q.Page, PerPage: q.PerPage, Total: total, Data: users}, nil
}

func (s *UserService) Get(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, errUserNotFound
	}
	if err != nil {
		return model.User{}, storageErr("service.UserService.Get", err)
	}
	return u, nil
}

func (s *UserService) Update(ctx context.Context, actorID, id uint64, in UpdateUserInput) error {
	const op = "service.UserService.Update"
	in.normalize()
	if err := in.validate(); err != nil {
		return err
	}
	err := s.store.Users.Update(ctx, id, repository.UserUpdate{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Role:      in.Role,
		TenantID:  in.TenantID,
	})
	if err := mapUserWrite(op, err); err != nil {
		return err
	}
	s.publish(ctx, queue.Event{Type: queue.UserUpdated, SubjectID: id, ActorID: actorID, Email: in.Email, Role: in.Role})
	return nil
}

// Delete removes user id together with its refresh records.
func (s *UserService) Delete(ctx context.Context, actorID, id uint64) error {
	if err := mapUserWrite("service.UserService.Delete", s.store.Users.Delete(ctx, id)); err != nil {
		return err
	}
	s.publish(ctx, queue.Event{Type: queue.UserDeleted, SubjectID: id, ActorID: actorID})
	return nil
}

func mapUserWrite(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return errUserNotFound
	case errors.Is(err, repository.ErrEmailExists):
		return errEmailTaken
	case errors.Is(err, repository.ErrInvalidReference):
		return errUnknownTenant
	}
	return storageErr(op, err)
}

func validateRoleFilter(role string) error {
	for _, r := range model.Roles {
		if r == role {
			return nil
		}
	}
	return apperrors.Invalid(apperrors.FieldError{Type: "field", Msg: "Invalid role filter", Path: "role", Location: "query"})
}
