package service

import (
	"context"
	"errors"

	"github.com/devmadlani/auth-service/internal/apperrors"
	"github.com/devmadlani/auth-service/internal/model"
	"github.com/devmadlani/auth-service/internal/queue"
	"github.com/devmadlani/auth-service/internal/repository"
)

var errTenantNotFound = apperrors.NotFound("Tenant does not exist.")

// TenantService is the admin CRUD over tenants. actorID is the
// authenticated admin, recorded on published events.
type TenantService struct {
	store *repository.Store
	notifier
}

func NewTenantService(store *repository.Store, events queue.Publisher) *TenantService {
	return &TenantService{store: store, notifier: newNotifier(events)}
}

func (s *TenantService) Create(ctx context.Context, actorID uint64, in TenantInput) (uint64, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return 0, err
	}
	t := model.Tenant{Name: in.Name, Address: in.Address}
	if err := s.store.Tenants.Create(ctx, &t); err != nil {
		return 0, storageErr("service.TenantService.Create", err)
	}
	s.publish(ctx, queue.Event{Type: queue.TenantCreated, SubjectID: t.ID, ActorID: actorID})
	return t.ID, nil
}

func (s *TenantService) List(ctx context.Context, q repository.ListQuery) (model.Page[model.Tenant], error) {
	q = q.Normalize()
	tenants, total, err := s.store.Tenants.List(ctx, q)
	if err != nil {
		return model.Page[model.Tenant]{}, storageErr("service.TenantService.List", err)
	}
	return model.Page[model.Tenant]{CurrentPage: q.Page, PerPage: q.PerPage, Total: total, Data: tenants}, nil
}

func (s *TenantService) Get(ctx context.Context, id uint64) (model.Tenant, error) {
	t, err := s.store.Tenants.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Tenant{}, errTenantNotFound
	}
	if err != nil {
		return model.Tenant{}, storageErr("service.TenantService.Get", err)
	}
	return t, nil
}

func (s *TenantService) Update(ctx context.Context, actorID, id uint64, in TenantInput) error {
	in.normalize()
	if err := in.validate(); err != nil {
		return err
	}
	err := s.store.Tenants.Update(ctx, id, in.Name, in.Address)
	if errors.Is(err, repository.ErrNotFound) {
		return errTenantNotFound
	}
	if err != nil {
		return storageErr("service.TenantService.Update", err)
	}
	s.publish(ctx, queue.Event{Type: queue.TenantUpdated, SubjectID: id, ActorID: actorID})
	return nil
}

// Delete removes tenant id. Its users stay, detached from any tenant.
func (s *TenantService) Delete(ctx context.Context, actorID, id uint64) error {
	err := s.store.Tenants.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return errTenantNotFound
	}
	if err != nil {
		return storageErr("service.TenantService.Delete", err)
	}
	s.publish(ctx, queue.Event{Type: queue.TenantDeleted, SubjectID: id, ActorID: actorID})
	return nil
}
