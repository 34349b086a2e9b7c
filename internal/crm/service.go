package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"habb.tech/allo/internal/auth"
)

// Service applies the customers:* gates and audits mutations.
type Service struct {
	store Store
	audit auth.AuditStore
	log   zerolog.Logger
}

func NewService(store Store, audit auth.AuditStore, log zerolog.Logger) *Service {
	return &Service{store: store, audit: audit, log: log}
}

func (s *Service) ListCustomers(ctx context.Context, actor *auth.Identity) ([]*Customer, error) {
	if err := actor.Require(auth.PermCustomersRead); err != nil {
		return nil, err
	}
	return s.store.List(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*Customer, error) {
	if err := actor.Require(auth.PermCustomersRead); err != nil {
		return nil, err
	}
	return s.store.Find(ctx, id)
}

func (s *Service) CreateCustomer(ctx context.Context, actor *auth.Identity, in CustomerInput) (*Customer, error) {
	if err := actor.Require(auth.PermCustomersWrite); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.CompanyName) == "" {
		return nil, fmt.Errorf("%w: company_name is required", auth.ErrInvalidRequest)
	}
	actorID := actor.User.ID
	customer := &Customer{CreatedBy: &actorID}
	in.apply(customer)
	if err := s.store.Create(ctx, customer); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, auth.ActionCreate, &customer.ID, nil, customer)
	return customer, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, actor *auth.Identity, id uuid.UUID, in CustomerInput) (*Customer, error) {
	if err := actor.Require(auth.PermCustomersWrite); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.CompanyName) == "" {
		return nil, fmt.Errorf("%w: company_name is required", auth.ErrInvalidRequest)
	}
	customer, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *customer
	in.apply(customer)
	if err := s.store.Update(ctx, customer); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor.User.ID, auth.ActionUpdate, &id, &old, customer)
	return customer, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, actor *auth.Identity, id uuid.UUID) error {
	if err := actor.Require(auth.PermCustomersDelete); err != nil {
		return err
	}
	old, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor.User.ID, auth.ActionDelete, &id, old, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action string, resourceID *uuid.UUID, oldValues, newValues *Customer) {
	entry := &auth.AuditEntry{
		ActorID:      actorID,
		Action:       action,
		ResourceType: "customer",
		ResourceID:   resourceID,
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("audit append failed")
	}
}
