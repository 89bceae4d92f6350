package customers

import (
	"context"
	"strconv"

	"github.com/Order-My-Saddle/saddle-oms/internal/audit"
	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	"github.com/Order-My-Saddle/saddle-oms/internal/platform/httpx"
)

// Store abstracts customer persistence.
type Store interface {
	List(ctx context.Context, filter *authz.Filter, limit, offset int) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (*Customer, error)
	Insert(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
	SoftDelete(ctx context.Context, id int64) error
}

// Service provides authorized business logic for customers. Every data
// access consults the evaluator with the principal threaded through
// ctx; the repository never sees an unfiltered bulk read on behalf of a
// scoped role.
type Service struct {
	store    Store
	authz    *authz.Authorizer
	recorder *audit.Recorder
}

// NewService constructs a customers service.
func NewService(store Store, authorizer *authz.Authorizer, recorder *audit.Recorder) *Service {
	return &Service{store: store, authz: authorizer, recorder: recorder}
}

// List returns the customers visible to the principal.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Customer, int, error) {
	dec := s.authz.Authorize(ctx, authz.EntityCustomer, authz.OpRead, nil)
	if !dec.Allowed {
		return nil, 0, httpx.ErrForbidden
	}
	return s.store.List(ctx, dec.Filter, limit, offset)
}

// Get fetches one customer. A row outside the principal's scope is
// reported as not found, indistinguishable from a row that does not
// exist.
func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if dec := s.authz.Authorize(ctx, authz.EntityCustomer, authz.OpRead, rowOf(c)); !dec.Allowed {
		return nil, httpx.ErrNotFound
	}
	return c, nil
}

// Create inserts a customer stamped with the principal's own scope.
// Client-supplied scope ids are not part of the request payload at all.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	p, ok := authz.FromContext(ctx)
	if !ok {
		return nil, httpx.ErrForbidden
	}

	c := &Customer{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		FitterID:  p.FitterID,
		FactoryID: p.FactoryID,
		CreatedBy: p.UserID,
	}
	if dec := s.authz.Authorize(ctx, authz.EntityCustomer, authz.OpWrite, rowOf(c)); !dec.Allowed {
		return nil, httpx.ErrForbidden
	}
	if err := s.store.Insert(ctx, c); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.ActionCreate, string(authz.EntityCustomer), strconv.FormatInt(c.ID, 10), nil)
	return c, nil
}

// Update mutates a customer the principal owns.
func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if dec := s.authz.Authorize(ctx, authz.EntityCustomer, authz.OpWrite, rowOf(c)); !dec.Allowed {
		return nil, httpx.ErrForbidden
	}

	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Email != nil {
		c.Email = req.Email
	}
	if req.Phone != nil {
		c.Phone = req.Phone
	}
	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.ActionUpdate, string(authz.EntityCustomer), strconv.FormatInt(c.ID, 10), nil)
	return c, nil
}

// Delete soft-deletes a customer the principal owns.
func (s *Service) Delete(ctx context.Context, id int64) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if dec := s.authz.Authorize(ctx, authz.EntityCustomer, authz.OpDelete, rowOf(c)); !dec.Allowed {
		return httpx.ErrForbidden
	}
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.ActionDelete, string(authz.EntityCustomer), strconv.FormatInt(id, 10), nil)
	return nil
}

func rowOf(c *Customer) *authz.Row {
	created := c.CreatedBy
	return &authz.Row{
		FitterID:  c.FitterID,
		FactoryID: c.FactoryID,
		UserID:    &created,
	}
}
