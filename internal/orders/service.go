package orders

import (
	"context"
	"strconv"

	"github.com/Order-My-Saddle/saddle-oms/internal/audit"
	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	"github.com/Order-My-Saddle/saddle-oms/internal/platform/httpx"
)

// Store abstracts order persistence.
type Store interface {
	List(ctx context.Context, filter *authz.Filter, limit, offset int) ([]Order, int, error)
	Get(ctx context.Context, id int64) (*Order, error)
	Insert(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	SoftDelete(ctx context.Context, id int64) error
}

// Service provides authorized business logic for orders.
type Service struct {
	store    Store
	authz    *authz.Authorizer
	recorder *audit.Recorder
}

// NewService constructs an orders service.
func NewService(store Store, authorizer *authz.Authorizer, recorder *audit.Recorder) *Service {
	return &Service{store: store, authz: authorizer, recorder: recorder}
}

// List returns the orders visible to the principal.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Order, int, error) {
	dec := s.authz.Authorize(ctx, authz.EntityOrder, authz.OpRead, nil)
	if !dec.Allowed {
		return nil, 0, httpx.ErrForbidden
	}
	return s.store.List(ctx, dec.Filter, limit, offset)
}

// Get fetches one order. Rows outside the principal's scope read as
// not found.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if dec := s.authz.Authorize(ctx, authz.EntityOrder, authz.OpRead, rowOf(o)); !dec.Allowed {
		return nil, httpx.ErrNotFound
	}
	return o, nil
}

// Create inserts an order stamped with the principal's own scope.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	p, ok := authz.FromContext(ctx)
	if !ok {
		return nil, httpx.ErrForbidden
	}

	o := &Order{
		CustomerID:  req.CustomerID,
		FitterID:    p.FitterID,
		FactoryID:   p.FactoryID,
		Status:      StatusDraft,
		SaddleModel: req.SaddleModel,
		PriceCents:  req.PriceCents,
		CreatedBy:   p.UserID,
	}
	if dec := s.authz.Authorize(ctx, authz.EntityOrder, authz.OpWrite, rowOf(o)); !dec.Allowed {
		return nil, httpx.ErrForbidden
	}
	if err := s.store.Insert(ctx, o); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.ActionCreate, string(authz.EntityOrder), strconv.FormatInt(o.ID, 10), nil)
	return o, nil
}

// Update mutates an order the principal owns.
func (s *Service) Update(ctx context.Context, id int64, req UpdateOrderRequest) (*Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if dec := s.authz.Authorize(ctx, authz.EntityOrder, authz.OpWrite, rowOf(o)); !dec.Allowed {
		return nil, httpx.ErrForbidden
	}

	if req.Status != nil {
		o.Status = *req.Status
	}
	if req.SaddleModel != nil {
		o.SaddleModel = *req.SaddleModel
	}
	if req.PriceCents != nil {
		o.PriceCents = *req.PriceCents
	}
	if err := s.store.Update(ctx, o); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.ActionUpdate, string(authz.EntityOrder), strconv.FormatInt(o.ID, 10), nil)
	return o, nil
}

// Delete soft-deletes an order the principal owns.
func (s *Service) Delete(ctx context.Context, id int64) error {
	o, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if dec := s.authz.Authorize(ctx, authz.EntityOrder, authz.OpDelete, rowOf(o)); !dec.Allowed {
		return httpx.ErrForbidden
	}
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.ActionDelete, string(authz.EntityOrder), strconv.FormatInt(id, 10), nil)
	return nil
}

func rowOf(o *Order) *authz.Row {
	created := o.CreatedBy
	return &authz.Row{
		FitterID:  o.FitterID,
		FactoryID: o.FactoryID,
		UserID:    &created,
	}
}
