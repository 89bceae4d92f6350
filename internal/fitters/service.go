package fitters

import (
	"context"
	"strconv"

	"github.com/Order-My-Saddle/saddle-oms/internal/audit"
	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	"github.com/Order-My-Saddle/saddle-oms/internal/platform/httpx"
)

// Store abstracts fitter persistence.
type Store interface {
	List(ctx context.Context, filter *authz.Filter, limit, offset int) ([]Fitter, int, error)
	Get(ctx context.Context, id int64) (*Fitter, error)
	Insert(ctx context.Context, f *Fitter) error
	Update(ctx context.Context, f *Fitter) error
	SoftDelete(ctx context.Context, id int64) error
}

// Service provides authorized business logic for fitters. A FITTER
// sees only its own record; ADMIN manages all of them.
type Service struct {
	store    Store
	authz    *authz.Authorizer
	recorder *audit.Recorder
}

// NewService constructs a fitters service.
func NewService(store Store, authorizer *authz.Authorizer, recorder *audit.Recorder) *Service {
	return &Service{store: store, authz: authorizer, recorder: recorder}
}

// List returns the fitters visible to the principal.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Fitter, int, error) {
	dec := s.authz.Authorize(ctx, authz.EntityFitter, authz.OpRead, nil)
	if !dec.Allowed {
		return nil, 0, httpx.ErrForbidden
	}
	return s.store.List(ctx, dec.Filter, limit, offset)
}

// Get fetches one fitter; rows outside scope read as not found.
func (s *Service) Get(ctx context.Context, id int64) (*Fitter, error) {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if dec := s.authz.Authorize(ctx, authz.EntityFitter, authz.OpRead, rowOf(f)); !dec.Allowed {
		return nil, httpx.ErrNotFound
	}
	return f, nil
}

// Create inserts a fitter. The empty candidate row defeats every
// ownership template, so only roles with full visibility pass.
func (s *Service) Create(ctx context.Context, req CreateFitterRequest) (*Fitter, error) {
	if dec := s.authz.Authorize(ctx, authz.EntityFitter, authz.OpWrite, &authz.Row{}); !dec.Allowed {
		return nil, httpx.ErrForbidden
	}
	f := &Fitter{UserID: req.UserID, Name: req.Name}
	if err := s.store.Insert(ctx, f); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.ActionCreate, string(authz.EntityFitter), strconv.FormatInt(f.ID, 10), nil)
	return f, nil
}

// Update renames a fitter the principal may write.
func (s *Service) Update(ctx context.Context, id int64, req UpdateFitterRequest) (*Fitter, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if dec := s.authz.Authorize(ctx, authz.EntityFitter, authz.OpWrite, rowOf(f)); !dec.Allowed {
		return nil, httpx.ErrForbidden
	}
	f.Name = req.Name
	if err := s.store.Update(ctx, f); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.ActionUpdate, string(authz.EntityFitter), strconv.FormatInt(f.ID, 10), nil)
	return f, nil
}

// Delete soft-deletes a fitter.
func (s *Service) Delete(ctx context.Context, id int64) error {
	f, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if dec := s.authz.Authorize(ctx, authz.EntityFitter, authz.OpDelete, rowOf(f)); !dec.Allowed {
		return httpx.ErrForbidden
	}
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.ActionDelete, string(authz.EntityFitter), strconv.FormatInt(id, 10), nil)
	return nil
}

// rowOf maps a fitter row onto the evaluator's scope values: the
// fitter table is owned through its primary key.
func rowOf(f *Fitter) *authz.Row {
	id := f.ID
	user := f.UserID
	return &authz.Row{FitterID: &id, UserID: &user}
}
