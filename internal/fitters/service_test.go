package fitters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Order-My-Saddle/saddle-oms/internal/audit"
	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	"github.com/Order-My-Saddle/saddle-oms/internal/platform/httpx"
)

type memoryStore struct {
	fitters map[int64]Fitter
	nextID  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{fitters: make(map[int64]Fitter), nextID: 1}
}

func (s *memoryStore) List(ctx context.Context, filter *authz.Filter, limit, offset int) ([]Fitter, int, error) {
	var out []Fitter
	for _, f := range s.fitters {
		if f.Deleted {
			continue
		}
		if filter != nil && filter.Column == "id" && f.ID != filter.Value {
			continue
		}
		out = append(out, f)
	}
	return out, len(out), nil
}

func (s *memoryStore) Get(ctx context.Context, id int64) (*Fitter, error) {
	f, ok := s.fitters[id]
	if !ok || f.Deleted {
		return nil, httpx.ErrNotFound
	}
	return &f, nil
}

func (s *memoryStore) Insert(ctx context.Context, f *Fitter) error {
	f.ID = s.nextID
	s.nextID++
	s.fitters[f.ID] = *f
	return nil
}

func (s *memoryStore) Update(ctx context.Context, f *Fitter) error {
	s.fitters[f.ID] = *f
	return nil
}

func (s *memoryStore) SoftDelete(ctx context.Context, id int64) error {
	f, ok := s.fitters[id]
	if !ok {
		return httpx.ErrNotFound
	}
	f.Deleted = true
	s.fitters[id] = f
	return nil
}

type memoryLogStore struct {
	entries []audit.LogEntry
}

func (s *memoryLogStore) Insert(ctx context.Context, entry audit.LogEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memoryLogStore) List(ctx context.Context, filter *authz.Filter, limit, offset int) ([]audit.LogEntry, int, error) {
	return s.entries, len(s.entries), nil
}

func (s *memoryLogStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func ptr(v int64) *int64 { return &v }

func newTestService(t *testing.T) (*Service, *memoryStore, *memoryLogStore) {
	t.Helper()
	store := newMemoryStore()
	logs := &memoryLogStore{}
	authorizer := authz.NewAuthorizer(authz.DefaultHierarchy())
	return NewService(store, authorizer, audit.NewRecorder(logs, nil)), store, logs
}

func fitterCtx(userID, fitterID int64) context.Context {
	return authz.WithPrincipal(context.Background(),
		authz.Principal{UserID: userID, Role: authz.RoleFitter, FitterID: ptr(fitterID)})
}

func adminCtx() context.Context {
	return authz.WithPrincipal(context.Background(), authz.Principal{UserID: 7, Role: authz.RoleAdmin})
}

func seedFitter(store *memoryStore, f Fitter) int64 {
	f.ID = store.nextID
	store.nextID++
	store.fitters[f.ID] = f
	return f.ID
}

func TestFitterSeesOnlyItsOwnRecord(t *testing.T) {
	svc, store, _ := newTestService(t)
	mine := seedFitter(store, Fitter{UserID: 5, Name: "mine"})
	other := seedFitter(store, Fitter{UserID: 12, Name: "other"})

	items, total, err := svc.List(fitterCtx(5, mine), 20, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "mine", items[0].Name)

	// Foreign and absent records read the same.
	_, err = svc.Get(fitterCtx(5, mine), other)
	require.ErrorIs(t, err, httpx.ErrNotFound)
	_, err = svc.Get(fitterCtx(5, mine), 999)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestFitterRenamesOwnRecordOnly(t *testing.T) {
	svc, store, logs := newTestService(t)
	mine := seedFitter(store, Fitter{UserID: 5, Name: "old"})
	other := seedFitter(store, Fitter{UserID: 12, Name: "other"})

	f, err := svc.Update(fitterCtx(5, mine), mine, UpdateFitterRequest{Name: "new"})
	require.NoError(t, err)
	require.Equal(t, "new", f.Name)
	require.Len(t, logs.entries, 1)
	require.Equal(t, int64(5), logs.entries[0].UserID)

	_, err = svc.Update(fitterCtx(5, mine), other, UpdateFitterRequest{Name: "hijack"})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Equal(t, "other", store.fitters[other].Name)
}

func TestCreateReservedForFullVisibilityRoles(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(fitterCtx(5, 3), CreateFitterRequest{UserID: 30, Name: "rogue"})
	require.ErrorIs(t, err, httpx.ErrForbidden,
		"a fitter must not mint new fitter records")

	f, err := svc.Create(adminCtx(), CreateFitterRequest{UserID: 30, Name: "new works"})
	require.NoError(t, err)
	require.NotZero(t, f.ID)
}

func TestScopelessFitterSeesNothing(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedFitter(store, Fitter{UserID: 5, Name: "mine"})

	ctx := authz.WithPrincipal(context.Background(),
		authz.Principal{UserID: 5, Role: authz.RoleFitter})
	_, _, err := svc.List(ctx, 20, 0)
	require.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestAdminManagesAllFitters(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedFitter(store, Fitter{UserID: 5, Name: "a"})
	id := seedFitter(store, Fitter{UserID: 12, Name: "b"})

	_, total, err := svc.List(adminCtx(), 20, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)

	require.NoError(t, svc.Delete(adminCtx(), id))
	require.True(t, store.fitters[id].Deleted)
}
