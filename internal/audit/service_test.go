package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Order-My-Saddle/saddle-oms/internal/authz"
	"github.com/Order-My-Saddle/saddle-oms/internal/platform/httpx"
)

type memoryLogStore struct {
	entries []LogEntry
	pruned  int64
	cutoff  time.Time
}

func (s *memoryLogStore) Insert(ctx context.Context, entry LogEntry) error {
	entry.ID = int64(len(s.entries) + 1)
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memoryLogStore) List(ctx context.Context, filter *authz.Filter, limit, offset int) ([]LogEntry, int, error) {
	var out []LogEntry
	for _, e := range s.entries {
		if filter != nil && filter.Column == "user_id" && e.UserID != filter.Value {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (s *memoryLogStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	s.pruned = int64(len(s.entries))
	s.entries = nil
	return s.pruned, nil
}

func newTestService() (*Service, *Recorder, *memoryLogStore) {
	store := &memoryLogStore{}
	authorizer := authz.NewAuthorizer(authz.DefaultHierarchy())
	return NewService(store, authorizer), NewRecorder(store, nil), store
}

func userCtx(id int64) context.Context {
	return authz.WithPrincipal(context.Background(), authz.Principal{UserID: id, Role: authz.RoleUser})
}

func TestRecordAttributesPrincipal(t *testing.T) {
	_, rec, store := newTestService()

	rec.Record(userCtx(9), ActionCreate, "customer", "12", nil)
	require.Len(t, store.entries, 1)
	require.Equal(t, int64(9), store.entries[0].UserID)

	// No principal means a process-internal caller.
	rec.Record(context.Background(), ActionDelete, "log_entry", "", nil)
	require.Equal(t, authz.SystemUserID, store.entries[1].UserID)
}

func TestListScopedToOwnEntries(t *testing.T) {
	svc, rec, _ := newTestService()
	rec.Record(userCtx(9), ActionCreate, "customer", "1", nil)
	rec.Record(userCtx(10), ActionCreate, "customer", "2", nil)

	entries, total, err := svc.List(userCtx(9), 20, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, int64(9), entries[0].UserID)
}

func TestAdminReadsFullStream(t *testing.T) {
	svc, rec, _ := newTestService()
	rec.Record(userCtx(9), ActionCreate, "customer", "1", nil)
	rec.Record(userCtx(10), ActionCreate, "customer", "2", nil)

	ctx := authz.WithPrincipal(context.Background(), authz.Principal{UserID: 7, Role: authz.RoleAdmin})
	_, total, err := svc.List(ctx, 20, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
}

func TestPruneDeniedForEveryRole(t *testing.T) {
	svc, rec, store := newTestService()
	rec.Record(userCtx(9), ActionCreate, "customer", "1", nil)

	for _, role := range []authz.Role{authz.RoleAdmin, authz.RoleFitter, authz.RoleFactory, authz.RoleCustomSaddler, authz.RoleUser} {
		ctx := authz.WithPrincipal(context.Background(), authz.Principal{UserID: 7, Role: role})
		_, err := svc.Prune(ctx, 24*time.Hour)
		require.ErrorIs(t, err, httpx.ErrForbidden, "role %s", role)
	}
	require.Len(t, store.entries, 1)
}

func TestPruneAllowedForSystemPrincipal(t *testing.T) {
	svc, rec, store := newTestService()
	rec.Record(userCtx(9), ActionCreate, "customer", "1", nil)

	pruned, err := svc.Prune(authz.WithSystemPrincipal(context.Background()), 30*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), pruned)
	require.WithinDuration(t, time.Now().UTC().Add(-30*24*time.Hour), store.cutoff, time.Minute)
}

func TestListDeniedWithoutPrincipal(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.List(context.Background(), 20, 0)
	require.ErrorIs(t, err, httpx.ErrForbidden)
}
