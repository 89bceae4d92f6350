package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides PostgreSQL backed credential and scope lookups. Both
// are single point reads under read-committed isolation; they carry the
// request context so a cancelled unit of work abandons them.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ CredentialStore = (*Store)(nil)
var _ ScopeStore = (*Store)(nil)

// GetCredential reads the credential record for a user id.
func (s *Store) GetCredential(ctx context.Context, userID int64) (*Credential, error) {
	var (
		cred Credential
		role string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, role, blocked, deleted FROM credentials WHERE user_id = $1`,
		userID,
	).Scan(&cred.UserID, &role, &cred.Blocked, &cred.Deleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownCredential
		}
		return nil, err
	}
	parsed, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	cred.Role = parsed
	return &cred, nil
}

// FitterIDByUser returns the live fitter record owned by the user.
func (s *Store) FitterIDByUser(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM fitters WHERE user_id = $1 AND deleted = false`,
		userID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoScopeRecord
		}
		return 0, err
	}
	return id, nil
}

// FactoryIDByUser returns the live factory record owned by the user.
func (s *Store) FactoryIDByUser(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM factories WHERE user_id = $1 AND deleted = false`,
		userID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoScopeRecord
		}
		return 0, err
	}
	return id, nil
}
