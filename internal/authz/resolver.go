package authz

import (
	"context"
	"errors"
	"fmt"
)

// Resolver errors. Both surface as unauthenticated at the boundary so
// responses do not leak account state.
var (
	// ErrUnknownCredential indicates no matching credential record.
	ErrUnknownCredential = errors.New("authz: unknown credential")
	// ErrRevokedCredential indicates a blocked or deleted credential.
	ErrRevokedCredential = errors.New("authz: credential revoked")
)

// Credential is the persisted account record authorization trusts.
type Credential struct {
	UserID  int64
	Role    Role
	Blocked bool
	Deleted bool
}

// CredentialStore reads credential records by user id.
type CredentialStore interface {
	GetCredential(ctx context.Context, userID int64) (*Credential, error)
}

// ScopeStore resolves the scope record owned by a user. Implementations
// return ErrUnknownCredential-style sentinel ErrNoScopeRecord when the
// user owns no live record.
type ScopeStore interface {
	FitterIDByUser(ctx context.Context, userID int64) (int64, error)
	FactoryIDByUser(ctx context.Context, userID int64) (int64, error)
}

// ErrNoScopeRecord indicates the user owns no live fitter/factory row.
var ErrNoScopeRecord = errors.New("authz: no scope record")

// Resolver turns a verified user id into a principal with derived scope
// ids. The user id must come from the server-side session, never from
// request payloads; role and scope claims in a payload are ignored by
// construction because the resolver re-reads everything from storage.
type Resolver struct {
	credentials CredentialStore
	scopes      ScopeStore
}

// NewResolver constructs a Resolver.
func NewResolver(credentials CredentialStore, scopes ScopeStore) *Resolver {
	return &Resolver{credentials: credentials, scopes: scopes}
}

// Resolve produces the principal for one unit of work. The reserved
// system id is rejected here: nothing reachable from a session may
// claim it.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (Principal, error) {
	if userID <= SystemUserID {
		return Principal{}, ErrUnknownCredential
	}

	cred, err := r.credentials.GetCredential(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUnknownCredential) {
			return Principal{}, ErrUnknownCredential
		}
		return Principal{}, fmt.Errorf("authz: resolve credential: %w", err)
	}
	if cred.Blocked || cred.Deleted {
		return Principal{}, ErrRevokedCredential
	}

	p := Principal{UserID: cred.UserID, Role: cred.Role}
	return r.DeriveScope(ctx, p)
}

// DeriveScope fills in the role-specific scope id from the
// authoritative tables. Already-set ids are kept so a caller that
// resolved them in the same unit of work can skip the lookup, but an
// absent id is always re-resolved from persisted state. Storage errors
// propagate so the boundary can fail the unit of work; a missing scope
// record is not an error, it just scopes the principal to nothing.
func (r *Resolver) DeriveScope(ctx context.Context, p Principal) (Principal, error) {
	switch p.Role {
	case RoleFitter:
		if p.FitterID != nil {
			return p, nil
		}
		id, err := r.scopes.FitterIDByUser(ctx, p.UserID)
		if err != nil {
			if errors.Is(err, ErrNoScopeRecord) {
				return p, nil
			}
			return Principal{}, fmt.Errorf("authz: derive fitter scope: %w", err)
		}
		p.FitterID = &id
	case RoleFactory:
		if p.FactoryID != nil {
			return p, nil
		}
		id, err := r.scopes.FactoryIDByUser(ctx, p.UserID)
		if err != nil {
			if errors.Is(err, ErrNoScopeRecord) {
				return p, nil
			}
			return Principal{}, fmt.Errorf("authz: derive factory scope: %w", err)
		}
		p.FactoryID = &id
	}
	return p, nil
}
