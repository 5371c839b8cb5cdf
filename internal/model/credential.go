package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenRecord is a persisted issued token. One table per kind; a record is
// honorable only while Revoked is false. Revocation is monotonic.
type TokenRecord struct {
	ID         uuid.UUID
	IdentityID uuid.UUID
	Token      string
	ExpiresAt  time.Time
	Revoked    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewTokenParams describes a record to insert.
type NewTokenParams struct {
	Kind       TokenKind
	IdentityID uuid.UUID
	Token      string
	ExpiresAt  time.Time
}

// PairParams describes a fresh access/refresh pair inserted at login.
// Any records still active for the identity are revoked in the same
// transaction, keeping at most one active record per kind.
type PairParams struct {
	IdentityID uuid.UUID
	Access     NewTokenParams
	Refresh    NewTokenParams
}

// RotationParams describes a renewal: the presented refresh record is
// conditionally revoked (it must still be active), the active access record
// is revoked, and the replacement pair is inserted, all atomically.
type RotationParams struct {
	IdentityID   uuid.UUID
	OldRefreshID uuid.UUID
	Access       NewTokenParams
	Refresh      NewTokenParams
}

// CredentialStore owns token record persistence. The session service is its
// only writer. InsertPair and Rotate are single atomic units; a rotation that
// loses a concurrent race fails with ErrRotationConflict.
type CredentialStore interface {
	Insert(ctx context.Context, params NewTokenParams) (uuid.UUID, error)
	FindActive(ctx context.Context, kind TokenKind, identityID uuid.UUID) (TokenRecord, error)
	FindByToken(ctx context.Context, kind TokenKind, token string) (TokenRecord, error)
	Revoke(ctx context.Context, kind TokenKind, recordID uuid.UUID) error
	RevokeAllActive(ctx context.Context, kind TokenKind, identityID uuid.UUID) (int64, error)
	InsertPair(ctx context.Context, params PairParams) error
	Rotate(ctx context.Context, params RotationParams) error
}
