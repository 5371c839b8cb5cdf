package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avoronkov/authcore/internal/model"
)

var _ model.CredentialStore = (*CredentialRepository)(nil)

// CredentialRepository persists issued token records, one table per kind.
type CredentialRepository struct {
	db *Connection
}

func NewCredentialRepository(db *Connection) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// tableFor maps a token kind to its table. Kinds are a closed enum; the
// returned name is never caller-controlled.
func tableFor(kind model.TokenKind) (string, error) {
	switch kind {
	case model.KindAccess:
		return "access_tokens", nil
	case model.KindRefresh:
		return "refresh_tokens", nil
	default:
		return "", fmt.Errorf("unknown token kind %q", kind)
	}
}

const recordColumns = `id, identity_id, token, expires_at, revoked, created_at, updated_at`

func scanRecord(row pgx.Row) (model.TokenRecord, error) {
	var rec model.TokenRecord
	err := row.Scan(
		&rec.ID, &rec.IdentityID, &rec.Token, &rec.ExpiresAt, &rec.Revoked,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TokenRecord{}, model.ErrNotFound
		}
		return model.TokenRecord{}, err
	}
	return rec, nil
}

func (r *CredentialRepository) Insert(ctx context.Context, params model.NewTokenParams) (uuid.UUID, error) {
	id, err := insertRecord(ctx, r.db, params)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert %s token record: %w", params.Kind, err)
	}
	return id, nil
}

func (r *CredentialRepository) FindActive(ctx context.Context, kind model.TokenKind, identityID uuid.UUID) (model.TokenRecord, error) {
	table, err := tableFor(kind)
	if err != nil {
		return model.TokenRecord{}, err
	}

	query := `SELECT ` + recordColumns + ` FROM ` + table + ` WHERE identity_id = $1 AND NOT revoked`

	rec, err := scanRecord(r.db.QueryRow(ctx, query, identityID))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.TokenRecord{}, model.ErrNotFound
		}
		return model.TokenRecord{}, fmt.Errorf("failed to find active %s token record: %w", kind, err)
	}
	return rec, nil
}

func (r *CredentialRepository) FindByToken(ctx context.Context, kind model.TokenKind, token string) (model.TokenRecord, error) {
	table, err := tableFor(kind)
	if err != nil {
		return model.TokenRecord{}, err
	}

	query := `SELECT ` + recordColumns + ` FROM ` + table + ` WHERE token = $1
			  ORDER BY created_at DESC LIMIT 1`

	rec, err := scanRecord(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.TokenRecord{}, model.ErrNotFound
		}
		return model.TokenRecord{}, fmt.Errorf("failed to find %s token record by token: %w", kind, err)
	}
	return rec, nil
}

func (r *CredentialRepository) Revoke(ctx context.Context, kind model.TokenKind, recordID uuid.UUID) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	query := `UPDATE ` + table + ` SET revoked = TRUE, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, recordID)
	if err != nil {
		return fmt.Errorf("failed to revoke %s token record: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *CredentialRepository) RevokeAllActive(ctx context.Context, kind model.TokenKind, identityID uuid.UUID) (int64, error) {
	count, err := revokeAllActive(ctx, r.db, kind, identityID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke active %s token records: %w", kind, err)
	}
	return count, nil
}

// InsertPair revokes any records still active for the identity and inserts
// the fresh pair, in one transaction.
func (r *CredentialRepository) InsertPair(ctx context.Context, params model.PairParams) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, kind := range []model.TokenKind{model.KindAccess, model.KindRefresh} {
			if _, err := revokeAllActive(ctx, tx, kind, params.IdentityID); err != nil {
				return err
			}
		}
		if _, err := insertRecord(ctx, tx, params.Access); err != nil {
			return err
		}
		if _, err := insertRecord(ctx, tx, params.Refresh); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert token pair: %w", err)
	}
	return nil
}

// Rotate atomically supersedes the active pair. The old refresh record is
// revoked with a compare-and-swap on the revoked flag: of two concurrent
// rotations presenting the same refresh token, exactly one commits and the
// other gets ErrRotationConflict.
func (r *CredentialRepository) Rotate(ctx context.Context, params model.RotationParams) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE refresh_tokens SET revoked = TRUE, updated_at = NOW() WHERE id = $1 AND NOT revoked`,
			params.OldRefreshID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrRotationConflict
		}

		if _, err := revokeAllActive(ctx, tx, model.KindAccess, params.IdentityID); err != nil {
			return err
		}
		if _, err := insertRecord(ctx, tx, params.Access); err != nil {
			return err
		}
		if _, err := insertRecord(ctx, tx, params.Refresh); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrRotationConflict) {
			return model.ErrRotationConflict
		}
		return fmt.Errorf("failed to rotate token pair: %w", err)
	}
	return nil
}

// dbtx is the slice of the pgx API the helpers need; satisfied by both the
// pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertRecord(ctx context.Context, db dbtx, params model.NewTokenParams) (uuid.UUID, error) {
	table, err := tableFor(params.Kind)
	if err != nil {
		return uuid.Nil, err
	}

	query := `INSERT INTO ` + table + ` (id, identity_id, token, expires_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id`

	id := uuid.New()
	var inserted uuid.UUID
	if err := db.QueryRow(ctx, query, id, params.IdentityID, params.Token, params.ExpiresAt).Scan(&inserted); err != nil {
		return uuid.Nil, err
	}
	return inserted, nil
}

func revokeAllActive(ctx context.Context, db dbtx, kind model.TokenKind, identityID uuid.UUID) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	query := `UPDATE ` + table + ` SET revoked = TRUE, updated_at = NOW() WHERE identity_id = $1 AND NOT revoked`

	tag, err := db.Exec(ctx, query, identityID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
