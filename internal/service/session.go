package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/avoronkov/authcore/internal/logger"
	"github.com/avoronkov/authcore/internal/metrics"
	"github.com/avoronkov/authcore/internal/model"
)

// SessionPolicy holds the token lifecycle constants. They are configuration,
// loaded once at startup.
type SessionPolicy struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	RenewalThreshold time.Duration
	StoreTimeout     time.Duration
}

// Session orchestrates the token lifecycle: issues a pair at login, decides
// renewal on each protected request, and revokes pairs at logout. It is
// stateless between calls; all session state lives in the credential store.
//
// Every failure is translated to one of the model taxonomy errors before it
// leaves this type. Store errors the caller cannot act on become
// ErrUnavailable: auth decisions fail closed, never open.
type Session struct {
	codec  model.TokenCodec
	store  model.CredentialStore
	clock  clockwork.Clock
	policy SessionPolicy
	logger *logger.Logger
}

func NewSession(codec model.TokenCodec, store model.CredentialStore, policy SessionPolicy, logger *logger.Logger) *Session {
	return NewSessionWithClock(codec, store, policy, logger, clockwork.NewRealClock())
}

func NewSessionWithClock(codec model.TokenCodec, store model.CredentialStore, policy SessionPolicy, logger *logger.Logger, clock clockwork.Clock) *Session {
	return &Session{
		codec:  codec,
		store:  store,
		clock:  clock,
		policy: policy,
		logger: logger,
	}
}

// storeCtx bounds a credential store round-trip.
func (s *Session) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.policy.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.policy.StoreTimeout)
}

// Login mints and persists a fresh access/refresh pair for the identity.
// A caller presenting an existing access token is rejected outright rather
// than silently reusing the session.
func (s *Session) Login(ctx context.Context, identity model.Identity, presentedAccess string) (model.TokenPair, error) {
	if presentedAccess != "" {
		metrics.AuthFailures.WithLabelValues("already_authenticated").Inc()
		return model.TokenPair{}, model.ErrAlreadyAuthenticated
	}

	pair, err := s.mintPair(identity)
	if err != nil {
		return model.TokenPair{}, err
	}

	now := s.clock.Now()
	params := model.PairParams{
		IdentityID: identity.ID,
		Access: model.NewTokenParams{
			Kind:       model.KindAccess,
			IdentityID: identity.ID,
			Token:      pair.Access,
			ExpiresAt:  recordExpiry(now, s.policy.AccessTTL),
		},
		Refresh: model.NewTokenParams{
			Kind:       model.KindRefresh,
			IdentityID: identity.ID,
			Token:      pair.Refresh,
			ExpiresAt:  recordExpiry(now, s.policy.RefreshTTL),
		},
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.InsertPair(storeCtx, params); err != nil {
		return model.TokenPair{}, s.unavailable("persist token pair", identity, err)
	}

	s.logger.Info("Session service: issued token pair", "user_id", identity.ID)
	metrics.SessionsIssued.Inc()

	return pair, nil
}

// VerifyAndMaybeRenew is the per-request gate decision. A missing access
// token falls through to renewal: the client may have dropped only the
// access credential and can still recover via refresh. A valid access token
// with enough lifetime left authorizes the request directly, with no store
// round-trips. The returned pair is non-nil only when a renewal happened.
func (s *Session) VerifyAndMaybeRenew(ctx context.Context, presentedAccess, presentedRefresh string) (model.Identity, *model.TokenPair, error) {
	if presentedAccess == "" {
		identity, pair, err := s.Renew(ctx, presentedRefresh)
		if err != nil {
			return model.Identity{}, nil, err
		}
		return identity, &pair, nil
	}

	identity, _, err := s.codec.Verify(presentedAccess, model.KindAccess)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("invalid_access").Inc()
		return model.Identity{}, nil, model.ErrUnauthorized
	}

	remaining, err := s.codec.TimeUntilExpiry(presentedAccess, model.KindAccess)
	if err != nil {
		return model.Identity{}, nil, model.ErrUnauthorized
	}

	if remaining < s.policy.RenewalThreshold {
		identity, pair, err := s.Renew(ctx, presentedRefresh)
		if err != nil {
			return model.Identity{}, nil, err
		}
		return identity, &pair, nil
	}

	return identity, nil, nil
}

// Renew exercises the refresh token: the active pair is revoked and a
// replacement pair inserted in one atomic store operation. A refresh token,
// once exercised, cannot be exercised again; of two concurrent renewals with
// the same token exactly one succeeds and the loser gets ErrUnauthorized.
func (s *Session) Renew(ctx context.Context, presentedRefresh string) (model.Identity, model.TokenPair, error) {
	if presentedRefresh == "" {
		metrics.AuthFailures.WithLabelValues("missing_refresh").Inc()
		return model.Identity{}, model.TokenPair{}, model.ErrUnauthorized
	}

	identity, _, err := s.codec.Verify(presentedRefresh, model.KindRefresh)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("invalid_refresh").Inc()
		return model.Identity{}, model.TokenPair{}, model.ErrUnauthorized
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	activeRefresh, err := s.store.FindActive(storeCtx, model.KindRefresh, identity.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			metrics.AuthFailures.WithLabelValues("refresh_revoked").Inc()
			return model.Identity{}, model.TokenPair{}, model.ErrUnauthorized
		}
		return model.Identity{}, model.TokenPair{}, s.unavailable("find active refresh record", identity, err)
	}

	if subtle.ConstantTimeCompare([]byte(activeRefresh.Token), []byte(presentedRefresh)) != 1 {
		metrics.AuthFailures.WithLabelValues("refresh_mismatch").Inc()
		return model.Identity{}, model.TokenPair{}, model.ErrUnauthorized
	}

	// The refresh must accompany a live access record; a missing or revoked
	// one means the session was torn down.
	if _, err := s.store.FindActive(storeCtx, model.KindAccess, identity.ID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			metrics.AuthFailures.WithLabelValues("access_revoked").Inc()
			return model.Identity{}, model.TokenPair{}, model.ErrUnauthorized
		}
		return model.Identity{}, model.TokenPair{}, s.unavailable("find active access record", identity, err)
	}

	pair, err := s.mintPair(identity)
	if err != nil {
		return model.Identity{}, model.TokenPair{}, err
	}

	now := s.clock.Now()
	rotation := model.RotationParams{
		IdentityID:   identity.ID,
		OldRefreshID: activeRefresh.ID,
		Access: model.NewTokenParams{
			Kind:       model.KindAccess,
			IdentityID: identity.ID,
			Token:      pair.Access,
			ExpiresAt:  recordExpiry(now, s.policy.AccessTTL),
		},
		Refresh: model.NewTokenParams{
			Kind:       model.KindRefresh,
			IdentityID: identity.ID,
			Token:      pair.Refresh,
			ExpiresAt:  recordExpiry(now, s.policy.RefreshTTL),
		},
	}

	if err := s.store.Rotate(storeCtx, rotation); err != nil {
		if errors.Is(err, model.ErrRotationConflict) {
			metrics.AuthFailures.WithLabelValues("refresh_reuse").Inc()
			return model.Identity{}, model.TokenPair{}, model.ErrUnauthorized
		}
		return model.Identity{}, model.TokenPair{}, s.unavailable("rotate token pair", identity, err)
	}

	s.logger.Info("Session service: renewed token pair", "user_id", identity.ID)
	metrics.SessionsRenewed.Inc()

	return identity, pair, nil
}

// Logout revokes the presented pair. Logging out an already-revoked pair is
// not an error: the caller just clears its cookies again, and no store
// writes happen.
func (s *Session) Logout(ctx context.Context, presentedAccess, presentedRefresh string) error {
	if presentedAccess == "" || presentedRefresh == "" {
		return model.ErrMissingTokens
	}

	identity, _, err := s.codec.Verify(presentedAccess, model.KindAccess)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("invalid_access").Inc()
		return model.ErrUnauthorized
	}
	if _, _, err := s.codec.Verify(presentedRefresh, model.KindRefresh); err != nil {
		metrics.AuthFailures.WithLabelValues("invalid_refresh").Inc()
		return model.ErrUnauthorized
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	accessRec, err := s.findForLogout(storeCtx, model.KindAccess, presentedAccess, identity)
	if err != nil {
		return err
	}
	refreshRec, err := s.findForLogout(storeCtx, model.KindRefresh, presentedRefresh, identity)
	if err != nil {
		return err
	}

	// Missing or already-revoked records mean a previous logout won; nothing
	// left to write.
	if accessRec == nil || refreshRec == nil || accessRec.Revoked || refreshRec.Revoked {
		s.logger.Debug("Session service: logout on already revoked pair", "user_id", identity.ID)
		return nil
	}

	if err := s.store.Revoke(storeCtx, model.KindAccess, accessRec.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
		return s.unavailable("revoke access record", identity, err)
	}
	if err := s.store.Revoke(storeCtx, model.KindRefresh, refreshRec.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
		return s.unavailable("revoke refresh record", identity, err)
	}

	s.logger.Info("Session service: revoked token pair", "user_id", identity.ID)
	metrics.SessionsRevoked.Inc()

	return nil
}

func (s *Session) findForLogout(ctx context.Context, kind model.TokenKind, token string, identity model.Identity) (*model.TokenRecord, error) {
	rec, err := s.store.FindByToken(ctx, kind, token)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, s.unavailable("find record for logout", identity, err)
	}
	return &rec, nil
}

func (s *Session) mintPair(identity model.Identity) (model.TokenPair, error) {
	access, err := s.codec.Mint(identity, model.KindAccess, s.policy.AccessTTL)
	if err != nil || access == "" {
		s.logger.Error("Session service: access token mint failed",
			"user_id", identity.ID,
			"error", errString(err))
		return model.TokenPair{}, model.ErrTokenCreationFailed
	}

	refresh, err := s.codec.Mint(identity, model.KindRefresh, s.policy.RefreshTTL)
	if err != nil || refresh == "" {
		s.logger.Error("Session service: refresh token mint failed",
			"user_id", identity.ID,
			"error", errString(err))
		return model.TokenPair{}, model.ErrTokenCreationFailed
	}

	return model.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *Session) unavailable(op string, identity model.Identity, err error) error {
	s.logger.Error("Session service: credential store failure",
		"op", op,
		"user_id", identity.ID,
		"error", err.Error())
	metrics.StoreUnavailable.Inc()
	return model.ErrUnavailable
}

// recordExpiry truncates to the codec's whole-second claim precision so the
// stored expiry equals the one baked into the token string.
func recordExpiry(now time.Time, ttl time.Duration) time.Time {
	return now.Add(ttl).Truncate(time.Second)
}

func errString(err error) string {
	if err == nil {
		return "empty token"
	}
	return err.Error()
}
