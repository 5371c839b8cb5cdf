package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/avoronkov/authcore/internal/model"
)

// Claims represents JWT claims with token kind, user ID and username.
type Claims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	TokenKind string    `json:"typ"`
}

// JWT implements model.TokenCodec backed by symmetric HMAC. Access and
// refresh tokens are signed with independent secrets so compromise of one
// does not compromise the other.
type JWT struct {
	accessSecret  []byte
	refreshSecret []byte
	clock         clockwork.Clock
}

// NewJWT creates a JWT codec with the two per-kind signing secrets.
func NewJWT(accessSecret, refreshSecret string) *JWT {
	return NewJWTWithClock(accessSecret, refreshSecret, clockwork.NewRealClock())
}

// NewJWTWithClock creates a JWT codec with an explicit clock.
func NewJWTWithClock(accessSecret, refreshSecret string, clock clockwork.Clock) *JWT {
	return &JWT{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		clock:         clock,
	}
}

var _ model.TokenCodec = (*JWT)(nil)

func (j *JWT) secret(kind model.TokenKind) ([]byte, error) {
	switch kind {
	case model.KindAccess:
		return j.accessSecret, nil
	case model.KindRefresh:
		return j.refreshSecret, nil
	default:
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}
}

// Mint produces a signed token whose payload is the identity plus an expiry
// of now+ttl. The expiry is baked in at mint time and immutable. Every token
// carries a unique jti, so two mints for the same identity within the same
// second still produce distinct token strings; rotation depends on that.
func (j *JWT) Mint(identity model.Identity, kind model.TokenKind, ttl time.Duration) (string, error) {
	secret, err := j.secret(kind)
	if err != nil {
		return "", err
	}

	now := j.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    identity.ID,
		Username:  identity.Username,
		TokenKind: string(kind),
	})

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return tokenString, nil
}

// Verify checks signature and expiry and returns the embedded identity and
// expiry. It fails with model.ErrTokenExpired for an expired token and
// model.ErrTokenInvalid for anything else.
func (j *JWT) Verify(tokenString string, kind model.TokenKind) (model.Identity, time.Time, error) {
	secret, err := j.secret(kind)
	if err != nil {
		return model.Identity{}, time.Time{}, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(j.clock.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, time.Time{}, model.ErrTokenExpired
		}
		return model.Identity{}, time.Time{}, model.ErrTokenInvalid
	}
	if !token.Valid || claims.TokenKind != string(kind) {
		return model.Identity{}, time.Time{}, model.ErrTokenInvalid
	}

	identity := model.Identity{ID: claims.UserID, Username: claims.Username}
	return identity, claims.ExpiresAt.Time, nil
}

// TimeUntilExpiry returns the remaining lifetime of a token. The token is
// verified first: a renewal decision is never made on an unverified token.
func (j *JWT) TimeUntilExpiry(tokenString string, kind model.TokenKind) (time.Duration, error) {
	_, exp, err := j.Verify(tokenString, kind)
	if err != nil {
		return 0, err
	}
	return exp.Sub(j.clock.Now()), nil
}
