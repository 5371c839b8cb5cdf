package model

import "time"

// TokenKind distinguishes the two credential kinds. Each kind is signed with
// its own secret and persisted in its own table.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// TokenCodec mints and verifies signed tokens carrying an identity claim
// and an expiration. Implementations are stateless and safe for concurrent use.
type TokenCodec interface {
	Mint(identity Identity, kind TokenKind, ttl time.Duration) (string, error)
	Verify(token string, kind TokenKind) (Identity, time.Time, error)
	TimeUntilExpiry(token string, kind TokenKind) (time.Duration, error)
}

// TokenPair is the access/refresh credential pair returned by login and renewal.
type TokenPair struct {
	Access  string
	Refresh string
}
