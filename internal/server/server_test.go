package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avoronkov/authcore/internal/config"
	"github.com/avoronkov/authcore/internal/mocks"
	"github.com/avoronkov/authcore/internal/model"
	"github.com/avoronkov/authcore/internal/password"
	"github.com/avoronkov/authcore/internal/service"
	"github.com/avoronkov/authcore/internal/testutil"
	"github.com/avoronkov/authcore/internal/token"
)

// memStore is a mutex-guarded CredentialStore for exercising the full cookie
// flow without a database.
type memStore struct {
	mu      sync.Mutex
	records map[model.TokenKind][]*model.TokenRecord
}

func newMemStore() *memStore {
	return &memStore{
		records: map[model.TokenKind][]*model.TokenRecord{
			model.KindAccess:  {},
			model.KindRefresh: {},
		},
	}
}

func (m *memStore) insertLocked(params model.NewTokenParams) uuid.UUID {
	rec := &model.TokenRecord{
		ID:         uuid.New(),
		IdentityID: params.IdentityID,
		Token:      params.Token,
		ExpiresAt:  params.ExpiresAt,
		CreatedAt:  time.Now(),
	}
	m.records[params.Kind] = append(m.records[params.Kind], rec)
	return rec.ID
}

func (m *memStore) revokeAllLocked(kind model.TokenKind, identityID uuid.UUID) {
	for _, rec := range m.records[kind] {
		if rec.IdentityID == identityID && !rec.Revoked {
			rec.Revoked = true
		}
	}
}

func (m *memStore) Insert(_ context.Context, params model.NewTokenParams) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(params), nil
}

func (m *memStore) FindActive(_ context.Context, kind model.TokenKind, identityID uuid.UUID) (model.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records[kind] {
		if rec.IdentityID == identityID && !rec.Revoked {
			return *rec, nil
		}
	}
	return model.TokenRecord{}, model.ErrNotFound
}

func (m *memStore) FindByToken(_ context.Context, kind model.TokenKind, tok string) (model.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.records[kind]
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].Token == tok {
			return *recs[i], nil
		}
	}
	return model.TokenRecord{}, model.ErrNotFound
}

func (m *memStore) Revoke(_ context.Context, kind model.TokenKind, recordID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records[kind] {
		if rec.ID == recordID && !rec.Revoked {
			rec.Revoked = true
			return nil
		}
	}
	return model.ErrNotFound
}

func (m *memStore) RevokeAllActive(_ context.Context, kind model.TokenKind, identityID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokeAllLocked(kind, identityID)
	return 0, nil
}

func (m *memStore) InsertPair(_ context.Context, params model.PairParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokeAllLocked(model.KindAccess, params.IdentityID)
	m.revokeAllLocked(model.KindRefresh, params.IdentityID)
	m.insertLocked(params.Access)
	m.insertLocked(params.Refresh)
	return nil
}

func (m *memStore) Rotate(_ context.Context, params model.RotationParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var old *model.TokenRecord
	for _, rec := range m.records[model.KindRefresh] {
		if rec.ID == params.OldRefreshID {
			old = rec
			break
		}
	}
	if old == nil || old.Revoked {
		return model.ErrRotationConflict
	}
	old.Revoked = true
	m.revokeAllLocked(model.KindAccess, params.IdentityID)
	m.insertLocked(params.Access)
	m.insertLocked(params.Refresh)
	return nil
}

type testEnv struct {
	server *Server
	users  *mocks.UserStore
	store  *memStore
	clock  *clockwork.FakeClock
	hasher *password.Hasher
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTP{Port: "0", SecureCookies: false},
		Auth: config.Auth{
			AccessTokenSecret:  "access-secret",
			RefreshTokenSecret: "refresh-secret",
			AccessTokenTTL:     time.Hour,
			RefreshTokenTTL:    168 * time.Hour,
			RenewalThreshold:   5 * time.Minute,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := testConfig()
	clock := clockwork.NewFakeClock()
	log := testutil.MakeNoopLogger()

	codec := token.NewJWTWithClock(cfg.Auth.AccessTokenSecret, cfg.Auth.RefreshTokenSecret, clock)
	store := newMemStore()
	sessions := service.NewSessionWithClock(codec, store, service.SessionPolicy{
		AccessTTL:        cfg.Auth.AccessTokenTTL,
		RefreshTTL:       cfg.Auth.RefreshTokenTTL,
		RenewalThreshold: cfg.Auth.RenewalThreshold,
	}, log, clock)

	users := &mocks.UserStore{}
	hasher := password.NewHasher(password.DefaultParams)
	auth := service.NewAuth(users, sessions, hasher, log)

	srv := NewServer(cfg, auth, sessions, nil, nil, nil, log)

	t.Cleanup(func() { users.AssertExpectations(t) })

	return &testEnv{
		server: srv,
		users:  users,
		store:  store,
		clock:  clock,
		hasher: hasher,
	}
}

// knownUser registers a GetByUsername expectation and returns the user.
func (env *testEnv) knownUser(t *testing.T, username, plainPassword string) model.User {
	t.Helper()
	hash, err := env.hasher.Hash(plainPassword)
	require.NoError(t, err)
	user := model.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
	}
	env.users.On("GetByUsername", mock.Anything, username).Return(user, nil)
	return user
}

// doJSON runs a request through the full route table and returns the recorder.
func (env *testEnv) doJSON(method, target, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	env.server.echo.ServeHTTP(rec, req)
	return rec
}

// loginCookies performs a login through the full HTTP stack and returns the
// issued cookies.
func (env *testEnv) loginCookies(t *testing.T, username, plainPassword string) []*http.Cookie {
	t.Helper()
	rec := env.doJSON(http.MethodPost, "/v1/login",
		`{"username":"`+username+`","password":"`+plainPassword+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	return cookies
}
