package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/auth"
	domainauth "github.com/ujjwal-capsitech/GritsaFlow/internal/domain/auth"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
)

var errDown = errors.New("connection refused")

type memTokens struct {
	mu     sync.Mutex
	byHash map[string]domainauth.RefreshToken
	down   bool
}

func newMemTokens() *memTokens {
	return &memTokens{byHash: map[string]domainauth.RefreshToken{}}
}

func (m *memTokens) Create(_ context.Context, t *domainauth.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	m.byHash[t.TokenHash] = *t
	return nil
}

func (m *memTokens) FindLive(_ context.Context, hash string, now time.Time) (*domainauth.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errDown
	}
	t, ok := m.byHash[hash]
	if !ok || !t.LiveAt(now) {
		return nil, domainauth.ErrRefreshNotFound
	}
	return &t, nil
}

func (m *memTokens) Delete(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	delete(m.byHash, hash)
	return nil
}

func (m *memTokens) DeleteAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	for h, t := range m.byHash {
		if t.UserID == userID {
			delete(m.byHash, h)
		}
	}
	return nil
}

func (m *memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return 0, errDown
	}
	var n int64
	for h, t := range m.byHash {
		if !t.LiveAt(now) {
			delete(m.byHash, h)
			n++
		}
	}
	return n, nil
}

func (m *memTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byHash)
}

func (m *memTokens) setDown(v bool) {
	m.mu.Lock()
	m.down = v
	m.mu.Unlock()
}

type memUsers struct {
	mu   sync.Mutex
	byID map[string]user.User
	down bool
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]user.User{}} }

func (m *memUsers) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return errDown
	}
	for _, x := range m.byID {
		if x.Username == u.Username {
			return user.ErrConflict
		}
		if x.ID == u.ID {
			return user.ErrIDConflict
		}
	}
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errDown
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) GetByUsername(_ context.Context, name string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, errDown
	}
	for _, u := range m.byID {
		if u.Username == name {
			return &u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) remove(id string) {
	m.mu.Lock()
	delete(m.byID, id)
	m.mu.Unlock()
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordedEvents struct {
	mu  sync.Mutex
	got []domainauth.SessionEvent
}

func (r *recordedEvents) Publish(_ context.Context, ev domainauth.SessionEvent) {
	r.mu.Lock()
	r.got = append(r.got, ev)
	r.mu.Unlock()
}

func (r *recordedEvents) kinds() []domainauth.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domainauth.EventKind, 0, len(r.got))
	for _, ev := range r.got {
		out = append(out, ev.Kind)
	}
	return out
}

type harness struct {
	clock   *testClock
	tokens  *memTokens
	users   *memUsers
	events  *recordedEvents
	issuer  *auth.Issuer
	creds   *Credentials
	uc      *UseCase
	server  *Server
	handler http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:  &testClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		tokens: newMemTokens(),
		users:  newMemUsers(),
		events: &recordedEvents{},
	}

	iss, err := auth.NewIssuer(auth.Config{
		Secret:     []byte("harness-secret-0123456789abcdef"),
		Issuer:     "GritsaFlow",
		Audience:   "GritsaFlowClient",
		AccessTTL:  10 * time.Minute,
		RefreshTTL: 10 * time.Hour,
		Now:        h.clock.Now,
	})
	require.NoError(t, err)
	h.issuer = iss
	h.creds = NewCredentials(h.tokens, h.users, h.clock.Now)
	h.uc = NewUseCase(Deps{
		Users:       h.users,
		Credentials: h.creds,
		Issuer:      iss,
		Events:      h.events,
		BcryptCost:  bcrypt.MinCost,
	})
	h.server = NewServer(h.uc, iss, Opts{
		Cookies: CookieConfig{Secure: true},
		Limiter: NewIPLimiter(RateLimitConfig{Enable: true, PerSecond: 100, Burst: 100}),
	})

	mux := runtime.NewServeMux()
	require.NoError(t, h.server.Register(mux, "/api"))
	h.handler = mux
	return h
}

func (h *harness) addUser(t *testing.T, id, username, password string, role user.Role) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, h.users.Create(context.Background(), &user.User{
		ID:           id,
		Username:     username,
		Name:         strings.ToUpper(username[:1]) + username[1:],
		Email:        username + "@example.com",
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     true,
	}))
}

type call struct {
	method  string
	path    string
	body    string
	cookies []*http.Cookie
	header  http.Header
}

func (h *harness) do(c call) *httptest.ResponseRecorder {
	var req *http.Request
	if c.body != "" {
		req = httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(c.method, c.path, nil)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for _, ck := range c.cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
