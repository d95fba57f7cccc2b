package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sieapi/gateway/internal/core/domain"
	"github.com/sieapi/gateway/internal/core/ports"
	"github.com/sieapi/gateway/internal/core/service"
	"github.com/sieapi/gateway/internal/infrastructure/http/handlers"
)

// ---------------------------------------------------------------------------
// In-memory adapters
// ---------------------------------------------------------------------------

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
	next  int
}

func (r *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	r.next++
	stored := *u
	stored.ID = "u" + strconv.Itoa(r.next)
	r.users[stored.ID] = stored
	out := stored
	return &out, nil
}

func (r *memUsers) find(match func(domain.User) bool, notFound error) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			out := u
			return &out, nil
		}
	}
	return nil, notFound
}

func (r *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id }, domain.ErrUserNotFound)
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email }, domain.ErrUserNotFound)
}

func (r *memUsers) FindByResetToken(_ context.Context, token string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return token != "" && u.ResetPasswordToken == token }, domain.ErrTokenNotFound)
}

func (r *memUsers) List(context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		u := u
		out = append(out, &u)
	}
	return out, nil
}

func (r *memUsers) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.users[u.ID] = *u
	return nil
}

func (r *memUsers) UpdateProfile(_ context.Context, userID, name, hash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if name != "" {
		u.Name = name
	}
	if hash != "" {
		u.PasswordHash = hash
	}
	u.UpdatedAt = now
	r.users[userID] = u
	out := u
	return &out, nil
}

func (r *memUsers) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUsers) ConfirmEmail(_ context.Context, token string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if token != "" && u.ConfirmationToken == token {
			u.ConfirmEmail()
			u.UpdatedAt = now
			r.users[id] = u
			out := u
			return &out, nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (r *memUsers) SetResetToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.ResetPasswordToken = token
	u.ResetTokenExpiresAt = &expiresAt
	r.users[userID] = u
	return nil
}

func (r *memUsers) ConsumeResetToken(_ context.Context, userID, token, hash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || u.ResetPasswordToken != token {
		return domain.ErrTokenNotFound
	}
	u.PasswordHash = hash
	u.ResetPasswordToken = ""
	u.ResetTokenExpiresAt = nil
	u.UpdatedAt = now
	r.users[userID] = u
	return nil
}

// memInstances only backs the listing used by the scenario.
type memInstances struct{ ports.InstanceRepository }

func (memInstances) List(context.Context, string) ([]*domain.Instance, error) { return nil, nil }
func (memInstances) DeleteByOwner(context.Context, string) error              { return nil }

type linkMailer struct {
	mu    sync.Mutex
	links []string
}

func (m *linkMailer) SendConfirmation(_ context.Context, _ *domain.User, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

func (m *linkMailer) SendPasswordReset(_ context.Context, _ *domain.User, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

func (m *linkMailer) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[len(m.links)-1]
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const baseURL = "https://api.example.com"

type testServer struct {
	e      *echo.Echo
	mailer *linkMailer
	users  *memUsers
}

func newTestServer(t *testing.T, probes map[string]handlers.Pinger) *testServer {
	t.Helper()
	users := &memUsers{users: make(map[string]domain.User)}
	instances := memInstances{}
	mailer := &linkMailer{}
	log := zerolog.Nop()

	tokens := service.NewTokenService("test-secret", time.Hour)
	authService := service.NewAuthService(users, tokens, mailer, nil, baseURL, log)
	userService := service.NewUserService(users, instances, log)
	instanceService := service.NewInstanceService(instances, nil, log)

	e := NewRouter(Deps{
		Auth:      authService,
		Users:     userService,
		Instances: instanceService,
		Probes:    probes,
		Log:       log,
	})
	return &testServer{e: e, mailer: mailer, users: users}
}

func (s *testServer) do(t *testing.T, method, path, body, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: invalid json %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, resp
}

func tokenFrom(link, prefix string) string {
	return strings.TrimPrefix(link, baseURL+prefix)
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestRouter_RegisterConfirmLoginMe(t *testing.T) {
	s := newTestServer(t, nil)

	code, resp := s.do(t, http.MethodPost, "/auth/register",
		`{"email":"Ana@Example.com","password":"s3cret","name":"Ana"}`, "")
	if code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d %v", code, resp)
	}

	code, resp = s.do(t, http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"s3cret"}`, "")
	if code != http.StatusUnauthorized || resp["error"] != "email not confirmed" {
		t.Fatalf("login before confirm: got %d %v", code, resp)
	}

	confirm := tokenFrom(s.mailer.last(), "/auth/confirm/")
	code, resp = s.do(t, http.MethodGet, "/auth/confirm/"+confirm, "", "")
	if code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d %v", code, resp)
	}

	code, resp = s.do(t, http.MethodGet, "/auth/confirm/"+confirm, "", "")
	if code != http.StatusNotFound {
		t.Fatalf("second confirm: expected 404, got %d %v", code, resp)
	}

	code, resp = s.do(t, http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"s3cret"}`, "")
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d %v", code, resp)
	}
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("login: missing token in %v", resp)
	}

	code, resp = s.do(t, http.MethodGet, "/auth/me", "", token)
	if code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d %v", code, resp)
	}
	user, _ := resp["user"].(map[string]any)
	if user["email"] != "ana@example.com" || user["email_confirmed"] != true {
		t.Fatalf("me: unexpected user %v", user)
	}
}

func TestRouter_PasswordReset(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/auth/register", `{"email":"ana@example.com","password":"old","name":"Ana"}`, "")
	s.do(t, http.MethodGet, "/auth/confirm/"+tokenFrom(s.mailer.last(), "/auth/confirm/"), "", "")

	code, resp := s.do(t, http.MethodPost, "/auth/forgot-password", `{"email":"ana@example.com"}`, "")
	known := resp["message"]
	if code != http.StatusOK {
		t.Fatalf("forgot: expected 200, got %d", code)
	}
	_, resp = s.do(t, http.MethodPost, "/auth/forgot-password", `{"email":"ghost@example.com"}`, "")
	if resp["message"] != known {
		t.Fatalf("forgot-password must answer the same for unknown emails")
	}

	reset := tokenFrom(s.mailer.last(), "/auth/reset-password/")
	code, resp = s.do(t, http.MethodPost, "/auth/reset-password/"+reset, `{"password":"new"}`, "")
	if code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d %v", code, resp)
	}
	code, _ = s.do(t, http.MethodPost, "/auth/reset-password/"+reset, `{"password":"again"}`, "")
	if code != http.StatusNotFound {
		t.Fatalf("second reset: expected 404, got %d", code)
	}

	code, _ = s.do(t, http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"old"}`, "")
	if code != http.StatusUnauthorized {
		t.Fatalf("old password must stop working, got %d", code)
	}
	code, _ = s.do(t, http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"new"}`, "")
	if code != http.StatusOK {
		t.Fatalf("new password must work, got %d", code)
	}
}

func TestRouter_Guards(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/auth/register", `{"email":"ana@example.com","password":"pw","name":"Ana"}`, "")
	s.do(t, http.MethodGet, "/auth/confirm/"+tokenFrom(s.mailer.last(), "/auth/confirm/"), "", "")
	_, resp := s.do(t, http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"pw"}`, "")
	token := resp["token"].(string)

	code, resp := s.do(t, http.MethodGet, "/auth/me", "", "")
	if code != http.StatusUnauthorized || resp["error"] != "authentication required" {
		t.Fatalf("no token: got %d %v", code, resp)
	}
	code, _ = s.do(t, http.MethodGet, "/whatsapp/instances", "", "garbage")
	if code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", code)
	}

	code, resp = s.do(t, http.MethodGet, "/auth/users", "", token)
	if code != http.StatusForbidden {
		t.Fatalf("non-admin on /auth/users: expected 403, got %d %v", code, resp)
	}

	code, resp = s.do(t, http.MethodGet, "/whatsapp/instances", "", token)
	if code != http.StatusOK {
		t.Fatalf("instances: expected 200, got %d %v", code, resp)
	}
	if list, ok := resp["instances"].([]any); !ok || len(list) != 0 {
		t.Fatalf("expected empty instance list, got %v", resp)
	}

	// Disabling the account revokes outstanding tokens.
	u, _ := s.users.FindByEmail(context.Background(), "ana@example.com")
	u.IsActive = false
	_ = s.users.Update(context.Background(), u)
	code, resp = s.do(t, http.MethodGet, "/auth/me", "", token)
	if code != http.StatusUnauthorized || resp["error"] != "account disabled" {
		t.Fatalf("disabled account: got %d %v", code, resp)
	}
}

func TestRouter_ValidationEnvelope(t *testing.T) {
	s := newTestServer(t, nil)
	code, resp := s.do(t, http.MethodPost, "/auth/register", `{"email":"ana@example.com"}`, "")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if resp["error"] != "missing required field" || resp["detail"] != "password, name" {
		t.Fatalf("unexpected envelope %v", resp)
	}
}

func TestRouter_Probes(t *testing.T) {
	s := newTestServer(t, map[string]handlers.Pinger{
		"mongodb": handlers.PingFunc(func(context.Context) error { return nil }),
		"redis":   handlers.PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
	})

	code, resp := s.do(t, http.MethodGet, "/health", "", "")
	if code != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("liveness: got %d %v", code, resp)
	}

	code, resp = s.do(t, http.MethodGet, "/status", "", "")
	if code != http.StatusOK || resp["status"] != "online" || resp["name"] != "SIE API" {
		t.Fatalf("status: got %d %v", code, resp)
	}

	code, resp = s.do(t, http.MethodGet, "/health/ready", "", "")
	if code != http.StatusServiceUnavailable || resp["status"] != "degraded" {
		t.Fatalf("readiness: got %d %v", code, resp)
	}
	deps := resp["dependencies"].(map[string]any)
	if deps["mongodb"].(map[string]any)["status"] != "ok" || deps["redis"].(map[string]any)["status"] != "unhealthy" {
		t.Fatalf("readiness: unexpected dependencies %v", deps)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	code, resp := s.do(t, http.MethodGet, "/nope", "", "")
	if code != http.StatusNotFound || resp["error"] != "Not Found" {
		t.Fatalf("got %d %v", code, resp)
	}
}
