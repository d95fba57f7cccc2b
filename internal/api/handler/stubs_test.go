package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sieapi/gateway/internal/api/middleware"
	"github.com/sieapi/gateway/internal/core/domain"
	"github.com/sieapi/gateway/internal/core/ports"
)

type stubAuthService struct {
	registerFn      func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error)
	confirmFn       func(ctx context.Context, token string) error
	loginFn         func(ctx context.Context, email, password string) (string, *domain.User, error)
	forgotFn        func(ctx context.Context, email string) error
	resetFn         func(ctx context.Context, token, password string) error
	updateProfileFn func(ctx context.Context, user *domain.User, in ports.UpdateProfileInput) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) ConfirmEmail(ctx context.Context, token string) error {
	return s.confirmFn(ctx, token)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.forgotFn(ctx, email)
}

func (s *stubAuthService) ResetPassword(ctx context.Context, token, password string) error {
	return s.resetFn(ctx, token, password)
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, user *domain.User, in ports.UpdateProfileInput) (*domain.User, error) {
	return s.updateProfileFn(ctx, user, in)
}

func (s *stubAuthService) Authenticate(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrInvalidToken
}

type stubUserService struct {
	listFn   func(ctx context.Context) ([]*domain.User, error)
	getFn    func(ctx context.Context, id string) (*domain.User, error)
	createFn func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error)
	updateFn func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error)
	deleteFn func(ctx context.Context, caller *domain.User, id string) error
}

func (s *stubUserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.listFn(ctx)
}

func (s *stubUserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	return s.createFn(ctx, in)
}

func (s *stubUserService) UpdateUser(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubUserService) DeleteUser(ctx context.Context, caller *domain.User, id string) error {
	return s.deleteFn(ctx, caller, id)
}

// stubInstanceService records the last call and answers with inst / raw / err.
type stubInstanceService struct {
	inst *domain.Instance
	list []*domain.Instance
	raw  json.RawMessage
	err  error

	lastOp  string
	lastID  string
	lastAll bool
	lastIn  any
}

func (s *stubInstanceService) record(op, id string, in any) {
	s.lastOp, s.lastID, s.lastIn = op, id, in
}

func (s *stubInstanceService) Create(_ context.Context, _ *domain.User, in ports.CreateInstanceInput) (*domain.Instance, error) {
	s.record("create", "", in)
	return s.inst, s.err
}

func (s *stubInstanceService) List(_ context.Context, _ *domain.User, all bool) ([]*domain.Instance, error) {
	s.record("list", "", nil)
	s.lastAll = all
	return s.list, s.err
}

func (s *stubInstanceService) Get(_ context.Context, _ *domain.User, id string) (*domain.Instance, error) {
	s.record("get", id, nil)
	return s.inst, s.err
}

func (s *stubInstanceService) Update(_ context.Context, _ *domain.User, id string, in ports.UpdateInstanceInput) (*domain.Instance, error) {
	s.record("update", id, in)
	return s.inst, s.err
}

func (s *stubInstanceService) Delete(_ context.Context, _ *domain.User, id string) error {
	s.record("delete", id, nil)
	return s.err
}

func (s *stubInstanceService) Init(_ context.Context, _ *domain.User, id string) error {
	s.record("init", id, nil)
	return s.err
}

func (s *stubInstanceService) SendMessage(_ context.Context, _ *domain.User, id string, in ports.SendMessageInput) error {
	s.record("send-message", id, in)
	return s.err
}

func (s *stubInstanceService) SendMedia(_ context.Context, _ *domain.User, id string, in ports.SendMediaInput) error {
	s.record("send-media", id, in)
	return s.err
}

func (s *stubInstanceService) MentionAll(_ context.Context, _ *domain.User, id string, in ports.MentionAllInput) error {
	s.record("mention-all", id, in)
	return s.err
}

func (s *stubInstanceService) Contacts(_ context.Context, _ *domain.User, id string) (json.RawMessage, error) {
	s.record("contacts", id, nil)
	return s.raw, s.err
}

func (s *stubInstanceService) Chats(_ context.Context, _ *domain.User, id string) (json.RawMessage, error) {
	s.record("chats", id, nil)
	return s.raw, s.err
}

func (s *stubInstanceService) BlockContact(_ context.Context, _ *domain.User, id, contactID string) error {
	s.record("block-contact", id, contactID)
	return s.err
}

func (s *stubInstanceService) UnblockContact(_ context.Context, _ *domain.User, id, contactID string) error {
	s.record("unblock-contact", id, contactID)
	return s.err
}

func (s *stubInstanceService) SetWebhook(_ context.Context, _ *domain.User, id string, in ports.SetWebhookInput) (*domain.Instance, error) {
	s.record("set-webhook", id, in)
	return s.inst, s.err
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// newContext builds a JSON request context. user, when non-nil, is stored the
// way the Auth middleware stores it. Path params are given as name/value pairs.
func newContext(e *echo.Echo, method, target, body string, user *domain.User, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set(middleware.ContextUserKey, user)
	}
	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return resp
}
