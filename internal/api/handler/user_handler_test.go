package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/sieapi/gateway/internal/core/domain"
	"github.com/sieapi/gateway/internal/core/ports"
)

var adminUser = &domain.User{ID: "admin", Email: "admin@sieapi.com", IsAdmin: true, IsActive: true, EmailConfirmed: true}

func TestUserHandler_List(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		listFn: func(ctx context.Context) ([]*domain.User, error) {
			return []*domain.User{adminUser, {ID: "u2"}}, nil
		},
	}

	c, rec := newContext(e, http.MethodGet, "/auth/users", "", adminUser)
	if err := NewUserHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	users, ok := decodeBody(t, rec)["users"].([]any)
	if !ok || len(users) != 2 {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUserHandler_Create(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		createFn: func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
			if in.Email != "bob@example.com" || !in.IsAdmin {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: "u2", Email: in.Email, IsAdmin: true, IsActive: true, EmailConfirmed: true}, nil
		},
	}

	c, rec := newContext(e, http.MethodPost, "/auth/users",
		`{"email":"bob@example.com","password":"pw","name":"Bob","is_admin":true}`, adminUser)
	if err := NewUserHandler(stub).Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	user, ok := decodeBody(t, rec)["user"].(map[string]any)
	if !ok || user["email_confirmed"] != true {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUserHandler_Create_MissingFields(t *testing.T) {
	e := newEcho()
	c, _ := newContext(e, http.MethodPost, "/auth/users", `{"name":"Bob"}`, adminUser)
	err := NewUserHandler(&stubUserService{}).Create(c)
	if !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestUserHandler_Get_NotFound(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		getFn: func(ctx context.Context, id string) (*domain.User, error) {
			if id != "missing" {
				t.Fatalf("unexpected id %q", id)
			}
			return nil, domain.ErrUserNotFound
		},
	}

	c, _ := newContext(e, http.MethodGet, "/auth/users/missing", "", adminUser, "id", "missing")
	if err := NewUserHandler(stub).Get(c); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserHandler_Update_PartialFields(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		updateFn: func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
			if id != "u2" {
				t.Fatalf("unexpected id %q", id)
			}
			if in.IsActive == nil || *in.IsActive || in.Name != nil || in.Email != nil || in.Password != nil {
				t.Fatalf("only is_active should be set: %+v", in)
			}
			return &domain.User{ID: id}, nil
		},
	}

	c, rec := newContext(e, http.MethodPut, "/auth/users/u2", `{"is_active":false}`, adminUser, "id", "u2")
	if err := NewUserHandler(stub).Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if decodeBody(t, rec)["message"] != "user updated" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUserHandler_Update_InvalidEmail(t *testing.T) {
	e := newEcho()
	c, _ := newContext(e, http.MethodPut, "/auth/users/u2", `{"email":"nope"}`, adminUser, "id", "u2")
	if err := NewUserHandler(&stubUserService{}).Update(c); !errors.Is(err, domain.ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}

func TestUserHandler_Delete_PassesCaller(t *testing.T) {
	e := newEcho()
	stub := &stubUserService{
		deleteFn: func(ctx context.Context, caller *domain.User, id string) error {
			if caller != adminUser {
				t.Fatalf("expected the authenticated admin as caller")
			}
			if id == caller.ID {
				return domain.ErrSelfDeletion
			}
			return nil
		},
	}

	c, rec := newContext(e, http.MethodDelete, "/auth/users/u2", "", adminUser, "id", "u2")
	if err := NewUserHandler(stub).Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newContext(e, http.MethodDelete, "/auth/users/admin", "", adminUser, "id", "admin")
	if err := NewUserHandler(stub).Delete(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
