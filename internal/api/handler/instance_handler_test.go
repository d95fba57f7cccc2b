package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sieapi/gateway/internal/core/domain"
	"github.com/sieapi/gateway/internal/core/ports"
)

var ownerUser = &domain.User{ID: "u1", Email: "ana@example.com", IsActive: true, EmailConfirmed: true}

func sampleInstance() *domain.Instance {
	return &domain.Instance{
		ID:        "i1",
		Name:      "Sales",
		SessionID: "u1_1700000000",
		Type:      domain.InstanceTypeBaileys,
		IsActive:  true,
		UserID:    "u1",
	}
}

func TestInstanceHandler_List_All(t *testing.T) {
	e := newEcho()
	stub := &stubInstanceService{}

	c, rec := newContext(e, http.MethodGet, "/whatsapp/instances?all=true", "", adminUser)
	if err := NewInstanceHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !stub.lastAll {
		t.Fatalf("expected all=true to reach the service")
	}
	if rec.Body.String() != "{\"instances\":[]}\n" {
		t.Fatalf("expected an empty list, got %s", rec.Body.String())
	}
}

func TestInstanceHandler_Create(t *testing.T) {
	e := newEcho()
	stub := &stubInstanceService{inst: sampleInstance()}

	c, rec := newContext(e, http.MethodPost, "/whatsapp/instances",
		`{"name":"Sales","instance_type":"baileys","ignore_groups":true}`, ownerUser)
	if err := NewInstanceHandler(stub).Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	in, ok := stub.lastIn.(ports.CreateInstanceInput)
	if !ok || in.Name != "Sales" || in.Type != "baileys" || !in.IgnoreGroups {
		t.Fatalf("unexpected input: %+v", stub.lastIn)
	}
	inst, ok := decodeBody(t, rec)["instance"].(map[string]any)
	if !ok || inst["session_id"] != "u1_1700000000" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestInstanceHandler_Create_Validation(t *testing.T) {
	e := newEcho()
	h := NewInstanceHandler(&stubInstanceService{})

	c, _ := newContext(e, http.MethodPost, "/whatsapp/instances", `{"instance_type":"baileys"}`, ownerUser)
	if err := h.Create(c); !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}

	c, _ = newContext(e, http.MethodPost, "/whatsapp/instances", `{"name":"x","instance_type":"telegram"}`, ownerUser)
	if err := h.Create(c); !errors.Is(err, domain.ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}

func TestInstanceHandler_Get_Forbidden(t *testing.T) {
	e := newEcho()
	stub := &stubInstanceService{err: domain.ErrForbidden}

	c, _ := newContext(e, http.MethodGet, "/whatsapp/instances/i1", "", ownerUser, "id", "i1")
	if err := NewInstanceHandler(stub).Get(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if stub.lastID != "i1" {
		t.Fatalf("expected id i1, got %q", stub.lastID)
	}
}

func TestInstanceHandler_Update_PartialFields(t *testing.T) {
	e := newEcho()
	stub := &stubInstanceService{inst: sampleInstance()}

	c, rec := newContext(e, http.MethodPut, "/whatsapp/instances/i1", `{"webhook_url":"https://hooks.example.com"}`, ownerUser, "id", "i1")
	if err := NewInstanceHandler(stub).Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	in := stub.lastIn.(ports.UpdateInstanceInput)
	if in.WebhookURL == nil || *in.WebhookURL != "https://hooks.example.com" || in.Name != nil || in.IsActive != nil {
		t.Fatalf("unexpected input: %+v", in)
	}
	if decodeBody(t, rec)["message"] != "instance updated" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestInstanceHandler_Actions(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		body   string
		call   func(h *InstanceHandler) func(c echo.Context) error
		wantIn any
	}{
		{
			name:   "send message",
			op:     "send-message",
			body:   `{"to":"5511999999999","message":"hi"}`,
			call:   func(h *InstanceHandler) func(c echo.Context) error { return h.SendMessage },
			wantIn: ports.SendMessageInput{To: "5511999999999", Message: "hi"},
		},
		{
			name:   "send media",
			op:     "send-media",
			body:   `{"to":"5511","mediaUrl":"https://x/y.png","mediaType":"image","caption":"c"}`,
			call:   func(h *InstanceHandler) func(c echo.Context) error { return h.SendMedia },
			wantIn: ports.SendMediaInput{To: "5511", MediaURL: "https://x/y.png", MediaType: "image", Caption: "c"},
		},
		{
			name:   "mention all",
			op:     "mention-all",
			body:   `{"groupId":"g1","message":"all","anonymous":true}`,
			call:   func(h *InstanceHandler) func(c echo.Context) error { return h.MentionAll },
			wantIn: ports.MentionAllInput{GroupID: "g1", Message: "all", Anonymous: true},
		},
		{
			name:   "block contact",
			op:     "block-contact",
			body:   `{"contactId":"c1"}`,
			call:   func(h *InstanceHandler) func(c echo.Context) error { return h.BlockContact },
			wantIn: "c1",
		},
		{
			name:   "unblock contact",
			op:     "unblock-contact",
			body:   `{"contactId":"c2"}`,
			call:   func(h *InstanceHandler) func(c echo.Context) error { return h.UnblockContact },
			wantIn: "c2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			stub := &stubInstanceService{}
			h := NewInstanceHandler(stub)

			c, rec := newContext(e, http.MethodPost, "/whatsapp/instances/i1/"+tt.op, tt.body, ownerUser, "id", "i1")
			if err := tt.call(h)(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if stub.lastOp != tt.op || stub.lastID != "i1" {
				t.Fatalf("unexpected call %s(%s)", stub.lastOp, stub.lastID)
			}
			if stub.lastIn != tt.wantIn {
				t.Fatalf("expected %+v, got %+v", tt.wantIn, stub.lastIn)
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
		})
	}
}

func TestInstanceHandler_SendMessage_ServiceValidation(t *testing.T) {
	e := newEcho()
	stub := &stubInstanceService{err: domain.MissingField("to")}

	c, _ := newContext(e, http.MethodPost, "/whatsapp/instances/i1/send-message", `{"message":"hi"}`, ownerUser, "id", "i1")
	if err := NewInstanceHandler(stub).SendMessage(c); !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestInstanceHandler_Init_UpstreamError(t *testing.T) {
	e := newEcho()
	upstream := &domain.UpstreamError{Op: "init", Status: 500, Message: "browser crashed"}
	stub := &stubInstanceService{err: upstream}

	c, _ := newContext(e, http.MethodPost, "/whatsapp/instances/i1/init", "", ownerUser, "id", "i1")
	err := NewInstanceHandler(stub).Init(c)
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) || ue.Message != "browser crashed" {
		t.Fatalf("expected the upstream error, got %v", err)
	}
}

func TestInstanceHandler_Contacts_PassThrough(t *testing.T) {
	e := newEcho()
	raw := json.RawMessage(`{"success":true,"contacts":[{"id":"c1","name":"Bia"}]}`)
	stub := &stubInstanceService{raw: raw}

	c, rec := newContext(e, http.MethodGet, "/whatsapp/instances/i1/contacts", "", ownerUser, "id", "i1")
	if err := NewInstanceHandler(stub).Contacts(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Body.String() != string(raw) {
		t.Fatalf("expected the remote body verbatim, got %s", rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestInstanceHandler_Chats_PassThrough(t *testing.T) {
	e := newEcho()
	raw := json.RawMessage(`{"success":true,"chats":[]}`)
	stub := &stubInstanceService{raw: raw}

	c, rec := newContext(e, http.MethodGet, "/whatsapp/instances/i1/chats", "", ownerUser, "id", "i1")
	if err := NewInstanceHandler(stub).Chats(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if stub.lastOp != "chats" || rec.Body.String() != string(raw) {
		t.Fatalf("unexpected call %s or body %s", stub.lastOp, rec.Body.String())
	}
}

func TestInstanceHandler_SetWebhook(t *testing.T) {
	e := newEcho()
	stub := &stubInstanceService{inst: sampleInstance()}

	c, rec := newContext(e, http.MethodPost, "/whatsapp/instances/i1/set-webhook",
		`{"url":"https://hooks.example.com","ignoreGroups":true}`, ownerUser, "id", "i1")
	if err := NewInstanceHandler(stub).SetWebhook(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	in := stub.lastIn.(ports.SetWebhookInput)
	if in.URL != "https://hooks.example.com" || in.IgnoreGroups == nil || !*in.IgnoreGroups {
		t.Fatalf("unexpected input: %+v", in)
	}
	if decodeBody(t, rec)["message"] != "webhook configured" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestInstanceHandler_Delete(t *testing.T) {
	e := newEcho()
	stub := &stubInstanceService{}

	c, rec := newContext(e, http.MethodDelete, "/whatsapp/instances/i1", "", ownerUser, "id", "i1")
	if err := NewInstanceHandler(stub).Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if stub.lastOp != "delete" || rec.Code != http.StatusOK {
		t.Fatalf("unexpected call %s / status %d", stub.lastOp, rec.Code)
	}
}
