package ports

import (
	"context"
	"encoding/json"

	"github.com/sieapi/gateway/internal/core/domain"
)

// CreateInstanceInput carries the fields of a new instance.
type CreateInstanceInput struct {
	Name                   string
	Type                   string
	PhoneNumber            string
	WebhookURL             string
	IgnoreGroups           bool
	BlockCalls             bool
	PreventMessageDeletion bool
}

// UpdateInstanceInput is a partial instance update; nil fields are left untouched.
type UpdateInstanceInput struct {
	Name                   *string
	WebhookURL             *string
	IgnoreGroups           *bool
	BlockCalls             *bool
	PreventMessageDeletion *bool
	IsActive               *bool
}

// SendMessageInput is a text message to a chat.
type SendMessageInput struct {
	To      string
	Message string
}

// SendMediaInput is a media message to a chat.
type SendMediaInput struct {
	To        string
	MediaURL  string
	MediaType string
	Caption   string
}

// MentionAllInput is a group message mentioning every participant.
type MentionAllInput struct {
	GroupID   string
	Message   string
	Anonymous bool
}

// SetWebhookInput replaces the webhook of an instance. IgnoreGroups keeps the
// stored value when nil.
type SetWebhookInput struct {
	URL          string
	IgnoreGroups *bool
}

// InstanceService defines the ownership-checked instance operations. caller is
// always the authenticated user.
type InstanceService interface {
	Create(ctx context.Context, caller *domain.User, in CreateInstanceInput) (*domain.Instance, error)
	List(ctx context.Context, caller *domain.User, all bool) ([]*domain.Instance, error)
	Get(ctx context.Context, caller *domain.User, id string) (*domain.Instance, error)
	Update(ctx context.Context, caller *domain.User, id string, in UpdateInstanceInput) (*domain.Instance, error)
	Delete(ctx context.Context, caller *domain.User, id string) error

	Init(ctx context.Context, caller *domain.User, id string) error
	SendMessage(ctx context.Context, caller *domain.User, id string, in SendMessageInput) error
	SendMedia(ctx context.Context, caller *domain.User, id string, in SendMediaInput) error
	MentionAll(ctx context.Context, caller *domain.User, id string, in MentionAllInput) error
	Contacts(ctx context.Context, caller *domain.User, id string) (json.RawMessage, error)
	Chats(ctx context.Context, caller *domain.User, id string) (json.RawMessage, error)
	BlockContact(ctx context.Context, caller *domain.User, id, contactID string) error
	UnblockContact(ctx context.Context, caller *domain.User, id, contactID string) error
	SetWebhook(ctx context.Context, caller *domain.User, id string, in SetWebhookInput) (*domain.Instance, error)
}
