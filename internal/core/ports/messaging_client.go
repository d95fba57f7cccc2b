package ports

import (
	"context"
	"encoding/json"

	"github.com/sieapi/gateway/internal/core/domain"
)

// Session addresses one session on the remote messaging service.
type Session struct {
	ID   string
	Type domain.InstanceType
}

// MediaMessage is a media send request.
type MediaMessage struct {
	To        string
	MediaURL  string
	MediaType string
	Caption   string
}

// Webhook is the event callback configuration of a session.
type Webhook struct {
	URL          string
	IgnoreGroups bool
}

// MessagingClient is the remote messaging service. Every call is a single
// attempt; failures are returned as *domain.UpstreamError.
type MessagingClient interface {
	Status(ctx context.Context, s Session) (connected bool, err error)
	Init(ctx context.Context, s Session) error
	SendMessage(ctx context.Context, s Session, to, message string) error
	SendMedia(ctx context.Context, s Session, m MediaMessage) error
	MentionAll(ctx context.Context, s Session, groupID, message string, anonymous bool) error
	Contacts(ctx context.Context, s Session) (json.RawMessage, error)
	Chats(ctx context.Context, s Session) (json.RawMessage, error)
	BlockContact(ctx context.Context, s Session, contactID string) error
	UnblockContact(ctx context.Context, s Session, contactID string) error
	SetWebhook(ctx context.Context, s Session, w Webhook) error
	Logout(ctx context.Context, s Session) error
}
