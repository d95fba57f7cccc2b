package domain

import "time"

// InstanceType selects the backend implementation on the remote service.
type InstanceType string

const (
	InstanceTypeWebJS   InstanceType = "whatsapp-web.js"
	InstanceTypeBaileys InstanceType = "baileys"
)

// Valid reports whether t is one of the supported backends.
func (t InstanceType) Valid() bool {
	return t == InstanceTypeWebJS || t == InstanceTypeBaileys
}

// Instance is a messaging session bound to exactly one owner.
type Instance struct {
	ID                     string       `json:"id"`
	Name                   string       `json:"name"`
	SessionID              string       `json:"session_id"`
	PhoneNumber            string       `json:"phone_number,omitempty"`
	Type                   InstanceType `json:"instance_type"`
	IsConnected            bool         `json:"is_connected"`
	IsActive               bool         `json:"is_active"`
	WebhookURL             string       `json:"webhook_url,omitempty"`
	IgnoreGroups           bool         `json:"ignore_groups"`
	BlockCalls             bool         `json:"block_calls"`
	PreventMessageDeletion bool         `json:"prevent_message_deletion"`
	UserID                 string       `json:"user_id"`
	CreatedAt              time.Time    `json:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at"`
}

// OperableBy reports whether u may act on the instance: its owner or any admin.
func (i *Instance) OperableBy(u *User) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin || i.UserID == u.ID
}
