package handler

import "github.com/sieapi/gateway/internal/core/domain"

type createInstanceRequest struct {
	Name                   string `json:"name"          validate:"required"`
	InstanceType           string `json:"instance_type" validate:"omitempty,oneof=whatsapp-web.js baileys"`
	PhoneNumber            string `json:"phone_number"`
	WebhookURL             string `json:"webhook_url"   validate:"omitempty,url"`
	IgnoreGroups           bool   `json:"ignore_groups"`
	BlockCalls             bool   `json:"block_calls"`
	PreventMessageDeletion bool   `json:"prevent_message_deletion"`
}

type updateInstanceRequest struct {
	Name                   *string `json:"name"`
	WebhookURL             *string `json:"webhook_url"`
	IgnoreGroups           *bool   `json:"ignore_groups"`
	BlockCalls             *bool   `json:"block_calls"`
	PreventMessageDeletion *bool   `json:"prevent_message_deletion"`
	IsActive               *bool   `json:"is_active"`
}

// Action payloads keep the remote service's field names. They carry no
// validate tags: required fields are checked after the ownership check.

type sendMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type sendMediaRequest struct {
	To        string `json:"to"`
	MediaURL  string `json:"mediaUrl"`
	MediaType string `json:"mediaType"`
	Caption   string `json:"caption"`
}

type mentionAllRequest struct {
	GroupID   string `json:"groupId"`
	Message   string `json:"message"`
	Anonymous bool   `json:"anonymous"`
}

type contactRequest struct {
	ContactID string `json:"contactId"`
}

type setWebhookRequest struct {
	URL          string `json:"url"`
	IgnoreGroups *bool  `json:"ignoreGroups"`
}

type instanceResponse struct {
	Message  string           `json:"message,omitempty"`
	Instance *domain.Instance `json:"instance"`
}

type instancesResponse struct {
	Instances []*domain.Instance `json:"instances"`
}
