package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/sieapi/gateway/internal/metrics"
	"github.com/sieapi/gateway/internal/core/domain"
	"github.com/sieapi/gateway/internal/core/ports"
)

// sessionSeq disambiguates session ids generated within the same clock tick.
var sessionSeq atomic.Uint64

// InstanceService implements instance management and forwards instance
// actions to the messaging service after the ownership check.
type InstanceService struct {
	repo   ports.InstanceRepository
	remote ports.MessagingClient
	log    zerolog.Logger
	now    func() time.Time
}

func NewInstanceService(repo ports.InstanceRepository, remote ports.MessagingClient, log zerolog.Logger) *InstanceService {
	return &InstanceService{repo: repo, remote: remote, log: log, now: time.Now}
}

// Create persists a new disconnected instance. The messaging service is not
// contacted until Init.
func (s *InstanceService) Create(ctx context.Context, caller *domain.User, in ports.CreateInstanceInput) (*domain.Instance, error) {
	name := strings.TrimSpace(in.Name)
	if err := requireFields("name", name); err != nil {
		return nil, err
	}
	typ := domain.InstanceTypeWebJS
	if t := strings.TrimSpace(in.Type); t != "" {
		typ = domain.InstanceType(t)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: instance_type must be one of %s, %s",
			domain.ErrInvalidField, domain.InstanceTypeWebJS, domain.InstanceTypeBaileys)
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Instance{
		Name:                   name,
		SessionID:              newSessionID(caller.ID, now),
		PhoneNumber:            strings.TrimSpace(in.PhoneNumber),
		Type:                   typ,
		IsActive:               true,
		WebhookURL:             strings.TrimSpace(in.WebhookURL),
		IgnoreGroups:           in.IgnoreGroups,
		BlockCalls:             in.BlockCalls,
		PreventMessageDeletion: in.PreventMessageDeletion,
		UserID:                 caller.ID,
		CreatedAt:              now,
		UpdatedAt:              now,
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", caller.ID).Msg("failed to create instance")
		return nil, err
	}

	metrics.InstancesCreatedTotal.WithLabelValues(string(created.Type)).Inc()
	s.log.Info().
		Str("instance_id", created.ID).
		Str("session_id", created.SessionID).
		Str("user_id", caller.ID).
		Msg("instance created")
	return created, nil
}

// List returns the caller's instances, or every instance for an admin asking
// for all of them.
func (s *InstanceService) List(ctx context.Context, caller *domain.User, all bool) ([]*domain.Instance, error) {
	ownerID := caller.ID
	if all && caller.IsAdmin {
		ownerID = ""
	}
	return s.repo.List(ctx, ownerID)
}

// Get refreshes the connectivity flag from the messaging service when it
// answers. A failed status call never fails the read.
func (s *InstanceService) Get(ctx context.Context, caller *domain.User, id string) (*domain.Instance, error) {
	inst, err := s.authorize(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	connected, err := s.remote.Status(ctx, session(inst))
	if err != nil {
		s.log.Debug().Err(err).Str("instance_id", inst.ID).Msg("status refresh failed, keeping last known state")
		return inst, nil
	}
	if connected != inst.IsConnected {
		if err := s.repo.SetConnected(ctx, inst.ID, connected); err != nil {
			s.log.Warn().Err(err).Str("instance_id", inst.ID).Msg("failed to persist connectivity")
		}
		inst.IsConnected = connected
	}
	return inst, nil
}

func (s *InstanceService) Update(ctx context.Context, caller *domain.User, id string, in ports.UpdateInstanceInput) (*domain.Instance, error) {
	inst, err := s.authorize(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		inst.Name = strings.TrimSpace(*in.Name)
	}
	webhookChanged := false
	if in.WebhookURL != nil {
		url := strings.TrimSpace(*in.WebhookURL)
		webhookChanged = url != inst.WebhookURL
		inst.WebhookURL = url
	}
	if in.IgnoreGroups != nil {
		inst.IgnoreGroups = *in.IgnoreGroups
	}
	if in.BlockCalls != nil {
		inst.BlockCalls = *in.BlockCalls
	}
	if in.PreventMessageDeletion != nil {
		inst.PreventMessageDeletion = *in.PreventMessageDeletion
	}
	if in.IsActive != nil {
		inst.IsActive = *in.IsActive
	}
	inst.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, inst); err != nil {
		return nil, err
	}

	if webhookChanged {
		w := ports.Webhook{URL: inst.WebhookURL, IgnoreGroups: inst.IgnoreGroups}
		if err := s.remote.SetWebhook(ctx, session(inst), w); err != nil {
			s.log.Warn().Err(err).Str("instance_id", inst.ID).Msg("webhook forward failed, ignoring")
		}
	}
	return inst, nil
}

// Delete logs the session out on a best-effort basis, then removes the record.
func (s *InstanceService) Delete(ctx context.Context, caller *domain.User, id string) error {
	inst, err := s.authorize(ctx, caller, id)
	if err != nil {
		return err
	}

	if err := s.remote.Logout(ctx, session(inst)); err != nil {
		s.log.Warn().Err(err).Str("instance_id", inst.ID).Msg("remote logout failed, deleting anyway")
	}
	if err := s.repo.Delete(ctx, inst.ID); err != nil {
		return err
	}

	s.log.Info().Str("instance_id", inst.ID).Str("session_id", inst.SessionID).Msg("instance deleted")
	return nil
}

func (s *InstanceService) Init(ctx context.Context, caller *domain.User, id string) error {
	inst, err := s.authorize(ctx, caller, id)
	if err != nil {
		return err
	}
	return s.remote.Init(ctx, session(inst))
}

func (s *InstanceService) SendMessage(ctx context.Context, caller *domain.User, id string, in ports.SendMessageInput) error {
	inst, err := s.authorize(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := requireFields("to", in.To, "message", in.Message); err != nil {
		return err
	}
	return s.remote.SendMessage(ctx, session(inst), in.To, in.Message)
}

func (s *InstanceService) SendMedia(ctx context.Context, caller *domain.User, id string, in ports.SendMediaInput) error {
	inst, err := s.authorize(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := requireFields("to", in.To, "mediaUrl", in.MediaURL, "mediaType", in.MediaType); err != nil {
		return err
	}
	return s.remote.SendMedia(ctx, session(inst), ports.MediaMessage{
		To:        in.To,
		MediaURL:  in.MediaURL,
		MediaType: in.MediaType,
		Caption:   in.Caption,
	})
}

func (s *InstanceService) MentionAll(ctx context.Context, caller *domain.User, id string, in ports.MentionAllInput) error {
	inst, err := s.authorize(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := requireFields("groupId", in.GroupID, "message", in.Message); err != nil {
		return err
	}
	return s.remote.MentionAll(ctx, session(inst), in.GroupID, in.Message, in.Anonymous)
}

func (s *InstanceService) Contacts(ctx context.Context, caller *domain.User, id string) (json.RawMessage, error) {
	inst, err := s.authorize(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return s.remote.Contacts(ctx, session(inst))
}

func (s *InstanceService) Chats(ctx context.Context, caller *domain.User, id string) (json.RawMessage, error) {
	inst, err := s.authorize(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return s.remote.Chats(ctx, session(inst))
}

func (s *InstanceService) BlockContact(ctx context.Context, caller *domain.User, id, contactID string) error {
	inst, err := s.authorize(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := requireFields("contactId", contactID); err != nil {
		return err
	}
	return s.remote.BlockContact(ctx, session(inst), contactID)
}

func (s *InstanceService) UnblockContact(ctx context.Context, caller *domain.User, id, contactID string) error {
	inst, err := s.authorize(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := requireFields("contactId", contactID); err != nil {
		return err
	}
	return s.remote.UnblockContact(ctx, session(inst), contactID)
}

// SetWebhook stores the new webhook before forwarding it. A failed forward is
// returned but the stored configuration is kept.
func (s *InstanceService) SetWebhook(ctx context.Context, caller *domain.User, id string, in ports.SetWebhookInput) (*domain.Instance, error) {
	inst, err := s.authorize(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := requireFields("url", in.URL); err != nil {
		return nil, err
	}

	inst.WebhookURL = strings.TrimSpace(in.URL)
	if in.IgnoreGroups != nil {
		inst.IgnoreGroups = *in.IgnoreGroups
	}
	inst.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, inst); err != nil {
		return nil, err
	}

	w := ports.Webhook{URL: inst.WebhookURL, IgnoreGroups: inst.IgnoreGroups}
	if err := s.remote.SetWebhook(ctx, session(inst), w); err != nil {
		return nil, err
	}
	return inst, nil
}

// authorize loads the instance and checks that caller may operate it. An
// unknown id is reported before ownership.
func (s *InstanceService) authorize(ctx context.Context, caller *domain.User, id string) (*domain.Instance, error) {
	inst, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inst.OperableBy(caller) {
		s.log.Warn().Str("instance_id", id).Str("user_id", callerID(caller)).Msg("instance access denied")
		return nil, domain.ErrForbidden
	}
	return inst, nil
}

func session(inst *domain.Instance) ports.Session {
	return ports.Session{ID: inst.SessionID, Type: inst.Type}
}

// newSessionID derives a unique session id from the owner, a nanosecond
// timestamp and a process-wide sequence.
func newSessionID(ownerID string, now time.Time) string {
	return fmt.Sprintf("session_%s_%d_%d", ownerID, now.UnixNano(), sessionSeq.Add(1))
}

func callerID(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
