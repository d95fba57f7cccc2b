package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sieapi/gateway/internal/core/domain"
	"github.com/sieapi/gateway/internal/core/ports"
)

// InstanceHandler handles the /whatsapp/instances routes. Ownership is
// enforced by the service.
type InstanceHandler struct {
	service ports.InstanceService
}

func NewInstanceHandler(service ports.InstanceService) *InstanceHandler {
	return &InstanceHandler{service: service}
}

// List handles GET /whatsapp/instances.
// @Summary      List instances
// @Description  Returns the caller's instances. Admins may pass all=true to list every instance.
// @Tags         instances
// @Produce      json
// @Security     BearerAuth
// @Param        all  query     bool  false  "List every instance (admin only)"
// @Success      200  {object}  instancesResponse
// @Failure      401  {object}  map[string]string
// @Router       /whatsapp/instances [get]
func (h *InstanceHandler) List(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	all, _ := strconv.ParseBool(c.QueryParam("all"))

	instances, err := h.service.List(c.Request().Context(), caller, all)
	if err != nil {
		return err
	}
	if instances == nil {
		instances = []*domain.Instance{}
	}
	return c.JSON(http.StatusOK, instancesResponse{Instances: instances})
}

// Create handles POST /whatsapp/instances.
// @Summary      Create an instance
// @Tags         instances
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createInstanceRequest  true  "Instance configuration"
// @Success      201   {object}  instanceResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /whatsapp/instances [post]
func (h *InstanceHandler) Create(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}

	var req createInstanceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	inst, err := h.service.Create(c.Request().Context(), caller, ports.CreateInstanceInput{
		Name:                   req.Name,
		Type:                   req.InstanceType,
		PhoneNumber:            req.PhoneNumber,
		WebhookURL:             req.WebhookURL,
		IgnoreGroups:           req.IgnoreGroups,
		BlockCalls:             req.BlockCalls,
		PreventMessageDeletion: req.PreventMessageDeletion,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, instanceResponse{Message: "instance created", Instance: inst})
}

// Get handles GET /whatsapp/instances/:id and refreshes the connection state.
// @Summary      Get an instance
// @Tags         instances
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Instance id"
// @Success      200  {object}  instanceResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /whatsapp/instances/{id} [get]
func (h *InstanceHandler) Get(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}

	inst, err := h.service.Get(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, instanceResponse{Instance: inst})
}

// Update handles PUT /whatsapp/instances/:id.
// @Summary      Update an instance
// @Tags         instances
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "Instance id"
// @Param        body  body      updateInstanceRequest  true  "Fields to change"
// @Success      200   {object}  instanceResponse
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /whatsapp/instances/{id} [put]
func (h *InstanceHandler) Update(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}

	var req updateInstanceRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	inst, err := h.service.Update(c.Request().Context(), caller, c.Param("id"), ports.UpdateInstanceInput{
		Name:                   req.Name,
		WebhookURL:             req.WebhookURL,
		IgnoreGroups:           req.IgnoreGroups,
		BlockCalls:             req.BlockCalls,
		PreventMessageDeletion: req.PreventMessageDeletion,
		IsActive:               req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, instanceResponse{Message: "instance updated", Instance: inst})
}

// Delete handles DELETE /whatsapp/instances/:id.
// @Summary      Delete an instance
// @Tags         instances
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Instance id"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /whatsapp/instances/{id} [delete]
func (h *InstanceHandler) Delete(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), caller, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "instance deleted"})
}

// Init handles POST /whatsapp/instances/:id/init.
// @Summary      Start the messaging session
// @Tags         instances
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Instance id"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /whatsapp/instances/{id}/init [post]
func (h *InstanceHandler) Init(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.service.Init(c.Request().Context(), caller, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "instance started, waiting for QR code"})
}

// SendMessage handles POST /whatsapp/instances/:id/send-message.
// @Summary      Send a text message
// @Tags         instances
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Instance id"
// @Param        body  body      sendMessageRequest  true  "Recipient and text"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /whatsapp/instances/{id}/send-message [post]
func (h *InstanceHandler) SendMessage(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	err = h.service.SendMessage(c.Request().Context(), caller, c.Param("id"), ports.SendMessageInput{
		To:      req.To,
		Message: req.Message,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "message sent"})
}

// SendMedia handles POST /whatsapp/instances/:id/send-media.
// @Summary      Send a media message
// @Tags         instances
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Instance id"
// @Param        body  body      sendMediaRequest  true  "Recipient and media"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /whatsapp/instances/{id}/send-media [post]
func (h *InstanceHandler) SendMedia(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req sendMediaRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	err = h.service.SendMedia(c.Request().Context(), caller, c.Param("id"), ports.SendMediaInput{
		To:        req.To,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
		Caption:   req.Caption,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "media sent"})
}

// MentionAll handles POST /whatsapp/instances/:id/mention-all.
// @Summary      Mention every group member
// @Tags         instances
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Instance id"
// @Param        body  body      mentionAllRequest  true  "Group and text"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /whatsapp/instances/{id}/mention-all [post]
func (h *InstanceHandler) MentionAll(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req mentionAllRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	err = h.service.MentionAll(c.Request().Context(), caller, c.Param("id"), ports.MentionAllInput{
		GroupID:   req.GroupID,
		Message:   req.Message,
		Anonymous: req.Anonymous,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "mention sent"})
}

// Contacts handles GET /whatsapp/instances/:id/contacts. The remote body is
// returned unchanged.
// @Summary      List contacts
// @Tags         instances
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Instance id"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /whatsapp/instances/{id}/contacts [get]
func (h *InstanceHandler) Contacts(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	body, err := h.service.Contacts(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, body)
}

// Chats handles GET /whatsapp/instances/:id/chats. The remote body is
// returned unchanged.
// @Summary      List chats
// @Tags         instances
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Instance id"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /whatsapp/instances/{id}/chats [get]
func (h *InstanceHandler) Chats(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	body, err := h.service.Chats(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, body)
}

// BlockContact handles POST /whatsapp/instances/:id/block-contact.
// @Summary      Block a contact
// @Tags         instances
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Instance id"
// @Param        body  body      contactRequest  true  "Contact"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /whatsapp/instances/{id}/block-contact [post]
func (h *InstanceHandler) BlockContact(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req contactRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := h.service.BlockContact(c.Request().Context(), caller, c.Param("id"), req.ContactID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "contact blocked"})
}

// UnblockContact handles POST /whatsapp/instances/:id/unblock-contact.
// @Summary      Unblock a contact
// @Tags         instances
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Instance id"
// @Param        body  body      contactRequest  true  "Contact"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /whatsapp/instances/{id}/unblock-contact [post]
func (h *InstanceHandler) UnblockContact(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req contactRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := h.service.UnblockContact(c.Request().Context(), caller, c.Param("id"), req.ContactID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "contact unblocked"})
}

// SetWebhook handles POST /whatsapp/instances/:id/set-webhook. The webhook is
// stored even when forwarding it fails.
// @Summary      Configure the event webhook
// @Tags         instances
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Instance id"
// @Param        body  body      setWebhookRequest  true  "Webhook"
// @Success      200   {object}  instanceResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /whatsapp/instances/{id}/set-webhook [post]
func (h *InstanceHandler) SetWebhook(c echo.Context) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req setWebhookRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	inst, err := h.service.SetWebhook(c.Request().Context(), caller, c.Param("id"), ports.SetWebhookInput{
		URL:          req.URL,
		IgnoreGroups: req.IgnoreGroups,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, instanceResponse{Message: "webhook configured", Instance: inst})
}
