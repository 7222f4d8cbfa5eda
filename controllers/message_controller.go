package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialbbs/services"
	"github.com/cppla/socialbbs/utils"
)

// MessageController handles direct messages and the notification inbox.
type MessageController struct {
	messaging *services.MessagingService
}

// NewMessageController creates a MessageController.
func NewMessageController(messaging *services.MessagingService) *MessageController {
	return &MessageController{messaging: messaging}
}

type sendMessageRequest struct {
	ReceiverID uint   `json:"receiver_id"`
	Content    string `json:"content"`
}

// Send delivers a message and notifies the receiver.
func (m *MessageController) Send(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40090, "invalid request payload")
		return
	}
	msg, err := m.messaging.SendMessage(ctx.Request.Context(), actor, req.ReceiverID, req.Content)
	if err != nil {
		respondError(ctx, err, 91)
		return
	}
	utils.Created(ctx, gin.H{"message": msg})
}

// List returns messages the user sent or received.
func (m *MessageController) List(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	msgs, err := m.messaging.ListMessages(ctx.Request.Context(), actor)
	if err != nil {
		respondError(ctx, err, 92)
		return
	}
	utils.Success(ctx, gin.H{"items": msgs})
}

// MarkRead flags a received message as read.
func (m *MessageController) MarkRead(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	msg, err := m.messaging.MarkRead(ctx.Request.Context(), actor, id)
	if err != nil {
		respondError(ctx, err, 93)
		return
	}
	utils.Success(ctx, gin.H{"message": msg})
}

// Notifications lists the user's notifications with an unread count.
func (m *MessageController) Notifications(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	notes, err := m.messaging.ListNotifications(ctx.Request.Context(), actor)
	if err != nil {
		respondError(ctx, err, 94)
		return
	}
	unread, err := m.messaging.UnreadNotifications(ctx.Request.Context(), actor)
	if err != nil {
		respondError(ctx, err, 95)
		return
	}
	utils.Success(ctx, gin.H{"items": notes, "unread": unread})
}

// MarkNotificationRead flags one notification as read.
func (m *MessageController) MarkNotificationRead(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	note, err := m.messaging.MarkNotificationRead(ctx.Request.Context(), actor, id)
	if err != nil {
		respondError(ctx, err, 96)
		return
	}
	utils.Success(ctx, gin.H{"notification": note})
}
