package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/socialbbs/models"
	"github.com/cppla/socialbbs/utils"
)

// MessagingService owns direct messages and notifications.
type MessagingService struct {
	db     *gorm.DB
	logger *zap.Logger
	filter *utils.ContentFilter
	clock  Clock
}

// NewMessagingService creates a MessagingService.
func NewMessagingService(db *gorm.DB, logger *zap.Logger, filter *utils.ContentFilter, clock Clock) *MessagingService {
	return &MessagingService{db: db, logger: logger, filter: filter, clock: clock}
}

// SendMessage stores a message and the receiver's notification in one transaction.
func (s *MessagingService) SendMessage(ctx context.Context, actor Actor, receiverID uint, content string) (*models.Message, error) {
	content = cleanText(s.filter, content)
	if receiverID == 0 || content == "" {
		return nil, ErrMissingReceiverOrContent
	}

	var msg models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var receiver models.User
		if err := tx.Select("id").First(&receiver, receiverID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		var sender models.User
		if err := tx.Select("id", "username").First(&sender, actor.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		msg = models.Message{
			SenderID:   sender.ID,
			ReceiverID: receiver.ID,
			Content:    content,
			SentAt:     s.clock.now(),
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}

		note := models.Notification{
			UserID:  receiver.ID,
			Content: "You have a new message from " + sender.Username,
		}
		return tx.Create(&note).Error
	})
	if err != nil {
		if KindOf(err) != KindInternal {
			return nil, err
		}
		return nil, fmt.Errorf("send message: %w", err)
	}
	s.logger.Debug("message sent",
		zap.Uint("message_id", msg.ID), zap.Uint("sender_id", msg.SenderID), zap.Uint("receiver_id", msg.ReceiverID))
	return &msg, nil
}

// ListMessages returns messages the actor sent or received, newest first.
func (s *MessagingService) ListMessages(ctx context.Context, actor Actor) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", actor.UserID, actor.UserID).
		Order("sent_at DESC, id DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// MarkRead flags a message as read. Only the receiver may do so; repeating it is a no-op.
func (s *MessagingService) MarkRead(ctx context.Context, actor Actor, messageID uint) (*models.Message, error) {
	db := s.db.WithContext(ctx)

	var msg models.Message
	if err := db.First(&msg, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("load message: %w", err)
	}
	if msg.ReceiverID != actor.UserID {
		return nil, ErrPermissionDenied
	}
	if msg.IsRead {
		return &msg, nil
	}
	if err := db.Model(&models.Message{}).Where("id = ?", msg.ID).Update("is_read", true).Error; err != nil {
		return nil, fmt.Errorf("mark message read: %w", err)
	}
	msg.IsRead = true
	return &msg, nil
}

// ListNotifications returns the actor's notifications, newest first.
func (s *MessagingService) ListNotifications(ctx context.Context, actor Actor) ([]models.Notification, error) {
	var notes []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", actor.UserID).
		Order("created_at DESC, id DESC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notes, nil
}

// UnreadNotifications counts the actor's unread notifications.
func (s *MessagingService) UnreadNotifications(ctx context.Context, actor Actor) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", actor.UserID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}

// MarkNotificationRead flags a notification as read. Only its recipient may do so.
func (s *MessagingService) MarkNotificationRead(ctx context.Context, actor Actor, id uint) (*models.Notification, error) {
	db := s.db.WithContext(ctx)

	var note models.Notification
	if err := db.First(&note, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("load notification: %w", err)
	}
	if note.UserID != actor.UserID {
		return nil, ErrPermissionDenied
	}
	if !note.IsRead {
		if err := db.Model(&models.Notification{}).Where("id = ?", note.ID).Update("is_read", true).Error; err != nil {
			return nil, fmt.Errorf("mark notification read: %w", err)
		}
		note.IsRead = true
	}
	return &note, nil
}
