package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/socialbbs/models"
)

func TestSendMessage_WritesMessageAndNotification(t *testing.T) {
	f := newFixture(t, "spam")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	msg, err := f.svc.Messaging.SendMessage(ctx, alice, bob.UserID, "no spam here")
	require.NoError(t, err)
	assert.Equal(t, "no *** here", msg.Content)
	assert.False(t, msg.IsRead)
	assert.True(t, msg.SentAt.Equal(f.clock.t))

	notes, err := f.svc.Messaging.ListNotifications(ctx, bob)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "You have a new message from alice", notes[0].Content)

	unread, err := f.svc.Messaging.UnreadNotifications(ctx, bob)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	_, err := f.svc.Messaging.SendMessage(ctx, alice, 0, "hi")
	assert.ErrorIs(t, err, ErrMissingReceiverOrContent)
	_, err = f.svc.Messaging.SendMessage(ctx, alice, alice.UserID, " ")
	assert.ErrorIs(t, err, ErrMissingReceiverOrContent)
	_, err = f.svc.Messaging.SendMessage(ctx, alice, 999, "hi")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSendMessage_RollsBackWhenNotificationFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_notifications", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "notifications" {
			_ = tx.AddError(errors.New("notification store unavailable"))
		}
	})
	require.NoError(t, err)

	_, err = f.svc.Messaging.SendMessage(ctx, alice, bob.UserID, "hello")
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))

	var messages int64
	require.NoError(t, f.db.Model(&models.Message{}).Count(&messages).Error)
	assert.Zero(t, messages)
}

func TestListMessages_BothDirectionsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	carol := f.register(t, "carol")

	m1, err := f.svc.Messaging.SendMessage(ctx, alice, bob.UserID, "one")
	require.NoError(t, err)
	f.clock.advanceDays(1)
	m2, err := f.svc.Messaging.SendMessage(ctx, bob, alice.UserID, "two")
	require.NoError(t, err)
	_, err = f.svc.Messaging.SendMessage(ctx, carol, bob.UserID, "unrelated")
	require.NoError(t, err)

	msgs, err := f.svc.Messaging.ListMessages(ctx, alice)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, m2.ID, msgs[0].ID)
	assert.Equal(t, m1.ID, msgs[1].ID)
}

func TestMarkRead_ReceiverOnlyAndIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	msg, err := f.svc.Messaging.SendMessage(ctx, alice, bob.UserID, "hello")
	require.NoError(t, err)

	_, err = f.svc.Messaging.MarkRead(ctx, alice, msg.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	read, err := f.svc.Messaging.MarkRead(ctx, bob, msg.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	again, err := f.svc.Messaging.MarkRead(ctx, bob, msg.ID)
	require.NoError(t, err)
	assert.True(t, again.IsRead)

	_, err = f.svc.Messaging.MarkRead(ctx, bob, msg.ID+100)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMarkNotificationRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	_, err := f.svc.Messaging.SendMessage(ctx, alice, bob.UserID, "hello")
	require.NoError(t, err)
	notes, err := f.svc.Messaging.ListNotifications(ctx, bob)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	_, err = f.svc.Messaging.MarkNotificationRead(ctx, alice, notes[0].ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	note, err := f.svc.Messaging.MarkNotificationRead(ctx, bob, notes[0].ID)
	require.NoError(t, err)
	assert.True(t, note.IsRead)

	unread, err := f.svc.Messaging.UnreadNotifications(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
