package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/cppla/socialbbs/config"
	"github.com/cppla/socialbbs/models"
)

func TestMailer_UnconfiguredOnlyLogs(t *testing.T) {
	m := NewMailer(config.AppConfig{ResetURLBase: "https://example.com/reset"}, zap.NewNop())
	err := m.SendResetEmail(context.Background(), models.User{ID: 1, Email: "a@example.com"}, "tok en")
	assert.NoError(t, err)
	assert.Equal(t, "https://example.com/reset?token=tok+en", m.resetLink("tok en"))
}
