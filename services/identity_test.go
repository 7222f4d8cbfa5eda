package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/cppla/socialbbs/models"
	"github.com/cppla/socialbbs/utils"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendResetEmail(ctx context.Context, user models.User, token string) error {
	args := m.Called(ctx, user, token)
	return args.Error(0)
}

func TestRegister_HashesPasswordAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.Identity.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.True(t, utils.CheckPassword(user.PasswordHash, "s3cret"))
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, 1, user.Level)

	_, err = f.svc.Identity.Register(ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = f.svc.Identity.Register(ctx, RegisterInput{Username: "bob", Email: "alice@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = f.svc.Identity.Register(ctx, RegisterInput{Username: "  ", Email: "c@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestRegister_AdminUsernameGetsAdminRole(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "root")
	assert.True(t, admin.IsAdmin())
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	session, err := f.svc.Identity.Authenticate(ctx, "alice", "password-alice")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.True(t, session.User.IsOnline)

	claims, err := utils.NewTokenManager("test-secret", time.Hour).Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	online, err := f.svc.Identity.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, online)

	_, err = f.svc.Identity.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Identity.Authenticate(ctx, "nobody", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, KindAuth, KindOf(err))
}

func TestLogout_MarksOffline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	_, err := f.svc.Identity.Authenticate(ctx, "alice", "password-alice")
	require.NoError(t, err)

	require.NoError(t, f.svc.Identity.Logout(ctx, alice))
	online, err := f.svc.Identity.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, online)
}

func newResetService(t *testing.T, n *mockNotifier) (*fixture, *IdentityService) {
	f := newFixture(t)
	svc := NewIdentityService(f.db, zap.NewNop(), IdentityOptions{
		Sessions:      utils.NewTokenManager("test-secret", time.Hour),
		Notifier:      n,
		ResetTokenTTL: 30 * time.Minute,
		Clock:         f.clock.Clock(),
	})
	return f, svc
}

func TestPasswordReset_RoundTrip(t *testing.T) {
	n := new(mockNotifier)
	sent := make(chan string, 1)
	n.On("SendResetEmail", mock.Anything, mock.AnythingOfType("models.User"), mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { sent <- args.String(2) }).
		Return(nil)

	f, svc := newResetService(t, n)
	ctx := context.Background()
	f.register(t, "alice")

	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))

	var token string
	select {
	case token = <-sent:
	case <-time.After(2 * time.Second):
		t.Fatal("reset notification was not sent")
	}
	assert.NotEmpty(t, token)
	n.AssertExpectations(t)

	require.NoError(t, svc.ResetPassword(ctx, token, "new-password"))

	_, err := svc.Authenticate(ctx, "alice", "new-password")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "alice", "password-alice")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// the token is single use
	err = svc.ResetPassword(ctx, token, "another")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestPasswordReset_ExpiredToken(t *testing.T) {
	n := new(mockNotifier)
	sent := make(chan string, 1)
	n.On("SendResetEmail", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent <- args.String(2) }).
		Return(nil)

	f, svc := newResetService(t, n)
	ctx := context.Background()
	f.register(t, "alice")
	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))
	token := <-sent

	f.clock.t = f.clock.t.Add(31 * time.Minute)
	err := svc.ResetPassword(ctx, token, "new-password")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	assert.Equal(t, KindAuth, KindOf(err))

	_, err = svc.Authenticate(ctx, "alice", "password-alice")
	assert.NoError(t, err)
}

func TestPasswordReset_ExpiredTokenIsCleared(t *testing.T) {
	n := new(mockNotifier)
	sent := make(chan string, 1)
	n.On("SendResetEmail", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent <- args.String(2) }).
		Return(nil)

	f, svc := newResetService(t, n)
	ctx := context.Background()
	alice := f.register(t, "alice")
	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))
	token := <-sent

	f.clock.t = f.clock.t.Add(31 * time.Minute)
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "new-password"), ErrInvalidOrExpiredToken)

	var user models.User
	require.NoError(t, f.db.First(&user, alice.UserID).Error)
	assert.Nil(t, user.ResetToken)
	assert.Nil(t, user.ResetTokenExpiry)
}

func TestPasswordReset_ExpiredTokenCleanupFailureIsLogged(t *testing.T) {
	n := new(mockNotifier)
	sent := make(chan string, 1)
	n.On("SendResetEmail", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent <- args.String(2) }).
		Return(nil)

	f := newFixture(t)
	core, logs := observer.New(zap.WarnLevel)
	svc := NewIdentityService(f.db, zap.New(core), IdentityOptions{
		Sessions:      utils.NewTokenManager("test-secret", time.Hour),
		Notifier:      n,
		ResetTokenTTL: 30 * time.Minute,
		Clock:         f.clock.Clock(),
	})
	ctx := context.Background()
	f.register(t, "alice")
	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))
	token := <-sent

	err := f.db.Callback().Update().Before("gorm:update").Register("test:fail_user_updates", func(tx *gorm.DB) {
		if tx.Statement.Table == "users" {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	f.clock.t = f.clock.t.Add(31 * time.Minute)
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "new-password"), ErrInvalidOrExpiredToken)
	assert.Equal(t, 1, logs.FilterMessage("clear expired reset token failed").Len())
}

func TestPasswordReset_UnknownEmail(t *testing.T) {
	n := new(mockNotifier)
	_, svc := newResetService(t, n)

	err := svc.RequestPasswordReset(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	n.AssertNotCalled(t, "SendResetEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckIn_OncePerDayWithStreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	res, err := f.svc.Identity.CheckIn(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 10, res.PointsAwarded)
	assert.Equal(t, 10, res.Points)
	assert.Equal(t, 1, res.Streak)

	_, err = f.svc.Identity.CheckIn(ctx, alice)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	assert.Equal(t, KindConflict, KindOf(err))

	f.clock.advanceDays(1)
	res, err = f.svc.Identity.CheckIn(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Points)
	assert.Equal(t, 2, res.Streak)

	// a missed day resets the streak
	f.clock.advanceDays(2)
	res, err = f.svc.Identity.CheckIn(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 30, res.Points)
	assert.Equal(t, 1, res.Streak)

	user, err := f.svc.Identity.GetUser(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, 30, user.Points)
	assert.Equal(t, 1, user.ConsecutiveDays)

	var records int64
	require.NoError(t, f.db.Model(&models.CheckIn{}).Where("user_id = ?", alice.UserID).Count(&records).Error)
	assert.EqualValues(t, 3, records)
}

func TestUpgrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	_, err := f.svc.Identity.CheckIn(ctx, alice)
	require.NoError(t, err)

	_, err = f.svc.Identity.Upgrade(ctx, alice, 0)
	assert.ErrorIs(t, err, ErrInvalidUpgradeCost)

	_, err = f.svc.Identity.Upgrade(ctx, alice, 11)
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	user, err := f.svc.Identity.Upgrade(ctx, alice, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, user.Points)
	assert.Equal(t, 2, user.Level)

	_, err = f.svc.Identity.Upgrade(ctx, Actor{UserID: 999}, 1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	f.register(t, "bob")

	bio, location := "  gopher  ", "Berlin"
	user, err := f.svc.Identity.UpdateProfile(ctx, alice, ProfileInput{Bio: &bio, Location: &location})
	require.NoError(t, err)
	assert.Equal(t, "gopher", user.Bio)
	assert.Equal(t, "Berlin", user.Location)
	assert.Equal(t, "alice@example.com", user.Email)

	taken := "bob@example.com"
	_, err = f.svc.Identity.UpdateProfile(ctx, alice, ProfileInput{Email: &taken})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	fresh := "alice@new.example.com"
	user, err = f.svc.Identity.UpdateProfile(ctx, alice, ProfileInput{Email: &fresh})
	require.NoError(t, err)
	assert.Equal(t, fresh, user.Email)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Identity.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: strings.Repeat("p", 80),
	})
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.Equal(t, KindValidation, KindOf(err))
}
