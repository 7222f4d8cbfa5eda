package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/socialbbs/models"
	"github.com/cppla/socialbbs/utils"
)

// SessionIssuer mints an opaque session credential for a user.
type SessionIssuer interface {
	Issue(userID uint, username, role string) (string, time.Time, error)
}

// ResetNotifier delivers a password reset token to its owner.
type ResetNotifier interface {
	SendResetEmail(ctx context.Context, user models.User, token string) error
}

// IdentityOptions configures an IdentityService.
type IdentityOptions struct {
	Sessions       SessionIssuer
	Notifier       ResetNotifier
	CheckinReward  int
	ResetTokenTTL  time.Duration
	AdminUsernames []string
	Clock          Clock
}

// IdentityService owns users, credentials, check-ins and levels.
type IdentityService struct {
	db     *gorm.DB
	logger *zap.Logger
	opts   IdentityOptions
}

// NewIdentityService creates an IdentityService.
func NewIdentityService(db *gorm.DB, logger *zap.Logger, opts IdentityOptions) *IdentityService {
	if opts.CheckinReward <= 0 {
		opts.CheckinReward = 10
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = time.Hour
	}
	return &IdentityService{db: db, logger: logger, opts: opts}
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Session is the result of a successful authentication.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// CheckInResult reports the outcome of a daily check-in.
type CheckInResult struct {
	PointsAwarded int `json:"points_awarded"`
	Points        int `json:"points"`
	Streak        int `json:"streak"`
}

// ProfileInput holds optional profile changes; nil fields are left untouched.
type ProfileInput struct {
	Email    *string
	Bio      *string
	Location *string
}

// Register creates a user with a bcrypt password hash.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	db := s.db.WithContext(ctx)
	if err := s.checkAvailable(db, username, email); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         s.roleFor(username),
		Level:        1,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race with a concurrent registration; report which field collided
			if cerr := s.checkAvailable(db, username, email); cerr != nil {
				return nil, cerr
			}
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return &user, nil
}

func (s *IdentityService) checkAvailable(db *gorm.DB, username, email string) error {
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return ErrDuplicateUsername
	}
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return ErrDuplicateEmail
	}
	return nil
}

func (s *IdentityService) roleFor(username string) string {
	for _, admin := range s.opts.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(admin), username) {
			return models.RoleAdmin
		}
	}
	return models.RoleUser
}

// Authenticate verifies credentials, marks the user online and issues a session.
func (s *IdentityService) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.opts.Sessions.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_online", true).Error; err != nil {
		return nil, fmt.Errorf("mark online: %w", err)
	}
	user.IsOnline = true

	return &Session{Token: token, ExpiresAt: expiresAt, User: &user}, nil
}

// Logout marks the actor offline.
func (s *IdentityService) Logout(ctx context.Context, actor Actor) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", actor.UserID).Update("is_online", false).Error
	if err != nil {
		return fmt.Errorf("mark offline: %w", err)
	}
	return nil
}

// RequestPasswordReset stores a fresh reset token for the account with email
// and hands it to the notifier without waiting for delivery.
func (s *IdentityService) RequestPasswordReset(ctx context.Context, email string) error {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ?", strings.TrimSpace(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	token := uuid.NewString()
	expiry := s.opts.Clock.now().Add(s.opts.ResetTokenTTL)
	err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"reset_token":        token,
		"reset_token_expiry": expiry,
	}).Error
	if err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if s.opts.Notifier != nil {
		notifyCtx := context.WithoutCancel(ctx)
		go func() {
			if err := s.opts.Notifier.SendResetEmail(notifyCtx, user, token); err != nil {
				s.logger.Warn("reset email failed", zap.Uint("user_id", user.ID), zap.Error(err))
			}
		}()
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *IdentityService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("reset_token = ?", token).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("load user: %w", err)
	}

	if user.ResetTokenExpiry == nil || !user.ResetTokenExpiry.After(s.opts.Clock.now()) {
		// expired tokens are dropped so they cannot linger
		err := db.Model(&models.User{}).Where("id = ? AND reset_token = ?", user.ID, token).
			Updates(map[string]interface{}{"reset_token": nil, "reset_token_expiry": nil}).Error
		if err != nil {
			s.logger.Warn("clear expired reset token failed", zap.Uint("user_id", user.ID), zap.Error(err))
		}
		return ErrInvalidOrExpiredToken
	}
	if newPassword == "" {
		return ErrPasswordRequired
	}

	hash, err := utils.HashPassword(newPassword)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return ErrPasswordTooLong
	}
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res := db.Model(&models.User{}).Where("id = ? AND reset_token = ?", user.ID, token).Updates(map[string]interface{}{
		"password_hash":      hash,
		"reset_token":        nil,
		"reset_token_expiry": nil,
	})
	if res.Error != nil {
		return fmt.Errorf("update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidOrExpiredToken
	}
	return nil
}

// CheckIn awards the daily reward once per calendar day and tracks the streak.
func (s *IdentityService) CheckIn(ctx context.Context, actor Actor) (*CheckInResult, error) {
	today := dateOf(s.opts.Clock.now())
	reward := s.opts.CheckinReward
	var result CheckInResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, actor.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		streak := 1
		if user.LastCheckin != nil {
			if sameDay(*user.LastCheckin, today) {
				return ErrAlreadyCheckedIn
			}
			if sameDay(*user.LastCheckin, today.AddDate(0, 0, -1)) {
				streak = user.ConsecutiveDays + 1
			}
		}

		record := models.CheckIn{
			UserID:        user.ID,
			CheckinDate:   today,
			PointsAwarded: reward,
			Streak:        streak,
		}
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyCheckedIn
			}
			return err
		}

		err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"points":           gorm.Expr("points + ?", reward),
			"last_checkin":     today,
			"consecutive_days": streak,
		}).Error
		if err != nil {
			return err
		}

		result = CheckInResult{PointsAwarded: reward, Points: user.Points + reward, Streak: streak}
		return nil
	})
	if err != nil {
		if KindOf(err) != KindInternal {
			return nil, err
		}
		return nil, fmt.Errorf("record check-in: %w", err)
	}
	return &result, nil
}

// Upgrade spends points to raise the actor's level by one. The debit and the
// level change happen in a single conditional update.
func (s *IdentityService) Upgrade(ctx context.Context, actor Actor, pointsToSpend int) (*models.User, error) {
	if pointsToSpend <= 0 {
		return nil, ErrInvalidUpgradeCost
	}
	db := s.db.WithContext(ctx)

	res := db.Model(&models.User{}).
		Where("id = ? AND points >= ?", actor.UserID, pointsToSpend).
		Updates(map[string]interface{}{
			"points": gorm.Expr("points - ?", pointsToSpend),
			"level":  gorm.Expr("level + 1"),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("upgrade: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetUser(ctx, actor.UserID); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientPoints
	}
	return s.GetUser(ctx, actor.UserID)
}

// GetUser loads a user by id.
func (s *IdentityService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// UpdateProfile changes the actor's email, bio or location.
func (s *IdentityService) UpdateProfile(ctx context.Context, actor Actor, in ProfileInput) (*models.User, error) {
	db := s.db.WithContext(ctx)
	user, err := s.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, ErrMissingFields
		}
		if email != user.Email {
			var count int64
			if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error; err != nil {
				return nil, fmt.Errorf("check email: %w", err)
			}
			if count > 0 {
				return nil, ErrDuplicateEmail
			}
			updates["email"] = email
		}
	}
	if in.Bio != nil {
		updates["bio"] = truncateRunes(utils.StripTags(*in.Bio), 500)
	}
	if in.Location != nil {
		updates["location"] = truncateRunes(utils.StripTags(*in.Location), 120)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetUser(ctx, user.ID)
}

// OnlineUsers returns the usernames of users currently marked online.
func (s *IdentityService) OnlineUsers(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("is_online = ?", true).
		Order("username").
		Pluck("username", &names).Error
	if err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}
	return names, nil
}

func truncateRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}
