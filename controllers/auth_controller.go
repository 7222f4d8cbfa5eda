package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialbbs/middleware"
	"github.com/cppla/socialbbs/services"
	"github.com/cppla/socialbbs/utils"
)

// AuthOptions carries the registration and reset guards applied at the HTTP edge.
type AuthOptions struct {
	CaptchaEnabled    bool
	MaxRegisterPerDay int
	ResetCooldown     time.Duration
}

// AuthController handles account registration, sessions and password resets.
type AuthController struct {
	identity *services.IdentityService
	opts     AuthOptions
}

// NewAuthController creates an AuthController.
func NewAuthController(identity *services.IdentityService, opts AuthOptions) *AuthController {
	return &AuthController{identity: identity, opts: opts}
}

type registerRequest struct {
	Username      string `json:"username" binding:"required,min=2,max=64"`
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=6,max=72"`
	CaptchaID     string `json:"captcha_id"`
	CaptchaAnswer string `json:"captcha_answer"`
}

// Register handles local account registration.
func (a *AuthController) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	if a.opts.CaptchaEnabled && !utils.VerifyCaptcha(strings.TrimSpace(req.CaptchaID), strings.TrimSpace(req.CaptchaAnswer)) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "captcha invalid or expired")
		return
	}

	ip := ctx.ClientIP()
	if !utils.RegistrationDailyLimitCheck(ip, a.opts.MaxRegisterPerDay) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily registration limit reached")
		return
	}

	user, err := a.identity.Register(ctx.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(ctx, err, 1)
		return
	}
	utils.RegistrationDailyIncrement(ip)

	utils.Created(ctx, gin.H{"user": privateUserResponse(*user)})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	session, err := a.identity.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(ctx, err, 6)
		return
	}

	utils.Success(ctx, gin.H{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       privateUserResponse(*session.User),
	})
}

// Logout revokes the presented token and marks the user offline.
func (a *AuthController) Logout(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt := time.Now().Add(72 * time.Hour)
	if v, ok := ctx.Get(middleware.ContextClaimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
	}
	utils.BlacklistToken(token, expiresAt)

	if err := a.identity.Logout(ctx.Request.Context(), actor); err != nil {
		respondError(ctx, err, 7)
		return
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword issues a reset token and mails it to the account owner.
func (a *AuthController) ForgotPassword(ctx *gin.Context) {
	var req forgotPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}
	email := strings.TrimSpace(req.Email)
	if !utils.CooldownTrySet("reset:"+strings.ToLower(email), a.opts.ResetCooldown) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many requests, try again later")
		return
	}

	if err := a.identity.RequestPasswordReset(ctx.Request.Context(), email); err != nil {
		respondError(ctx, err, 41)
		return
	}
	utils.Success(ctx, gin.H{"message": "reset email sent"})
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// ResetPassword consumes a reset token and sets a new password.
func (a *AuthController) ResetPassword(ctx *gin.Context) {
	var req resetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid request payload")
		return
	}
	if err := a.identity.ResetPassword(ctx.Request.Context(), req.Token, req.Password); err != nil {
		respondError(ctx, err, 43)
		return
	}
	utils.Success(ctx, gin.H{"message": "password updated"})
}

// Captcha returns a fresh captcha id and base64 image (data URI).
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"id": id, "image": b64})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	user, err := a.identity.GetUser(ctx.Request.Context(), actor.UserID)
	if err != nil {
		respondError(ctx, err, 8)
		return
	}
	utils.Success(ctx, privateUserResponse(*user))
}

type updateProfileRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Bio      *string `json:"bio" binding:"omitempty,max=500"`
	Location *string `json:"location" binding:"omitempty,max=120"`
}

// UpdateProfile allows the authenticated user to update basic profile fields.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	user, err := a.identity.UpdateProfile(ctx.Request.Context(), actor, services.ProfileInput{
		Email:    req.Email,
		Bio:      req.Bio,
		Location: req.Location,
	})
	if err != nil {
		respondError(ctx, err, 31)
		return
	}
	utils.Success(ctx, privateUserResponse(*user))
}

// GetUserPublic returns public user info by id.
func (a *AuthController) GetUserPublic(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	user, err := a.identity.GetUser(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, 10)
		return
	}
	utils.Success(ctx, userResponse(*user))
}
