package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialbbs/services"
	"github.com/cppla/socialbbs/utils"
)

// CheckInController exposes the daily check-in and level upgrades.
type CheckInController struct {
	identity *services.IdentityService
}

// NewCheckInController creates a CheckInController.
func NewCheckInController(identity *services.IdentityService) *CheckInController {
	return &CheckInController{identity: identity}
}

// CheckIn awards today's points for the current user.
func (c *CheckInController) CheckIn(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	result, err := c.identity.CheckIn(ctx.Request.Context(), actor)
	if err != nil {
		respondError(ctx, err, 80)
		return
	}
	utils.Success(ctx, gin.H{
		"points_awarded":   result.PointsAwarded,
		"points":           result.Points,
		"consecutive_days": result.Streak,
	})
}

// Status reports the user's points, level and streak.
func (c *CheckInController) Status(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	user, err := c.identity.GetUser(ctx.Request.Context(), actor.UserID)
	if err != nil {
		respondError(ctx, err, 81)
		return
	}
	utils.Success(ctx, gin.H{
		"points":           user.Points,
		"level":            user.Level,
		"consecutive_days": user.ConsecutiveDays,
		"last_checkin":     user.LastCheckin,
	})
}

type upgradeRequest struct {
	Points int `json:"points" binding:"required"`
}

// Upgrade spends points to raise the user's level.
func (c *CheckInController) Upgrade(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req upgradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40082, "invalid request payload")
		return
	}
	user, err := c.identity.Upgrade(ctx.Request.Context(), actor, req.Points)
	if err != nil {
		respondError(ctx, err, 83)
		return
	}
	utils.Success(ctx, gin.H{"points": user.Points, "level": user.Level})
}
