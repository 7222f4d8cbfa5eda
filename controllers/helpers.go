package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/socialbbs/middleware"
	"github.com/cppla/socialbbs/models"
	"github.com/cppla/socialbbs/services"
	"github.com/cppla/socialbbs/utils"
)

// statusFor maps a service error kind to an HTTP status.
func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindPermission:
		return http.StatusForbidden
	case services.KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err using the envelope; site distinguishes call sites in the code.
func respondError(ctx *gin.Context, err error, site int) {
	kind := services.KindOf(err)
	status := statusFor(kind)
	if kind == services.KindInternal {
		utils.Logger.Error("request failed",
			zap.String("path", ctx.FullPath()), zap.Int("site", site), zap.Error(err))
		utils.Error(ctx, status, status*100+site, "internal server error")
		return
	}
	utils.Error(ctx, status, status*100+site, err.Error())
}

func currentActor(ctx *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return actor, ok
}

func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(ctx.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":               user.ID,
		"username":         user.Username,
		"role":             user.Role,
		"bio":              user.Bio,
		"location":         user.Location,
		"is_online":        user.IsOnline,
		"points":           user.Points,
		"level":            user.Level,
		"consecutive_days": user.ConsecutiveDays,
		"last_checkin":     user.LastCheckin,
		"created_at":       user.CreatedAt,
	}
}

// privateUserResponse adds fields only the account owner should see.
func privateUserResponse(user models.User) gin.H {
	m := userResponse(user)
	m["email"] = user.Email
	m["is_admin"] = user.IsAdmin()
	return m
}

func userList(users []models.User) []gin.H {
	out := make([]gin.H, len(users))
	for i, u := range users {
		out[i] = userResponse(u)
	}
	return out
}

// cacheEnvelope mirrors utils.JSONResponse so cached bytes can be replayed verbatim.
type cacheEnvelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}
