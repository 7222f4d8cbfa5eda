package controllers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/socialbbs/models"
	"github.com/cppla/socialbbs/services"
	"github.com/cppla/socialbbs/utils"
)

// StatsController provides community statistics such as counts and daily page views.
type StatsController struct {
	db       *gorm.DB
	identity *services.IdentityService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB, identity *services.IdentityService) *StatsController {
	return &StatsController{db: db, identity: identity}
}

func (s *StatsController) count(model interface{}) int64 {
	var n int64
	if err := s.db.Model(model).Count(&n).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		return 0
	}
	return n
}

// GetStats returns aggregate statistics for the site.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var dailyViews int64
	today := models.PageViewDay(time.Now())
	if err := s.db.Model(&models.PageView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&dailyViews).Error; err != nil {
		dailyViews = 0
	}

	var online int64
	if err := s.db.Model(&models.User{}).Where("is_online = ?", true).Count(&online).Error; err != nil {
		online = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":       s.count(&models.User{}),
		"post_count":       s.count(&models.Post{}),
		"comment_count":    s.count(&models.Comment{}),
		"group_count":      s.count(&models.Group{}),
		"message_count":    s.count(&models.Message{}),
		"online_count":     online,
		"daily_page_views": dailyViews,
	})
}

// GetPostStats returns page views and comment count for a given post id.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var pv int64
	if err := s.db.Model(&models.PageView{}).
		Where("path = ?", "/api/v1/posts/"+strconv.Itoa(int(id))).
		Select("COALESCE(SUM(count),0)").
		Scan(&pv).Error; err != nil {
		pv = 0
	}

	var comments int64
	if err := s.db.Model(&models.Comment{}).Where("post_id = ?", id).Count(&comments).Error; err != nil {
		comments = 0
	}

	utils.Success(ctx, gin.H{"pv": pv, "comments_count": comments})
}

// OnlineUsers lists the usernames currently marked online.
func (s *StatsController) OnlineUsers(ctx *gin.Context) {
	names, err := s.identity.OnlineUsers(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, 98)
		return
	}
	utils.Success(ctx, gin.H{"items": names, "count": len(names)})
}
