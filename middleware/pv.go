package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/socialbbs/models"
)

// PageViewRecorder counts successful GET reads of content resources per day and path.
func PageViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != "GET" {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 400 {
			return
		}

		path := c.Request.URL.Path
		if !isContentPath(path) {
			return
		}

		now := time.Now()

		// Atomic upsert to avoid duplicate key errors under concurrency
		_ = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": now}),
		}).Create(&models.PageView{Date: models.PageViewDay(now), Path: path, Count: 1}).Error
	}
}

func isContentPath(path string) bool {
	for _, prefix := range []string{"/api/v1/posts", "/api/v1/groups", "/api/v1/users/"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
