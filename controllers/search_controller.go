package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/socialbbs/services"
	"github.com/cppla/socialbbs/utils"
)

// SearchController serves substring search over users and posts.
type SearchController struct {
	search *services.SearchService
}

func NewSearchController(search *services.SearchService) *SearchController {
	return &SearchController{search: search}
}

// Search handles GET /search?q=.
func (s *SearchController) Search(ctx *gin.Context) {
	result, err := s.search.Search(ctx.Request.Context(), ctx.Query("q"))
	if err != nil {
		respondError(ctx, err, 97)
		return
	}
	utils.Success(ctx, gin.H{"users": userList(result.Users), "posts": result.Posts})
}
