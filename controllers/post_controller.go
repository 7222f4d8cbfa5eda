package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialbbs/services"
	"github.com/cppla/socialbbs/utils"
)

const (
	postListCacheKey   = "cache:posts:list"
	postDetailCacheKey = "cache:post:detail:"
	userPostsCacheKey  = "cache:user:"
)

// PostController serves the timeline: posts and their comments.
type PostController struct {
	content *services.ContentService
}

// NewPostController creates a new PostController instance.
func NewPostController(content *services.ContentService) *PostController {
	return &PostController{content: content}
}

type contentRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req contentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	post, err := p.content.CreatePost(ctx.Request.Context(), actor, req.Content)
	if err != nil {
		respondError(ctx, err, 21)
		return
	}

	utils.CacheDelete(postListCacheKey, userPostsKey(actor.UserID))

	utils.Created(ctx, gin.H{"post": post})
}

// ListPosts returns every post, newest first, with authors and comments.
func (p *PostController) ListPosts(ctx *gin.Context) {
	serveCached(ctx, postListCacheKey, 10*time.Minute, 22, func() (gin.H, error) {
		posts, err := p.content.ListPosts(ctx.Request.Context())
		return gin.H{"items": posts}, err
	})
}

// GetPost returns a single post with comments.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	serveCached(ctx, postDetailKey(id), time.Hour, 1, func() (gin.H, error) {
		post, err := p.content.GetPost(ctx.Request.Context(), id)
		return gin.H{"post": post}, err
	})
}

// ListUserPosts returns posts created by a specific user (public)
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	serveCached(ctx, userPostsKey(id), time.Hour, 60, func() (gin.H, error) {
		posts, err := p.content.PostsByUser(ctx.Request.Context(), id)
		return gin.H{"items": posts}, err
	})
}

// CreateComment allows authenticated users to comment on posts.
func (p *PostController) CreateComment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	postID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req contentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}

	comment, err := p.content.CreateComment(ctx.Request.Context(), actor, postID, req.Content)
	if err != nil {
		respondError(ctx, err, 23)
		return
	}

	p.invalidatePost(postID)
	utils.Created(ctx, gin.H{"comment": comment})
}

// DeleteComment allows the comment owner or admin to delete a comment
func (p *PostController) DeleteComment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	commentID, ok := parseIDParam(ctx, "commentId")
	if !ok {
		return
	}

	comment, err := p.content.DeleteComment(ctx.Request.Context(), actor, commentID)
	if err != nil {
		respondError(ctx, err, 20)
		return
	}

	p.invalidatePost(comment.PostID)
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

// invalidatePost drops every cached view that embeds the post's comments.
// The author's list is keyed by user, so all user lists go.
func (p *PostController) invalidatePost(postID uint) {
	utils.CacheDelete(postDetailKey(postID), postListCacheKey)
	utils.InvalidateByPrefix(userPostsCacheKey)
}

func postDetailKey(id uint) string {
	return postDetailCacheKey + strconv.FormatUint(uint64(id), 10)
}

func userPostsKey(userID uint) string {
	return userPostsCacheKey + strconv.FormatUint(uint64(userID), 10) + ":posts"
}

// serveCached replays a cached envelope or loads, answers and stores a fresh one.
func serveCached(ctx *gin.Context, key string, ttl time.Duration, site int, load func() (gin.H, error)) {
	if b, ok := utils.CacheGetBytes(key); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}
	payload, err := load()
	if err != nil {
		respondError(ctx, err, site)
		return
	}
	utils.CacheSetJSON(key, cacheEnvelope{Code: 0, Message: "success", Data: payload}, ttl)
	utils.Success(ctx, payload)
}
