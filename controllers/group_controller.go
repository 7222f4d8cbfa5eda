package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/socialbbs/services"
	"github.com/cppla/socialbbs/utils"
)

// GroupController manages groups and memberships.
type GroupController struct {
	groups *services.GroupService
}

// NewGroupController creates a GroupController.
func NewGroupController(groups *services.GroupService) *GroupController {
	return &GroupController{groups: groups}
}

type createGroupRequest struct {
	Name        string `json:"name" binding:"required,max=128"`
	Description string `json:"description" binding:"max=1000"`
}

// Create makes a new group owned by the current user.
func (g *GroupController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req createGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid request payload")
		return
	}
	group, err := g.groups.CreateGroup(ctx.Request.Context(), actor, req.Name, req.Description)
	if err != nil {
		respondError(ctx, err, 71)
		return
	}
	utils.Created(ctx, gin.H{"group": group})
}

// List returns all groups.
func (g *GroupController) List(ctx *gin.Context) {
	groups, err := g.groups.ListGroups(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, 72)
		return
	}
	utils.Success(ctx, gin.H{"items": groups})
}

// Get returns one group.
func (g *GroupController) Get(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	group, err := g.groups.GetGroup(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, 73)
		return
	}
	utils.Success(ctx, gin.H{"group": group})
}

// Members lists a group's members.
func (g *GroupController) Members(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	users, err := g.groups.Members(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, 74)
		return
	}
	utils.Success(ctx, gin.H{"items": userList(users)})
}

// Join adds the current user to a group.
func (g *GroupController) Join(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	member, err := g.groups.JoinGroup(ctx.Request.Context(), actor, id)
	if err != nil {
		respondError(ctx, err, 75)
		return
	}
	utils.Created(ctx, gin.H{"membership": member})
}

// Leave removes the current user from a group.
func (g *GroupController) Leave(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := g.groups.LeaveGroup(ctx.Request.Context(), actor, id); err != nil {
		respondError(ctx, err, 76)
		return
	}
	utils.Success(ctx, gin.H{"message": "left group"})
}

// Mine lists the groups the current user belongs to.
func (g *GroupController) Mine(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	groups, err := g.groups.GroupsForUser(ctx.Request.Context(), actor.UserID)
	if err != nil {
		respondError(ctx, err, 77)
		return
	}
	utils.Success(ctx, gin.H{"items": groups})
}
