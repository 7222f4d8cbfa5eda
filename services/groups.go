package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/socialbbs/models"
	"github.com/cppla/socialbbs/utils"
)

// GroupService owns groups and their memberships.
type GroupService struct {
	db     *gorm.DB
	logger *zap.Logger
	clock  Clock
}

// NewGroupService creates a GroupService.
func NewGroupService(db *gorm.DB, logger *zap.Logger, clock Clock) *GroupService {
	return &GroupService{db: db, logger: logger, clock: clock}
}

// CreateGroup creates a group and enrolls its creator as the first member.
func (s *GroupService) CreateGroup(ctx context.Context, actor Actor, name, description string) (*models.Group, error) {
	name = utils.StripTags(name)
	if name == "" {
		return nil, ErrGroupNameRequired
	}

	group := models.Group{
		Name:        name,
		Description: utils.StripTags(description),
		CreatorID:   actor.UserID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&models.GroupMember{
			UserID:   actor.UserID,
			GroupID:  group.ID,
			JoinedAt: s.clock.now(),
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return &group, nil
}

// ListGroups returns every group in creation order.
func (s *GroupService) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// GetGroup loads a group by id.
func (s *GroupService) GetGroup(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("load group: %w", err)
	}
	return &group, nil
}

// GroupsForUser returns the groups userID belongs to, in join order.
func (s *GroupService) GroupsForUser(ctx context.Context, userID uint) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.WithContext(ctx).
		Joins("JOIN group_members ON group_members.group_id = social_groups.id").
		Where("group_members.user_id = ?", userID).
		Order("group_members.joined_at ASC, social_groups.id ASC").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	return groups, nil
}

// Members returns the users in a group, in join order.
func (s *GroupService) Members(ctx context.Context, groupID uint) ([]models.User, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	var users []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN group_members ON group_members.user_id = users.id").
		Where("group_members.group_id = ?", groupID).
		Order("group_members.joined_at ASC, users.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return users, nil
}

// JoinGroup adds the actor to a group. The unique (user_id, group_id) index
// rejects a concurrent duplicate that slips past the membership check.
func (s *GroupService) JoinGroup(ctx context.Context, actor Actor, groupID uint) (*models.GroupMember, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.GroupMember{}).Where("user_id = ? AND group_id = ?", actor.UserID, groupID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if count > 0 {
		return nil, ErrAlreadyMember
	}

	member := models.GroupMember{UserID: actor.UserID, GroupID: groupID, JoinedAt: s.clock.now()}
	if err := db.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("join group: %w", err)
	}
	s.logger.Debug("group joined", zap.Uint("group_id", groupID), zap.Uint("user_id", actor.UserID))
	return &member, nil
}

// LeaveGroup removes the actor from a group.
func (s *GroupService) LeaveGroup(ctx context.Context, actor Actor, groupID uint) error {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", actor.UserID, groupID).
		Delete(&models.GroupMember{})
	if res.Error != nil {
		return fmt.Errorf("leave group: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotMember
	}
	return nil
}
