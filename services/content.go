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

// ContentService owns posts and comments.
type ContentService struct {
	db     *gorm.DB
	logger *zap.Logger
	filter *utils.ContentFilter
}

// NewContentService creates a ContentService.
func NewContentService(db *gorm.DB, logger *zap.Logger, filter *utils.ContentFilter) *ContentService {
	return &ContentService{db: db, logger: logger, filter: filter}
}

// CommentView is a comment with its author's username.
type CommentView struct {
	models.Comment
	Author string `json:"author"`
}

// PostView is a post with its author's username and its comments, oldest first.
type PostView struct {
	models.Post
	Author   string        `json:"author"`
	Comments []CommentView `json:"comments"`
}

// CreatePost publishes filtered content as the actor.
func (s *ContentService) CreatePost(ctx context.Context, actor Actor, content string) (*models.Post, error) {
	content = cleanText(s.filter, content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	post := models.Post{UserID: actor.UserID, Content: content}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &post, nil
}

// ListPosts returns every post, newest first, with authors and comments.
func (s *ContentService) ListPosts(ctx context.Context) ([]PostView, error) {
	var posts []models.Post
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return s.assemble(ctx, posts)
}

// PostsByUser returns the posts authored by userID, newest first.
func (s *ContentService) PostsByUser(ctx context.Context, userID uint) ([]PostView, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list user posts: %w", err)
	}
	return s.assemble(ctx, posts)
}

// GetPost loads a single post with its comments.
func (s *ContentService) GetPost(ctx context.Context, id uint) (*PostView, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("load post: %w", err)
	}
	views, err := s.assemble(ctx, []models.Post{post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// CommentsForPost returns the comments on a post, oldest first.
func (s *ContentService) CommentsForPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	byPost, err := s.CommentsForPosts(ctx, []uint{postID})
	if err != nil {
		return nil, err
	}
	return byPost[postID], nil
}

// CommentsForPosts returns comments grouped by post id, each group oldest first.
func (s *ContentService) CommentsForPosts(ctx context.Context, postIDs []uint) (map[uint][]models.Comment, error) {
	out := make(map[uint][]models.Comment, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("post_id IN ?", utils.UniqueUint(postIDs)).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	for _, c := range comments {
		out[c.PostID] = append(out[c.PostID], c)
	}
	return out, nil
}

// CreateComment adds a comment to a post and notifies the post's author.
func (s *ContentService) CreateComment(ctx context.Context, actor Actor, postID uint, content string) (*models.Comment, error) {
	content = cleanText(s.filter, content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	var comment models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		comment = models.Comment{PostID: post.ID, UserID: actor.UserID, Content: content}
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}

		if post.UserID == actor.UserID {
			return nil
		}
		note := models.Notification{
			UserID:  post.UserID,
			Content: fmt.Sprintf("%s commented on your post", actor.Username),
		}
		return tx.Create(&note).Error
	})
	if err != nil {
		if KindOf(err) != KindInternal {
			return nil, err
		}
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return &comment, nil
}

// DeleteComment removes a comment. Only its author or an admin may do so.
func (s *ContentService) DeleteComment(ctx context.Context, actor Actor, commentID uint) (*models.Comment, error) {
	db := s.db.WithContext(ctx)

	var comment models.Comment
	if err := db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("load comment: %w", err)
	}
	if comment.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if err := db.Delete(&models.Comment{}, comment.ID).Error; err != nil {
		return nil, fmt.Errorf("delete comment: %w", err)
	}
	s.logger.Info("comment deleted",
		zap.Uint("comment_id", comment.ID), zap.Uint("by", actor.UserID), zap.Bool("admin", actor.IsAdmin()))
	return &comment, nil
}

func (s *ContentService) assemble(ctx context.Context, posts []models.Post) ([]PostView, error) {
	views := make([]PostView, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	postIDs := make([]uint, len(posts))
	userIDs := make([]uint, 0, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
		userIDs = append(userIDs, p.UserID)
	}
	comments, err := s.CommentsForPosts(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	for _, cs := range comments {
		for _, c := range cs {
			userIDs = append(userIDs, c.UserID)
		}
	}
	names, err := usernames(ctx, s.db, userIDs)
	if err != nil {
		return nil, err
	}

	for i, p := range posts {
		cs := comments[p.ID]
		cv := make([]CommentView, len(cs))
		for j, c := range cs {
			cv[j] = CommentView{Comment: c, Author: names[c.UserID]}
		}
		views[i] = PostView{Post: p, Author: names[p.UserID], Comments: cv}
	}
	return views, nil
}

// usernames resolves user ids to usernames in one query.
func usernames(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]string, error) {
	out := map[uint]string{}
	ids = utils.UniqueUint(ids)
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID       uint
		Username string
	}
	if err := db.WithContext(ctx).Model(&models.User{}).Select("id, username").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load usernames: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r.Username
	}
	return out, nil
}
