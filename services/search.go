package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/socialbbs/models"
)

// SearchService runs substring lookups over users and posts.
type SearchService struct {
	db *gorm.DB
}

// NewSearchService creates a SearchService.
func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{db: db}
}

// SearchResult holds the matches of a search.
type SearchResult struct {
	Users []models.User `json:"users"`
	Posts []models.Post `json:"posts"`
}

// Search matches users by username, bio or location and posts by content.
// Matching follows the database's LIKE semantics and collation.
func (s *SearchService) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	like := "%" + query + "%"
	db := s.db.WithContext(ctx)

	result := SearchResult{Users: []models.User{}, Posts: []models.Post{}}
	if err := db.Where("username LIKE ? OR bio LIKE ? OR location LIKE ?", like, like, like).
		Order("id ASC").Find(&result.Users).Error; err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	if err := db.Where("content LIKE ?", like).
		Order("created_at DESC, id DESC").Find(&result.Posts).Error; err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return &result, nil
}
