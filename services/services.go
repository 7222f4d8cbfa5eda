package services

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/socialbbs/storage"
	"github.com/cppla/socialbbs/utils"
)

// Services bundles every domain service behind the HTTP layer.
type Services struct {
	Identity  *IdentityService
	Content   *ContentService
	Messaging *MessagingService
	Groups    *GroupService
	Search    *SearchService
	Files     *FileService
}

// Options carries the collaborators shared by the services.
type Options struct {
	Identity       IdentityOptions
	Filter         *utils.ContentFilter
	Store          storage.BlobStore
	MaxUploadBytes int64
	Clock          Clock
}

// New wires all services against one database handle.
func New(db *gorm.DB, logger *zap.Logger, opts Options) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Identity.Clock == nil {
		opts.Identity.Clock = opts.Clock
	}
	return &Services{
		Identity:  NewIdentityService(db, logger.Named("identity"), opts.Identity),
		Content:   NewContentService(db, logger.Named("content"), opts.Filter),
		Messaging: NewMessagingService(db, logger.Named("messaging"), opts.Filter, opts.Clock),
		Groups:    NewGroupService(db, logger.Named("groups"), opts.Clock),
		Search:    NewSearchService(db),
		Files:     NewFileService(db, logger.Named("files"), opts.Store, opts.MaxUploadBytes, opts.Clock),
	}
}
