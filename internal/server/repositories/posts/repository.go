package posts

import (
	"context"

	"github.com/dmitrijs2005/feedhub/internal/server/models"
)

// Repository stores posts. Every Select* returns newest first; a limit of
// zero means no limit.
type Repository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	SetPictureName(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error

	SelectAll(ctx context.Context, limit int) ([]*models.Post, error)
	SelectByAuthors(ctx context.Context, authorIDs []string, limit int) ([]*models.Post, error)
	SelectByIDs(ctx context.Context, ids []string) ([]*models.Post, error)

	AddFavoriter(ctx context.Context, postID, userID string) error
	RemoveFavoriter(ctx context.Context, postID, userID string) error
	RepairFavorities(ctx context.Context) (int64, error)
}
