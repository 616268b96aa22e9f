package users

import (
	"context"

	"github.com/dmitrijs2005/feedhub/internal/server/models"
)

// SetField names one of the id-set columns on a user row.
type SetField string

const (
	Follows    SetField = "follows"
	Followers  SetField = "followers"
	Favorities SetField = "favorities"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	// Names maps each found id to its display name; unknown ids are absent.
	Names(ctx context.Context, ids []string) (map[string]string, error)

	GetSet(ctx context.Context, id string, field SetField) ([]string, error)
	AddToSet(ctx context.Context, id string, field SetField, value string) error
	RemoveFromSet(ctx context.Context, id string, field SetField, value string) error
	RemoveFromAllSets(ctx context.Context, field SetField, value string) (int64, error)

	UpdateName(ctx context.Context, id, name string) error
	UpdateEmail(ctx context.Context, id, email string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	RepairFollowers(ctx context.Context) (int64, error)
	PruneFavorities(ctx context.Context) (int64, error)
}
