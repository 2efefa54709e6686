package collections

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mangakeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Collection) error
	GetByID(ctx context.Context, id string) (*models.Collection, error)
	GetByHash(ctx context.Context, hash string) (*models.Collection, error)
	List(ctx context.Context, f models.ListFilter) ([]*models.Collection, error)
	UpdateProgress(ctx context.Context, id string, page int, at time.Time) error
	Delete(ctx context.Context, id string) error
}
