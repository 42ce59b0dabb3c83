package recipients

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrRecipientNotFound is returned for lookups of unknown recipient IDs.
var ErrRecipientNotFound = errors.New("recipient not found")

type Repository interface {
	GetByID(ctx context.Context, id uint) (*Recipient, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetByID(ctx context.Context, id uint) (*Recipient, error) {
	var rec Recipient
	err := r.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecipientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
