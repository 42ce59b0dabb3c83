package templates

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrTemplateNotFound is returned for lookups of unknown template IDs.
var ErrTemplateNotFound = errors.New("template not found")

type Repository interface {
	Create(ctx context.Context, tpl *CertTemplate) error
	GetByID(ctx context.Context, id uint) (*CertTemplate, error)
	List(ctx context.Context, status string) ([]CertTemplate, error)
	Update(ctx context.Context, tpl *CertTemplate) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, tpl *CertTemplate) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uint) (*CertTemplate, error) {
	var tpl CertTemplate
	err := r.db.WithContext(ctx).First(&tpl, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *gormRepository) List(ctx context.Context, status string) ([]CertTemplate, error) {
	var tpls []CertTemplate
	q := r.db.WithContext(ctx).Order("id")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return tpls, q.Find(&tpls).Error
}

func (r *gormRepository) Update(ctx context.Context, tpl *CertTemplate) error {
	return r.db.WithContext(ctx).Save(tpl).Error
}
