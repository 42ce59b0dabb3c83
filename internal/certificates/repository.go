package certificates

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrCertificateNotFound is returned for lookups that match no certificate.
var ErrCertificateNotFound = errors.New("certificate not found")

type Repository interface {
	Create(ctx context.Context, cert *Certificate) error
	Update(ctx context.Context, cert *Certificate) error
	GetByID(ctx context.Context, id uint) (*Certificate, error)
	// FindByIdentity looks up the regeneration identity (template, IC).
	// A nil result with nil error means no prior certificate exists.
	FindByIdentity(ctx context.Context, templateID uint, icNumber string) (*Certificate, error)
	// ListReady returns READY certificates for a template ordered by
	// contingent then recipient name, the order archives are assembled in.
	ListReady(ctx context.Context, templateID uint) ([]Certificate, error)
	ListFilePaths(ctx context.Context) ([]string, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, cert *Certificate) error {
	return r.db.WithContext(ctx).Create(cert).Error
}

func (r *gormRepository) Update(ctx context.Context, cert *Certificate) error {
	return r.db.WithContext(ctx).Save(cert).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uint) (*Certificate, error) {
	var cert Certificate
	err := r.db.WithContext(ctx).First(&cert, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCertificateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *gormRepository) FindByIdentity(ctx context.Context, templateID uint, icNumber string) (*Certificate, error) {
	var cert Certificate
	err := r.db.WithContext(ctx).
		Where("template_id = ? AND ic_number = ?", templateID, icNumber).
		First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *gormRepository) ListReady(ctx context.Context, templateID uint) ([]Certificate, error) {
	var certs []Certificate
	err := r.db.WithContext(ctx).
		Where("template_id = ? AND status = ? AND file_path <> ''", templateID, StatusReady).
		Order("contingent_name, recipient_name").
		Find(&certs).Error
	return certs, err
}

func (r *gormRepository) ListFilePaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).
		Model(&Certificate{}).
		Where("file_path <> ''").
		Pluck("file_path", &paths).Error
	return paths, err
}
