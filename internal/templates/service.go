package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"contest-portal/certificate-portal-backend/internal/render"
)

// Service validates and resolves templates. Resolve is the entry point the
// batch orchestrator uses: it returns the template together with its parsed
// layout so configuration problems surface before any recipient is touched.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ResolvedTemplate pairs a stored template with its drawable layout.
type ResolvedTemplate struct {
	Template *CertTemplate
	Layout   render.Layout
}

// Resolve loads a template and parses its configuration.
func (s *Service) Resolve(ctx context.Context, id uint) (*ResolvedTemplate, error) {
	tpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	layout, err := ParseConfiguration(tpl.Configuration)
	if err != nil {
		return nil, fmt.Errorf("template %d: %w", id, err)
	}
	return &ResolvedTemplate{Template: tpl, Layout: layout}, nil
}

// CreateRequest carries operator input for a new template.
type CreateRequest struct {
	TemplateName  string          `json:"template_name" binding:"required"`
	BasePDFPath   string          `json:"base_pdf_path" binding:"required"`
	Configuration json.RawMessage `json:"configuration" binding:"required"`
	TargetType    string          `json:"target_type"`
}

// Create validates the configuration up front so broken templates are
// rejected at authoring time, not at batch time.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CertTemplate, error) {
	if _, err := ParseConfiguration(req.Configuration); err != nil {
		return nil, err
	}

	targetType := req.TargetType
	if targetType == "" {
		targetType = TargetGeneral
	}
	if !slices.Contains(ValidTargetTypes, targetType) {
		return nil, fmt.Errorf("%w: unknown target type %q", ErrInvalidConfiguration, targetType)
	}

	tpl := &CertTemplate{
		TemplateName:  req.TemplateName,
		BasePDFPath:   req.BasePDFPath,
		Configuration: datatypes.JSON(req.Configuration),
		TargetType:    targetType,
		Status:        StatusActive,
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		return nil, err
	}

	s.logger.Info("template created",
		zap.Uint("template_id", tpl.ID),
		zap.String("name", tpl.TemplateName),
		zap.String("target_type", tpl.TargetType))
	return tpl, nil
}

// UpdateRequest carries layout edits. Nil fields are left untouched.
type UpdateRequest struct {
	TemplateName  *string         `json:"template_name"`
	BasePDFPath   *string         `json:"base_pdf_path"`
	Configuration json.RawMessage `json:"configuration"`
	Status        *string         `json:"status"`
}

func (s *Service) Update(ctx context.Context, id uint, req UpdateRequest) (*CertTemplate, error) {
	tpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.TemplateName != nil {
		tpl.TemplateName = *req.TemplateName
	}
	if req.BasePDFPath != nil {
		tpl.BasePDFPath = *req.BasePDFPath
	}
	if req.Configuration != nil {
		if _, err := ParseConfiguration(req.Configuration); err != nil {
			return nil, err
		}
		tpl.Configuration = datatypes.JSON(req.Configuration)
	}
	if req.Status != nil {
		if *req.Status != StatusActive && *req.Status != StatusInactive {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidConfiguration, *req.Status)
		}
		tpl.Status = *req.Status
	}

	if err := s.repo.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*CertTemplate, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, status string) ([]CertTemplate, error) {
	return s.repo.List(ctx, status)
}
