package certificates

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contest-portal/certificate-portal-backend/internal/recipients"
	"contest-portal/certificate-portal-backend/internal/render"
	"contest-portal/certificate-portal-backend/internal/templates"
)

// ErrBatchTotalFailure flags a batch in which no recipient succeeded. It is
// distinct from partial failure (which is still a successful batch with a
// non-empty error list) so callers can short-circuit without inspecting
// counts. The accompanying BatchResult is always populated.
var ErrBatchTotalFailure = errors.New("batch failed for all recipients")

// Renderer is the document renderer the orchestrator drives. Satisfied by
// *render.Renderer; tests substitute mocks.
type Renderer interface {
	Render(basePath string, layout render.Layout, data render.CertificateData) ([]byte, error)
}

// FileStore persists rendered certificate bytes and returns the stored
// path. Satisfied by storage.FileStore.
type FileStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Service is the batch orchestrator: it drives per-recipient generation,
// decides new-vs-regenerate identity reuse, and aggregates partial results.
// Recipient tasks share nothing but the serial allocator, which is
// transaction-protected, so they can run on a bounded worker pool.
type Service struct {
	templates  *templates.Service
	recipients recipients.Repository
	repo       Repository
	allocator  *Allocator
	renderer   Renderer
	files      FileStore
	assetDir   string
	workers    int
	logger     *zap.Logger
}

func NewService(
	tpls *templates.Service,
	recs recipients.Repository,
	repo Repository,
	allocator *Allocator,
	renderer Renderer,
	files FileStore,
	assetDir string,
	workers int,
	logger *zap.Logger,
) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		templates:  tpls,
		recipients: recs,
		repo:       repo,
		allocator:  allocator,
		renderer:   renderer,
		files:      files,
		assetDir:   assetDir,
		workers:    workers,
		logger:     logger,
	}
}

type outcome struct {
	recipientID uint
	updated     bool
	err         error
}

// RunBatch generates or regenerates one certificate per recipient. One
// recipient's failure never aborts the batch; the result carries
// generated/updated/failed counts plus per-recipient errors in input order.
// A template-level configuration problem aborts immediately with no partial
// processing. Cancellation is honored between recipients; an in-flight
// render runs to completion.
func (s *Service) RunBatch(ctx context.Context, templateID uint, recipientIDs []uint) (*BatchResult, error) {
	resolved, err := s.templates.Resolve(ctx, templateID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("starting certificate batch",
		zap.Uint("template_id", templateID),
		zap.Int("recipients", len(recipientIDs)),
		zap.Int("workers", s.workers))

	outcomes := make([]outcome, len(recipientIDs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := s.workers
	if workers > len(recipientIDs) {
		workers = len(recipientIDs)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				id := recipientIDs[idx]
				if ctxErr := ctx.Err(); ctxErr != nil {
					outcomes[idx] = outcome{recipientID: id, err: fmt.Errorf("batch cancelled: %w", ctxErr)}
					continue
				}
				updated, err := s.processRecipient(ctx, resolved, id)
				outcomes[idx] = outcome{recipientID: id, updated: updated, err: err}
			}
		}()
	}
	for idx := range recipientIDs {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	result := &BatchResult{}
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, BatchError{RecipientID: o.recipientID, Message: o.err.Error()})
			s.logger.Warn("certificate generation failed",
				zap.Uint("recipient_id", o.recipientID),
				zap.Error(o.err))
		case o.updated:
			result.Updated++
		default:
			result.Generated++
		}
	}

	s.logger.Info("certificate batch finished",
		zap.Uint("template_id", templateID),
		zap.Int("generated", result.Generated),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed))

	if len(recipientIDs) > 0 && result.Succeeded() == 0 {
		return result, ErrBatchTotalFailure
	}
	return result, nil
}

// processRecipient is one independent unit of work: resolve display data,
// settle identifiers, render, persist.
func (s *Service) processRecipient(ctx context.Context, resolved *templates.ResolvedTemplate, recipientID uint) (updated bool, err error) {
	rec, err := s.recipients.GetByID(ctx, recipientID)
	if err != nil {
		return false, err
	}

	tpl := resolved.Template
	existing, err := s.repo.FindByIdentity(ctx, tpl.ID, rec.ICNumber)
	if err != nil {
		return false, err
	}

	var uniqueCode string
	var serialNumber *string
	if existing != nil {
		// Regeneration preserves the identifiers; only content and the
		// file reference are replaced.
		uniqueCode = existing.UniqueCode
		serialNumber = existing.SerialNumber
	} else {
		uniqueCode = mintUniqueCode()
		serial, allocErr := s.allocator.Next(ctx, tpl.ID, tpl.TargetType, 0)
		if allocErr != nil {
			return false, allocErr
		}
		serialNumber = &serial
	}

	now := time.Now()
	contestName := strings.TrimSpace(rec.ContestCode + " " + rec.ContestName)
	data := render.CertificateData{
		RecipientName:   rec.Name,
		RecipientEmail:  rec.Email,
		ContingentName:  rec.ContingentName,
		TeamName:        rec.TeamName,
		ICNumber:        rec.ICNumber,
		ContestCode:     rec.ContestCode,
		ContestName:     contestName,
		InstitutionName: rec.InstitutionName,
		EventName:       rec.EventName,
		UniqueCode:      uniqueCode,
		IssuedAt:        now,
	}
	if serialNumber != nil {
		data.SerialNumber = *serialNumber
	}
	if existing != nil && existing.AwardTitle != nil {
		data.AwardTitle = *existing.AwardTitle
	}

	pdfBytes, err := s.renderer.Render(s.assetPath(tpl.BasePDFPath), resolved.Layout, data)
	if err != nil {
		return false, err
	}

	cert := existing
	if cert == nil {
		cert = &Certificate{
			TemplateID: tpl.ID,
			ICNumber:   rec.ICNumber,
			UniqueCode: uniqueCode,
			Status:     StatusDraft,
		}
		if err := s.repo.Create(ctx, cert); err != nil {
			return false, err
		}
	}

	path, err := s.files.Save(ctx, fmt.Sprintf("cert-%d-%d.pdf", cert.ID, now.UnixMilli()), pdfBytes)
	if err != nil {
		return existing != nil, err
	}

	cert.RecipientID = rec.ID
	cert.RecipientName = rec.Name
	cert.RecipientEmail = rec.Email
	cert.ContingentName = rec.ContingentName
	cert.TeamName = rec.TeamName
	cert.ContestName = contestName
	cert.StateName = rec.StateName
	cert.SerialNumber = serialNumber
	cert.FilePath = path
	cert.Status = StatusReady
	cert.IssuedAt = &now
	if err := s.repo.Update(ctx, cert); err != nil {
		return existing != nil, err
	}

	return existing != nil, nil
}

func (s *Service) assetPath(basePDFPath string) string {
	return filepath.Join(s.assetDir, strings.TrimPrefix(basePDFPath, "/"))
}

// mintUniqueCode produces the opaque, globally unique lookup code for a new
// certificate. Serial numbers are a separate, human-facing concern.
func mintUniqueCode() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("CERT-%d-%s", time.Now().UnixMilli(), suffix)
}

// GenerateSample renders one certificate with placeholder data for template
// preview. Nothing is allocated or persisted.
func (s *Service) GenerateSample(ctx context.Context, templateID uint) ([]byte, error) {
	resolved, err := s.templates.Resolve(ctx, templateID)
	if err != nil {
		return nil, err
	}

	data := render.CertificateData{
		RecipientName:   "Sample Recipient",
		ContingentName:  "Sample Contingent",
		TeamName:        "Sample Team",
		ICNumber:        "000000-00-0000",
		ContestName:     "Sample Contest",
		InstitutionName: "Sample Institution",
		EventName:       "Sample Event",
		UniqueCode:      "CERT-SAMPLE-00000000",
		SerialNumber:    s.samplePreviewSerial(ctx, resolved),
		IssuedAt:        time.Now(),
	}
	return s.renderer.Render(s.assetPath(resolved.Template.BasePDFPath), resolved.Layout, data)
}

func (s *Service) samplePreviewSerial(ctx context.Context, resolved *templates.ResolvedTemplate) string {
	serial, err := s.allocator.Preview(ctx, resolved.Template.ID, resolved.Template.TargetType, 0)
	if err != nil {
		return ""
	}
	return serial
}

// PreviewSerial formats the serial the next allocation for the template
// would produce. Read-only; no sequence number is consumed.
func (s *Service) PreviewSerial(ctx context.Context, templateID uint) (string, error) {
	tpl, err := s.templates.Get(ctx, templateID)
	if err != nil {
		return "", err
	}
	return s.allocator.Preview(ctx, tpl.ID, tpl.TargetType, 0)
}

// MarkDownloaded transitions a certificate to DOWNLOADED and returns it.
func (s *Service) MarkDownloaded(ctx context.Context, id uint) (*Certificate, error) {
	cert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cert.Status == StatusReady || cert.Status == StatusSent {
		cert.Status = StatusDownloaded
		if err := s.repo.Update(ctx, cert); err != nil {
			return nil, err
		}
	}
	return cert, nil
}

// ListReady exposes the archive composer's source set.
func (s *Service) ListReady(ctx context.Context, templateID uint) ([]Certificate, error) {
	return s.repo.ListReady(ctx, templateID)
}
