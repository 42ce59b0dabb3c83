package certificates

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contest-portal/certificate-portal-backend/internal/archive"
	"contest-portal/certificate-portal-backend/internal/templates"
)

type Handler struct {
	service  *Service
	composer *archive.Composer
	logger   *zap.Logger
}

func NewHandler(service *Service, composer *archive.Composer, logger *zap.Logger) *Handler {
	return &Handler{service: service, composer: composer, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/templates/:id/bulk-generate", h.BulkGenerate)
	rg.POST("/templates/:id/bulk-download", h.BulkDownload)
	rg.GET("/templates/:id/sample", h.Sample)
	rg.GET("/templates/:id/serial-preview", h.SerialPreview)
	rg.GET("/certificates/:id/download", h.Download)
}

type bulkGenerateRequest struct {
	RecipientIDs []uint `json:"recipient_ids" binding:"required,min=1"`
}

func (h *Handler) BulkGenerate(c *gin.Context) {
	templateID, ok := pathID(c)
	if !ok {
		return
	}

	var req bulkGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.RunBatch(c.Request.Context(), templateID, req.RecipientIDs)
	switch {
	case errors.Is(err, ErrBatchTotalFailure):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "result": result})
	case errors.Is(err, templates.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, templates.ErrInvalidConfiguration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		h.logger.Error("bulk generate failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "bulk generation failed"})
	default:
		c.JSON(http.StatusOK, result)
	}
}

type bulkDownloadRequest struct {
	MergingType  string `json:"merging_type" binding:"required"`
	DownloadType string `json:"download_type"`
	MergeEveryN  int    `json:"merge_every_n"`
}

// BulkDownload streams a zip of every READY certificate for the template,
// composed per the requested merging type.
func (h *Handler) BulkDownload(c *gin.Context) {
	templateID, ok := pathID(c)
	if !ok {
		return
	}

	var req bulkDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts, err := composeOptions(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	certs, err := h.service.ListReady(c.Request.Context(), templateID)
	if err != nil {
		h.logger.Error("listing certificates failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing certificates failed"})
		return
	}
	if len(certs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no certificates ready for download"})
		return
	}

	items := make([]archive.Item, len(certs))
	for i, cert := range certs {
		items[i] = archive.Item{
			Path:           cert.FilePath,
			RecipientName:  cert.RecipientName,
			ContingentName: cert.ContingentName,
			StateName:      cert.StateName,
		}
		if cert.SerialNumber != nil {
			items[i].SerialNumber = *cert.SerialNumber
		}
	}

	filename := fmt.Sprintf("certificates-template-%d.zip", templateID)
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	if _, err := h.composer.Compose(c.Request.Context(), c.Writer, items, opts); err != nil {
		// Headers are already out; all we can do is cut the stream.
		h.logger.Error("archive composition failed",
			zap.Uint("template_id", templateID),
			zap.Error(err))
		c.Abort()
	}
}

func composeOptions(req bulkDownloadRequest) (archive.Options, error) {
	var opts archive.Options
	switch req.MergingType {
	case "split":
		opts.Strategy = archive.StrategySplit
	case "merge_all":
		opts.Strategy = archive.StrategyMergeAll
	case "merge_by_contingent":
		opts.Strategy = archive.StrategyMergeByGroup
		opts.GroupKey = func(it archive.Item) string { return it.ContingentName }
	case "merge_by_state":
		opts.Strategy = archive.StrategyMergeByGroup
		opts.GroupKey = func(it archive.Item) string { return it.StateName }
	case "merge_every_n":
		if req.MergeEveryN < 1 {
			return archive.Options{}, errors.New("merge_every_n must be at least 1")
		}
		opts.Strategy = archive.StrategyMergeEveryN
		opts.MergeEveryN = req.MergeEveryN
	default:
		return archive.Options{}, fmt.Errorf("unknown merging_type %q", req.MergingType)
	}

	switch req.DownloadType {
	case "", "flat":
	case "contingent_folders":
		opts.FolderKey = func(it archive.Item) string { return it.ContingentName }
	case "state_folders":
		opts.FolderKey = func(it archive.Item) string { return it.StateName }
	default:
		return archive.Options{}, fmt.Errorf("unknown download_type %q", req.DownloadType)
	}
	return opts, nil
}

// Sample renders a preview certificate with placeholder data.
func (h *Handler) Sample(c *gin.Context) {
	templateID, ok := pathID(c)
	if !ok {
		return
	}

	pdfBytes, err := h.service.GenerateSample(c.Request.Context(), templateID)
	switch {
	case errors.Is(err, templates.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, templates.ErrInvalidConfiguration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		h.logger.Error("sample render failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sample render failed"})
	default:
		c.Header("Content-Disposition", `inline; filename="sample.pdf"`)
		c.Data(http.StatusOK, "application/pdf", pdfBytes)
	}
}

func (h *Handler) SerialPreview(c *gin.Context) {
	templateID, ok := pathID(c)
	if !ok {
		return
	}

	serial, err := h.service.PreviewSerial(c.Request.Context(), templateID)
	if errors.Is(err, templates.ErrTemplateNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "serial preview failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"serial_number": serial})
}

// Download serves one certificate file and records the DOWNLOADED
// transition.
func (h *Handler) Download(c *gin.Context) {
	certID, ok := pathID(c)
	if !ok {
		return
	}

	cert, err := h.service.MarkDownloaded(c.Request.Context(), certID)
	if errors.Is(err, ErrCertificateNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("certificate download failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "certificate download failed"})
		return
	}
	if cert.FilePath == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "certificate has no rendered file"})
		return
	}

	filename := fmt.Sprintf("certificate-%d.pdf", cert.ID)
	if cert.SerialNumber != nil {
		filename = fmt.Sprintf("certificate-%s.pdf", sanitizePathComponent(*cert.SerialNumber))
	}
	c.FileAttachment(cert.FilePath, filename)
}

func sanitizePathComponent(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
