package tickets

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chaf-events/backend/internal/lifecycle"
	"github.com/chaf-events/backend/internal/models"
	"github.com/chaf-events/backend/internal/registrations"
	"github.com/chaf-events/backend/pkg/queue"
	"github.com/chaf-events/backend/pkg/response"
	"github.com/chaf-events/backend/pkg/storage"
)

// Handler serves the registrant-facing ticket and certificate endpoints.
type Handler struct {
	service *Service
	regRepo *registrations.Repository
	queue   *queue.Queue
	s3      *storage.S3
	logger  *zap.Logger
}

// NewHandler creates a tickets handler. queue and s3 may be nil when
// background rendering is disabled.
func NewHandler(service *Service, regRepo *registrations.Repository, q *queue.Queue, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{service: service, regRepo: regRepo, queue: q, s3: s3, logger: logger}
}

func (h *Handler) writeIssueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		response.NotFound(c, "registration not found")
	case errors.Is(err, lifecycle.ErrNotEligible):
		response.UnprocessableEntity(c, "not_verified", "payment not confirmed and verified yet")
	default:
		h.logger.Error("ticket issue", zap.Error(err))
		response.Internal(c, "ticket issue failed")
	}
}

// Get returns the master ticket for a tracking number, minting it on first
// access and queueing the PDF render.
func (h *Handler) Get(c *gin.Context) {
	tracking := registrations.NormalizeTracking(c.Param("tracking"))

	t, kind, err := h.service.Issue(c.Request.Context(), tracking)
	if err != nil {
		h.writeIssueError(c, err)
		return
	}

	if h.queue != nil && t.PDFURL == "" {
		if err := h.queue.EnqueueTicketPDF(c.Request.Context(), queue.TicketPDFPayload{
			TrackingNumber:   tracking,
			RegistrationKind: kind,
		}); err != nil {
			h.logger.Warn("enqueue ticket pdf", zap.Error(err))
		}
	}

	body := gin.H{"kind": kind, "ticket": t}
	// The bucket is private; hand out a time-limited link once the worker
	// has rendered the PDF.
	if h.s3 != nil && t.PDFURL != "" {
		url, pErr := h.s3.GeneratePresignedDownloadURL(c.Request.Context(),
			storage.TicketKey(tracking), h.s3.PresignExpire())
		if pErr != nil {
			h.logger.Warn("presign ticket pdf", zap.Error(pErr))
		} else {
			body["pdf_download_url"] = url
		}
	}
	response.OK(c, body)
}

// PDF renders the master ticket inline, for immediate download without
// waiting on the background worker.
func (h *Handler) PDF(c *gin.Context) {
	tracking := registrations.NormalizeTracking(c.Param("tracking"))

	t, kind, err := h.service.Issue(c.Request.Context(), tracking)
	if err != nil {
		h.writeIssueError(c, err)
		return
	}

	holder := ""
	switch kind {
	case models.KindSchool:
		reg, rErr := h.regRepo.GetSchoolByTracking(c.Request.Context(), tracking)
		if rErr != nil {
			h.logger.Error("ticket pdf lookup", zap.Error(rErr))
			response.Internal(c, "ticket pdf failed")
			return
		}
		holder = reg.SchoolName
	case models.KindIndividual:
		reg, rErr := h.regRepo.GetIndividualByTracking(c.Request.Context(), tracking)
		if rErr != nil {
			h.logger.Error("ticket pdf lookup", zap.Error(rErr))
			response.Internal(c, "ticket pdf failed")
			return
		}
		holder = reg.FullName
	}

	pdfBytes, err := RenderTicketPDF(t, TicketDetails{
		EventName:  h.service.eventName,
		HolderName: holder,
		Kind:       kind,
		Tracking:   tracking,
	})
	if err != nil {
		h.logger.Error("ticket pdf render", zap.Error(err))
		response.Internal(c, "ticket pdf failed")
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+t.TicketNumber+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

type holderRequest struct {
	CategoryID uuid.UUID `json:"category_id" binding:"required"`
	Name       string    `json:"name" binding:"required"`
	Role       string    `json:"role"`
}

// CreateHolder mints a named holder ticket within a school registration.
func (h *Handler) CreateHolder(c *gin.Context) {
	tracking := registrations.NormalizeTracking(c.Param("tracking"))

	var req holderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Role == "" {
		req.Role = "participant"
	}

	t, err := h.service.IssueHolder(c.Request.Context(), tracking, req.CategoryID, req.Name, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrNotFound):
			response.NotFound(c, "registration or category not found")
		case errors.Is(err, lifecycle.ErrNotEligible):
			response.UnprocessableEntity(c, "not_verified", "payment not confirmed and verified yet")
		default:
			response.BadRequest(c, err.Error())
		}
		return
	}
	response.Created(c, t)
}

// ListHolders returns the holder tickets of a school registration.
func (h *Handler) ListHolders(c *gin.Context) {
	tracking := registrations.NormalizeTracking(c.Param("tracking"))

	list, err := h.service.Holders(c.Request.Context(), tracking)
	if err != nil {
		h.writeIssueError(c, err)
		return
	}
	response.OK(c, gin.H{"holders": list})
}

// Certificate returns the participation certificate data for an individual
// registrant who has checked in.
func (h *Handler) Certificate(c *gin.Context) {
	tracking := registrations.NormalizeTracking(c.Param("tracking"))

	cert, err := h.service.Certificate(c.Request.Context(), tracking)
	if err != nil {
		h.writeCertificateError(c, err)
		return
	}
	response.OK(c, cert)
}

// CertificatePDF renders the certificate as a downloadable PDF.
func (h *Handler) CertificatePDF(c *gin.Context) {
	tracking := registrations.NormalizeTracking(c.Param("tracking"))

	cert, err := h.service.Certificate(c.Request.Context(), tracking)
	if err != nil {
		h.writeCertificateError(c, err)
		return
	}
	pdfBytes, err := RenderCertificatePDF(cert)
	if err != nil {
		h.logger.Error("certificate pdf render", zap.Error(err))
		response.Internal(c, "certificate pdf failed")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="certificate-`+cert.TrackingNumber+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func (h *Handler) writeCertificateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		response.NotFound(c, "registration not found")
	case errors.Is(err, lifecycle.ErrNotEligible):
		response.UnprocessableEntity(c, "not_verified", "payment not confirmed and verified yet")
	case errors.Is(err, lifecycle.ErrNotYetEligible):
		response.UnprocessableEntity(c, "not_checked_in", "certificate is available after event check-in")
	default:
		h.logger.Error("certificate", zap.Error(err))
		response.Internal(c, "certificate failed")
	}
}
