package admin

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chaf-events/backend/internal/lifecycle"
	"github.com/chaf-events/backend/internal/middleware"
	"github.com/chaf-events/backend/internal/models"
	"github.com/chaf-events/backend/internal/payments"
	"github.com/chaf-events/backend/internal/registrations"
	"github.com/chaf-events/backend/internal/tickets"
	"github.com/chaf-events/backend/pkg/queue"
	"github.com/chaf-events/backend/pkg/response"
)

// Handler serves the staff-facing admin surface: verification queue,
// listings, exports, stats and gate check-in.
type Handler struct {
	regRepo *registrations.Repository
	payRepo *payments.Repository
	tickets *tickets.Service
	queue   *queue.Queue
	logger  *zap.Logger
}

// NewHandler creates an admin handler. q may be nil when email notifications
// are disabled.
func NewHandler(regRepo *registrations.Repository, payRepo *payments.Repository, ticketSvc *tickets.Service, q *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{regRepo: regRepo, payRepo: payRepo, tickets: ticketSvc, queue: q, logger: logger}
}

// ListSchool returns school registrations, optionally filtered by
// ?status=pending|awaiting_verification|paid|failed.
func (h *Handler) ListSchool(c *gin.Context) {
	list, err := h.regRepo.ListSchool(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.logger.Error("list school registrations", zap.Error(err))
		response.Internal(c, "listing failed")
		return
	}
	response.OK(c, gin.H{"registrations": list, "count": len(list)})
}

// ListIndividual returns individual registrations with the same filter.
func (h *Handler) ListIndividual(c *gin.Context) {
	list, err := h.regRepo.ListIndividual(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.logger.Error("list individual registrations", zap.Error(err))
		response.Internal(c, "listing failed")
		return
	}
	response.OK(c, gin.H{"registrations": list, "count": len(list)})
}

type verifyRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

// Verify applies the admin decision on an attested bank transfer. Approve
// moves the registration to paid and verified; reject returns it to pending
// so the registrant can attest again. Repeating a decision is a no-op.
func (h *Handler) Verify(c *gin.Context) {
	kind := c.Param("kind")
	if kind != models.KindSchool && kind != models.KindIndividual {
		response.BadRequest(c, "kind must be school or individual")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	changed, err := h.regRepo.Verify(c.Request.Context(), kind, id, *req.Approve)
	if err != nil {
		h.logger.Error("verify registration", zap.Error(err))
		response.Internal(c, "verification failed")
		return
	}
	if changed {
		if err := h.payRepo.MarkVerified(c.Request.Context(), id, *req.Approve); err != nil {
			h.logger.Error("mark payment record", zap.Error(err))
		}
		if *req.Approve && h.queue != nil {
			if email, tracking, cErr := h.regRepo.ContactByID(c.Request.Context(), kind, id); cErr == nil && email != "" {
				if qErr := h.queue.EnqueueEmail(c.Request.Context(), queue.EmailPayload{
					EmailType:      "payment_verified",
					TrackingNumber: tracking,
					RecipientEmail: email,
					Subject:        "Payment verified",
					Body: "Your payment has been verified. Your ticket is now available " +
						"on your dashboard under tracking number " + tracking + ".",
				}); qErr != nil {
					h.logger.Warn("enqueue verification email", zap.Error(qErr))
				}
			}
		}
		h.logger.Info("registration verified",
			zap.String("kind", kind),
			zap.String("registration_id", id.String()),
			zap.Bool("approved", *req.Approve),
			zap.String("operator", middleware.OperatorName(c)))
	}
	response.OK(c, gin.H{"changed": changed, "approved": *req.Approve})
}

// Stats returns the aggregate dashboard counters.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.regRepo.GetStats(c.Request.Context())
	if err != nil {
		h.logger.Error("stats", zap.Error(err))
		response.Internal(c, "stats failed")
		return
	}
	response.OK(c, stats)
}

// ExportCSV streams registrations of one kind as a CSV download.
func (h *Handler) ExportCSV(c *gin.Context) {
	kind := c.DefaultQuery("kind", models.KindSchool)
	status := c.Query("status")

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-registrations.csv"`, kind))
	w := csv.NewWriter(c.Writer)
	defer w.Flush()

	switch kind {
	case models.KindSchool:
		list, err := h.regRepo.ListSchool(c.Request.Context(), status)
		if err != nil {
			h.logger.Error("export school registrations", zap.Error(err))
			response.Internal(c, "export failed")
			return
		}
		w.Write([]string{"tracking_number", "school_name", "contact_name", "contact_phone",
			"contact_email", "total_amount", "payment_status", "payment_method", "admin_verified", "created_at"})
		for _, reg := range list {
			w.Write([]string{
				reg.TrackingNumber, reg.SchoolName, reg.ContactName, reg.ContactPhone,
				reg.ContactEmail, strconv.FormatInt(reg.TotalAmount, 10),
				reg.PaymentStatus, reg.PaymentMethod, strconv.FormatBool(reg.AdminVerified),
				reg.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
	case models.KindIndividual:
		list, err := h.regRepo.ListIndividual(c.Request.Context(), status)
		if err != nil {
			h.logger.Error("export individual registrations", zap.Error(err))
			response.Internal(c, "export failed")
			return
		}
		w.Write([]string{"tracking_number", "full_name", "phone_number", "email",
			"gender", "state", "lga", "amount", "payment_status", "admin_verified", "created_at"})
		for _, reg := range list {
			w.Write([]string{
				reg.TrackingNumber, reg.FullName, reg.PhoneNumber, reg.Email,
				reg.Gender, reg.State, reg.LGA, strconv.FormatInt(reg.Amount, 10),
				reg.PaymentStatus, strconv.FormatBool(reg.AdminVerified),
				reg.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
	default:
		response.BadRequest(c, "kind must be school or individual")
	}
}

type checkInRequest struct {
	TicketNumber string `json:"ticket_number" binding:"required"`
}

// CheckIn marks a ticket as used at the gate. The operator identity comes
// from the JWT, never the request body.
func (h *Handler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	t, kind, err := h.tickets.CheckIn(c.Request.Context(), req.TicketNumber, middleware.OperatorName(c))
	switch {
	case err == nil:
		if kind == models.KindIndividual && h.queue != nil {
			if tracking, ok := tickets.TrackingFromTicketNumber(t.TicketNumber); ok {
				if qErr := h.queue.EnqueueCertificatePDF(c.Request.Context(), queue.CertificatePDFPayload{
					TrackingNumber: tracking,
				}); qErr != nil {
					h.logger.Warn("enqueue certificate pdf", zap.Error(qErr))
				}
			}
		}
		response.OK(c, gin.H{"kind": kind, "ticket": t})
	case errors.Is(err, lifecycle.ErrNotFound):
		response.NotFound(c, "ticket not found")
	case errors.Is(err, lifecycle.ErrAlreadyCheckedIn):
		msg := "ticket already checked in"
		if t != nil && t.CheckedInAt != nil {
			msg = fmt.Sprintf("ticket already checked in at %s by %s",
				t.CheckedInAt.Format("15:04:05"), t.CheckedInBy)
		}
		response.Conflict(c, "already_checked_in", msg)
	case errors.Is(err, lifecycle.ErrNotVerified):
		response.UnprocessableEntity(c, "not_verified", "payment not confirmed and verified")
	default:
		h.logger.Error("check-in", zap.Error(err))
		response.Internal(c, "check-in failed")
	}
}

// TicketLookup resolves a scanned ticket number for the gate UI without
// consuming the ticket.
func (h *Handler) TicketLookup(c *gin.Context) {
	number := c.Param("number")
	t, kind, err := h.tickets.Lookup(c.Request.Context(), number)
	if errors.Is(err, lifecycle.ErrNotFound) {
		response.NotFound(c, "ticket not found")
		return
	}
	if err != nil {
		h.logger.Error("ticket lookup", zap.Error(err))
		response.Internal(c, "lookup failed")
		return
	}
	response.OK(c, gin.H{"kind": kind, "ticket": t})
}
