package registrations

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chaf-events/backend/config"
	"github.com/chaf-events/backend/internal/categories"
	"github.com/chaf-events/backend/internal/lifecycle"
	"github.com/chaf-events/backend/internal/models"
	"github.com/chaf-events/backend/internal/payments"
	"github.com/chaf-events/backend/pkg/queue"
	"github.com/chaf-events/backend/pkg/response"
)

const trackingGenAttempts = 5

// Handler serves the public registration endpoints.
type Handler struct {
	repo     *Repository
	catRepo  *categories.Repository
	payments *payments.Repository
	queue    *queue.Queue
	cfg      *config.Config
	logger   *zap.Logger
}

// NewHandler creates a registrations handler. q may be nil when email
// notifications are disabled.
func NewHandler(repo *Repository, catRepo *categories.Repository, payRepo *payments.Repository, q *queue.Queue, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, catRepo: catRepo, payments: payRepo, queue: q, cfg: cfg, logger: logger}
}

func (h *Handler) enqueueConfirmation(c *gin.Context, email, trackingNumber string) {
	if h.queue == nil || email == "" {
		return
	}
	err := h.queue.EnqueueEmail(c.Request.Context(), queue.EmailPayload{
		EmailType:      "registration_confirmed",
		TrackingNumber: trackingNumber,
		RecipientEmail: email,
		Subject:        h.cfg.Event.Name + " registration received",
		Body: "Your registration has been received. Keep your tracking number " +
			trackingNumber + " to complete payment and check your status.",
	})
	if err != nil {
		h.logger.Warn("enqueue confirmation email", zap.Error(err))
	}
}

type createSchoolRequest struct {
	SchoolName   string             `json:"school_name" binding:"required"`
	ContactName  string             `json:"contact_name" binding:"required"`
	ContactPhone string             `json:"contact_phone" binding:"required"`
	ContactEmail string             `json:"contact_email"`
	Comments     string             `json:"comments"`
	CategoryIDs  []uuid.UUID        `json:"category_ids" binding:"required"`
	Participants []ParticipantInput `json:"participants" binding:"required"`
}

// CreateSchool registers a school across one or more categories. The fee is
// computed server-side from reference data; client-sent amounts are ignored.
func (h *Handler) CreateSchool(c *gin.Context) {
	var req createSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	cats, err := h.catRepo.MapByIDs(c.Request.Context(), req.CategoryIDs)
	if err != nil {
		h.logger.Error("load categories", zap.Error(err))
		response.Internal(c, "failed to load categories")
		return
	}
	if err := ValidateSchoolRegistration(req.CategoryIDs, req.Participants, cats); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	total, err := ComputeSchoolTotal(req.CategoryIDs, cats)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	reg := &models.Registration{
		SchoolName:   req.SchoolName,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Comments:     req.Comments,
		TotalAmount:  total,
		CategoryIDs:  req.CategoryIDs,
	}
	for _, p := range req.Participants {
		reg.Participants = append(reg.Participants, models.Participant{
			Name: p.Name, Class: p.Class, CategoryID: p.CategoryID,
		})
	}

	// Tracking numbers are random; regenerate on the rare collision.
	for attempt := 0; attempt < trackingGenAttempts; attempt++ {
		reg.TrackingNumber, err = GenerateTrackingNumber()
		if err != nil {
			break
		}
		err = h.repo.CreateSchool(c.Request.Context(), reg)
		if err == nil || !IsUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		h.logger.Error("create school registration", zap.Error(err))
		response.Internal(c, "failed to create registration")
		return
	}

	h.logger.Info("school registration created",
		zap.String("tracking_number", reg.TrackingNumber),
		zap.Int64("total_amount", reg.TotalAmount))
	h.enqueueConfirmation(c, reg.ContactEmail, reg.TrackingNumber)
	response.Created(c, reg)
}

type createIndividualRequest struct {
	FullName    string `json:"full_name" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Email       string `json:"email"`
	Gender      string `json:"gender" binding:"required"`
	State       string `json:"state" binding:"required"`
	LGA         string `json:"lga" binding:"required"`
	Comments    string `json:"comments"`
}

// CreateIndividual registers a single participant at the fixed event fee. A
// phone number already registered returns the existing tracking number
// instead of a duplicate row.
func (h *Handler) CreateIndividual(c *gin.Context) {
	var req createIndividualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if existing, err := h.repo.GetIndividualByPhone(c.Request.Context(), req.PhoneNumber); err == nil {
		response.Conflict(c, "phone_registered", "phone number already registered under "+existing.TrackingNumber)
		return
	} else if !errors.Is(err, lifecycle.ErrNotFound) {
		h.logger.Error("check phone", zap.Error(err))
		response.Internal(c, "failed to create registration")
		return
	}

	reg := &models.IndividualRegistration{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Gender:      req.Gender,
		State:       req.State,
		LGA:         req.LGA,
		Comments:    req.Comments,
		Amount:      h.cfg.Event.IndividualFee,
	}

	var err error
	for attempt := 0; attempt < trackingGenAttempts; attempt++ {
		reg.TrackingNumber, err = GenerateTrackingNumber()
		if err != nil {
			break
		}
		err = h.repo.CreateIndividual(c.Request.Context(), reg)
		if err == nil {
			break
		}
		if IsUniqueViolation(err) {
			// A concurrent request may have claimed the phone number.
			if existing, pErr := h.repo.GetIndividualByPhone(c.Request.Context(), req.PhoneNumber); pErr == nil {
				response.Conflict(c, "phone_registered", "phone number already registered under "+existing.TrackingNumber)
				return
			}
			continue
		}
		break
	}
	if err != nil {
		h.logger.Error("create individual registration", zap.Error(err))
		response.Internal(c, "failed to create registration")
		return
	}

	h.logger.Info("individual registration created",
		zap.String("tracking_number", reg.TrackingNumber))
	h.enqueueConfirmation(c, reg.Email, reg.TrackingNumber)
	response.Created(c, reg)
}

// Lookup returns a registration of either kind by tracking number.
func (h *Handler) Lookup(c *gin.Context) {
	tracking := NormalizeTracking(c.Param("tracking"))

	if reg, err := h.repo.GetSchoolByTracking(c.Request.Context(), tracking); err == nil {
		response.OK(c, gin.H{"kind": models.KindSchool, "registration": reg})
		return
	} else if !errors.Is(err, lifecycle.ErrNotFound) {
		h.logger.Error("lookup registration", zap.Error(err))
		response.Internal(c, "lookup failed")
		return
	}

	reg, err := h.repo.GetIndividualByTracking(c.Request.Context(), tracking)
	if errors.Is(err, lifecycle.ErrNotFound) {
		response.NotFound(c, "registration not found")
		return
	}
	if err != nil {
		h.logger.Error("lookup registration", zap.Error(err))
		response.Internal(c, "lookup failed")
		return
	}
	response.OK(c, gin.H{"kind": models.KindIndividual, "registration": reg})
}

// attestOutcome resolves what an attestation reports and whether a manual
// payment record belongs, from the conditional update result and the row's
// current state when the update did not land. A write that lost to a
// concurrent gateway success must report paid and leave no manual record.
func attestOutcome(changed bool, current lifecycle.State) (status string, record bool) {
	if changed {
		return lifecycle.StatusAwaitingVerification, true
	}
	return current.PaymentStatus, current.PaymentStatus == lifecycle.StatusAwaitingVerification
}

// Attest marks a bank transfer as made, moving the registration to
// awaiting_verification and leaving a manual payment record. Repeating the
// call is harmless.
func (h *Handler) Attest(c *gin.Context) {
	tracking := NormalizeTracking(c.Param("tracking"))

	id, kind, _, amount, state, err := h.repo.FindByTracking(c.Request.Context(), tracking)
	if errors.Is(err, lifecycle.ErrNotFound) {
		response.NotFound(c, "registration not found")
		return
	}
	if err != nil {
		h.logger.Error("attest lookup", zap.Error(err))
		response.Internal(c, "attestation failed")
		return
	}

	if _, _, err := lifecycle.Attest(state); err != nil {
		response.Conflict(c, "not_attestable", "registration is "+state.PaymentStatus+", cannot attest payment")
		return
	}

	changed, err := h.repo.Attest(c.Request.Context(), kind, id)
	if err != nil {
		h.logger.Error("attest update", zap.Error(err))
		response.Internal(c, "attestation failed")
		return
	}
	cur := state
	if !changed {
		// The conditional write lost to a concurrent transition (or this is
		// a repeat attestation). Report the row as it is now.
		_, _, _, _, cur, err = h.repo.FindByTracking(c.Request.Context(), tracking)
		if err != nil {
			h.logger.Error("attest re-read", zap.Error(err))
			response.Internal(c, "attestation failed")
			return
		}
	}
	status, record := attestOutcome(changed, cur)
	if record {
		if err := h.payments.RecordManual(c.Request.Context(), kind, id, tracking, amount); err != nil {
			h.logger.Error("record manual payment", zap.Error(err))
			response.Internal(c, "attestation failed")
			return
		}
	}

	h.logger.Info("payment attested",
		zap.String("tracking_number", tracking),
		zap.String("kind", kind))
	response.OK(c, gin.H{
		"tracking_number": tracking,
		"payment_status":  status,
	})
}

// Dashboard returns the registrant view. Until payment is confirmed and
// admin-verified, the response carries only the processing status, never
// ticket material.
func (h *Handler) Dashboard(c *gin.Context) {
	tracking := NormalizeTracking(c.Param("tracking"))

	if reg, err := h.repo.GetSchoolByTracking(c.Request.Context(), tracking); err == nil {
		state := lifecycle.State{PaymentStatus: reg.PaymentStatus, AdminVerified: reg.AdminVerified}
		if !state.CanAccess() {
			response.Processing(c, reg.TrackingNumber, reg.PaymentStatus)
			return
		}
		response.OK(c, gin.H{"kind": models.KindSchool, "registration": reg, "access": true})
		return
	} else if !errors.Is(err, lifecycle.ErrNotFound) {
		h.logger.Error("dashboard", zap.Error(err))
		response.Internal(c, "dashboard failed")
		return
	}

	reg, err := h.repo.GetIndividualByTracking(c.Request.Context(), tracking)
	if errors.Is(err, lifecycle.ErrNotFound) {
		response.NotFound(c, "registration not found")
		return
	}
	if err != nil {
		h.logger.Error("dashboard", zap.Error(err))
		response.Internal(c, "dashboard failed")
		return
	}
	state := lifecycle.State{PaymentStatus: reg.PaymentStatus, AdminVerified: reg.AdminVerified}
	if !state.CanAccess() {
		response.Processing(c, reg.TrackingNumber, reg.PaymentStatus)
		return
	}
	response.OK(c, gin.H{"kind": models.KindIndividual, "registration": reg, "access": true})
}

type recoverRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// Recover returns the tracking numbers registered to a phone number.
func (h *Handler) Recover(c *gin.Context) {
	var req recoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	numbers, err := h.repo.RecoverByPhone(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		h.logger.Error("recover by phone", zap.Error(err))
		response.Internal(c, "recovery failed")
		return
	}
	if len(numbers) == 0 {
		response.NotFound(c, "no registrations found for that phone number")
		return
	}
	response.OK(c, gin.H{"tracking_numbers": numbers})
}
