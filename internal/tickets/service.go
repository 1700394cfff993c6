package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chaf-events/backend/internal/lifecycle"
	"github.com/chaf-events/backend/internal/models"
)

// Store is the persistence surface the ticket service needs. Mint must be
// idempotent on registration id; ClaimCheckIn must be a single conditional
// write whose return value is authoritative under concurrency.
type Store interface {
	GetByRegistration(ctx context.Context, kind string, registrationID uuid.UUID) (*models.Ticket, error)
	GetByTicketNumber(ctx context.Context, ticketNumber string) (*models.Ticket, string, error)
	Mint(ctx context.Context, kind string, t *models.Ticket) (*models.Ticket, error)
	ClaimCheckIn(ctx context.Context, kind string, ticketID uuid.UUID, operator string) (bool, error)
	RegistrationState(ctx context.Context, kind string, registrationID uuid.UUID) (lifecycle.State, string, error)

	MintHolder(ctx context.Context, t *models.CustomTicket) (*models.CustomTicket, error)
	ListHolders(ctx context.Context, registrationID uuid.UUID) ([]models.CustomTicket, error)
	SetPDFURL(ctx context.Context, kind string, ticketID uuid.UUID, url string) error
}

// RegistrationResolver resolves a tracking number of either kind.
type RegistrationResolver interface {
	FindByTracking(ctx context.Context, trackingNumber string) (uuid.UUID, string, string, int64, lifecycle.State, error)
}

// IndividualSource fetches the individual registration details the
// certificate projection needs.
type IndividualSource interface {
	GetIndividualByTracking(ctx context.Context, trackingNumber string) (*models.IndividualRegistration, error)
}

// CategorySource resolves category reference data for holder tickets.
type CategorySource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// Service issues tickets lazily and performs check-ins. Tickets exist only
// for registrations that are paid and admin-verified; minting on first
// access rather than on verification keeps the two concerns independent.
type Service struct {
	store       Store
	resolver    RegistrationResolver
	individuals IndividualSource
	categories  CategorySource
	eventName   string
	logger      *zap.Logger
}

// NewService creates a ticket service.
func NewService(store Store, resolver RegistrationResolver, individuals IndividualSource, categories CategorySource, eventName string, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		resolver:    resolver,
		individuals: individuals,
		categories:  categories,
		eventName:   eventName,
		logger:      logger,
	}
}

// Issue returns the master ticket for a tracking number, minting it on first
// access. Requires the registration to be paid and admin-verified.
func (s *Service) Issue(ctx context.Context, trackingNumber string) (*models.Ticket, string, error) {
	regID, kind, _, _, state, err := s.resolver.FindByTracking(ctx, trackingNumber)
	if err != nil {
		return nil, "", err
	}
	if !state.CanAccess() {
		return nil, kind, lifecycle.ErrNotEligible
	}

	if t, err := s.store.GetByRegistration(ctx, kind, regID); err == nil {
		return t, kind, nil
	} else if !errors.Is(err, lifecycle.ErrNotFound) {
		return nil, kind, err
	}

	qr, err := EncodeQRPayload(QRPayload{
		TicketNumber:   DeriveTicketNumber(trackingNumber),
		TrackingNumber: trackingNumber,
		Kind:           kind,
		Event:          s.eventName,
	})
	if err != nil {
		return nil, kind, err
	}
	t, err := s.store.Mint(ctx, kind, &models.Ticket{
		RegistrationID: regID,
		TicketNumber:   DeriveTicketNumber(trackingNumber),
		QRCode:         qr,
		Status:         models.TicketStatusActive,
	})
	if err != nil {
		return nil, kind, err
	}
	s.logger.Info("ticket issued",
		zap.String("tracking_number", trackingNumber),
		zap.String("ticket_number", t.TicketNumber))
	return t, kind, nil
}

// IssueHolder mints a named holder ticket within a school registration. Same
// (registration, category, name) always yields the same ticket.
func (s *Service) IssueHolder(ctx context.Context, trackingNumber string, categoryID uuid.UUID, name, role string) (*models.CustomTicket, error) {
	regID, kind, _, _, state, err := s.resolver.FindByTracking(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	if kind != models.KindSchool {
		return nil, fmt.Errorf("holder tickets exist only for school registrations")
	}
	if !state.CanAccess() {
		return nil, lifecycle.ErrNotEligible
	}

	cat, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	number := DeriveHolderTicketNumber(trackingNumber, categoryCode(cat.Name), name)
	qr, err := EncodeQRPayload(QRPayload{
		TicketNumber:   number,
		TrackingNumber: trackingNumber,
		Kind:           kind,
		Event:          s.eventName,
	})
	if err != nil {
		return nil, err
	}
	return s.store.MintHolder(ctx, &models.CustomTicket{
		RegistrationID: regID,
		CategoryID:     categoryID,
		Name:           strings.TrimSpace(name),
		Role:           role,
		TicketNumber:   number,
		QRCode:         qr,
	})
}

// Holders lists the named holder tickets of a school registration.
func (s *Service) Holders(ctx context.Context, trackingNumber string) ([]models.CustomTicket, error) {
	regID, kind, _, _, state, err := s.resolver.FindByTracking(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	if kind != models.KindSchool {
		return nil, fmt.Errorf("holder tickets exist only for school registrations")
	}
	if !state.CanAccess() {
		return nil, lifecycle.ErrNotEligible
	}
	return s.store.ListHolders(ctx, regID)
}

// Lookup resolves a ticket number without changing it, for gate staff
// previewing a scan.
func (s *Service) Lookup(ctx context.Context, ticketNumber string) (*models.Ticket, string, error) {
	return s.store.GetByTicketNumber(ctx, ticketNumber)
}

// CheckIn marks a ticket as used. Exactly one concurrent attempt succeeds;
// the rest get ErrAlreadyCheckedIn. An unverified registration gets
// ErrNotVerified so gate staff can tell the two apart.
func (s *Service) CheckIn(ctx context.Context, ticketNumber, operator string) (*models.Ticket, string, error) {
	t, kind, err := s.store.GetByTicketNumber(ctx, ticketNumber)
	if err != nil {
		return nil, "", err
	}

	state, tracking, err := s.store.RegistrationState(ctx, kind, t.RegistrationID)
	if err != nil {
		return nil, kind, err
	}
	if !state.CanAccess() {
		return nil, kind, lifecycle.ErrNotVerified
	}

	claimed, err := s.store.ClaimCheckIn(ctx, kind, t.ID, operator)
	if err != nil {
		return nil, kind, err
	}
	if !claimed {
		return t, kind, lifecycle.ErrAlreadyCheckedIn
	}

	t, _, err = s.store.GetByTicketNumber(ctx, ticketNumber)
	if err != nil {
		return nil, kind, err
	}
	s.logger.Info("ticket checked in",
		zap.String("ticket_number", ticketNumber),
		zap.String("tracking_number", tracking),
		zap.String("operator", operator))
	return t, kind, nil
}

// Certificate builds the participation certificate for an individual
// registrant. Available only after check-in.
func (s *Service) Certificate(ctx context.Context, trackingNumber string) (*models.Certificate, error) {
	reg, err := s.individuals.GetIndividualByTracking(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	state := lifecycle.State{PaymentStatus: reg.PaymentStatus, AdminVerified: reg.AdminVerified}
	if !state.CanAccess() {
		return nil, lifecycle.ErrNotEligible
	}

	t, err := s.store.GetByRegistration(ctx, models.KindIndividual, reg.ID)
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			return nil, lifecycle.ErrNotYetEligible
		}
		return nil, err
	}
	if !t.CheckedIn {
		return nil, lifecycle.ErrNotYetEligible
	}

	checkedInAt := time.Now()
	if t.CheckedInAt != nil {
		checkedInAt = *t.CheckedInAt
	}
	return &models.Certificate{
		ParticipantName: reg.FullName,
		TrackingNumber:  reg.TrackingNumber,
		Gender:          reg.Gender,
		State:           reg.State,
		LGA:             reg.LGA,
		EventName:       s.eventName,
		CheckedInAt:     checkedInAt,
	}, nil
}

// categoryCode shortens a category name to the 3-letter code embedded in
// holder ticket numbers.
func categoryCode(name string) string {
	cleaned := strings.ToUpper(strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, name))
	if len(cleaned) > 3 {
		cleaned = cleaned[:3]
	}
	if cleaned == "" {
		cleaned = "GEN"
	}
	return cleaned
}
