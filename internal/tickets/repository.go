package tickets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chaf-events/backend/internal/lifecycle"
	"github.com/chaf-events/backend/internal/models"
)

// Ticket tables, selected by registration kind.
const (
	tableSchoolTickets     = "tickets"
	tableIndividualTickets = "individual_tickets"
)

// Repository is the pgx-backed ticket store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tickets repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func ticketTable(kind string) (string, error) {
	switch kind {
	case models.KindSchool:
		return tableSchoolTickets, nil
	case models.KindIndividual:
		return tableIndividualTickets, nil
	default:
		return "", fmt.Errorf("unknown registration kind %q", kind)
	}
}

const ticketColumns = `id, registration_id, ticket_number, qr_code, status,
	checked_in, checked_in_at, COALESCE(checked_in_by,''), COALESCE(pdf_url,''), created_at, updated_at`

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.RegistrationID, &t.TicketNumber, &t.QRCode, &t.Status,
		&t.CheckedIn, &t.CheckedInAt, &t.CheckedInBy, &t.PDFURL, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByRegistration returns the ticket minted for a registration, if any.
func (r *Repository) GetByRegistration(ctx context.Context, kind string, registrationID uuid.UUID) (*models.Ticket, error) {
	table, err := ticketTable(kind)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE registration_id = $1`, ticketColumns, table), registrationID)
	return scanTicket(row)
}

// GetByTicketNumber looks a ticket up across both kinds, returning the kind
// it was found under.
func (r *Repository) GetByTicketNumber(ctx context.Context, ticketNumber string) (*models.Ticket, string, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE ticket_number = $1`, ticketColumns, tableSchoolTickets), ticketNumber)
	if t, err := scanTicket(row); err == nil {
		return t, models.KindSchool, nil
	} else if !errors.Is(err, lifecycle.ErrNotFound) {
		return nil, "", err
	}

	row = r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE ticket_number = $1`, ticketColumns, tableIndividualTickets), ticketNumber)
	t, err := scanTicket(row)
	if err != nil {
		return nil, "", err
	}
	return t, models.KindIndividual, nil
}

// Mint inserts the ticket if the registration has none yet, then returns the
// row that won. Two concurrent first accesses converge on one ticket.
func (r *Repository) Mint(ctx context.Context, kind string, t *models.Ticket) (*models.Ticket, error) {
	table, err := ticketTable(kind)
	if err != nil {
		return nil, err
	}
	_, err = r.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (registration_id, ticket_number, qr_code, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (registration_id) DO NOTHING`, table),
		t.RegistrationID, t.TicketNumber, t.QRCode, t.Status)
	if err != nil {
		return nil, fmt.Errorf("mint ticket: %w", err)
	}
	return r.GetByRegistration(ctx, kind, t.RegistrationID)
}

// ClaimCheckIn atomically flips checked_in. The row count is the only truth:
// zero means someone else got there first.
func (r *Repository) ClaimCheckIn(ctx context.Context, kind string, ticketID uuid.UUID, operator string) (bool, error) {
	table, err := ticketTable(kind)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET checked_in = TRUE, checked_in_at = NOW(), checked_in_by = $2, updated_at = NOW()
		WHERE id = $1 AND checked_in = FALSE`, table),
		ticketID, operator)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RegistrationState reads the lifecycle state and tracking number backing a
// ticket.
func (r *Repository) RegistrationState(ctx context.Context, kind string, registrationID uuid.UUID) (lifecycle.State, string, error) {
	regTable := "registrations"
	if kind == models.KindIndividual {
		regTable = "individual_registrations"
	}
	var state lifecycle.State
	var tracking string
	err := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT payment_status, admin_verified, tracking_number FROM %s WHERE id = $1`, regTable),
		registrationID).Scan(&state.PaymentStatus, &state.AdminVerified, &tracking)
	if errors.Is(err, pgx.ErrNoRows) {
		return lifecycle.State{}, "", lifecycle.ErrNotFound
	}
	if err != nil {
		return lifecycle.State{}, "", err
	}
	return state, tracking, nil
}

// MintHolder inserts a holder ticket if the (registration, category, name)
// triple has none, then returns the winning row.
func (r *Repository) MintHolder(ctx context.Context, t *models.CustomTicket) (*models.CustomTicket, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO custom_tickets (registration_id, category_id, name, role, ticket_number, qr_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (registration_id, category_id, name) DO NOTHING`,
		t.RegistrationID, t.CategoryID, t.Name, t.Role, t.TicketNumber, t.QRCode)
	if err != nil {
		return nil, fmt.Errorf("mint holder ticket: %w", err)
	}
	var out models.CustomTicket
	err = r.pool.QueryRow(ctx,
		`SELECT id, registration_id, category_id, name, COALESCE(role,''), ticket_number, qr_code, created_at, updated_at
		FROM custom_tickets WHERE registration_id = $1 AND category_id = $2 AND name = $3`,
		t.RegistrationID, t.CategoryID, t.Name).Scan(
		&out.ID, &out.RegistrationID, &out.CategoryID, &out.Name, &out.Role,
		&out.TicketNumber, &out.QRCode, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListHolders returns all holder tickets of a registration.
func (r *Repository) ListHolders(ctx context.Context, registrationID uuid.UUID) ([]models.CustomTicket, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, registration_id, category_id, name, COALESCE(role,''), ticket_number, qr_code, created_at, updated_at
		FROM custom_tickets WHERE registration_id = $1 ORDER BY created_at`, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.CustomTicket
	for rows.Next() {
		var t models.CustomTicket
		if err := rows.Scan(&t.ID, &t.RegistrationID, &t.CategoryID, &t.Name, &t.Role,
			&t.TicketNumber, &t.QRCode, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// SetPDFURL records the uploaded ticket PDF location.
func (r *Repository) SetPDFURL(ctx context.Context, kind string, ticketID uuid.UUID, url string) error {
	table, err := ticketTable(kind)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET pdf_url = $2, updated_at = NOW() WHERE id = $1`, table),
		ticketID, url)
	return err
}
