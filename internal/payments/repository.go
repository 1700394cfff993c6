package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chaf-events/backend/internal/lifecycle"
	"github.com/chaf-events/backend/internal/models"
)

// Repository persists payment records. Every payment attempt, manual or
// gateway, leaves exactly one row keyed by its reference.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a payments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `id, registration_id, registration_kind, amount,
	COALESCE(payment_method,''), payment_gateway, payment_reference,
	COALESCE(gateway_reference,''), COALESCE(transaction_id,''),
	payment_status, gateway_response, created_at, updated_at`

func scanRecord(row pgx.Row) (*models.PaymentRecord, error) {
	var rec models.PaymentRecord
	err := row.Scan(&rec.ID, &rec.RegistrationID, &rec.RegistrationKind, &rec.Amount,
		&rec.PaymentMethod, &rec.PaymentGateway, &rec.PaymentReference,
		&rec.GatewayReference, &rec.TransactionID,
		&rec.PaymentStatus, &rec.GatewayResponse, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreatePending records a gateway initialization. Re-initializing with the
// same reference is a no-op so a double-submitted checkout cannot duplicate
// rows.
func (r *Repository) CreatePending(ctx context.Context, rec *models.PaymentRecord) error {
	const q = `INSERT INTO payment_records
		(registration_id, registration_kind, amount, payment_method, payment_gateway, payment_reference, payment_status)
		VALUES ($1, $2, $3, NULLIF($4,''), $5, $6, $7)
		ON CONFLICT (payment_reference) DO NOTHING`
	_, err := r.pool.Exec(ctx, q,
		rec.RegistrationID, rec.RegistrationKind, rec.Amount, rec.PaymentMethod,
		rec.PaymentGateway, rec.PaymentReference, models.PaymentRecordPending)
	if err != nil {
		return fmt.Errorf("insert payment record: %w", err)
	}
	return nil
}

// RecordManual upserts the bank-transfer attestation record for a
// registration. The fixed reference makes repeated attestations idempotent.
func (r *Repository) RecordManual(ctx context.Context, kind string, registrationID uuid.UUID, trackingNumber string, amount int64) error {
	const q = `INSERT INTO payment_records
		(registration_id, registration_kind, amount, payment_method, payment_gateway, payment_reference, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (payment_reference) DO NOTHING`
	_, err := r.pool.Exec(ctx, q,
		registrationID, kind, amount, models.PaymentMethodBankTransfer,
		models.PaymentGatewayManual, "manual_"+trackingNumber, models.PaymentRecordPending)
	if err != nil {
		return fmt.Errorf("record manual payment: %w", err)
	}
	return nil
}

// UpdateResult stores the gateway verdict and raw response for a reference.
func (r *Repository) UpdateResult(ctx context.Context, reference, status, transactionID string, gatewayResponse json.RawMessage) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payment_records
		SET payment_status = $2, transaction_id = NULLIF($3,''), gateway_response = $4, updated_at = NOW()
		WHERE payment_reference = $1`,
		reference, status, transactionID, gatewayResponse)
	if err != nil {
		return fmt.Errorf("update payment record: %w", err)
	}
	return nil
}

// MarkVerified sets the manual record for a registration to its final status
// when an admin approves or rejects the attestation.
func (r *Repository) MarkVerified(ctx context.Context, registrationID uuid.UUID, approved bool) error {
	status := models.PaymentRecordPaid
	if !approved {
		status = models.PaymentRecordFailed
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE payment_records SET payment_status = $2, updated_at = NOW()
		WHERE registration_id = $1 AND payment_gateway = $3`,
		registrationID, status, models.PaymentGatewayManual)
	return err
}

// GetByReference returns the payment record for a reference.
func (r *Repository) GetByReference(ctx context.Context, reference string) (*models.PaymentRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM payment_records WHERE payment_reference = $1`, reference)
	return scanRecord(row)
}

// ListByRegistration returns all payment attempts for a registration.
func (r *Repository) ListByRegistration(ctx context.Context, registrationID uuid.UUID) ([]models.PaymentRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM payment_records
		WHERE registration_id = $1 ORDER BY created_at DESC`, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.PaymentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}
