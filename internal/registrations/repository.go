package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chaf-events/backend/internal/lifecycle"
	"github.com/chaf-events/backend/internal/models"
)

// Registration tables, selected by registration kind.
const (
	tableSchool     = "registrations"
	tableIndividual = "individual_registrations"
)

// Repository handles registration persistence for both kinds.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// IsUniqueViolation reports whether err is a unique-constraint violation
// (used to retry tracking-number generation).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func tableForKind(kind string) (string, error) {
	switch kind {
	case models.KindSchool:
		return tableSchool, nil
	case models.KindIndividual:
		return tableIndividual, nil
	default:
		return "", fmt.Errorf("unknown registration kind %q", kind)
	}
}

// CreateSchool inserts a school registration with its category links and
// participants in one transaction: a parent row is never committed without
// its children.
func (r *Repository) CreateSchool(ctx context.Context, reg *models.Registration) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO registrations
		(tracking_number, school_name, contact_name, contact_phone, contact_email, comments, total_amount, payment_status, admin_verified)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7, $8, FALSE)
		RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, q,
		reg.TrackingNumber, reg.SchoolName, reg.ContactName, reg.ContactPhone,
		reg.ContactEmail, reg.Comments, reg.TotalAmount, lifecycle.StatusPending,
	).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return err
	}
	reg.PaymentStatus = lifecycle.StatusPending

	for _, catID := range reg.CategoryIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO registration_categories (registration_id, category_id) VALUES ($1, $2)`,
			reg.ID, catID,
		); err != nil {
			return fmt.Errorf("insert category link: %w", err)
		}
	}
	for i := range reg.Participants {
		p := &reg.Participants[i]
		p.RegistrationID = reg.ID
		if err := tx.QueryRow(ctx,
			`INSERT INTO participants (registration_id, name, class, category_id) VALUES ($1, $2, $3, $4)
			RETURNING id, created_at`,
			reg.ID, p.Name, p.Class, p.CategoryID,
		).Scan(&p.ID, &p.CreatedAt); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// CreateIndividual inserts an individual registration.
func (r *Repository) CreateIndividual(ctx context.Context, reg *models.IndividualRegistration) error {
	const q = `INSERT INTO individual_registrations
		(tracking_number, full_name, phone_number, email, gender, state, lga, comments, amount, payment_status, admin_verified)
		VALUES ($1, $2, $3, NULLIF($4,''), $5, $6, $7, NULLIF($8,''), $9, $10, FALSE)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q,
		reg.TrackingNumber, reg.FullName, reg.PhoneNumber, reg.Email,
		reg.Gender, reg.State, reg.LGA, reg.Comments, reg.Amount, lifecycle.StatusPending,
	).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return err
	}
	reg.PaymentStatus = lifecycle.StatusPending
	return nil
}

// GetSchoolByTracking returns a school registration with participants and
// category selections. Tracking lookup is case-insensitive.
func (r *Repository) GetSchoolByTracking(ctx context.Context, trackingNumber string) (*models.Registration, error) {
	const q = `SELECT id, tracking_number, school_name, contact_name, contact_phone,
		COALESCE(contact_email,''), COALESCE(comments,''), total_amount, payment_status,
		COALESCE(payment_method,''), admin_verified, created_at, updated_at
		FROM registrations WHERE tracking_number = $1`
	var reg models.Registration
	err := r.pool.QueryRow(ctx, q, NormalizeTracking(trackingNumber)).Scan(
		&reg.ID, &reg.TrackingNumber, &reg.SchoolName, &reg.ContactName, &reg.ContactPhone,
		&reg.ContactEmail, &reg.Comments, &reg.TotalAmount, &reg.PaymentStatus,
		&reg.PaymentMethod, &reg.AdminVerified, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadSchoolChildren(ctx, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Repository) loadSchoolChildren(ctx context.Context, reg *models.Registration) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, registration_id, name, class, category_id, created_at
		FROM participants WHERE registration_id = $1 ORDER BY created_at`, reg.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.RegistrationID, &p.Name, &p.Class, &p.CategoryID, &p.CreatedAt); err != nil {
			return err
		}
		reg.Participants = append(reg.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	catRows, err := r.pool.Query(ctx,
		`SELECT category_id FROM registration_categories WHERE registration_id = $1`, reg.ID)
	if err != nil {
		return err
	}
	defer catRows.Close()
	for catRows.Next() {
		var id uuid.UUID
		if err := catRows.Scan(&id); err != nil {
			return err
		}
		reg.CategoryIDs = append(reg.CategoryIDs, id)
	}
	return catRows.Err()
}

// GetIndividualByTracking returns an individual registration, case-insensitive.
func (r *Repository) GetIndividualByTracking(ctx context.Context, trackingNumber string) (*models.IndividualRegistration, error) {
	const q = `SELECT id, tracking_number, full_name, phone_number, COALESCE(email,''),
		gender, state, lga, COALESCE(comments,''), amount, payment_status, admin_verified, created_at, updated_at
		FROM individual_registrations WHERE tracking_number = $1`
	var reg models.IndividualRegistration
	err := r.pool.QueryRow(ctx, q, NormalizeTracking(trackingNumber)).Scan(
		&reg.ID, &reg.TrackingNumber, &reg.FullName, &reg.PhoneNumber, &reg.Email,
		&reg.Gender, &reg.State, &reg.LGA, &reg.Comments, &reg.Amount,
		&reg.PaymentStatus, &reg.AdminVerified, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// GetIndividualByPhone returns the individual registration holding a phone
// number, or ErrNotFound. Phone numbers are unique per registrant.
func (r *Repository) GetIndividualByPhone(ctx context.Context, phone string) (*models.IndividualRegistration, error) {
	const q = `SELECT id, tracking_number, full_name, phone_number, COALESCE(email,''),
		gender, state, lga, COALESCE(comments,''), amount, payment_status, admin_verified, created_at, updated_at
		FROM individual_registrations WHERE phone_number = $1`
	var reg models.IndividualRegistration
	err := r.pool.QueryRow(ctx, q, phone).Scan(
		&reg.ID, &reg.TrackingNumber, &reg.FullName, &reg.PhoneNumber, &reg.Email,
		&reg.Gender, &reg.State, &reg.LGA, &reg.Comments, &reg.Amount,
		&reg.PaymentStatus, &reg.AdminVerified, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// RecoverByPhone returns tracking numbers registered to a phone, both kinds.
func (r *Repository) RecoverByPhone(ctx context.Context, phone string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tracking_number FROM individual_registrations WHERE phone_number = $1
		UNION
		SELECT tracking_number FROM registrations WHERE contact_phone = $1
		ORDER BY tracking_number`, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var numbers []string
	for rows.Next() {
		var tn string
		if err := rows.Scan(&tn); err != nil {
			return nil, err
		}
		numbers = append(numbers, tn)
	}
	return numbers, rows.Err()
}

// Attest moves pending -> awaiting_verification as a single conditional
// write. Zero rows with the registration already awaiting verification is
// the tolerated duplicate attestation; anything else is an invalid
// transition.
func (r *Repository) Attest(ctx context.Context, kind string, id uuid.UUID) (changed bool, err error) {
	table, err := tableForKind(kind)
	if err != nil {
		return false, err
	}
	method := ""
	if kind == models.KindSchool {
		method = `, payment_method = 'bank_transfer'`
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET payment_status = $2%s, updated_at = NOW()
		WHERE id = $1 AND payment_status = $3`, table, method),
		id, lifecycle.StatusAwaitingVerification, lifecycle.StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Verify applies the admin decision as a conditional write valid only from
// awaiting_verification; any other state leaves the row untouched (no-op,
// double-click tolerant). Returns whether a row changed.
func (r *Repository) Verify(ctx context.Context, kind string, id uuid.UUID, approve bool) (bool, error) {
	table, err := tableForKind(kind)
	if err != nil {
		return false, err
	}
	next, _ := lifecycle.Verify(lifecycle.State{PaymentStatus: lifecycle.StatusAwaitingVerification}, approve)
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET payment_status = $2, admin_verified = $3, updated_at = NOW()
		WHERE id = $1 AND payment_status = $4`, table),
		id, next.PaymentStatus, next.AdminVerified, lifecycle.StatusAwaitingVerification)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ApplyGatewayResult applies a verified gateway outcome. The WHERE clause
// excludes already-paid rows so a retried webhook delivery is a safe no-op.
func (r *Repository) ApplyGatewayResult(ctx context.Context, kind string, id uuid.UUID, success bool) (bool, error) {
	table, err := tableForKind(kind)
	if err != nil {
		return false, err
	}
	next, _ := lifecycle.GatewayResult(lifecycle.State{PaymentStatus: lifecycle.StatusPending}, success)
	method := ""
	if kind == models.KindSchool {
		method = `, payment_method = 'gateway'`
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET payment_status = $2, admin_verified = $3%s, updated_at = NOW()
		WHERE id = $1 AND payment_status <> $4`, table, method),
		id, next.PaymentStatus, next.AdminVerified, lifecycle.StatusPaid)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RetryPayment returns a failed registration to pending.
func (r *Repository) RetryPayment(ctx context.Context, kind string, id uuid.UUID) (bool, error) {
	table, err := tableForKind(kind)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET payment_status = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status = $3`, table),
		id, lifecycle.StatusPending, lifecycle.StatusFailed)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindByTracking resolves a tracking number of either kind into the fields
// the payment flow needs.
func (r *Repository) FindByTracking(ctx context.Context, trackingNumber string) (id uuid.UUID, kind, email string, amount int64, state lifecycle.State, err error) {
	if reg, sErr := r.GetSchoolByTracking(ctx, trackingNumber); sErr == nil {
		return reg.ID, models.KindSchool, reg.ContactEmail, reg.TotalAmount,
			lifecycle.State{PaymentStatus: reg.PaymentStatus, AdminVerified: reg.AdminVerified}, nil
	} else if !errors.Is(sErr, lifecycle.ErrNotFound) {
		return uuid.Nil, "", "", 0, lifecycle.State{}, sErr
	}
	reg, iErr := r.GetIndividualByTracking(ctx, trackingNumber)
	if iErr != nil {
		return uuid.Nil, "", "", 0, lifecycle.State{}, iErr
	}
	return reg.ID, models.KindIndividual, reg.Email, reg.Amount,
		lifecycle.State{PaymentStatus: reg.PaymentStatus, AdminVerified: reg.AdminVerified}, nil
}

// ContactByID returns the notification email and tracking number of a
// registration. Email may be empty.
func (r *Repository) ContactByID(ctx context.Context, kind string, id uuid.UUID) (email, trackingNumber string, err error) {
	table, err := tableForKind(kind)
	if err != nil {
		return "", "", err
	}
	col := "contact_email"
	if kind == models.KindIndividual {
		col = "email"
	}
	err = r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT COALESCE(%s,''), tracking_number FROM %s WHERE id = $1`, col, table),
		id).Scan(&email, &trackingNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", lifecycle.ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	return email, trackingNumber, nil
}

// ListSchool returns school registrations, optionally filtered by payment status.
func (r *Repository) ListSchool(ctx context.Context, status string) ([]models.Registration, error) {
	q := `SELECT id, tracking_number, school_name, contact_name, contact_phone,
		COALESCE(contact_email,''), COALESCE(comments,''), total_amount, payment_status,
		COALESCE(payment_method,''), admin_verified, created_at, updated_at
		FROM registrations`
	args := []interface{}{}
	if status != "" {
		q += ` WHERE payment_status = $1`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(&reg.ID, &reg.TrackingNumber, &reg.SchoolName, &reg.ContactName, &reg.ContactPhone,
			&reg.ContactEmail, &reg.Comments, &reg.TotalAmount, &reg.PaymentStatus,
			&reg.PaymentMethod, &reg.AdminVerified, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// ListIndividual returns individual registrations, optionally filtered by status.
func (r *Repository) ListIndividual(ctx context.Context, status string) ([]models.IndividualRegistration, error) {
	q := `SELECT id, tracking_number, full_name, phone_number, COALESCE(email,''),
		gender, state, lga, COALESCE(comments,''), amount, payment_status, admin_verified, created_at, updated_at
		FROM individual_registrations`
	args := []interface{}{}
	if status != "" {
		q += ` WHERE payment_status = $1`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.IndividualRegistration
	for rows.Next() {
		var reg models.IndividualRegistration
		if err := rows.Scan(&reg.ID, &reg.TrackingNumber, &reg.FullName, &reg.PhoneNumber, &reg.Email,
			&reg.Gender, &reg.State, &reg.LGA, &reg.Comments, &reg.Amount,
			&reg.PaymentStatus, &reg.AdminVerified, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// Stats aggregates registration counts and paid revenue for the admin panel.
type Stats struct {
	SchoolTotal          int   `json:"school_total"`
	IndividualTotal      int   `json:"individual_total"`
	AwaitingVerification int   `json:"awaiting_verification"`
	Paid                 int   `json:"paid"`
	CheckedIn            int   `json:"checked_in"`
	PaidRevenue          int64 `json:"paid_revenue"`
}

// GetStats returns aggregate counts across both registration kinds.
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM registrations),
		(SELECT COUNT(*) FROM individual_registrations),
		(SELECT COUNT(*) FROM registrations WHERE payment_status = 'awaiting_verification')
			+ (SELECT COUNT(*) FROM individual_registrations WHERE payment_status = 'awaiting_verification'),
		(SELECT COUNT(*) FROM registrations WHERE payment_status = 'paid')
			+ (SELECT COUNT(*) FROM individual_registrations WHERE payment_status = 'paid'),
		(SELECT COUNT(*) FROM tickets WHERE checked_in)
			+ (SELECT COUNT(*) FROM individual_tickets WHERE checked_in),
		COALESCE((SELECT SUM(total_amount) FROM registrations WHERE payment_status = 'paid'), 0)
			+ COALESCE((SELECT SUM(amount) FROM individual_registrations WHERE payment_status = 'paid'), 0)`
	var s Stats
	err := r.pool.QueryRow(ctx, q).Scan(
		&s.SchoolTotal, &s.IndividualTotal, &s.AwaitingVerification, &s.Paid, &s.CheckedIn, &s.PaidRevenue)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
