package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/smtp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/chaf-events/backend/config"
	"github.com/chaf-events/backend/internal/lifecycle"
	"github.com/chaf-events/backend/internal/models"
	"github.com/chaf-events/backend/internal/registrations"
	"github.com/chaf-events/backend/internal/tickets"
	"github.com/chaf-events/backend/pkg/queue"
	"github.com/chaf-events/backend/pkg/storage"
)

// Processor executes background jobs: ticket PDF rendering and notification
// email. Jobs are idempotent, so a retried delivery after a crash is safe.
type Processor struct {
	regRepo    *registrations.Repository
	ticketRepo *tickets.Repository
	ticketSvc  *tickets.Service
	s3         *storage.S3
	queue      *queue.Queue
	email      config.EmailConfig
	eventName  string
	logger     *zap.Logger
}

// NewProcessor creates a job processor. s3 may be nil; PDF jobs are then
// skipped and tickets stay inline-render only.
func NewProcessor(regRepo *registrations.Repository, ticketRepo *tickets.Repository, ticketSvc *tickets.Service, s3 *storage.S3, q *queue.Queue, email config.EmailConfig, eventName string, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		regRepo:    regRepo,
		ticketRepo: ticketRepo,
		ticketSvc:  ticketSvc,
		s3:         s3,
		queue:      q,
		email:      email,
		eventName:  eventName,
		logger:     logger,
	}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeTicketPDF:
		var payload queue.TicketPDFPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.processTicketPDF(ctx, payload)
	case queue.JobTypeCertificatePDF:
		var payload queue.CertificatePDFPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.processCertificatePDF(ctx, payload)
	case queue.JobTypeEmail:
		var payload queue.EmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.processEmail(payload)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *Processor) processTicketPDF(ctx context.Context, payload queue.TicketPDFPayload) error {
	if p.s3 == nil {
		p.logger.Info("s3 not configured, skipping ticket pdf",
			zap.String("tracking_number", payload.TrackingNumber))
		return nil
	}

	t, kind, err := p.ticketSvc.Issue(ctx, payload.TrackingNumber)
	if err != nil {
		return fmt.Errorf("issue ticket: %w", err)
	}
	if t.PDFURL != "" {
		p.logger.Info("ticket pdf already rendered",
			zap.String("ticket_number", t.TicketNumber))
		return nil
	}

	holder := ""
	switch kind {
	case models.KindSchool:
		reg, rErr := p.regRepo.GetSchoolByTracking(ctx, payload.TrackingNumber)
		if rErr != nil {
			return fmt.Errorf("registration lookup: %w", rErr)
		}
		holder = reg.SchoolName
	case models.KindIndividual:
		reg, rErr := p.regRepo.GetIndividualByTracking(ctx, payload.TrackingNumber)
		if rErr != nil {
			return fmt.Errorf("registration lookup: %w", rErr)
		}
		holder = reg.FullName
	}

	pdfBytes, err := tickets.RenderTicketPDF(t, tickets.TicketDetails{
		EventName:  p.eventName,
		HolderName: holder,
		Kind:       kind,
		Tracking:   payload.TrackingNumber,
	})
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}

	key := storage.TicketKey(payload.TrackingNumber)
	url, err := p.s3.Upload(ctx, key, "application/pdf", bytes.NewReader(pdfBytes))
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := p.ticketRepo.SetPDFURL(ctx, kind, t.ID, url); err != nil {
		return fmt.Errorf("save pdf url: %w", err)
	}

	p.logger.Info("ticket pdf uploaded",
		zap.String("ticket_number", t.TicketNumber),
		zap.String("key", key))
	return nil
}

func (p *Processor) processCertificatePDF(ctx context.Context, payload queue.CertificatePDFPayload) error {
	if p.s3 == nil {
		p.logger.Info("s3 not configured, skipping certificate pdf",
			zap.String("tracking_number", payload.TrackingNumber))
		return nil
	}

	cert, err := p.ticketSvc.Certificate(ctx, payload.TrackingNumber)
	if errors.Is(err, lifecycle.ErrNotFound) || errors.Is(err, lifecycle.ErrNotEligible) || errors.Is(err, lifecycle.ErrNotYetEligible) {
		// Check-in was undone or never landed; nothing to archive.
		p.logger.Warn("certificate not eligible, skipping",
			zap.String("tracking_number", payload.TrackingNumber), zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("certificate lookup: %w", err)
	}

	pdfBytes, err := tickets.RenderCertificatePDF(cert)
	if err != nil {
		return fmt.Errorf("render certificate: %w", err)
	}

	key := storage.CertificateKey(payload.TrackingNumber)
	if _, err := p.s3.Upload(ctx, key, "application/pdf", bytes.NewReader(pdfBytes)); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	p.logger.Info("certificate pdf archived",
		zap.String("tracking_number", payload.TrackingNumber),
		zap.String("key", key))
	return nil
}

func (p *Processor) processEmail(payload queue.EmailPayload) error {
	if payload.RecipientEmail == "" {
		p.logger.Info("no recipient email, skipping",
			zap.String("tracking_number", payload.TrackingNumber))
		return nil
	}
	if p.email.SMTPHost == "" {
		p.logger.Info("smtp not configured, skipping email",
			zap.String("email_type", payload.EmailType),
			zap.String("tracking_number", payload.TrackingNumber))
		return nil
	}

	msg := bytes.Buffer{}
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", p.email.FromName, p.email.FromAddress)
	fmt.Fprintf(&msg, "To: %s\r\n", payload.RecipientEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", payload.Subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(payload.Body)

	addr := p.email.SMTPHost + ":" + strconv.Itoa(p.email.SMTPPort)
	var auth smtp.Auth
	if p.email.SMTPUser != "" {
		auth = smtp.PlainAuth("", p.email.SMTPUser, p.email.SMTPPass, p.email.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, p.email.FromAddress, []string{payload.RecipientEmail}, msg.Bytes()); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	p.logger.Info("email sent",
		zap.String("email_type", payload.EmailType),
		zap.String("tracking_number", payload.TrackingNumber))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
