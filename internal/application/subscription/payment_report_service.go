package subscription

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/mpp365/backend/internal/domain/shared"
	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// DefaultProofMaxBytes caps uploaded payment proofs at 10 MiB
const DefaultProofMaxBytes int64 = 10 << 20

var (
	ErrProofTooLarge   = shared.NewDomainError("PROOF_TOO_LARGE", "Proof of payment must not exceed 10 MB")
	ErrProofBadType    = shared.NewDomainError("PROOF_INVALID_TYPE", "Proof of payment must be a PDF, JPEG or PNG file")
	ErrProofNotPresent = shared.NewDomainError("NOT_FOUND", "Payment report has no proof attached")
)

// proofTypes maps accepted sniffed content types to the stored extension
var proofTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// PaymentReportService handles tenant payment reports and their proofs
type PaymentReportService struct {
	reports        subscription.PaymentReportRepository
	store          storage.ObjectStore
	catalog        *subscription.Catalog
	maxProofBytes  int64
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPaymentReportService creates a new PaymentReportService
func NewPaymentReportService(
	reports subscription.PaymentReportRepository,
	store storage.ObjectStore,
	catalog *subscription.Catalog,
	maxProofBytes int64,
	logger *zap.Logger,
) *PaymentReportService {
	if maxProofBytes <= 0 {
		maxProofBytes = DefaultProofMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentReportService{
		reports:       reports,
		store:         store,
		catalog:       catalog,
		maxProofBytes: maxProofBytes,
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher
func (s *PaymentReportService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Submit records a pending payment report. The proof is optional; when
// present it is size-checked, content-sniffed and uploaded before the
// report row is written.
func (s *PaymentReportService) Submit(ctx context.Context, in SubmitPaymentReportInput) (*PaymentReportResponse, error) {
	if !s.catalog.Has(in.PlanCode) {
		return nil, subscription.ErrUnknownPlan
	}
	report, err := subscription.NewPaymentReport(in.TenantID, in.Amount, in.PaymentDate, in.Method, in.PlanCode, in.Note)
	if err != nil {
		return nil, err
	}

	if in.Proof != nil {
		key, err := s.uploadProof(ctx, report, in.Proof, in.ProofSize)
		if err != nil {
			return nil, err
		}
		report.AttachProof(key)
	}

	if err := s.reports.Create(ctx, report); err != nil {
		if report.ProofKey != "" {
			if derr := s.store.Delete(ctx, report.ProofKey); derr != nil {
				s.logger.Warn("Failed to remove orphaned payment proof",
					zap.String("key", report.ProofKey), zap.Error(derr))
			}
		}
		return nil, err
	}

	s.logger.Info("Payment report submitted",
		zap.String("report_id", report.ID.String()),
		zap.String("tenant_id", report.TenantID.String()),
		zap.String("plan", report.PlanCode),
		zap.String("amount", report.Amount.StringFixed(2)))

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, report.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish domain events", zap.Error(err))
		}
	}
	report.ClearDomainEvents()

	resp := ToPaymentReportResponse(report)
	return &resp, nil
}

func (s *PaymentReportService) uploadProof(ctx context.Context, report *subscription.PaymentReport, r io.Reader, declared int64) (string, error) {
	if declared > s.maxProofBytes {
		return "", ErrProofTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxProofBytes+1))
	if err != nil {
		return "", fmt.Errorf("read payment proof: %w", err)
	}
	if int64(len(data)) > s.maxProofBytes {
		return "", ErrProofTooLarge
	}
	if len(data) == 0 {
		return "", shared.NewDomainError("INVALID_INPUT", "Proof of payment file is empty")
	}

	contentType := mimetype.Detect(data).String()
	ext, ok := proofTypes[contentType]
	if !ok {
		return "", ErrProofBadType
	}

	key := ProofKey(report.TenantID, report.ID, ext)
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("store payment proof: %w", err)
	}
	return key, nil
}

// ProofKey is the object key of a report's proof
func ProofKey(tenantID, reportID uuid.UUID, ext string) string {
	return fmt.Sprintf("payment-proofs/%s/%s%s", tenantID, reportID, ext)
}

// ListForTenant lists a tenant's own reports, newest first
func (s *PaymentReportService) ListForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]PaymentReportResponse, int64, error) {
	reports, total, err := s.reports.FindByTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToPaymentReportResponses(reports), total, nil
}

// ListByStatus lists reports of every tenant in one review state
func (s *PaymentReportService) ListByStatus(ctx context.Context, status subscription.ReportStatus, filter shared.Filter) ([]PaymentReportResponse, int64, error) {
	reports, total, err := s.reports.FindByStatus(ctx, status, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToPaymentReportResponses(reports), total, nil
}

// ListPending lists reports awaiting review
func (s *PaymentReportService) ListPending(ctx context.Context, filter shared.Filter) ([]PaymentReportResponse, int64, error) {
	return s.ListByStatus(ctx, subscription.ReportPending, filter)
}

// ProofURL returns a presigned download link. A nil tenantID means the
// caller is the privileged operator and may read any tenant's proof.
func (s *PaymentReportService) ProofURL(ctx context.Context, tenantID *uuid.UUID, reportID uuid.UUID) (*ProofLink, error) {
	var (
		report *subscription.PaymentReport
		err    error
	)
	if tenantID != nil {
		report, err = s.reports.FindByIDForTenant(ctx, *tenantID, reportID)
	} else {
		report, err = s.reports.FindByID(ctx, reportID)
	}
	if err != nil {
		return nil, err
	}
	if report.ProofKey == "" {
		return nil, ErrProofNotPresent
	}
	url, expires, err := s.store.PresignGet(ctx, report.ProofKey)
	if err != nil {
		return nil, fmt.Errorf("presign payment proof: %w", err)
	}
	return &ProofLink{URL: url, ExpiresAt: expires}, nil
}
