package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"path"
	"strings"
	"time"

	"github.com/ardiansr/mediqueue/config"
	"github.com/ardiansr/mediqueue/internal/domain"
	"github.com/ardiansr/mediqueue/internal/queue"
	"github.com/ardiansr/mediqueue/pkg/logger"
	"github.com/ardiansr/mediqueue/pkg/metrics"
	"github.com/ardiansr/mediqueue/pkg/utils"
)

// maxListItems caps the patient receipt list view.
const maxListItems = 50

type receiptUsecase struct {
	receiptRepo  domain.ReceiptRepository
	hospitalRepo domain.HospitalRepository
	classifier   domain.SeverityClassifier
	artifacts    domain.ArtifactStore
	cache        domain.ReceiptCache
	assigner     *queue.Assigner

	maxUploadBytes int64
	allowedTypes   []string
	assignAttempts int
	assignBackoff  time.Duration
	cacheTTL       time.Duration
}

var _ domain.ReceiptUsecase = (*receiptUsecase)(nil)

// NewReceiptUsecase creates the intake and queue business logic
func NewReceiptUsecase(
	receiptRepo domain.ReceiptRepository,
	hospitalRepo domain.HospitalRepository,
	classifier domain.SeverityClassifier,
	artifacts domain.ArtifactStore,
	cache domain.ReceiptCache,
	assigner *queue.Assigner,
	cfg *config.Config,
) *receiptUsecase {
	uc := &receiptUsecase{
		receiptRepo:    receiptRepo,
		hospitalRepo:   hospitalRepo,
		classifier:     classifier,
		artifacts:      artifacts,
		cache:          cache,
		assigner:       assigner,
		maxUploadBytes: cfg.API.MaxUploadBytes,
		allowedTypes:   cfg.Storage.AllowedTypes,
		assignAttempts: cfg.Queue.AssignAttempts,
		assignBackoff:  cfg.Queue.AssignBackoff,
		cacheTTL:       cfg.Cache.TTL,
	}
	if uc.assignAttempts < 1 {
		uc.assignAttempts = 1
	}
	if uc.assignBackoff <= 0 {
		uc.assignBackoff = 100 * time.Millisecond
	}
	return uc
}

// UploadReceipt runs the full intake pipeline: validate, persist the
// artifact, classify severity, and assign a queue position. Returns the
// stored receipt and the hospital name for the response.
func (uc *receiptUsecase) UploadReceipt(ctx context.Context, in *domain.UploadInput) (*domain.Receipt, string, error) {
	if err := uc.validateUpload(in); err != nil {
		return nil, "", err
	}

	hospital, err := uc.hospitalRepo.GetByID(ctx, in.HospitalID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up hospital: %w", err)
	}
	if hospital == nil || !hospital.IsActive {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrHospitalNotFound, in.HospitalID)
	}

	contentType := utils.NormalizeContentType(in.ContentType)
	key := uc.artifactKey(in)
	ref, err := uc.artifacts.Put(ctx, key, in.Image, contentType)
	if err != nil {
		return nil, "", fmt.Errorf("failed to store artifact: %w", err)
	}

	// Never fails: the classifier wrapper falls back to a heuristic.
	severity, _ := uc.classifier.Classify(ctx, ref, in.Symptoms)

	now := time.Now()
	receipt := &domain.Receipt{
		ID:            utils.GenerateUUID(),
		ReceiptCode:   utils.GenerateReceiptCode(),
		UserID:        in.UserID,
		HospitalID:    in.HospitalID,
		ArtifactRef:   ref.Key,
		SeverityScore: severity.Score,
		SeverityTier:  severity.Tier,
		Status:        domain.StatusQueued,
		UploadedAt:    now,
		UpdatedAt:     now,
	}
	if symptoms := strings.TrimSpace(in.Symptoms); symptoms != "" {
		receipt.Symptoms = &symptoms
	}

	if err := uc.assignWithRetry(ctx, receipt); err != nil {
		if delErr := uc.artifacts.Delete(ctx, ref.Key); delErr != nil {
			logger.Warn("Failed to clean up artifact after assign failure",
				logger.String("artifact_key", ref.Key),
				logger.ErrorField(delErr),
			)
		}
		return nil, "", err
	}

	uc.invalidateUser(ctx, in.UserID)
	metrics.RecordReceipt(receipt.Status, domain.TierName(receipt.SeverityTier))

	logger.Info("Receipt queued",
		logger.String("receipt_id", receipt.ID),
		logger.String("receipt_code", receipt.ReceiptCode),
		logger.String("hospital_id", receipt.HospitalID),
		logger.String("tier", domain.TierName(receipt.SeverityTier)),
		logger.Int("position", receipt.QueuePosition),
	)

	return receipt, hospital.Name, nil
}

// assignWithRetry inserts the receipt into its hospital partition, retrying
// bounded-wait lock failures with exponential backoff and jitter. The insert
// and the displaced neighbours are persisted in one transaction while the
// partition lock is held.
func (uc *receiptUsecase) assignWithRetry(ctx context.Context, receipt *domain.Receipt) error {
	entry := queue.Entry{
		ReceiptID:   receipt.ID,
		Tier:        receipt.SeverityTier,
		ArrivalTime: receipt.UploadedAt,
	}

	var lastErr error
	for attempt := 1; attempt <= uc.assignAttempts; attempt++ {
		start := time.Now()
		position, err := uc.assigner.Insert(ctx, receipt.HospitalID, entry, func(pos int, updates []domain.PositionUpdate) error {
			receipt.QueuePosition = pos
			return uc.receiptRepo.CreateQueued(ctx, receipt, updates)
		})
		if err == nil {
			receipt.QueuePosition = position
			metrics.RecordQueueAssign(receipt.HospitalID, "success", time.Since(start).Seconds())
			return nil
		}

		lastErr = err
		if !errors.Is(err, domain.ErrQueueBusy) {
			metrics.RecordQueueAssign(receipt.HospitalID, "error", time.Since(start).Seconds())
			return fmt.Errorf("failed to assign queue position: %w", err)
		}

		metrics.RecordQueueAssign(receipt.HospitalID, "busy", time.Since(start).Seconds())
		if attempt < uc.assignAttempts {
			delay := uc.assignBackoff * time.Duration(1<<(attempt-1))
			delay += time.Duration(rand.Int63n(int64(uc.assignBackoff)/2 + 1))
			logger.Debug("Queue partition busy, backing off",
				logger.String("hospital_id", receipt.HospitalID),
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

// GetReceipt fetches a single receipt by ID
func (uc *receiptUsecase) GetReceipt(ctx context.Context, id string) (*domain.Receipt, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: receipt id is required", domain.ErrInvalidInput)
	}

	receipt, err := uc.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	if receipt == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrReceiptNotFound, id)
	}
	return receipt, nil
}

// ListUserReceipts returns the patient's receipt list, newest first, capped
// at maxListItems. The second return reports whether the cache served it.
func (uc *receiptUsecase) ListUserReceipts(ctx context.Context, userID string, bypassCache bool) ([]*domain.ReceiptSummary, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, false, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	if !bypassCache {
		payload, err := uc.cache.Get(ctx, userID)
		if err != nil {
			logger.Warn("Receipt cache read failed, falling through",
				logger.String("user_id", userID),
				logger.ErrorField(err),
			)
		} else if payload != nil {
			var summaries []*domain.ReceiptSummary
			if err := json.Unmarshal(payload, &summaries); err == nil {
				metrics.RecordCacheHit()
				return summaries, true, nil
			}
			// Corrupt entry: drop it and rebuild from the store.
			uc.invalidateUser(ctx, userID)
		}
	}
	metrics.RecordCacheMiss()

	summaries, err := uc.receiptRepo.ListByUser(ctx, userID, maxListItems)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list receipts: %w", err)
	}
	for _, s := range summaries {
		populateRefs(s)
	}

	if payload, err := json.Marshal(summaries); err == nil {
		if err := uc.cache.Put(ctx, userID, payload, uc.cacheTTL); err != nil {
			logger.Warn("Receipt cache write failed",
				logger.String("user_id", userID),
				logger.ErrorField(err),
			)
		}
	}

	return summaries, false, nil
}

// ListHospitalQueue returns a hospital's active queue in serving order
func (uc *receiptUsecase) ListHospitalQueue(ctx context.Context, hospitalID string) ([]*domain.Receipt, error) {
	hospital, err := uc.hospitalRepo.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up hospital: %w", err)
	}
	if hospital == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrHospitalNotFound, hospitalID)
	}

	receipts, err := uc.receiptRepo.ListActiveByHospital(ctx, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hospital queue: %w", err)
	}
	return receipts, nil
}

// UpdateStatus applies a forward-only status transition. Leaving the active
// set removes the receipt from its partition and renumbers the rest.
func (uc *receiptUsecase) UpdateStatus(ctx context.Context, receiptID, newStatus string, doctorID *string) (*domain.Receipt, error) {
	if !domain.IsValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, newStatus)
	}

	receipt, err := uc.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(receipt.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, receipt.Status, newStatus)
	}

	if doctorID != nil {
		doctor, err := uc.hospitalRepo.GetDoctor(ctx, *doctorID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up doctor: %w", err)
		}
		if doctor == nil || doctor.HospitalID != receipt.HospitalID {
			return nil, fmt.Errorf("%w: doctor does not belong to hospital", domain.ErrInvalidInput)
		}
	}

	leavingQueue := receipt.IsActive() && !domain.IsActiveStatus(newStatus)
	if leavingQueue {
		err = uc.assigner.Remove(ctx, receipt.HospitalID, receipt.ID, func(_ int, updates []domain.PositionUpdate) error {
			if err := uc.receiptRepo.UpdateStatusAndPosition(ctx, receipt.ID, newStatus, 0, doctorID); err != nil {
				return err
			}
			return uc.receiptRepo.UpdateQueuePositions(ctx, updates)
		})
	} else {
		err = uc.receiptRepo.UpdateStatusAndPosition(ctx, receipt.ID, newStatus, receipt.QueuePosition, doctorID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	uc.invalidateUser(ctx, receipt.UserID)
	metrics.RecordReceipt(newStatus, domain.TierName(receipt.SeverityTier))

	logger.Info("Receipt status updated",
		logger.String("receipt_id", receipt.ID),
		logger.String("from", receipt.Status),
		logger.String("to", newStatus),
		logger.Bool("left_queue", leavingQueue),
	)

	return uc.GetReceipt(ctx, receiptID)
}

// ClearUserReceipts removes all of a user's receipts, renumbering every
// partition their active receipts occupied.
func (uc *receiptUsecase) ClearUserReceipts(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	active, err := uc.receiptRepo.ListActiveByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list active receipts: %w", err)
	}

	for _, r := range active {
		err := uc.assigner.Remove(ctx, r.HospitalID, r.ID, func(_ int, updates []domain.PositionUpdate) error {
			return uc.receiptRepo.UpdateQueuePositions(ctx, updates)
		})
		if err != nil {
			return fmt.Errorf("failed to remove receipt from queue: %w", err)
		}
		if r.ArtifactRef != "" {
			if delErr := uc.artifacts.Delete(ctx, r.ArtifactRef); delErr != nil {
				logger.Warn("Failed to delete artifact",
					logger.String("artifact_key", r.ArtifactRef),
					logger.ErrorField(delErr),
				)
			}
		}
	}

	if err := uc.receiptRepo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete receipts: %w", err)
	}

	uc.invalidateUser(ctx, userID)

	logger.Info("User receipts cleared",
		logger.String("user_id", userID),
		logger.Int("active_removed", len(active)),
	)

	return nil
}

func (uc *receiptUsecase) validateUpload(in *domain.UploadInput) error {
	if in == nil {
		return fmt.Errorf("%w: upload payload is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(in.HospitalID) == "" {
		return fmt.Errorf("%w: hospital id is required", domain.ErrInvalidInput)
	}
	if len(in.Image) == 0 {
		return fmt.Errorf("%w: receipt image is required", domain.ErrInvalidInput)
	}
	if uc.maxUploadBytes > 0 && int64(len(in.Image)) > uc.maxUploadBytes {
		return fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidInput, uc.maxUploadBytes)
	}

	contentType := utils.NormalizeContentType(in.ContentType)
	if contentType == "" || !utils.Contains(uc.allowedTypes, contentType) {
		return fmt.Errorf("%w: unsupported content type %q", domain.ErrInvalidInput, in.ContentType)
	}

	return nil
}

func (uc *receiptUsecase) artifactKey(in *domain.UploadInput) string {
	ext := strings.ToLower(path.Ext(in.Filename))
	return fmt.Sprintf("receipts/%s/%s%s", in.HospitalID, utils.GenerateUUID(), ext)
}

// invalidateUser drops the user's cached list. Cache failure never fails
// the mutation; the reconcile path and TTL bound the staleness.
func (uc *receiptUsecase) invalidateUser(ctx context.Context, userID string) {
	if err := uc.cache.Invalidate(ctx, userID); err != nil {
		logger.Warn("Failed to invalidate receipt cache",
			logger.String("user_id", userID),
			logger.ErrorField(err),
		)
	}
}

// populateRefs lifts the flat join columns into the embedded references
// served to clients.
func populateRefs(s *domain.ReceiptSummary) {
	s.Hospital = domain.HospitalRef{ID: s.HospitalID, Name: s.HospitalName}
	if s.DoctorID != nil {
		ref := &domain.DoctorRef{ID: *s.DoctorID}
		if s.DoctorName != nil {
			ref.Name = *s.DoctorName
		}
		if s.DoctorSpec != nil {
			ref.Specialty = *s.DoctorSpec
		}
		s.Doctor = ref
	}
}
