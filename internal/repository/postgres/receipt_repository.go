package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ardiansr/mediqueue/internal/domain"
	"github.com/ardiansr/mediqueue/pkg/logger"
)

type receiptRepository struct {
	db *sqlx.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *sqlx.DB) domain.ReceiptRepository {
	return &receiptRepository{db: db}
}

const receiptColumns = `
	id, receipt_code, user_id, hospital_id, doctor_id,
	artifact_ref, symptoms, severity_score, severity_tier,
	status, queue_position,
	uploaded_at, updated_at, processed_at, completed_at
`

// CreateQueued inserts the receipt and applies the accompanying position
// renumbering of its hospital partition in one transaction.
func (r *receiptRepository) CreateQueued(ctx context.Context, receipt *domain.Receipt, updates []domain.PositionUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO receipts (id, receipt_code, user_id, hospital_id,
			artifact_ref, symptoms, severity_score, severity_tier,
			status, queue_position, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = tx.ExecContext(ctx, query,
		receipt.ID, receipt.ReceiptCode, receipt.UserID, receipt.HospitalID,
		receipt.ArtifactRef, receipt.Symptoms, receipt.SeverityScore, receipt.SeverityTier,
		receipt.Status, receipt.QueuePosition, receipt.UploadedAt, receipt.UpdatedAt,
	)
	if err != nil {
		logger.Error("Failed to create receipt",
			logger.String("receipt_code", receipt.ReceiptCode),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to create receipt: %w", err)
	}

	if err := applyPositionUpdates(ctx, tx, updates); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit receipt insert: %w", err)
	}

	logger.Info("Receipt created",
		logger.String("receipt_id", receipt.ID),
		logger.String("receipt_code", receipt.ReceiptCode),
		logger.Int("position", receipt.QueuePosition),
		logger.Int("shifted", len(updates)),
	)

	return nil
}

// GetByID retrieves a receipt by ID. Returns (nil, nil) when absent.
func (r *receiptRepository) GetByID(ctx context.Context, id string) (*domain.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE id = $1`

	var receipt domain.Receipt
	err := r.db.GetContext(ctx, &receipt, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Failed to get receipt by ID",
			logger.String("receipt_id", id),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	return &receipt, nil
}

// UpdateStatusAndPosition applies a status transition, maintaining the
// workflow timestamps in the same statement.
func (r *receiptRepository) UpdateStatusAndPosition(ctx context.Context, id, status string, position int, doctorID *string) error {
	query := `
		UPDATE receipts SET
			status = $2,
			queue_position = $3,
			doctor_id = COALESCE($4, doctor_id),
			updated_at = NOW(),
			processed_at = CASE WHEN $2 = 'PROCESSING' AND processed_at IS NULL THEN NOW() ELSE processed_at END,
			completed_at = CASE WHEN $2 IN ('COMPLETED', 'CANCELLED') THEN NOW() ELSE completed_at END
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, position, doctorID)
	if err != nil {
		logger.Error("Failed to update receipt status",
			logger.String("receipt_id", id),
			logger.String("status", status),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to update receipt status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrReceiptNotFound, id)
	}

	return nil
}

// UpdateQueuePositions applies a batch of renumbered positions atomically.
func (r *receiptRepository) UpdateQueuePositions(ctx context.Context, updates []domain.PositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := applyPositionUpdates(ctx, tx, updates); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit position updates: %w", err)
	}

	return nil
}

func applyPositionUpdates(ctx context.Context, tx *sqlx.Tx, updates []domain.PositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `UPDATE receipts SET queue_position = $2, updated_at = NOW() WHERE id = $1`)
	if err != nil {
		return fmt.Errorf("failed to prepare position update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, u.ReceiptID, u.Position); err != nil {
			logger.Error("Failed to update queue position",
				logger.String("receipt_id", u.ReceiptID),
				logger.Int("position", u.Position),
				logger.ErrorField(err),
			)
			return fmt.Errorf("failed to update queue position: %w", err)
		}
	}

	return nil
}

// ListActiveByHospital returns a hospital's active receipts in serving order
func (r *receiptRepository) ListActiveByHospital(ctx context.Context, hospitalID string) ([]*domain.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + `
		FROM receipts
		WHERE hospital_id = $1 AND status IN ('QUEUED', 'PROCESSING')
		ORDER BY queue_position ASC
	`

	receipts := []*domain.Receipt{}
	if err := r.db.SelectContext(ctx, &receipts, query, hospitalID); err != nil {
		logger.Error("Failed to list hospital queue",
			logger.String("hospital_id", hospitalID),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to list hospital queue: %w", err)
	}

	return receipts, nil
}

// ListByUser returns the user's receipts joined with directory data,
// newest first.
func (r *receiptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.ReceiptSummary, error) {
	query := `
		SELECT r.id, r.receipt_code, r.status, r.severity_score, r.severity_tier,
			r.queue_position, r.uploaded_at, r.processed_at,
			r.hospital_id, h.name AS hospital_name,
			d.id AS doc_id, d.name AS doc_name, d.specialty AS doc_specialty
		FROM receipts r
		JOIN hospitals h ON h.id = r.hospital_id
		LEFT JOIN doctors d ON d.id = r.doctor_id
		WHERE r.user_id = $1
		ORDER BY r.uploaded_at DESC
		LIMIT $2
	`

	summaries := []*domain.ReceiptSummary{}
	if err := r.db.SelectContext(ctx, &summaries, query, userID, limit); err != nil {
		logger.Error("Failed to list user receipts",
			logger.String("user_id", userID),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to list user receipts: %w", err)
	}

	return summaries, nil
}

// ListActiveByUser returns the user's active receipts
func (r *receiptRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + `
		FROM receipts
		WHERE user_id = $1 AND status IN ('QUEUED', 'PROCESSING')
	`

	receipts := []*domain.Receipt{}
	if err := r.db.SelectContext(ctx, &receipts, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list active receipts: %w", err)
	}

	return receipts, nil
}

// ActiveHospitalIDs lists hospitals that currently have active receipts
func (r *receiptRepository) ActiveHospitalIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT hospital_id
		FROM receipts
		WHERE status IN ('QUEUED', 'PROCESSING')
	`

	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list active hospitals: %w", err)
	}

	return ids, nil
}

// DeleteByUser removes every receipt belonging to the user
func (r *receiptRepository) DeleteByUser(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM receipts WHERE user_id = $1`, userID)
	if err != nil {
		logger.Error("Failed to delete user receipts",
			logger.String("user_id", userID),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to delete user receipts: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	logger.Info("User receipts deleted",
		logger.String("user_id", userID),
		logger.Int64("count", rowsAffected),
	)

	return nil
}
