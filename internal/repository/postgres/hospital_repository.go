package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ardiansr/mediqueue/internal/domain"
	"github.com/ardiansr/mediqueue/pkg/logger"
)

type hospitalRepository struct {
	db *sqlx.DB
}

// NewHospitalRepository creates a new hospital repository
func NewHospitalRepository(db *sqlx.DB) domain.HospitalRepository {
	return &hospitalRepository{db: db}
}

// Create inserts a hospital into the directory
func (r *hospitalRepository) Create(ctx context.Context, hospital *domain.Hospital) error {
	query := `
		INSERT INTO hospitals (id, name, address, phone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`

	_, err := r.db.ExecContext(ctx, query,
		hospital.ID, hospital.Name, hospital.Address, hospital.Phone, hospital.IsActive,
	)
	if err != nil {
		logger.Error("Failed to create hospital",
			logger.String("name", hospital.Name),
			logger.ErrorField(err),
		)
		return fmt.Errorf("failed to create hospital: %w", err)
	}

	logger.Info("Hospital created",
		logger.String("hospital_id", hospital.ID),
		logger.String("name", hospital.Name),
	)

	return nil
}

// GetByID retrieves a hospital by ID. Returns (nil, nil) when absent.
func (r *hospitalRepository) GetByID(ctx context.Context, id string) (*domain.Hospital, error) {
	query := `
		SELECT id, name, address, phone, is_active, created_at, updated_at
		FROM hospitals WHERE id = $1
	`

	var hospital domain.Hospital
	err := r.db.GetContext(ctx, &hospital, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Failed to get hospital",
			logger.String("hospital_id", id),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("failed to get hospital: %w", err)
	}

	return &hospital, nil
}

// List returns hospitals in the directory, ordered by name
func (r *hospitalRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Hospital, error) {
	query := `
		SELECT id, name, address, phone, is_active, created_at, updated_at
		FROM hospitals
	`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY name ASC`

	hospitals := []*domain.Hospital{}
	if err := r.db.SelectContext(ctx, &hospitals, query); err != nil {
		logger.Error("Failed to list hospitals", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to list hospitals: %w", err)
	}

	return hospitals, nil
}

// GetDoctor retrieves a doctor by ID. Returns (nil, nil) when absent.
func (r *hospitalRepository) GetDoctor(ctx context.Context, id string) (*domain.Doctor, error) {
	query := `
		SELECT id, hospital_id, name, specialty, is_active, created_at
		FROM doctors WHERE id = $1
	`

	var doctor domain.Doctor
	err := r.db.GetContext(ctx, &doctor, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}

	return &doctor, nil
}

// ListDoctors returns a hospital's active doctors
func (r *hospitalRepository) ListDoctors(ctx context.Context, hospitalID string) ([]*domain.Doctor, error) {
	query := `
		SELECT id, hospital_id, name, specialty, is_active, created_at
		FROM doctors
		WHERE hospital_id = $1 AND is_active = true
		ORDER BY name ASC
	`

	doctors := []*domain.Doctor{}
	if err := r.db.SelectContext(ctx, &doctors, query, hospitalID); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}

	return doctors, nil
}
