package domain

import (
	"context"
	"time"
)

// Receipt represents a patient's intake receipt in a hospital queue
type Receipt struct {
	ID          string `json:"id" db:"id"`
	ReceiptCode string `json:"receipt_code" db:"receipt_code"`
	UserID      string `json:"user_id" db:"user_id"`
	HospitalID  string `json:"hospital_id" db:"hospital_id"`

	// Assigned later by hospital-side triage
	DoctorID *string `json:"doctor_id" db:"doctor_id"`

	// Uploaded artifact
	ArtifactRef string  `json:"artifact_ref" db:"artifact_ref"`
	Symptoms    *string `json:"symptoms" db:"symptoms"`

	// Triage outcome (set once, before position assignment)
	SeverityScore float64 `json:"severity_score" db:"severity_score"`
	SeverityTier  int     `json:"severity_tier" db:"severity_tier"`

	// Queue state
	Status        string `json:"status" db:"status"`
	QueuePosition int    `json:"queue_position" db:"queue_position"`

	// Timestamps
	UploadedAt  time.Time  `json:"uploaded_at" db:"uploaded_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at" db:"processed_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}

// ReceiptSummary is the list-view projection served to patients,
// joined with hospital and doctor directory data.
type ReceiptSummary struct {
	ID            string     `json:"id" db:"id"`
	ReceiptCode   string     `json:"receipt_code" db:"receipt_code"`
	Status        string     `json:"status" db:"status"`
	SeverityScore float64    `json:"severity_score" db:"severity_score"`
	SeverityTier  int        `json:"severity_tier" db:"severity_tier"`
	QueuePosition int        `json:"queue_position" db:"queue_position"`
	UploadedAt    time.Time  `json:"uploaded_at" db:"uploaded_at"`
	ProcessedAt   *time.Time `json:"processed_at" db:"processed_at"`

	HospitalID   string  `json:"-" db:"hospital_id"`
	HospitalName string  `json:"-" db:"hospital_name"`
	DoctorID     *string `json:"-" db:"doc_id"`
	DoctorName   *string `json:"-" db:"doc_name"`
	DoctorSpec   *string `json:"-" db:"doc_specialty"`

	Hospital HospitalRef `json:"hospital" db:"-"`
	Doctor   *DoctorRef  `json:"doctor,omitempty" db:"-"`
}

// HospitalRef is the embedded hospital reference in a summary.
type HospitalRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DoctorRef is the embedded doctor reference in a summary.
type DoctorRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// PositionUpdate carries one renumbered queue position to be persisted.
type PositionUpdate struct {
	ReceiptID string
	Position  int
}

// Receipt status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusAssigned   = "ASSIGNED"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

var statusOrder = map[string]int{
	StatusQueued:     1,
	StatusProcessing: 2,
	StatusAssigned:   3,
	StatusCompleted:  4,
	StatusCancelled:  4,
}

// IsValidStatus checks if the receipt status is valid
func IsValidStatus(status string) bool {
	_, ok := statusOrder[status]
	return ok
}

// IsActiveStatus reports whether a status counts toward queue position
func IsActiveStatus(status string) bool {
	return status == StatusQueued || status == StatusProcessing
}

// CanTransition reports whether a status change is allowed. Transitions are
// forward-only: nothing leaves COMPLETED or CANCELLED, and CANCELLED is
// reachable from any non-final state.
func CanTransition(from, to string) bool {
	if !IsValidStatus(from) || !IsValidStatus(to) {
		return false
	}
	if from == StatusCompleted || from == StatusCancelled {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return statusOrder[to] > statusOrder[from]
}

// IsActive reports whether the receipt counts toward its hospital queue
func (r *Receipt) IsActive() bool {
	return IsActiveStatus(r.Status)
}

// IsFinal reports whether the receipt reached a terminal status
func (r *Receipt) IsFinal() bool {
	return r.Status == StatusCompleted || r.Status == StatusCancelled
}

// ReceiptRepository defines operations for receipt data access
type ReceiptRepository interface {
	// CreateQueued inserts the receipt and applies the accompanying
	// position renumbering of its hospital partition in one transaction.
	CreateQueued(ctx context.Context, receipt *Receipt, updates []PositionUpdate) error
	GetByID(ctx context.Context, id string) (*Receipt, error)
	UpdateStatusAndPosition(ctx context.Context, id, status string, position int, doctorID *string) error
	// UpdateQueuePositions applies a batch of renumbered positions atomically.
	UpdateQueuePositions(ctx context.Context, updates []PositionUpdate) error
	ListActiveByHospital(ctx context.Context, hospitalID string) ([]*Receipt, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*ReceiptSummary, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*Receipt, error)
	ActiveHospitalIDs(ctx context.Context) ([]string, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// ReceiptUsecase defines the intake and queue business logic
type ReceiptUsecase interface {
	UploadReceipt(ctx context.Context, in *UploadInput) (*Receipt, string, error)
	GetReceipt(ctx context.Context, id string) (*Receipt, error)
	ListUserReceipts(ctx context.Context, userID string, bypassCache bool) ([]*ReceiptSummary, bool, error)
	ListHospitalQueue(ctx context.Context, hospitalID string) ([]*Receipt, error)
	UpdateStatus(ctx context.Context, receiptID, newStatus string, doctorID *string) (*Receipt, error)
	ClearUserReceipts(ctx context.Context, userID string) error
}

// UploadInput carries a receipt upload through the intake pipeline
type UploadInput struct {
	UserID      string
	HospitalID  string
	Image       []byte
	ContentType string
	Filename    string
	Symptoms    string
}
