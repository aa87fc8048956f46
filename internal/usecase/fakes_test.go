package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ardiansr/mediqueue/config"
	"github.com/ardiansr/mediqueue/internal/domain"
)

func newTestConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{
			MaxUploadBytes: 1024 * 1024,
		},
		Storage: config.StorageConfig{
			AllowedTypes: []string{"image/png", "image/jpeg"},
		},
		Queue: config.QueueConfig{
			LockWait:       time.Second,
			AssignAttempts: 3,
			AssignBackoff:  5 * time.Millisecond,
		},
		Cache: config.CacheConfig{
			TTL: 5 * time.Minute,
		},
	}
}

// fakeReceiptRepo is an in-memory domain.ReceiptRepository.
type fakeReceiptRepo struct {
	mu            sync.Mutex
	receipts      map[string]*domain.Receipt
	hospitalNames map[string]string
	failCreate    error
}

func newFakeReceiptRepo(hospitalNames map[string]string) *fakeReceiptRepo {
	return &fakeReceiptRepo{
		receipts:      make(map[string]*domain.Receipt),
		hospitalNames: hospitalNames,
	}
}

func (f *fakeReceiptRepo) CreateQueued(_ context.Context, receipt *domain.Receipt, updates []domain.PositionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	clone := *receipt
	f.receipts[receipt.ID] = &clone
	for _, u := range updates {
		if r, ok := f.receipts[u.ReceiptID]; ok {
			r.QueuePosition = u.Position
		}
	}
	return nil
}

func (f *fakeReceiptRepo) GetByID(_ context.Context, id string) (*domain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[id]
	if !ok {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

func (f *fakeReceiptRepo) UpdateStatusAndPosition(_ context.Context, id, status string, position int, doctorID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[id]
	if !ok {
		return domain.ErrReceiptNotFound
	}
	r.Status = status
	r.QueuePosition = position
	if doctorID != nil {
		r.DoctorID = doctorID
	}
	now := time.Now()
	r.UpdatedAt = now
	if status == domain.StatusProcessing && r.ProcessedAt == nil {
		r.ProcessedAt = &now
	}
	if status == domain.StatusCompleted || status == domain.StatusCancelled {
		r.CompletedAt = &now
	}
	return nil
}

func (f *fakeReceiptRepo) UpdateQueuePositions(_ context.Context, updates []domain.PositionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range updates {
		if r, ok := f.receipts[u.ReceiptID]; ok {
			r.QueuePosition = u.Position
		}
	}
	return nil
}

func (f *fakeReceiptRepo) ListActiveByHospital(_ context.Context, hospitalID string) ([]*domain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.Receipt{}
	for _, r := range f.receipts {
		if r.HospitalID == hospitalID && r.IsActive() {
			clone := *r
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueuePosition < out[j].QueuePosition })
	return out, nil
}

func (f *fakeReceiptRepo) ListByUser(_ context.Context, userID string, limit int) ([]*domain.ReceiptSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.ReceiptSummary{}
	for _, r := range f.receipts {
		if r.UserID != userID {
			continue
		}
		out = append(out, &domain.ReceiptSummary{
			ID:            r.ID,
			ReceiptCode:   r.ReceiptCode,
			Status:        r.Status,
			SeverityScore: r.SeverityScore,
			SeverityTier:  r.SeverityTier,
			QueuePosition: r.QueuePosition,
			UploadedAt:    r.UploadedAt,
			ProcessedAt:   r.ProcessedAt,
			HospitalID:    r.HospitalID,
			HospitalName:  f.hospitalNames[r.HospitalID],
			DoctorID:      r.DoctorID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeReceiptRepo) ListActiveByUser(_ context.Context, userID string) ([]*domain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.Receipt{}
	for _, r := range f.receipts {
		if r.UserID == userID && r.IsActive() {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeReceiptRepo) ActiveHospitalIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, r := range f.receipts {
		if r.IsActive() && !seen[r.HospitalID] {
			seen[r.HospitalID] = true
			out = append(out, r.HospitalID)
		}
	}
	return out, nil
}

func (f *fakeReceiptRepo) DeleteByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.receipts {
		if r.UserID == userID {
			delete(f.receipts, id)
		}
	}
	return nil
}

func (f *fakeReceiptRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.receipts)
}

// fakeHospitalRepo is an in-memory domain.HospitalRepository.
type fakeHospitalRepo struct {
	hospitals map[string]*domain.Hospital
	doctors   map[string]*domain.Doctor
}

func newFakeHospitalRepo() *fakeHospitalRepo {
	return &fakeHospitalRepo{
		hospitals: make(map[string]*domain.Hospital),
		doctors:   make(map[string]*domain.Doctor),
	}
}

func (f *fakeHospitalRepo) addHospital(id, name string) {
	f.hospitals[id] = &domain.Hospital{ID: id, Name: name, IsActive: true}
}

func (f *fakeHospitalRepo) addDoctor(id, hospitalID, name string) {
	f.doctors[id] = &domain.Doctor{ID: id, HospitalID: hospitalID, Name: name, IsActive: true}
}

func (f *fakeHospitalRepo) Create(_ context.Context, hospital *domain.Hospital) error {
	f.hospitals[hospital.ID] = hospital
	return nil
}

func (f *fakeHospitalRepo) GetByID(_ context.Context, id string) (*domain.Hospital, error) {
	return f.hospitals[id], nil
}

func (f *fakeHospitalRepo) List(_ context.Context, activeOnly bool) ([]*domain.Hospital, error) {
	out := []*domain.Hospital{}
	for _, h := range f.hospitals {
		if !activeOnly || h.IsActive {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeHospitalRepo) GetDoctor(_ context.Context, id string) (*domain.Doctor, error) {
	return f.doctors[id], nil
}

func (f *fakeHospitalRepo) ListDoctors(_ context.Context, hospitalID string) ([]*domain.Doctor, error) {
	out := []*domain.Doctor{}
	for _, d := range f.doctors {
		if d.HospitalID == hospitalID {
			out = append(out, d)
		}
	}
	return out, nil
}

// fakeClassifier scripts the remote classifier behaviour.
type fakeClassifier struct {
	mu       sync.Mutex
	severity domain.Severity
	failures int
	calls    int
}

func (f *fakeClassifier) Classify(context.Context, domain.ArtifactRef, string) (domain.Severity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return domain.Severity{}, domain.ErrClassifierUnavailable
	}
	return f.severity, nil
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
