package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ardiansr/mediqueue/internal/domain"
	"github.com/ardiansr/mediqueue/pkg/metrics"
)

// Entry is one active receipt held in a hospital partition, carrying only
// what ordering needs.
type Entry struct {
	ReceiptID   string
	Tier        int
	ArrivalTime time.Time
}

// CommitFunc persists the outcome of an insert or removal while the partition
// lock is still held. position is the slot assigned to the subject receipt
// (zero for removals); updates are the neighbours whose positions shifted.
// Returning an error aborts the in-memory change.
type CommitFunc func(position int, updates []domain.PositionUpdate) error

// partition holds the ordered active entries of a single hospital. The lock
// channel carries at most one token; holding the token means holding the
// partition exclusively.
type partition struct {
	lock    chan struct{}
	entries []Entry
}

// Assigner maintains per-hospital queue partitions ordered by severity tier
// (higher first) and arrival time within a tier. Positions are contiguous
// 1..N at all times; every insert or removal renumbers the affected suffix
// and hands the changes to a commit callback before they become visible.
type Assigner struct {
	mu         sync.RWMutex
	partitions map[string]*partition
	lockWait   time.Duration
}

// NewAssigner creates an assigner whose partition lock acquisition waits at
// most lockWait before giving up with domain.ErrQueueBusy.
func NewAssigner(lockWait time.Duration) *Assigner {
	if lockWait <= 0 {
		lockWait = 2 * time.Second
	}
	return &Assigner{
		partitions: make(map[string]*partition),
		lockWait:   lockWait,
	}
}

func (a *Assigner) getPartition(hospitalID string) *partition {
	a.mu.RLock()
	p, ok := a.partitions[hospitalID]
	a.mu.RUnlock()
	if ok {
		return p
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok = a.partitions[hospitalID]; ok {
		return p
	}
	p = &partition{lock: make(chan struct{}, 1)}
	a.partitions[hospitalID] = p
	return p
}

// acquire takes the partition token with a bounded wait.
func (a *Assigner) acquire(ctx context.Context, hospitalID string, p *partition) error {
	timer := time.NewTimer(a.lockWait)
	defer timer.Stop()

	select {
	case p.lock <- struct{}{}:
		return nil
	case <-timer.C:
		metrics.RecordQueueBusy(hospitalID)
		return domain.ErrQueueBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *partition) release() {
	<-p.lock
}

// rankBefore reports whether x is served before y: higher tier first,
// earlier arrival within the same tier.
func rankBefore(x, y Entry) bool {
	if x.Tier != y.Tier {
		return x.Tier > y.Tier
	}
	return x.ArrivalTime.Before(y.ArrivalTime)
}

// insertIndex finds the slot for e, keeping insertion stable: an entry with
// the same tier and arrival as an existing one goes after it.
func insertIndex(entries []Entry, e Entry) int {
	return sort.Search(len(entries), func(i int) bool {
		return rankBefore(e, entries[i])
	})
}

// Insert places the entry at its rank in the hospital partition, renumbers
// the displaced suffix, and calls commit with the assigned position and the
// shifted neighbours while the partition is still locked. If commit fails
// the in-memory insert is rolled back and nothing is visible.
func (a *Assigner) Insert(ctx context.Context, hospitalID string, e Entry, commit CommitFunc) (int, error) {
	p := a.getPartition(hospitalID)
	if err := a.acquire(ctx, hospitalID, p); err != nil {
		return 0, err
	}
	defer p.release()

	idx := insertIndex(p.entries, e)

	p.entries = append(p.entries, Entry{})
	copy(p.entries[idx+1:], p.entries[idx:])
	p.entries[idx] = e

	position := idx + 1
	updates := make([]domain.PositionUpdate, 0, len(p.entries)-idx-1)
	for i := idx + 1; i < len(p.entries); i++ {
		updates = append(updates, domain.PositionUpdate{
			ReceiptID: p.entries[i].ReceiptID,
			Position:  i + 1,
		})
	}

	if commit != nil {
		if err := commit(position, updates); err != nil {
			copy(p.entries[idx:], p.entries[idx+1:])
			p.entries = p.entries[:len(p.entries)-1]
			return 0, err
		}
	}

	metrics.SetQueueDepth(hospitalID, float64(len(p.entries)))
	return position, nil
}

// Remove drops the receipt from its hospital partition, renumbers the
// trailing entries, and calls commit with the shifts while the partition is
// locked. Removing an absent receipt is a no-op.
func (a *Assigner) Remove(ctx context.Context, hospitalID, receiptID string, commit CommitFunc) error {
	p := a.getPartition(hospitalID)
	if err := a.acquire(ctx, hospitalID, p); err != nil {
		return err
	}
	defer p.release()

	idx := -1
	for i, e := range p.entries {
		if e.ReceiptID == receiptID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	removed := p.entries[idx]
	copy(p.entries[idx:], p.entries[idx+1:])
	p.entries = p.entries[:len(p.entries)-1]

	updates := make([]domain.PositionUpdate, 0, len(p.entries)-idx)
	for i := idx; i < len(p.entries); i++ {
		updates = append(updates, domain.PositionUpdate{
			ReceiptID: p.entries[i].ReceiptID,
			Position:  i + 1,
		})
	}

	if commit != nil {
		if err := commit(0, updates); err != nil {
			p.entries = append(p.entries, Entry{})
			copy(p.entries[idx+1:], p.entries[idx:])
			p.entries[idx] = removed
			return err
		}
	}

	metrics.SetQueueDepth(hospitalID, float64(len(p.entries)))
	return nil
}

// Rebuild replaces the partition contents from persisted state, re-sorting
// by rank. Used at startup and by the reconcile worker.
func (a *Assigner) Rebuild(ctx context.Context, hospitalID string, entries []Entry) error {
	p := a.getPartition(hospitalID)
	if err := a.acquire(ctx, hospitalID, p); err != nil {
		return err
	}
	defer p.release()

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rankBefore(sorted[i], sorted[j])
	})
	p.entries = sorted

	metrics.SetQueueDepth(hospitalID, float64(len(p.entries)))
	return nil
}

// Snapshot returns a copy of the partition's entries in serving order.
func (a *Assigner) Snapshot(hospitalID string) []Entry {
	p := a.getPartition(hospitalID)
	p.lock <- struct{}{}
	defer p.release()

	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Positions returns the current receipt-to-position mapping of a partition.
func (a *Assigner) Positions(hospitalID string) map[string]int {
	entries := a.Snapshot(hospitalID)
	out := make(map[string]int, len(entries))
	for i, e := range entries {
		out[e.ReceiptID] = i + 1
	}
	return out
}

// Depth returns the number of active entries in a partition.
func (a *Assigner) Depth(hospitalID string) int {
	p := a.getPartition(hospitalID)
	p.lock <- struct{}{}
	defer p.release()
	return len(p.entries)
}

// Hospitals lists the hospital IDs with a partition loaded.
func (a *Assigner) Hospitals() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, len(a.partitions))
	for id := range a.partitions {
		out = append(out, id)
	}
	return out
}
