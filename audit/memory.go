package audit

import (
	"context"
	"sync"

	"github.com/prashanth-gajula/Agentic-Rag-and-BedRock-Agentrcore/rag"
)

// MemoryRecorder keeps invocation records in memory. Safe for concurrent
// use; intended for tests and short-lived processes.
type MemoryRecorder struct {
	mu      sync.RWMutex
	records []*rag.InvocationRecord
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record implements rag.Recorder.
func (r *MemoryRecorder) Record(ctx context.Context, rec *rag.InvocationRecord) error {
	clone := *rec
	clone.Verdicts = append([]rag.QualityVerdict(nil), rec.Verdicts...)

	r.mu.Lock()
	r.records = append(r.records, &clone)
	r.mu.Unlock()
	return nil
}

// List returns all records for a query ID in insertion order.
func (r *MemoryRecorder) List(ctx context.Context, queryID string) ([]*rag.InvocationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*rag.InvocationRecord
	for _, rec := range r.records {
		if rec.QueryID == queryID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// All returns every stored record in insertion order.
func (r *MemoryRecorder) All() []*rag.InvocationRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*rag.InvocationRecord(nil), r.records...)
}
