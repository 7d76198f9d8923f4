package rag

import "context"

// InvocationRecord is the audit snapshot of one completed pipeline
// invocation. Records are append-only and are never consumed by the
// control logic itself.
type InvocationRecord struct {
	ID        string           `json:"id"`
	QueryID   string           `json:"query_id"`
	Query     string           `json:"query"`
	Attempts  int              `json:"attempts"`
	Status    LoopStatus       `json:"status"`
	Cancelled bool             `json:"cancelled"`
	Verdicts  []QualityVerdict `json:"verdicts"`
	Answer    string           `json:"answer,omitempty"`
	Refused   bool             `json:"refused"`
	Reason    string           `json:"reason,omitempty"`
	CreatedAt int64            `json:"created_at"`
}

// Recorder persists invocation records. Implementations live in the audit
// package; recording is best-effort and never influences the response.
type Recorder interface {
	Record(ctx context.Context, rec *InvocationRecord) error
}
