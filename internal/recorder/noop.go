package recorder

import "YieldStream/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSample(_ *Sample) error              { return nil }
func (n *NoopRecorder) RecordClaim(_ *ClaimEvent) error           { return nil }
func (n *NoopRecorder) RecordAlert(_ *model.Alert) error          { return nil }
func (n *NoopRecorder) History(_ uint64, _ int) ([]Sample, error) { return nil, nil }
func (n *NoopRecorder) Close() error                              { return nil }
