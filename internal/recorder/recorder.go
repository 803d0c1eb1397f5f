package recorder

import (
	"time"

	"github.com/shopspring/decimal"

	"YieldStream/internal/model"
)

// Sample is one periodic reading of a stream's figures.
type Sample struct {
	StreamID        uint64
	At              time.Time
	Status          model.StreamStatus
	TotalVested     decimal.Decimal
	Claimable       decimal.Decimal
	Withdrawn       decimal.Decimal
	RemainingToVest decimal.Decimal
	ProgressPercent float64
	IsActive        bool
}

// SampleFromUpdate flattens a published update into a Sample.
func SampleFromUpdate(u model.StreamUpdate) *Sample {
	s := &Sample{
		StreamID:        u.StreamID,
		At:              u.At,
		Status:          u.Metrics.Status,
		TotalVested:     u.Metrics.TotalVested,
		Claimable:       u.Metrics.Claimable,
		Withdrawn:       u.Metrics.Withdrawn,
		RemainingToVest: u.Metrics.RemainingToVest,
		ProgressPercent: u.Metrics.ProgressPercent,
	}
	if u.Snapshot != nil {
		s.IsActive = u.Snapshot.IsActive
	}
	return s
}

// ClaimEvent records a submitted claim or cancel transaction.
type ClaimEvent struct {
	StreamID uint64
	Action   string // "CLAIM" or "CANCEL"
	Amount   decimal.Decimal
	TxHash   string
	Err      string
}

// Recorder persists stream history for later analysis.
type Recorder interface {
	RecordSample(s *Sample) error
	RecordClaim(evt *ClaimEvent) error
	RecordAlert(a *model.Alert) error
	// History returns up to limit samples for a stream, newest first.
	History(streamID uint64, limit int) ([]Sample, error)
	Close() error
}
