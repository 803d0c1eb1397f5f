package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StreamSnapshot is a point-in-time read of a payment stream's parameters.
// Amounts are in display units (base units already scaled by token decimals).
type StreamSnapshot struct {
	StreamID        uint64
	Sender          string
	Recipient       string
	TotalAmount     decimal.Decimal
	FlowRate        decimal.Decimal // amount per second
	StartTime       int64           // unix seconds
	StopTime        int64           // unix seconds
	AmountWithdrawn decimal.Decimal
	IsActive        bool
	FetchedAt       time.Time
}

// StreamStatus is the lifecycle state derived from a snapshot and the clock.
type StreamStatus string

const (
	StatusMissing   StreamStatus = "missing"
	StatusScheduled StreamStatus = "scheduled"
	StatusStreaming StreamStatus = "streaming"
	StatusFrozen    StreamStatus = "frozen"
	StatusCompleted StreamStatus = "completed"
)

// StreamMetrics holds every derived figure for one stream at one instant.
type StreamMetrics struct {
	TotalVested     decimal.Decimal `json:"total_vested"`
	Withdrawn       decimal.Decimal `json:"withdrawn"`
	Claimable       decimal.Decimal `json:"claimable"`
	RemainingToVest decimal.Decimal `json:"remaining_to_vest"`
	Escrow          decimal.Decimal `json:"escrow"`
	ProgressPercent float64         `json:"progress_percent"` // time elapsed, 0~100
	VestedPercent   float64         `json:"vested_percent"`   // value vested, 0~100
	Status          StreamStatus    `json:"status"`
}

// StreamUpdate is what the scheduler publishes on every display tick.
type StreamUpdate struct {
	StreamID uint64
	Snapshot *StreamSnapshot
	Metrics  StreamMetrics
	At       time.Time
}
