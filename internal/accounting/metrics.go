package accounting

import (
	"time"

	"github.com/shopspring/decimal"

	"YieldStream/internal/model"
)

// VestedPercent returns the vested amount as a percentage of the total (0~100).
func VestedPercent(s *model.StreamSnapshot, now time.Time) float64 {
	if s == nil || s.TotalAmount.Sign() <= 0 {
		return 0
	}
	pct := TotalVested(s, now).Div(s.TotalAmount).InexactFloat64() * 100
	return clampPercent(pct)
}

// Escrow returns what the contract still holds for the stream (total minus withdrawn).
func Escrow(s *model.StreamSnapshot) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return nonNegative(s.TotalAmount.Sub(s.AmountWithdrawn))
}

// Status derives the lifecycle state. Transition authority stays on chain;
// this only reports what the snapshot implies at now.
func Status(s *model.StreamSnapshot, now time.Time) model.StreamStatus {
	if s == nil {
		return model.StatusMissing
	}
	ts := now.Unix()
	switch {
	case ts >= s.StopTime:
		return model.StatusCompleted
	case !s.IsActive:
		return model.StatusFrozen
	case ts < s.StartTime:
		return model.StatusScheduled
	default:
		return model.StatusStreaming
	}
}

// TimeRemaining returns how long until the stream stops vesting, never negative.
func TimeRemaining(s *model.StreamSnapshot, now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	left := s.StopTime - now.Unix()
	if left < 0 {
		return 0
	}
	return time.Duration(left) * time.Second
}

// FlowRateFor returns total/duration, or zero when the duration is not positive.
func FlowRateFor(total decimal.Decimal, durationSeconds int64) decimal.Decimal {
	if durationSeconds <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(durationSeconds))
}

// Evaluate computes every derived figure for s at now.
func Evaluate(s *model.StreamSnapshot, now time.Time) model.StreamMetrics {
	m := model.StreamMetrics{
		TotalVested:     TotalVested(s, now),
		Withdrawn:       decimal.Zero,
		Claimable:       Claimable(s, now),
		RemainingToVest: RemainingToVest(s, now),
		Escrow:          Escrow(s),
		ProgressPercent: ProgressPercent(s, now),
		VestedPercent:   VestedPercent(s, now),
		Status:          Status(s, now),
	}
	if s != nil {
		m.Withdrawn = s.AmountWithdrawn
	}
	return m
}
