// Package accounting computes time-based vesting figures for payment streams.
//
// Every function is a pure function of (snapshot, now): no I/O, no hidden
// state, safe for concurrent use. A nil snapshot yields the zero value of
// each query. Malformed snapshots are never rejected; every figure is clamped
// into its valid range instead.
package accounting

import (
	"time"

	"github.com/shopspring/decimal"

	"YieldStream/internal/model"
)

// TotalVested returns the amount vested by now, capped at the stream total.
func TotalVested(s *model.StreamSnapshot, now time.Time) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	end := now.Unix()
	if s.StopTime < end {
		end = s.StopTime
	}
	elapsed := end - s.StartTime
	if elapsed < 0 {
		elapsed = 0
	}
	vested := decimal.Min(decimal.NewFromInt(elapsed).Mul(s.FlowRate), s.TotalAmount)
	if vested.IsNegative() {
		return decimal.Zero
	}
	return vested
}

// Claimable returns the vested amount not yet withdrawn. It does not look at
// IsActive: a frozen stream still reports what vested before the freeze.
func Claimable(s *model.StreamSnapshot, now time.Time) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return nonNegative(TotalVested(s, now).Sub(s.AmountWithdrawn))
}

// RemainingToVest returns the part of the total that has not vested yet.
func RemainingToVest(s *model.StreamSnapshot, now time.Time) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return nonNegative(s.TotalAmount.Sub(TotalVested(s, now)))
}

// ProgressPercent returns elapsed time as a percentage of the stream duration (0~100).
// This is time progress, not value progress; see VestedPercent.
func ProgressPercent(s *model.StreamSnapshot, now time.Time) float64 {
	if s == nil {
		return 0
	}
	duration := s.StopTime - s.StartTime
	if duration <= 0 {
		return 0
	}
	pct := float64(now.Unix()-s.StartTime) / float64(duration) * 100
	return clampPercent(pct)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
