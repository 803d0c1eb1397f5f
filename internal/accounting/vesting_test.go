package accounting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldStream/internal/model"
)

func at(sec int64) time.Time { return time.Unix(sec, 0) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func exampleStream() *model.StreamSnapshot {
	return &model.StreamSnapshot{
		StartTime:       0,
		StopTime:        1000,
		FlowRate:        dec("1"),
		TotalAmount:     dec("1000"),
		AmountWithdrawn: dec("200"),
		IsActive:        true,
	}
}

func TestExampleScenario_MidStream(t *testing.T) {
	s := exampleStream()
	now := at(500)
	assertDec(t, "500", TotalVested(s, now))
	assertDec(t, "300", Claimable(s, now))
	assertDec(t, "500", RemainingToVest(s, now))
	assert.InDelta(t, 50.0, ProgressPercent(s, now), 1e-9)
}

func TestExampleScenario_PastStop(t *testing.T) {
	s := exampleStream()
	now := at(1500)
	assertDec(t, "1000", TotalVested(s, now))
	assertDec(t, "800", Claimable(s, now))
	assertDec(t, "0", RemainingToVest(s, now))
	assert.Equal(t, 100.0, ProgressPercent(s, now))
}

func TestClaimable_WithdrawnExceedsVested(t *testing.T) {
	s := exampleStream()
	s.AmountWithdrawn = dec("900")
	got := Claimable(s, at(500))
	assertDec(t, "0", got)
	assert.False(t, got.IsNegative())
}

func TestNilSnapshot_ZeroIdentities(t *testing.T) {
	now := at(123)
	assert.True(t, TotalVested(nil, now).IsZero())
	assert.True(t, Claimable(nil, now).IsZero())
	assert.True(t, RemainingToVest(nil, now).IsZero())
	assert.Equal(t, 0.0, ProgressPercent(nil, now))
}

func TestBoundaries(t *testing.T) {
	s := &model.StreamSnapshot{
		StartTime:   100,
		StopTime:    200,
		FlowRate:    dec("3"),
		TotalAmount: dec("250"),
		IsActive:    true,
	}

	tests := []struct {
		name     string
		now      int64
		vested   string
		progress float64
	}{
		{"before start", 50, "0", 0},
		{"at start", 100, "0", 0},
		{"quarter", 125, "75", 25},
		{"flow exceeds total", 190, "250", 90},
		{"at stop", 200, "250", 100},
		{"after stop", 10_000, "250", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDec(t, tt.vested, TotalVested(s, at(tt.now)))
			assert.InDelta(t, tt.progress, ProgressPercent(s, at(tt.now)), 1e-9)
		})
	}
}

func TestAfterStop_VestedIsMinOfRateAndTotal(t *testing.T) {
	// flowRate*duration = 50, below total: trust flowRate as given.
	s := &model.StreamSnapshot{StartTime: 0, StopTime: 100, FlowRate: dec("0.5"), TotalAmount: dec("80"), IsActive: true}
	assertDec(t, "50", TotalVested(s, at(1000)))
	assertDec(t, "30", RemainingToVest(s, at(1000)))
	assert.Equal(t, 100.0, ProgressPercent(s, at(1000)))
}

func TestDegenerateDuration(t *testing.T) {
	s := &model.StreamSnapshot{StartTime: 500, StopTime: 500, FlowRate: dec("1"), TotalAmount: dec("10"), IsActive: true}
	for _, now := range []int64{0, 499, 500, 501, 1_000_000} {
		assert.Equal(t, 0.0, ProgressPercent(s, at(now)), "now=%d", now)
	}
}

func TestMalformedSnapshots_Clamped(t *testing.T) {
	t.Run("stop before start", func(t *testing.T) {
		s := &model.StreamSnapshot{StartTime: 1000, StopTime: 10, FlowRate: dec("1"), TotalAmount: dec("100"), IsActive: true}
		assertDec(t, "0", TotalVested(s, at(5000)))
		assertDec(t, "100", RemainingToVest(s, at(5000)))
		assert.Equal(t, 0.0, ProgressPercent(s, at(5000)))
	})
	t.Run("negative flow rate", func(t *testing.T) {
		s := &model.StreamSnapshot{StartTime: 0, StopTime: 100, FlowRate: dec("-2"), TotalAmount: dec("100"), IsActive: true}
		assertDec(t, "0", TotalVested(s, at(50)))
		assertDec(t, "0", Claimable(s, at(50)))
	})
	t.Run("negative total", func(t *testing.T) {
		s := &model.StreamSnapshot{StartTime: 0, StopTime: 100, FlowRate: dec("1"), TotalAmount: dec("-5"), IsActive: true}
		assertDec(t, "0", TotalVested(s, at(50)))
		assertDec(t, "0", RemainingToVest(s, at(50)))
	})
	t.Run("withdrawn above total", func(t *testing.T) {
		s := &model.StreamSnapshot{StartTime: 0, StopTime: 100, FlowRate: dec("1"), TotalAmount: dec("100"), AmountWithdrawn: dec("150"), IsActive: true}
		assertDec(t, "0", Claimable(s, at(100)))
		assertDec(t, "0", Escrow(s))
	})
}

func TestClaimable_IgnoresIsActive(t *testing.T) {
	s := exampleStream()
	s.IsActive = false
	assertDec(t, "300", Claimable(s, at(500)))
}

func TestEvaluate(t *testing.T) {
	s := exampleStream()
	m := Evaluate(s, at(500))
	assertDec(t, "500", m.TotalVested)
	assertDec(t, "200", m.Withdrawn)
	assertDec(t, "300", m.Claimable)
	assertDec(t, "500", m.RemainingToVest)
	assertDec(t, "800", m.Escrow)
	assert.InDelta(t, 50.0, m.ProgressPercent, 1e-9)
	assert.InDelta(t, 50.0, m.VestedPercent, 1e-9)
	assert.Equal(t, model.StatusStreaming, m.Status)

	empty := Evaluate(nil, at(500))
	assert.Equal(t, model.StatusMissing, empty.Status)
	assert.True(t, empty.Withdrawn.IsZero())
}

func TestStatus(t *testing.T) {
	s := &model.StreamSnapshot{StartTime: 100, StopTime: 200, FlowRate: dec("1"), TotalAmount: dec("100"), IsActive: true}
	assert.Equal(t, model.StatusScheduled, Status(s, at(50)))
	assert.Equal(t, model.StatusStreaming, Status(s, at(150)))
	assert.Equal(t, model.StatusCompleted, Status(s, at(200)))

	s.IsActive = false
	assert.Equal(t, model.StatusFrozen, Status(s, at(50)))
	assert.Equal(t, model.StatusFrozen, Status(s, at(150)))
	assert.Equal(t, model.StatusCompleted, Status(s, at(250)))
}

func TestVestedPercent_DivergesFromProgress(t *testing.T) {
	// flowRate says 2/s but total/duration is 1/s: value vests twice as fast as time.
	s := &model.StreamSnapshot{StartTime: 0, StopTime: 100, FlowRate: dec("2"), TotalAmount: dec("100"), IsActive: true}
	assert.InDelta(t, 25.0, ProgressPercent(s, at(25)), 1e-9)
	assert.InDelta(t, 50.0, VestedPercent(s, at(25)), 1e-9)
	assert.Equal(t, 0.0, VestedPercent(&model.StreamSnapshot{}, at(25)))
}

func TestTimeRemaining(t *testing.T) {
	s := exampleStream()
	assert.Equal(t, 600*time.Second, TimeRemaining(s, at(400)))
	assert.Equal(t, time.Duration(0), TimeRemaining(s, at(2000)))
	assert.Equal(t, time.Duration(0), TimeRemaining(nil, at(0)))
}

func TestFlowRateFor(t *testing.T) {
	assertDec(t, "0.5", FlowRateFor(dec("50"), 100))
	require.True(t, FlowRateFor(dec("50"), 0).IsZero())
	require.True(t, FlowRateFor(dec("50"), -10).IsZero())
}
