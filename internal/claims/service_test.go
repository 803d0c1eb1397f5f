package claims

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"YieldStream/internal/chain"
	"YieldStream/internal/model"
	"YieldStream/internal/recorder"
)

type memRecorder struct {
	recorder.NoopRecorder
	claims []recorder.ClaimEvent
}

func (m *memRecorder) RecordClaim(evt *recorder.ClaimEvent) error {
	m.claims = append(m.claims, *evt)
	return nil
}

func setup(t *testing.T, now int64) (*Service, *chain.MockClient, *memRecorder) {
	t.Helper()
	mc := &chain.MockClient{}
	mc.AddToken(model.TokenDetails{TokenID: 1, StreamID: 1, RegisteredAt: 1}, chain.MockOwnerA, &model.StreamSnapshot{
		StreamID:    1,
		TotalAmount: decimal.NewFromInt(1000),
		FlowRate:    decimal.NewFromInt(1),
		StartTime:   0,
		StopTime:    1000,
		IsActive:    true,
	})
	clock := func() time.Time { return time.Unix(now, 0) }
	mc.Now = clock
	rec := &memRecorder{}
	svc := NewService(mc, rec)
	svc.Now = clock
	return svc, mc, rec
}

func TestService_Claim(t *testing.T) {
	svc, mc, rec := setup(t, 500)
	ctx := context.Background()

	amount, err := svc.Preview(ctx, 1)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(500)))

	res, err := svc.Claim(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(500)))
	assert.NotEmpty(t, res.TxHash)

	s, _ := mc.Stream(ctx, 1)
	assert.True(t, s.AmountWithdrawn.Equal(decimal.NewFromInt(500)))

	require.Len(t, rec.claims, 1)
	assert.Equal(t, "CLAIM", rec.claims[0].Action)
	assert.Equal(t, res.TxHash, rec.claims[0].TxHash)

	// Nothing left until the clock moves.
	_, err = svc.Claim(ctx, 1)
	assert.ErrorIs(t, err, ErrNothingToClaim)
	assert.Len(t, rec.claims, 1)
}

func TestService_ClaimBeforeStart(t *testing.T) {
	svc, _, _ := setup(t, -10)
	_, err := svc.Claim(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNothingToClaim)
}

func TestService_CollaboratorFailures(t *testing.T) {
	svc, mc, rec := setup(t, 500)
	ctx := context.Background()

	_, err := svc.Claim(ctx, 99)
	assert.ErrorIs(t, err, chain.ErrStreamNotFound)

	mc.Err = errors.New("rpc down")
	_, err = svc.Preview(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc down")

	_, err = svc.Cancel(ctx, 1)
	require.Error(t, err)
	require.Len(t, rec.claims, 1)
	assert.Equal(t, "CANCEL", rec.claims[0].Action)
	assert.Contains(t, rec.claims[0].Err, "rpc down")
}

func TestService_Cancel(t *testing.T) {
	svc, mc, _ := setup(t, 500)
	ctx := context.Background()

	res, err := svc.Cancel(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Amount.IsZero())

	s, _ := mc.Stream(ctx, 1)
	assert.False(t, s.IsActive)

	// Vested balance stays claimable after cancellation.
	res, err = svc.Claim(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(500)))

	_, err = svc.Cancel(ctx, 1)
	assert.ErrorIs(t, err, chain.ErrReverted)
}
