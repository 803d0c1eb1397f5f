// Package claims initiates claim and cancel transactions for streams.
package claims

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"YieldStream/internal/accounting"
	"YieldStream/internal/chain"
	"YieldStream/internal/recorder"
)

// ErrNothingToClaim is returned when a stream has no claimable balance.
var ErrNothingToClaim = errors.New("nothing to claim")

// Result describes a submitted transaction.
type Result struct {
	StreamID uint64
	Amount   decimal.Decimal // pre-filled claimable amount; zero for cancel
	TxHash   string
}

// Service validates against the accounting figures and submits through the chain client.
type Service struct {
	Client   chain.Client
	Recorder recorder.Recorder
	Now      func() time.Time
}

func NewService(client chain.Client, rec recorder.Recorder) *Service {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Service{Client: client, Recorder: rec, Now: time.Now}
}

// Preview returns what a claim would withdraw right now, from a fresh snapshot.
func (s *Service) Preview(ctx context.Context, streamID uint64) (decimal.Decimal, error) {
	snap, err := s.Client.Stream(ctx, streamID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read stream %d: %w", streamID, err)
	}
	return accounting.Claimable(snap, s.Now()), nil
}

// Claim withdraws the claimable balance of a stream.
func (s *Service) Claim(ctx context.Context, streamID uint64) (*Result, error) {
	amount, err := s.Preview(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("stream %d: %w", streamID, ErrNothingToClaim)
	}

	hash, err := s.Client.Claim(ctx, streamID)
	s.record(&recorder.ClaimEvent{StreamID: streamID, Action: "CLAIM", Amount: amount, TxHash: hash}, err)
	if err != nil {
		return nil, fmt.Errorf("claim stream %d: %w", streamID, err)
	}
	log.Printf("[INFO] claimed %s from stream %d: %s", amount.String(), streamID, hash)
	return &Result{StreamID: streamID, Amount: amount, TxHash: hash}, nil
}

// Cancel submits a cancellation for a stream.
func (s *Service) Cancel(ctx context.Context, streamID uint64) (*Result, error) {
	hash, err := s.Client.Cancel(ctx, streamID)
	s.record(&recorder.ClaimEvent{StreamID: streamID, Action: "CANCEL", TxHash: hash}, err)
	if err != nil {
		return nil, fmt.Errorf("cancel stream %d: %w", streamID, err)
	}
	log.Printf("[INFO] cancelled stream %d: %s", streamID, hash)
	return &Result{StreamID: streamID, TxHash: hash}, nil
}

func (s *Service) record(evt *recorder.ClaimEvent, txErr error) {
	if txErr != nil {
		evt.Err = txErr.Error()
	}
	if err := s.Recorder.RecordClaim(evt); err != nil {
		log.Printf("[ERROR] record claim event: %v", err)
	}
}
