package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"YieldStream/internal/accounting"
	"YieldStream/internal/model"
)

// MockClient is an in-memory registry and streaming contract for development
// and testing. Claim and cancel change its state the way the contract would.
type MockClient struct {
	mu      sync.Mutex
	order   []uint64
	tokens  map[uint64]model.TokenDetails
	owners  map[uint64]string
	streams map[uint64]model.StreamSnapshot
	txCount int

	// Now is the contract clock; defaults to time.Now.
	Now func() time.Time
	// Err, when set, is returned by every call.
	Err error
}

// Demo owner addresses used by NewMockClient.
const (
	MockOwnerA = "0x1111111111111111111111111111111111111111"
	MockOwnerB = "0x2222222222222222222222222222222222222222"
	mockSender = "0x9999999999999999999999999999999999999999"
)

// NewMockClient seeds count tokens around base. Token i has asset type i%3,
// owner A for odd ids and B for even ids, and every fourth token has no stream.
func NewMockClient(count int, base time.Time) *MockClient {
	m := &MockClient{}
	for i := 1; i <= count; i++ {
		id := uint64(i)
		owner := MockOwnerB
		if i%2 == 1 {
			owner = MockOwnerA
		}
		details := model.TokenDetails{
			TokenID:      id,
			AssetType:    model.AssetType(i % 3),
			MetadataURI:  fmt.Sprintf("ipfs://QmMockToken%d", i),
			RegisteredAt: base.Add(-time.Duration(i) * 24 * time.Hour).Unix(),
		}
		var stream *model.StreamSnapshot
		if i%4 != 0 {
			details.StreamID = id
			start := base.Add(-time.Duration(i) * 24 * time.Hour).Unix()
			duration := int64(30 * 24 * 3600)
			total := decimal.NewFromInt(int64(1000 * i))
			stream = &model.StreamSnapshot{
				StreamID:        id,
				Sender:          mockSender,
				Recipient:       owner,
				TotalAmount:     total,
				FlowRate:        accounting.FlowRateFor(total, duration),
				StartTime:       start,
				StopTime:        start + duration,
				AmountWithdrawn: decimal.Zero,
				IsActive:        true,
			}
		}
		m.AddToken(details, owner, stream)
	}
	return m
}

// AddToken registers a token and, when stream is non-nil, its stream.
// Adding a known token again replaces its details and owner.
func (m *MockClient) AddToken(details model.TokenDetails, owner string, stream *model.StreamSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureMaps()
	if _, ok := m.tokens[details.TokenID]; !ok {
		m.order = append(m.order, details.TokenID)
	}
	m.tokens[details.TokenID] = details
	m.owners[details.TokenID] = owner
	if stream != nil {
		m.streams[stream.StreamID] = *stream
	}
}

// SetStream replaces or adds a stream.
func (m *MockClient) SetStream(s model.StreamSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureMaps()
	m.streams[s.StreamID] = s
}

// ensureMaps makes the zero MockClient usable; must be called with mu held.
func (m *MockClient) ensureMaps() {
	if m.tokens == nil {
		m.tokens = make(map[uint64]model.TokenDetails)
	}
	if m.owners == nil {
		m.owners = make(map[uint64]string)
	}
	if m.streams == nil {
		m.streams = make(map[uint64]model.StreamSnapshot)
	}
}

func (m *MockClient) Name() string { return "mock" }

func (m *MockClient) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MockClient) TotalSupply(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return uint64(len(m.order)), nil
}

func (m *MockClient) TokenByIndex(_ context.Context, index uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	if index >= uint64(len(m.order)) {
		return 0, fmt.Errorf("token index %d out of bounds", index)
	}
	return m.order[index], nil
}

// TokenDetails returns an empty entry for unknown tokens, as the registry does.
func (m *MockClient) TokenDetails(_ context.Context, tokenID uint64) (*model.TokenDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	d, ok := m.tokens[tokenID]
	if !ok {
		return &model.TokenDetails{TokenID: tokenID}, nil
	}
	return &d, nil
}

func (m *MockClient) OwnerOf(_ context.Context, tokenID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	owner, ok := m.owners[tokenID]
	if !ok {
		return "", fmt.Errorf("owner query for nonexistent token %d", tokenID)
	}
	return owner, nil
}

func (m *MockClient) Stream(_ context.Context, streamID uint64) (*model.StreamSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.streams[streamID]
	if !ok {
		return nil, fmt.Errorf("stream %d: %w", streamID, ErrStreamNotFound)
	}
	s.FetchedAt = m.now()
	return &s, nil
}

// Claim withdraws everything claimable at the contract clock.
func (m *MockClient) Claim(_ context.Context, streamID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	s, ok := m.streams[streamID]
	if !ok {
		return "", fmt.Errorf("stream %d: %w", streamID, ErrStreamNotFound)
	}
	amount := accounting.Claimable(&s, m.now())
	if !amount.IsPositive() {
		return "", fmt.Errorf("claim stream %d: nothing to withdraw: %w", streamID, ErrReverted)
	}
	s.AmountWithdrawn = s.AmountWithdrawn.Add(amount)
	m.streams[streamID] = s
	return m.nextTxHash(), nil
}

// Cancel freezes an active stream.
func (m *MockClient) Cancel(_ context.Context, streamID uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	s, ok := m.streams[streamID]
	if !ok {
		return "", fmt.Errorf("stream %d: %w", streamID, ErrStreamNotFound)
	}
	if !s.IsActive {
		return "", fmt.Errorf("cancel stream %d: already inactive: %w", streamID, ErrReverted)
	}
	s.IsActive = false
	m.streams[streamID] = s
	return m.nextTxHash(), nil
}

func (m *MockClient) nextTxHash() string {
	m.txCount++
	return fmt.Sprintf("0x%064x", m.txCount)
}
