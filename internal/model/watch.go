package model

import "time"

// WatchEntry is what the monitor remembers about a stream between updates.
type WatchEntry struct {
	LastStatus     StreamStatus `json:"last_status"`
	ClaimableTier  int          `json:"claimable_tier"` // index of the highest tier already alerted, -1 for none
	EndingNotified bool         `json:"ending_notified"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// WatchState tracks alert bookkeeping for all watched streams.
type WatchState struct {
	Streams   map[uint64]*WatchEntry `json:"streams"`
	UpdatedAt time.Time              `json:"updated_at"`
}
