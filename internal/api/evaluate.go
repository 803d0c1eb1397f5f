package api

import (
	"time"

	"YieldStream/internal/accounting"
	"YieldStream/internal/model"
)

func evaluateAt(s *model.StreamSnapshot, now time.Time) model.StreamUpdate {
	return model.StreamUpdate{StreamID: s.StreamID, Snapshot: s, Metrics: accounting.Evaluate(s, now), At: now}
}
