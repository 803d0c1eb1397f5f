// Package alert turns consecutive stream updates into operator alerts.
package alert

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"YieldStream/internal/accounting"
	"YieldStream/internal/model"
)

// Thresholds configures the alert rules.
type Thresholds struct {
	// Tiers must be sorted by ascending threshold; see SortTiers.
	Tiers []model.ClaimableTier
	// EndingWindow triggers a single ENDING_SOON alert once a streaming
	// stream has less than this much time left. Zero disables it.
	EndingWindow time.Duration
}

// DefaultTiers is the claimable ladder used when none is configured.
var DefaultTiers = []model.ClaimableTier{
	{Label: "small", Threshold: decimal.NewFromInt(10)},
	{Label: "notable", Threshold: decimal.NewFromInt(100)},
	{Label: "large", Threshold: decimal.NewFromInt(1000)},
	{Label: "very large", Threshold: decimal.NewFromInt(10000)},
}

// DefaultThresholds returns DefaultTiers with a 24h ending window.
func DefaultThresholds() Thresholds {
	return Thresholds{Tiers: DefaultTiers, EndingWindow: 24 * time.Hour}
}

// SortTiers orders tiers by ascending threshold in place.
func SortTiers(tiers []model.ClaimableTier) {
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Threshold.LessThan(tiers[j].Threshold) })
}

// MapTier returns the index of the highest tier whose threshold claimable
// has reached, or -1 when it is below every tier.
func MapTier(claimable decimal.Decimal, tiers []model.ClaimableTier) int {
	idx := -1
	for i, t := range tiers {
		if claimable.GreaterThanOrEqual(t.Threshold) {
			idx = i
		}
	}
	return idx
}

// Evaluate compares an update with what was last seen for the stream and
// returns the alerts to emit plus the entry to remember. A nil prev is the
// first observation: it seeds the entry without alerting.
func Evaluate(u model.StreamUpdate, prev *model.WatchEntry, th Thresholds) ([]model.Alert, model.WatchEntry) {
	m := u.Metrics
	tier := MapTier(m.Claimable, th.Tiers)
	remaining := accounting.TimeRemaining(u.Snapshot, u.At)
	inWindow := th.EndingWindow > 0 && m.Status == model.StatusStreaming && remaining > 0 && remaining <= th.EndingWindow

	next := model.WatchEntry{
		LastStatus:     m.Status,
		ClaimableTier:  tier,
		EndingNotified: inWindow,
		UpdatedAt:      u.At,
	}
	if prev == nil {
		return nil, next
	}

	var alerts []model.Alert
	add := func(t model.AlertType, tierLabel, msg string) {
		alerts = append(alerts, model.Alert{
			StreamID:  u.StreamID,
			Type:      t,
			Status:    m.Status,
			Claimable: m.Claimable,
			Tier:      tierLabel,
			Message:   msg,
		})
	}

	if t, msg, ok := statusAlert(prev.LastStatus, m.Status); ok {
		add(t, "", msg)
	}

	// Tiers only ratchet up; a claim resets the ladder silently.
	if tier > prev.ClaimableTier {
		label := th.Tiers[tier].Label
		add(model.AlertClaimable, label, fmt.Sprintf("claimable reached %s tier (>= %s)", label, th.Tiers[tier].Threshold.String()))
	}

	if inWindow && !prev.EndingNotified {
		add(model.AlertEndingSoon, "", fmt.Sprintf("stream ends in %s", remaining.Truncate(time.Minute)))
	}
	// Once out of the window, the flag is kept only if the stream stopped
	// streaming; a moved stop time re-arms it.
	if !inWindow && prev.EndingNotified && m.Status != model.StatusStreaming {
		next.EndingNotified = true
	}

	return alerts, next
}

func statusAlert(prev, cur model.StreamStatus) (model.AlertType, string, bool) {
	if prev == cur || cur == model.StatusMissing || prev == model.StatusMissing {
		return "", "", false
	}
	switch {
	case cur == model.StatusFrozen:
		return model.AlertFrozen, "stream frozen (inactive on chain)", true
	case cur == model.StatusCompleted:
		return model.AlertCompleted, "stream completed", true
	case prev == model.StatusFrozen && cur == model.StatusStreaming:
		return model.AlertResumed, "stream resumed", true
	case prev == model.StatusScheduled && cur == model.StatusStreaming:
		return model.AlertStarted, "stream started", true
	}
	return "", "", false
}
