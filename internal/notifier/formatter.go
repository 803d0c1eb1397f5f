package notifier

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"YieldStream/internal/accounting"
	"YieldStream/internal/model"
)

// FormatCurrency renders an amount as "$1,234.56" with the given number of decimals.
func FormatCurrency(amount decimal.Decimal, places int32) string {
	fixed := amount.StringFixed(places)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, frac, _ := strings.Cut(fixed, ".")
	n, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return "$" + fixed
	}
	out := "$" + humanize.BigComma(n)
	if frac != "" {
		out += "." + frac
	}
	if neg && strings.Trim(fixed, "0.") != "" {
		out = "-" + out
	}
	return out
}

// FormatPercent renders a 0~100 percentage with the given number of decimals.
func FormatPercent(pct float64, places int) string {
	return fmt.Sprintf("%.*f%%", places, pct)
}

// FormatDuration renders "2 days, 3 hours". Minutes are shown only for
// durations under a day; anything under a minute is "0 minutes".
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 && days == 0 {
		parts = append(parts, plural(minutes, "min"))
	}
	if len(parts) == 0 {
		return "0 minutes"
	}
	return strings.Join(parts, ", ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// TruncateAddress shortens an address to "0x1234...abcd".
func TruncateAddress(address string) string {
	const head, tail = 6, 4
	if len(address) <= head+tail {
		return address
	}
	return address[:head] + "..." + address[len(address)-tail:]
}

// FormatCompact renders large numbers with K, M and B suffixes.
func FormatCompact(n float64) string {
	switch {
	case n >= 1e9:
		return fmt.Sprintf("%.1fB", n/1e9)
	case n >= 1e6:
		return fmt.Sprintf("%.1fM", n/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.1fK", n/1e3)
	default:
		return fmt.Sprintf("%.0f", n)
	}
}

// FormatDate renders a unix timestamp as "Jan 2, 2006".
func FormatDate(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("Jan 2, 2006")
}

var statusIcon = map[model.StreamStatus]string{
	model.StatusScheduled: "⏳",
	model.StatusStreaming: "🟢",
	model.StatusFrozen:    "🧊",
	model.StatusCompleted: "✅",
	model.StatusMissing:   "❔",
}

// FormatStreamReport formats the full figures of one stream.
func FormatStreamReport(u model.StreamUpdate) string {
	m := u.Metrics
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s <b>Stream #%d</b> | %s\n\n", statusIcon[m.Status], u.StreamID, m.Status))
	if u.Snapshot == nil {
		b.WriteString("No stream data available.\n")
		return b.String()
	}
	s := u.Snapshot
	b.WriteString(fmt.Sprintf("Recipient: <code>%s</code>\n", TruncateAddress(s.Recipient)))
	b.WriteString(fmt.Sprintf("Total: %s\n", FormatCurrency(s.TotalAmount, 2)))
	b.WriteString(fmt.Sprintf("Flow: %s/day\n", FormatCurrency(s.FlowRate.Mul(decimal.NewFromInt(86400)), 2)))
	b.WriteString(fmt.Sprintf("Vested: %s (%s)\n", FormatCurrency(m.TotalVested, 4), FormatPercent(m.VestedPercent, 1)))
	b.WriteString(fmt.Sprintf("Withdrawn: %s\n", FormatCurrency(m.Withdrawn, 4)))
	b.WriteString(fmt.Sprintf("<b>Claimable: %s</b>\n", FormatCurrency(m.Claimable, 4)))
	b.WriteString(fmt.Sprintf("Remaining: %s\n", FormatCurrency(m.RemainingToVest, 2)))
	b.WriteString(fmt.Sprintf("Progress: %s\n", FormatPercent(m.ProgressPercent, 1)))
	b.WriteString(fmt.Sprintf("Period: %s → %s", FormatDate(s.StartTime), FormatDate(s.StopTime)))
	if m.Status == model.StatusStreaming {
		b.WriteString(fmt.Sprintf(" (%s left)", FormatDuration(accounting.TimeRemaining(s, u.At))))
	}
	b.WriteString("\n")
	return b.String()
}

// FormatStreamList formats a one-line summary per stream.
func FormatStreamList(updates []model.StreamUpdate) string {
	if len(updates) == 0 {
		return "No streams are being watched."
	}
	var b strings.Builder
	total := decimal.Zero
	b.WriteString(fmt.Sprintf("📋 <b>Watched streams</b> (%d)\n\n", len(updates)))
	for _, u := range updates {
		size := ""
		if u.Snapshot != nil {
			size = " of " + FormatCompact(u.Snapshot.TotalAmount.InexactFloat64())
		}
		b.WriteString(fmt.Sprintf("%s #%d %s%s claimable %s\n",
			statusIcon[u.Metrics.Status], u.StreamID,
			FormatPercent(u.Metrics.ProgressPercent, 0), size,
			FormatCurrency(u.Metrics.Claimable, 2)))
		total = total.Add(u.Metrics.Claimable)
	}
	b.WriteString(fmt.Sprintf("\nTotal claimable: <b>%s</b>", FormatCurrency(total, 2)))
	return b.String()
}

// FormatAlert formats an alert raised by the watch rules.
func FormatAlert(a model.Alert) string {
	var icon, title string
	switch a.Type {
	case model.AlertFrozen:
		icon, title = "🧊", "Stream frozen"
	case model.AlertResumed:
		icon, title = "🟢", "Stream resumed"
	case model.AlertCompleted:
		icon, title = "✅", "Stream completed"
	case model.AlertStarted:
		icon, title = "🚀", "Stream started"
	case model.AlertClaimable:
		icon, title = "💰", "Claimable "+a.Tier
	case model.AlertEndingSoon:
		icon, title = "⏰", "Stream ending soon"
	default:
		icon, title = "ℹ️", string(a.Type)
	}
	return fmt.Sprintf("%s <b>%s</b> | Stream #%d\n\n%s\nClaimable: %s",
		icon, title, a.StreamID, a.Message, FormatCurrency(a.Claimable, 4))
}
