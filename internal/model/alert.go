package model

import "github.com/shopspring/decimal"

// AlertType indicates what triggered the alert.
type AlertType string

const (
	AlertFrozen     AlertType = "FROZEN"
	AlertResumed    AlertType = "RESUMED"
	AlertCompleted  AlertType = "COMPLETED"
	AlertStarted    AlertType = "STARTED"
	AlertClaimable  AlertType = "CLAIMABLE"
	AlertEndingSoon AlertType = "ENDING_SOON"
)

// ClaimableTier maps a claimable threshold to a label.
type ClaimableTier struct {
	Label     string
	Threshold decimal.Decimal
}

// Alert is the output of the alert rules for one stream update.
type Alert struct {
	StreamID  uint64
	Type      AlertType
	Status    StreamStatus
	Claimable decimal.Decimal
	Tier      string
	Message   string
}
