package allocation

import (
	"github.com/shopspring/decimal"
)

// TargetsResponse is the API shape for a user's allocation targets.
type TargetsResponse struct {
	Targets  []TargetItem    `json:"targets"`
	TotalPct decimal.Decimal `json:"total_pct"`
}

// TargetItem is one target row.
type TargetItem struct {
	Ticker    string          `json:"ticker"`
	TargetPct decimal.Decimal `json:"target_percentage"`
}
