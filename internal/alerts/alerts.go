// Package alerts derives low-stock reorder alerts from live ledger state.
// The derivation is pure: no side effects, nothing cached or persisted.
package alerts

import (
	"fmt"

	"smartstock/m/domain"
)

// Cutoff is the fixed remaining-quantity threshold for raising an alert.
// Deliberately independent of each item's configurable reorderThreshold;
// the two thresholds serving different purposes is a quirk carried over
// from the system this replaces.
const Cutoff = 5

// RecommendedOrderQuantity is the fixed suggestion attached to every alert.
const RecommendedOrderQuantity = 10

// Derive computes reorder alerts for every item whose remaining quantity is
// at or below the cutoff.
func Derive(items []domain.Item) []domain.ReorderAlert {
	alerts := []domain.ReorderAlert{}
	for _, item := range items {
		remaining := item.RemainingQuantity()
		if remaining > Cutoff {
			continue
		}
		alerts = append(alerts, domain.ReorderAlert{
			ItemID:                   item.ID,
			ProductName:              item.Name,
			CurrentStock:             remaining,
			Threshold:                Cutoff,
			DaysUntilReorder:         daysUntilReorder(remaining),
			RecommendedOrderQuantity: RecommendedOrderQuantity,
			RiskLevel:                riskLevel(remaining),
			AlertMessage: fmt.Sprintf(
				"Stock is low for %s. Current stock: %d. Consider reordering soon.",
				item.Name, remaining),
		})
	}
	return alerts
}

// daysUntilReorder is a heuristic placeholder, not a real forecast.
func daysUntilReorder(remaining int64) int64 {
	days := remaining / 2
	if days < 0 {
		return 0
	}
	return days
}

func riskLevel(remaining int64) string {
	switch {
	case remaining == 0:
		return "high"
	case remaining <= 2:
		return "medium"
	default:
		return "low"
	}
}
