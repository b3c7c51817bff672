package payout

import "github.com/agrilink-erp/agrilink/internal/upstream"

// ExcessCost monetizes one odometer record. A positive manual override wins
// outright; otherwise distance beyond the configured limit is charged at the
// unit price, and with no limit the whole travelled distance is.
func ExcessCost(rec upstream.ExcessKM, rate upstream.RateCard) float64 {
	if rec.ManualAmount > 0 {
		return rec.ManualAmount
	}
	travelled := rec.EndKM - rec.StartKM
	if travelled <= 0 {
		return 0
	}
	if rate.KMLimit > 0 {
		excess := travelled - rate.KMLimit
		if excess < 0 {
			excess = 0
		}
		return excess * rate.UnitPrice
	}
	return travelled * rate.UnitPrice
}
