package services

import "math"

// round2 rounds a money amount to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Commission derives the commission owed for a sale. The rate is the
// affiliate's rate snapshotted at referral creation; maxCap optionally
// bounds the commission below the sale amount. The result is always within
// [0, saleAmount], so a misconfigured rate can never over- or under-charge.
// Pure and deterministic so any referral's commission can be reproduced
// for audit.
func Commission(saleAmount, rate float64, maxCap *float64) float64 {
	commission := round2(saleAmount * rate)
	limit := saleAmount
	if maxCap != nil && *maxCap < limit {
		limit = *maxCap
	}
	if commission > limit {
		commission = limit
	}
	if commission < 0 {
		commission = 0
	}
	return commission
}
