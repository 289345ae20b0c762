// Package ladder implements the bid increment schedule.
package ladder

// Increment returns the minimum raise over a standing bid of current lakh.
func Increment(current int) int {
	switch {
	case current < 200:
		return 10
	case current < 500:
		return 20
	case current < 1000:
		return 50
	default:
		return 100
	}
}

// NextBid returns the amount of the next bid on a lot. An open lot
// (current == 0) opens at basePrice.
func NextBid(current, basePrice int) int {
	if current == 0 && basePrice > 0 {
		return basePrice
	}
	return current + Increment(current)
}
