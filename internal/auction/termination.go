package auction

// BankruptThreshold is the purse (lakh) below which a team can no longer
// meaningfully bid.
const BankruptThreshold = 30

// Cause reports why an auction is finished.
type Cause string

const (
	CauseNone             Cause = ""
	CauseRosterExhausted  Cause = "roster_exhausted"
	CauseBudgetsExhausted Cause = "budgets_exhausted"
)

// AllBankrupt reports whether every budget is below BankruptThreshold.
func AllBankrupt(budgets []int) bool {
	for _, b := range budgets {
		if b >= BankruptThreshold {
			return false
		}
	}
	return true
}

// Finished derives the termination cause from the cursor, the number of
// lots and the team budgets. Exhausted budgets take precedence.
func Finished(cursor, lots int, budgets []int) Cause {
	if AllBankrupt(budgets) {
		return CauseBudgetsExhausted
	}
	if cursor >= lots {
		return CauseRosterExhausted
	}
	return CauseNone
}
