package domain

// UnlimitedRemaining marks an identity that bypasses the quota gate.
const UnlimitedRemaining = -1

// QuotaDecision is the outcome of an atomic quota consume.
// Remaining is the allotment left for the rest of the UTC day; denied
// requests are never charged, so Remaining is 0 when Allowed is false.
type QuotaDecision struct {
	Allowed   bool
	Remaining int
}

// Unlimited reports whether the decision came from the owner bypass.
func (d QuotaDecision) Unlimited() bool {
	return d.Remaining == UnlimitedRemaining
}
