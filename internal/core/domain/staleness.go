package domain

// Verdict is the outcome of comparing a target against its dependencies.
type Verdict uint8

const (
	// VerdictStale means the target is missing or older than a dependency.
	VerdictStale Verdict = iota
	// VerdictFresh means the target exists and no dependency is newer.
	VerdictFresh
	// VerdictUnknown means the comparison could not be made.
	VerdictUnknown
)

// NeedsRebuild collapses a verdict to a decision. Unknown is treated as stale.
func (v Verdict) NeedsRebuild() bool {
	return v != VerdictFresh
}

func (v Verdict) String() string {
	switch v {
	case VerdictStale:
		return "stale"
	case VerdictFresh:
		return "fresh"
	case VerdictUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}
