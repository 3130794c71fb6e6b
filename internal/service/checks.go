package service

// CheckResult is one named gate outcome inside a pretrade or exit
// evaluation. Results are kept as an ordered slice, never a map, so the
// response reports every check in evaluation order.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func allPassed(checks []CheckResult) bool {
	for _, c := range checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// RiskBlockError is a deterministic business-rule rejection. Action names
// the audit entry written alongside the block; the caller is expected to
// re-request only after the underlying condition changes.
type RiskBlockError struct {
	Action    string
	Reason    string
	Forbidden bool
}

func (e *RiskBlockError) Error() string {
	return e.Reason
}
