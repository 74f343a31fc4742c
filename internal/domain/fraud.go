package domain

type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Verdict is the outcome of evaluating every fraud rule against one
// withdrawal attempt. Rules never short-circuit, so Triggered lists
// all rules that fired, not just the first.
type Verdict struct {
	Flagged   bool
	Severity  Severity
	Triggered []string
}
