package identity

import "strings"

// NormalizeAdmissionNumber performs case-insensitive canonicalization.
// Admission numbers are issued uppercase (e.g. "SCB/2021/0042") but users type
// them freely, so we trim + upper-case. Additional rules can be added later
// behind a versioned policy.
func NormalizeAdmissionNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
