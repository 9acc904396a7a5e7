package booking

import "strings"

// CancellationPolicy is copied from the listing when the booking is created. Refunds are not computed here.
type CancellationPolicy string

const (
	PolicyFlexible    CancellationPolicy = "flexible"
	PolicyModerate    CancellationPolicy = "moderate"
	PolicyStrict      CancellationPolicy = "strict"
	PolicySuperStrict CancellationPolicy = "super_strict"
)

// ParseCancellationPolicy falls back to flexible for empty or unknown identifiers.
func ParseCancellationPolicy(raw string) CancellationPolicy {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch p := CancellationPolicy(normalized); p {
	case PolicyFlexible, PolicyModerate, PolicyStrict, PolicySuperStrict:
		return p
	default:
		return PolicyFlexible
	}
}
