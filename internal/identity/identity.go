package identity

import "strings"

// Claims are the three facts the upstream identity provider supplies. The
// service reads them from trusted proxy headers and never manages session
// lifecycle itself.
type Claims struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	SubjectID       string `json:"subjectId,omitempty"`
	Entitlement     string `json:"entitlement,omitempty"`
}

// Tier is the entitlement level controlling which refinement branch runs.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// ResolveTier maps an identity claim to a tier. Pure and total: an absent or
// malformed entitlement claim resolves to free. Callers must re-evaluate on
// every tier-dependent event rather than caching the result, since the claim
// can change mid-session.
func ResolveTier(c Claims) Tier {
	if c.IsAuthenticated && strings.EqualFold(strings.TrimSpace(c.Entitlement), string(TierPro)) {
		return TierPro
	}
	return TierFree
}
