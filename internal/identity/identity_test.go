package identity_test

import (
	"testing"

	"github.com/lunarhue/promptii/backend/internal/identity"
)

func TestResolveTier(t *testing.T) {
	cases := []struct {
		name   string
		claims identity.Claims
		want   identity.Tier
	}{
		{"anonymous", identity.Claims{}, identity.TierFree},
		{"authenticated without entitlement", identity.Claims{IsAuthenticated: true, SubjectID: "u1"}, identity.TierFree},
		{"pro entitlement", identity.Claims{IsAuthenticated: true, SubjectID: "u1", Entitlement: "pro"}, identity.TierPro},
		{"pro entitlement mixed case", identity.Claims{IsAuthenticated: true, SubjectID: "u1", Entitlement: " PRO "}, identity.TierPro},
		{"malformed entitlement", identity.Claims{IsAuthenticated: true, SubjectID: "u1", Entitlement: "platinum"}, identity.TierFree},
		{"pro claim without authentication", identity.Claims{Entitlement: "pro"}, identity.TierFree},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := identity.ResolveTier(tc.claims); got != tc.want {
				t.Fatalf("unexpected tier: got %s want %s", got, tc.want)
			}
		})
	}
}
