package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lunarhue/promptii/backend/internal/identity"
	historymodel "github.com/lunarhue/promptii/backend/internal/model/history"
)

type claimsKey struct{}

// Header names set by the upstream identity provider proxy. The service
// trusts them as-is; it never manages session lifecycle.
const (
	HeaderSubject     = "X-Auth-Subject"
	HeaderEntitlement = "X-Auth-Entitlement"
)

// Identity extracts the identity claims from the request headers and stores
// them in the request context. A missing subject means an anonymous caller.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := strings.TrimSpace(r.Header.Get(HeaderSubject))
		claims := identity.Claims{
			IsAuthenticated: subject != "",
			SubjectID:       subject,
			Entitlement:     strings.TrimSpace(r.Header.Get(HeaderEntitlement)),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// ClaimsFromContext returns the claims stored by Identity, or the anonymous
// zero value.
func ClaimsFromContext(ctx context.Context) identity.Claims {
	claims, _ := ctx.Value(claimsKey{}).(identity.Claims)
	return claims
}

// ScopeFromContext derives the history scope of the caller: the identity
// scope when authenticated, the anonymous scope otherwise.
func ScopeFromContext(ctx context.Context) historymodel.Scope {
	claims := ClaimsFromContext(ctx)
	if claims.IsAuthenticated {
		return historymodel.ScopeForSubject(claims.SubjectID)
	}
	return historymodel.ScopeAnonymous
}
