package mw

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller attached by Principal, nil for anonymous.
func PrincipalFrom(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalKey{}).(*domain.Principal)
	return p
}

// Principal reads the authenticated user id from header, as set by the
// auth proxy in front of the service. A missing header means anonymous;
// a malformed one is rejected with 400.
func Principal(header string, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := domain.ParsePrincipal(r.Header.Get(header))
			if err != nil {
				log.Debug("rejecting malformed principal header",
					logger.String("header", header),
					logger.String("remote_ip", r.RemoteAddr))
				reject(w, http.StatusBadRequest, CodeInvalidPrincipal, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
