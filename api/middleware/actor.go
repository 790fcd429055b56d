package middleware

import (
	"net/http"
	"strings"

	"github.com/southerncrossbullion/bullion-backend/api/responses"
	pkgerrors "github.com/southerncrossbullion/bullion-backend/pkg/errors"
	"github.com/southerncrossbullion/bullion-backend/pkg/logger"
)

const adminActorHeader = "X-Admin-Actor"

// AdminActor requires the gateway-verified admin identity header on every
// admin route and makes it available via ActorFromContext. Authentication
// itself happens at the edge; this service only records who acted.
func AdminActor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := strings.TrimSpace(r.Header.Get(adminActorHeader))
			if actor == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "missing admin actor header"))
				return
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithField(ctx, "actor", actor)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
