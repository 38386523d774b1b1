package auth

import (
	"context"
	"errors"
	"net/http"

	"ms-volunteering/internal/logger"
	"ms-volunteering/internal/models"
	"ms-volunteering/internal/utils"
)

type contextKey string

const userKey contextKey = "current_user"

// UserLookup resolves the uid carried by a token to a stored user.
type UserLookup interface {
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
}

// Middleware rejects requests without a valid token for an existing user.
func Middleware(verifier Verifier, users UserLookup, cookieName string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r, cookieName)
			if err != nil {
				if errors.Is(err, ErrMissingToken) {
					utils.WriteMessage(w, http.StatusUnauthorized, "Authentication Token is missing!")
				} else {
					utils.WriteMessage(w, http.StatusUnauthorized, err.Error())
				}
				return
			}

			uid, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", err.Error())
				utils.WriteMessage(w, http.StatusUnauthorized, "Invalid Authentication token!")
				return
			}

			user, err := users.GetUserByUID(r.Context(), uid)
			if err != nil {
				log.LogSecurity("UNKNOWN_USER", uid)
				utils.WriteMessage(w, http.StatusUnauthorized, "Invalid Authentication token!")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser returns the user attached by Middleware, or nil.
func CurrentUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(userKey).(*models.User); ok {
		return user
	}
	return nil
}
