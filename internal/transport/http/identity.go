package http

import (
	"errors"
	"net/http"
	"strings"

	"weekly-quiz/internal/app"
	"weekly-quiz/internal/auth"
)

var errUnauthenticated = errors.New("unauthenticated")

// identify resolves the caller. Without a verifier the userId query parameter is trusted (dev mode).
func identify(r *http.Request, verifier *auth.Verifier) (app.Identity, error) {
	if verifier == nil {
		userID := strings.TrimSpace(r.URL.Query().Get("userId"))
		if userID == "" {
			return app.Identity{}, errUnauthenticated
		}
		return app.Identity{UserID: userID, Username: r.URL.Query().Get("name")}, nil
	}

	claims, err := verifier.Verify(auth.TokenFromRequest(r))
	if err != nil {
		return app.Identity{}, err
	}
	return app.Identity{
		UserID:    claims.UserID,
		Username:  claims.Username,
		AvatarURL: claims.AvatarURL,
		Provider:  claims.Provider,
	}, nil
}
