package portal

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"golang-reconciliation-portal/internal/models"
)

// UserIDFromToken reads the user id claim of a session token. The signature is
// not verified here; the API validates the token on every call.
func UserIDFromToken(token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return "", fmt.Errorf("empty session token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}

	if id, ok := models.RawRecord(claims).String("userId", "user_id", "uid", "sub"); ok {
		return id, nil
	}
	return "", fmt.Errorf("session token carries no user id claim")
}
