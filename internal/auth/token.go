// Package auth extracts the local participant's identity from the bearer
// token the caller already holds. Token issuance and storage are server
// and shell concerns; the client only needs the participant ID for
// self-echo suppression.
package auth

import (
	"errors"
	"fmt"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ErrNoParticipantID means the token carried no usable identity claim.
var ErrNoParticipantID = errors.New("auth: token has no participant id claim")

// ParticipantID decodes the JWT without verifying its signature and
// returns the participant ID claim. Verification is the server's job; the
// client only reads its own identity out of the token it was handed.
func ParticipantID(token string) (string, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("auth: decode token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrNoParticipantID
	}
	for _, name := range []string{"userId", "anon_id", "sub"} {
		if id, ok := claims[name].(string); ok && id != "" {
			return id, nil
		}
	}
	return "", ErrNoParticipantID
}
