package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the lifetime of tokens issued by GenerateToken.
const TokenTTL = 24 * time.Hour

// RoleModerator is the role claim of callers allowed to review reports.
const RoleModerator = "moderator"

// Claims is the identity carried by a validated token.
type Claims struct {
	UserID string
	Role   string
}

// GenerateToken issues an HS256 token whose subject is userID.
func GenerateToken(userID string, secret string) (string, error) {
	return GenerateTokenWithRole(userID, "", secret)
}

// GenerateTokenWithRole issues an HS256 token for userID carrying role. An
// empty role is left out of the claims.
func GenerateTokenWithRole(userID, role, secret string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(TokenTTL).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// validateToken checks the token signature and expiry and returns the
// subject and role claims.
func validateToken(tokenString, secret string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, fmt.Errorf("invalid token claims: missing subject")
	}
	claims := Claims{UserID: sub}
	if mc, ok := token.Claims.(jwt.MapClaims); ok {
		claims.Role, _ = mc["role"].(string)
	}
	return claims, nil
}
