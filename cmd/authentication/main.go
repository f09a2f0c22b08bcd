// This is a development token issuer. It signs tokens for the directory
// service so the API can be exercised locally without a real identity
// provider.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/cordigram/directory/internal/directory/auth"
	"go.uber.org/zap"
)

const (
	defaultPort   = "8081"       // Default port for the token issuer
	defaultSecret = "jwt_secret" // Secret for signing JWT
	defaultUserID = "12345"
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

// tokenHandler signs a token for the user_id query parameter. An optional
// role parameter adds a role claim, e.g. role=moderator.
func tokenHandler(secret string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" {
			userID = defaultUserID
		}

		role := strings.TrimSpace(r.URL.Query().Get("role"))

		token, err := auth.GenerateTokenWithRole(userID, role, secret)
		if err != nil {
			logger.Error("Failed to generate token", zap.Error(err))
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(TokenResponse{Token: token, UserID: userID, Role: role}); err != nil {
			logger.Error("Failed to encode token", zap.Error(err))
		}
	}
}

func main() {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = defaultSecret
	}
	port := os.Getenv("AUTH_PORT")
	if port == "" {
		port = defaultPort
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", tokenHandler(secret, logger))

	logger.Info("Token issuer running", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Fatal("Token issuer stopped", zap.Error(err))
	}
}
