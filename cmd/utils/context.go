package utils

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"

	"github.com/signaldesk/signaldesk-server/cmd/models"
)

type contextKey string

const UserIDKey contextKey = "userID"

var ErrNoSession = errors.New("no authenticated user in context")

func GetUserIDFromContext(ctx context.Context) (uint, error) {
	userID, ok := ctx.Value(UserIDKey).(uint)
	if !ok {
		return 0, ErrNoSession
	}
	return userID, nil
}

// CurrentUser resolves the authenticated principal set by AuthMiddleware.
func CurrentUser(db *gorm.DB, r *http.Request) (*models.User, error) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return nil, ErrNoSession
	}
	if !user.Active {
		return nil, ErrNoSession
	}
	return &user, nil
}

// RequireAdmin resolves the caller and rejects anyone without the admin role.
func RequireAdmin(db *gorm.DB, r *http.Request) (*models.User, error) {
	user, err := CurrentUser(db, r)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleAdmin {
		return nil, ErrNoSession
	}
	return user, nil
}

func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Get token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		// Extract the token
		tokenString := strings.Replace(authHeader, "Bearer ", "", 1)

		// Parse and validate the token
		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(os.Getenv("SECRET_KEY")), nil
		})

		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		userID, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			http.Error(w, "Invalid user ID in token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, uint(userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// ClientIP extracts the caller's address, honoring X-Forwarded-For.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IsProduction reports whether the server runs in a production environment.
func IsProduction() bool {
	return os.Getenv("APP_ENV") == "production"
}
