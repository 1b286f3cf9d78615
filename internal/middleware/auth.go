// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"strconv"
	"strings"

	"threadline/internal/config"
	"threadline/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// AuthRequired enforces a valid bearer token on protected routes. Tokens are
// issued by the external identity provider; this middleware only verifies the
// shared-secret HMAC signature and extracts the caller's identity. The user id
// comes from the "sub" claim (RFC 7519); an optional "username" claim carries
// the display handle for the local projection.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return models.RespondWithError(c, models.NewUnauthorizedError("Authorization header required"))
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return models.RespondWithError(c, models.NewUnauthorizedError("Invalid authorization header format"))
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return models.RespondWithError(c, models.NewUnauthorizedError("Invalid or expired token"))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.RespondWithError(c, models.NewUnauthorizedError("Invalid token claims"))
	}

	subClaim, ok := claims["sub"]
	if !ok {
		return models.RespondWithError(c, models.NewUnauthorizedError("Invalid token structure - missing subject"))
	}
	subStr, ok := subClaim.(string)
	if !ok {
		return models.RespondWithError(c, models.NewUnauthorizedError("Invalid token subject type"))
	}
	userIDVal, err := strconv.ParseUint(subStr, 10, 32)
	if err != nil {
		return models.RespondWithError(c, models.NewUnauthorizedError("Invalid user ID in token"))
	}

	c.Locals("userID", uint(userIDVal))
	if username, ok := claims["username"].(string); ok && username != "" {
		c.Locals("username", username)
	}

	return c.Next()
}
