package services

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	pollstream_errors "pollstream/pkg/errors"
)

// TokenService verifies access tokens issued by the authentication
// collaborator. Token signing, sessions and password flows live there, not
// here; this service only extracts a verified caller identity.
type TokenService struct {
	jwtSecret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{jwtSecret: []byte(secret)}
}

type AccessClaims struct {
	UserID string `json:"sub"`
	jwt.RegisteredClaims
}

func (s *TokenService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, pollstream_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pollstream_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, pollstream_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, pollstream_errors.ErrUnauthorized
	}

	return *claims, nil
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, pollstream_errors.ErrInvalidInput),
		errors.Is(err, pollstream_errors.ErrInvalidOption):
		return 400
	case errors.Is(err, pollstream_errors.ErrUnauthorized):
		return 401
	case errors.Is(err, pollstream_errors.ErrForbidden):
		return 403
	case errors.Is(err, pollstream_errors.ErrNotFound):
		return 404
	case errors.Is(err, pollstream_errors.ErrAlreadyVoted), errors.Is(err, pollstream_errors.ErrConflict):
		return 409
	case errors.Is(err, pollstream_errors.ErrPollExpired):
		return 410
	case errors.Is(err, pollstream_errors.ErrRateLimited):
		return 429
	default:
		return 500
	}
}

type ctxKey string

var userIDKey ctxKey = "user_id"

func WithUserContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	value := ctx.Value(userIDKey)
	if value == nil {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}
