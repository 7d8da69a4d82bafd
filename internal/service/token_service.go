package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
)

// TokenService validates the HS256 access tokens issued by the identity provider.
type TokenService struct {
	secret []byte
}

// NewTokenService constructs the service.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.UserID == "" || claims.Role == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token is missing user identity")
	}

	return claims, nil
}

// Sign issues a token for the session, valid for ttl. Used by local tooling
// and tests; production tokens come from the identity provider.
func (s *TokenService) Sign(session models.Session, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		UserID:      session.UserID,
		Role:        session.Role,
		Email:       session.Email,
		FullName:    session.Name,
		ClassID:     session.ClassID,
		ClassIDs:    session.ClassIDs,
		ChildrenIDs: session.ChildrenIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
