// Package auth verifies the session tokens issued by the external identity
// provider.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/jobboard-messaging/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims represents JWT claims. The subject is the user id.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string     `json:"email,omitempty"`
	Role  model.Role `json:"role"`
}

type JWTService interface {
	GenerateAccessToken(session model.Session, ttl time.Duration) (string, error)
	ValidateToken(token string) (*model.Session, error)
}

type jwtService struct {
	secret []byte
	issuer string
}

// NewJWTService verifies HS256 tokens signed with secret. An empty issuer
// accepts any issuer.
func NewJWTService(secret, issuer string) JWTService {
	return &jwtService{secret: []byte(secret), issuer: issuer}
}

func (s *jwtService) GenerateAccessToken(session model.Session, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: session.Email,
		Role:  session.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *jwtService) ValidateToken(tokenString string) (*model.Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims TokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return &model.Session{
		UserID: userID,
		Role:   claims.Role,
		Email:  claims.Email,
	}, nil
}
