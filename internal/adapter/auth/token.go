package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/YelzhanWeb/campuseats/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carry the actor a request acts as. Subject is the actor id: the
// customer's phone, the vendor's staff id or the rider id.
type Claims struct {
	Role         string `json:"role"`
	RestaurantID string `json:"restaurant_id,omitempty"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(actor domain.Actor) (string, error) {
	if _, ok := domain.ParseRole(string(actor.Role)); !ok || actor.ID == "" {
		return "", fmt.Errorf("cannot issue token for %q", actor.String())
	}
	if actor.Role == domain.RoleVendor && actor.RestaurantID == "" {
		return "", errors.New("vendor token needs a restaurant id")
	}

	now := i.now()
	claims := Claims{
		Role:         string(actor.Role),
		RestaurantID: actor.RestaurantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse validates the token and returns the actor it names.
func (i *Issuer) Parse(tokenStr string) (domain.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return domain.Actor{}, ErrInvalidToken
	}

	role, ok := domain.ParseRole(claims.Role)
	if !ok || claims.Subject == "" {
		return domain.Actor{}, ErrInvalidToken
	}
	if role == domain.RoleVendor && claims.RestaurantID == "" {
		return domain.Actor{}, ErrInvalidToken
	}

	return domain.Actor{Role: role, ID: claims.Subject, RestaurantID: claims.RestaurantID}, nil
}
