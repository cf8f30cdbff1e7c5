// Package jwt firma y valida los tokens de acceso emitidos por el servicio de identidad.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptySecret  = errors.New("jwt: secret vacío")
	ErrInvalidToken = errors.New("jwt: token inválido")
)

// Principal identidad autenticada: usuario, empresa (tenant) y rol.
type Principal struct {
	UserID    string
	CompanyID string
	Role      string
}

// Claims claims registrados más la identidad del principal.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role,omitempty"`
}

// Sign emite un token HS256 para p con vigencia ttl.
func Sign(secret, issuer string, p Principal, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    p.UserID,
		CompanyID: p.CompanyID,
		Role:      p.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma y expiración. Un token sin company_id no identifica tenant y se rechaza;
// el rol puede venir vacío y lo decide el middleware de autorización.
func Parse(secret, tokenString string) (Principal, error) {
	if secret == "" {
		return Principal{}, ErrEmptySecret
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.CompanyID == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{UserID: claims.UserID, CompanyID: claims.CompanyID, Role: claims.Role}, nil
}
