package backendtest

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt.MinCost keeps test registration fast.
const bcryptCost = bcrypt.MinCost

type claims struct {
	Username string `json:"username"`
	// Epoch invalidates every token issued before ExpireSessions.
	Epoch int `json:"epoch"`
	jwt.RegisteredClaims
}

type tokenConfig struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func (cfg tokenConfig) generate(username string, epoch int) (string, error) {
	now := time.Now()
	c := claims{
		Username: username,
		Epoch:    epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(cfg.secret)
}

func (cfg tokenConfig) validate(tokenString string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.secret, nil
	}, jwt.WithIssuer(cfg.issuer))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return c, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func comparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
