package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"checkinBoard/internal/dto"
)

const adminRole = "admin"

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Login checks the single static admin credential pair. A token is issued
// only when a signing secret is configured.
func (s *service) Login(_ context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	if s.cfg.AdminUsername == "" || s.cfg.AdminPassword == "" {
		return nil, ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.cfg.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.AdminPassword)) == 1
	if !userOK || !passOK {
		s.log.Warn().Str("username", req.Username).Msg("admin login rejected")
		return nil, ErrInvalidCredentials
	}

	resp := &dto.LoginResponse{Success: true}
	if s.cfg.JWTSecret == "" {
		return resp, nil
	}

	now := s.clk.Now()
	exp := now.Add(s.cfg.TokenTTL)
	claims := adminClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	resp.Token = token
	resp.ExpiresAt = &exp

	s.log.Info().Str("username", req.Username).Msg("admin logged in")
	return resp, nil
}

func (s *service) ValidateToken(token string) error {
	if s.cfg.JWTSecret == "" || token == "" {
		return ErrInvalidToken
	}
	var claims adminClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clk.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: token has expired", ErrInvalidToken)
		}
		return ErrInvalidToken
	}
	if !parsed.Valid || claims.Role != adminRole {
		return ErrInvalidToken
	}
	return nil
}
