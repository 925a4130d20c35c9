package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"velour/config"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "velour",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testJWTConfig()

	tok, err := GenerateAccessToken(cfg, 42, "fan@velour.test", "FAN")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := ParseAccessToken(cfg, tok)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "fan@velour.test" || claims.Role != "FAN" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Issuer != cfg.Issuer {
		t.Errorf("issuer = %q, want %q", claims.Issuer, cfg.Issuer)
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	tok, err := GenerateAccessToken(cfg, 1, "a@velour.test", "FAN")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	other := *cfg
	other.AccessSecret = "a-different-secret"
	if _, err := ParseAccessToken(&other, tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	expired := testJWTConfig()
	expired.AccessExpiry = -time.Minute
	tok, err := GenerateAccessToken(expired, 1, "a@velour.test", "FAN")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := ParseAccessToken(testJWTConfig(), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestRefreshTokenCarriesSubject(t *testing.T) {
	cfg := testJWTConfig()
	tok, err := GenerateRefreshToken(cfg, 42)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.RefreshSecret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("parse refresh token: %v", err)
	}
	if claims.Subject != "42" {
		t.Errorf("subject = %q, want 42", claims.Subject)
	}
	if claims.Issuer != cfg.Issuer {
		t.Errorf("issuer = %q, want %q", claims.Issuer, cfg.Issuer)
	}

	// refresh tokens never parse as access tokens
	if _, err := ParseAccessToken(cfg, tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token accepted as access token")
	}
}
