package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/ashu640/ecommerce-backend/pkg/config"
	"github.com/ashu640/ecommerce-backend/pkg/enums"
	"github.com/google/uuid"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret: "secret",
		Issuer: "ecommerce",
	}
	now := time.Now().UTC()
	userID := uuid.New()

	payload := AccessTokenPayload{
		UserID: userID,
		Email:  "buyer@example.com",
		Role:   enums.UserRoleUser,
	}

	token, err := MintAccessToken(cfg, now, 30*time.Minute, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Email != "buyer@example.com" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if claims.Role != enums.UserRoleUser {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be generated")
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	now := time.Now().UTC()
	payload := AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin}

	if _, err := MintAccessToken(config.JWTConfig{Issuer: "x"}, now, time.Minute, payload); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := MintAccessToken(config.JWTConfig{Secret: "x"}, now, time.Minute, payload); err == nil {
		t.Fatal("expected error for missing issuer")
	}
	if _, err := MintAccessToken(config.JWTConfig{Secret: "x", Issuer: "y"}, now, 0, payload); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}

	bad := payload
	bad.Role = enums.UserRole("root")
	if _, err := MintAccessToken(config.JWTConfig{Secret: "x", Issuer: "y"}, now, time.Minute, bad); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "ecommerce"}
	payload := AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser}

	token, err := MintAccessToken(cfg, time.Now().UTC().Add(-2*time.Hour), time.Minute, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	mintCfg := config.JWTConfig{Secret: "secret", Issuer: "other"}
	payload := AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleUser}

	token, err := MintAccessToken(mintCfg, time.Now().UTC(), time.Minute, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	parseCfg := config.JWTConfig{Secret: "secret", Issuer: "ecommerce"}
	if _, err := ParseAccessToken(parseCfg, token); err == nil || !strings.Contains(err.Error(), "iss") {
		t.Fatalf("expected issuer validation failure, got %v", err)
	}
}
