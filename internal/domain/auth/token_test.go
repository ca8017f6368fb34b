package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens, err := NewAuthToken("secret")
	if err != nil {
		t.Fatalf("NewAuthToken() error: %v", err)
	}
	tokens.WithTTL(time.Hour)

	signed, err := tokens.GenerateToken("kiosk-1")
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	clientID, err := tokens.VerifyToken(signed)
	if err != nil {
		t.Fatalf("VerifyToken() error: %v", err)
	}
	if clientID != "kiosk-1" {
		t.Fatalf("clientID = %q", clientID)
	}
}

func TestTokenRejects(t *testing.T) {
	tokens, _ := NewAuthToken("secret")
	other, _ := NewAuthToken("other-secret")

	valid, _ := tokens.GenerateToken("kiosk-1")
	foreign, _ := other.GenerateToken("kiosk-1")

	expiredIssuer, _ := NewAuthToken("secret")
	expiredIssuer.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, _ := expiredIssuer.GenerateToken("kiosk-1")

	noClient := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	noClientSigned, _ := noClient.SignedString([]byte("secret"))

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"client_id": "kiosk-1"})
	noExpSigned, _ := noExp.SignedString([]byte("secret"))

	tests := []struct {
		name  string
		token string
	}{
		{name: "其他密钥签名", token: foreign},
		{name: "已过期", token: expired},
		{name: "缺少 client_id", token: noClientSigned},
		{name: "缺少 exp", token: noExpSigned},
		{name: "篡改", token: valid[:len(valid)-2] + "xx"},
		{name: "垃圾字符串", token: "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.VerifyToken(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewAuthTokenRequiresSecret(t *testing.T) {
	if _, err := NewAuthToken(""); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
	tokens, _ := NewAuthToken("secret")
	if _, err := tokens.GenerateToken(""); err == nil || !strings.Contains(err.Error(), "client id") {
		t.Fatalf("expected client id error, got %v", err)
	}
}
