package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	tok, err := SignAdminToken("s3cret", "ops", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("SignAdminToken: %v", err)
	}
	claims, err := ParseAdminToken("s3cret", tok)
	if err != nil {
		t.Fatalf("ParseAdminToken: %v", err)
	}
	if claims.Subject != "ops" {
		t.Fatalf("subject: want=ops got=%q", claims.Subject)
	}
}

func TestParseAdminTokenRejects(t *testing.T) {
	now := time.Now()
	good, _ := SignAdminToken("s3cret", "ops", time.Hour, now)
	expired, _ := SignAdminToken("s3cret", "ops", time.Minute, now.Add(-time.Hour))
	wrongScope, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Scope:            "reader",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString([]byte("s3cret"))
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{Scope: adminScope}).SignedString([]byte("s3cret"))
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, AdminClaims{
		Scope:            adminScope,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]struct {
		secret, token string
	}{
		"wrong secret": {"other", good},
		"expired":      {"s3cret", expired},
		"wrong scope":  {"s3cret", wrongScope},
		"no expiry":    {"s3cret", noExpiry},
		"alg none":     {"s3cret", unsigned},
		"garbage":      {"s3cret", "not.a.token"},
	}
	for name, tc := range cases {
		if _, err := ParseAdminToken(tc.secret, tc.token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: want ErrInvalidToken got=%v", name, err)
		}
	}
	if _, err := ParseAdminToken("", good); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("empty secret: want ErrNoSecret got=%v", err)
	}
}
