package session

import (
	"errors"
	"testing"
	"time"
)

const secret = "test-secret"

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue(secret, "user-1", RoleCourier, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	s, err := ParseBearer("Bearer "+tok, secret)
	if err != nil {
		t.Fatalf("ParseBearer: %v", err)
	}
	if s.UserID != "user-1" || s.Role != RoleCourier {
		t.Errorf("session = %+v", s)
	}
}

func TestParseRejections(t *testing.T) {
	tok, err := Issue(secret, "user-1", RoleCustomer, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		header  string
		secret  string
		wantErr error
	}{
		{"no header", "", secret, ErrMissingToken},
		{"no bearer prefix", tok, secret, ErrMissingToken},
		{"wrong secret", "Bearer " + tok, "other-secret", ErrInvalidToken},
		{"garbage token", "Bearer not.a.jwt", secret, ErrInvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseBearer(tc.header, tc.secret); !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestParseExpiredToken(t *testing.T) {
	tok, err := Issue(secret, "user-1", RoleCustomer, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(tok, secret); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: err = %v", err)
	}
}
