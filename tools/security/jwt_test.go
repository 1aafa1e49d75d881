package security

import (
	"errors"
	"testing"
	"time"

	"IMClient/tools/errs"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("unit-test-secret"))
	token, expireAt, err := Generate(opts, "42")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !expireAt.After(time.Now()) {
		t.Fatalf("expireAt %v already passed", expireAt)
	}

	userID, err := Verify(opts, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "42" {
		t.Fatalf("subject = %q", userID)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, err := Generate(DefaultOptions([]byte("secret-a")), "42")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Verify(DefaultOptions([]byte("secret-b")), token); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Fatalf("err = %v, want token invalid", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	opts := DefaultOptions([]byte("unit-test-secret"))
	opts.TTL = -time.Minute
	token, _, err := Generate(opts, "42")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Verify(opts, token); !errors.Is(err, errs.ErrTokenExpired) {
		t.Fatalf("err = %v, want token expired", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	if _, err := Verify(DefaultOptions([]byte("s")), "not.a.token"); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Fatalf("err = %v, want token invalid", err)
	}
}
