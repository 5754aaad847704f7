package authn

import (
	"testing"
	"time"
)

func TestStaticValidatorAcceptsCorrectPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	v := NewStaticValidator(map[string]string{"loader-1": hash})

	d := v.Validate("loader-1", []byte("hunter2"))
	if !d.Accepted {
		t.Fatalf("expected acceptance, got %+v", d)
	}
}

func TestStaticValidatorRejectsWrongPassword(t *testing.T) {
	hash, _ := HashPassword("hunter2")
	v := NewStaticValidator(map[string]string{"loader-1": hash})

	d := v.Validate("loader-1", []byte("wrong"))
	if d.Accepted {
		t.Fatal("expected rejection for wrong password")
	}
}

func TestStaticValidatorRejectsUnknownAuthID(t *testing.T) {
	v := NewStaticValidator(nil)
	d := v.Validate("nobody", []byte("whatever"))
	if d.Accepted {
		t.Fatal("expected rejection for unknown authentication ID")
	}
}

func TestBearerValidatorRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	v := NewBearerValidator(secret)

	token, err := IssueToken(secret, "loader-1", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	d := v.Validate("loader-1", []byte(token))
	if !d.Accepted {
		t.Fatalf("expected acceptance, got %+v", d)
	}
}

func TestBearerValidatorRejectsSubjectMismatch(t *testing.T) {
	secret := []byte("test-secret")
	v := NewBearerValidator(secret)

	token, _ := IssueToken(secret, "loader-1", time.Hour)
	d := v.Validate("loader-2", []byte(token))
	if d.Accepted {
		t.Fatal("expected rejection for subject mismatch")
	}
}
