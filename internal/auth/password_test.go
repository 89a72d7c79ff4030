package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty hash")
	}
	t.Logf("Generated hash: %s", hash)
}

func TestCheckPassword_Correct(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	valid, err := CheckPassword("changeme", hash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if !valid {
		t.Fatal("Correct password was rejected")
	}
}

func TestCheckPassword_Wrong(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	valid, err := CheckPassword("wrongpassword", hash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if valid {
		t.Fatal("Wrong password was accepted")
	}
}

func TestCheckPassword_DBHash(t *testing.T) {
	// This is the actual hash stored in the database for "changeme"
	dbHash := "$argon2id$v=19$m=65536,t=1,p=4$mucMvOaS6lZ2LWNS1OEFKw$UYEWv8cvCOO6l2zGeqv3JPVe1nyy0x9GXBfYEuDM544"

	valid, err := CheckPassword("changeme", dbHash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if !valid {
		t.Fatal("DB hash rejected correct password 'changeme'")
	}

	// Also verify wrong password is rejected
	valid, err = CheckPassword("wrongpassword", dbHash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if valid {
		t.Fatal("DB hash accepted wrong password")
	}
}

func TestCheckPassword_SaltedDigestsDiffer(t *testing.T) {
	a, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	b, err := HashPassword("pw1")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if a == b {
		t.Fatal("two digests of the same password must differ (per-user salt)")
	}
	if NeedsRehash(a) {
		t.Error("fresh digest should not need rehash")
	}
}

func TestCheckPassword_LegacySHA256(t *testing.T) {
	legacy := "057ba03d6c44104863dc7361fe4578965d1887360f90a0895882e58a6248fc86"

	if got := LegacyDigest("changeme"); got != legacy {
		t.Fatalf("LegacyDigest = %s, want %s", got, legacy)
	}
	if Scheme(legacy) != SchemeSHA256 {
		t.Fatalf("Scheme = %s, want %s", Scheme(legacy), SchemeSHA256)
	}

	valid, err := CheckPassword("changeme", legacy)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if !valid {
		t.Fatal("legacy digest rejected correct password")
	}

	valid, err = CheckPassword("changemf", legacy)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if valid {
		t.Fatal("legacy digest accepted wrong password")
	}

	if !NeedsRehash(legacy) {
		t.Error("legacy digest should need rehash")
	}
}

func TestCheckPassword_Bcrypt(t *testing.T) {
	raw, err := bcrypt.GenerateFromPassword([]byte("pw1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	digest := string(raw)

	if Scheme(digest) != SchemeBcrypt {
		t.Fatalf("Scheme = %s, want %s", Scheme(digest), SchemeBcrypt)
	}

	valid, err := CheckPassword("pw1", digest)
	if err != nil || !valid {
		t.Fatalf("CheckPassword(bcrypt) = %v, %v", valid, err)
	}
	valid, err = CheckPassword("pw2", digest)
	if err != nil || valid {
		t.Fatalf("CheckPassword(bcrypt, wrong) = %v, %v", valid, err)
	}
}

func TestCheckPassword_UnknownFormat(t *testing.T) {
	valid, err := CheckPassword("pw", "plaintext")
	if err == nil {
		t.Fatal("expected error for unsupported digest")
	}
	if valid {
		t.Fatal("unsupported digest must not verify")
	}
}

func TestDummyCheck_DoesNotPanic(t *testing.T) {
	DummyCheck("anything")
}

func TestVerifyArgon2_RejectsOutOfBoundsParams(t *testing.T) {
	good, err := HashArgon2("secret")
	if err != nil {
		t.Fatalf("HashArgon2 error: %v", err)
	}
	params := "m=19456,t=2,p=1"
	if !strings.Contains(good, params) {
		t.Fatalf("unexpected digest layout: %s", good)
	}

	tests := []struct {
		name   string
		params string
	}{
		{"zero threads", "m=19456,t=2,p=0"},
		{"too many threads", "m=19456,t=2,p=64"},
		{"zero time", "m=19456,t=0,p=1"},
		{"huge time", "m=19456,t=1000,p=1"},
		{"zero memory", "m=0,t=2,p=1"},
		{"huge memory", "m=4194304,t=2,p=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest := strings.Replace(good, params, tt.params, 1)
			ok, err := VerifyArgon2("secret", digest)
			if !errors.Is(err, ErrArgon2Params) {
				t.Errorf("VerifyArgon2 error = %v, want ErrArgon2Params", err)
			}
			if ok {
				t.Error("VerifyArgon2 accepted an out-of-bounds digest")
			}
		})
	}

	ok, err := VerifyArgon2("secret", good)
	if err != nil || !ok {
		t.Errorf("VerifyArgon2(good) = %v, %v; want true, nil", ok, err)
	}
}

func TestVerifyArgon2_RejectsBadKeyLength(t *testing.T) {
	digest := "$argon2id$v=19$m=19456,t=2,p=1$c2FsdHNhbHQ$c2hvcnQ"
	if _, err := VerifyArgon2("secret", digest); !errors.Is(err, ErrArgon2Params) {
		t.Errorf("VerifyArgon2 error = %v, want ErrArgon2Params", err)
	}
}
