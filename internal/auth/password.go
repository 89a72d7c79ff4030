// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth provides credential hashing and verification plus the signed
// bearer tokens used by the JSON API.
//
// New digests are argon2id with a per-user random salt. Verification also
// accepts the unsalted SHA-256 hex digests found in legacy user tables and
// bcrypt digests, so imported accounts keep working.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2 parameters (OWASP recommended second choice: m=19456, t=2, p=1)
const (
	Argon2Time    = 2
	Argon2Memory  = 19 * 1024 // 19 MB, fits on 256MB VMs
	Argon2Threads = 1
	Argon2KeyLen  = 32
	Argon2SaltLen = 16
)

// Upper bounds on the parameters VerifyArgon2 accepts from a stored digest.
const (
	maxArgon2Time    = 10
	maxArgon2Memory  = 256 * 1024 // KiB
	maxArgon2Threads = 16
	minArgon2KeyLen  = 16
	maxArgon2KeyLen  = 64
)

// ErrArgon2Params is returned for digests whose parameters are out of bounds.
var ErrArgon2Params = errors.New("argon2 parameters out of bounds")

// Digest schemes recognised by Scheme.
const (
	SchemeArgon2id = "argon2id"
	SchemeBcrypt   = "bcrypt"
	SchemeSHA256   = "sha256"
	SchemeUnknown  = "unknown"
)

// dummyDigest is verified against when a username does not exist so that
// the response time does not reveal which part of the credentials was wrong.
var dummyDigest = mustHash("ochat-dummy-password")

// Scheme reports which hashing scheme produced encodedHash.
func Scheme(encodedHash string) string {
	switch {
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		return SchemeArgon2id
	case strings.HasPrefix(encodedHash, "$2a$"),
		strings.HasPrefix(encodedHash, "$2b$"),
		strings.HasPrefix(encodedHash, "$2y$"):
		return SchemeBcrypt
	case isSHA256Hex(encodedHash):
		return SchemeSHA256
	default:
		return SchemeUnknown
	}
}

// NeedsRehash checks whether an encoded hash uses a legacy scheme or
// different parameters than the current defaults.
func NeedsRehash(encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return true
	}

	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return true
	}

	return memory != Argon2Memory || timeCost != Argon2Time || threads != Argon2Threads
}

// HashArgon2 creates an Argon2id hash of the input string.
// Returns encoded hash in format: $argon2id$v=19$m=19456,t=2,p=1$salt$hash
func HashArgon2(input string) (string, error) {
	salt := make([]byte, Argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(input), salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, Argon2Memory, Argon2Time, Argon2Threads, b64Salt, b64Hash), nil
}

// VerifyArgon2 verifies an input string against an Argon2id hash.
// Uses constant-time comparison to prevent timing attacks.
func VerifyArgon2(input, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return false, fmt.Errorf("unsupported hash type: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("unsupported argon2 version: %d", version)
	}

	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return false, fmt.Errorf("parsing parameters: %w", err)
	}
	if timeCost == 0 || timeCost > maxArgon2Time ||
		memory == 0 || memory > maxArgon2Memory ||
		threads == 0 || threads > maxArgon2Threads {
		return false, fmt.Errorf("%w: m=%d,t=%d,p=%d", ErrArgon2Params, memory, timeCost, threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decoding hash: %w", err)
	}
	if len(salt) == 0 || len(expectedHash) < minArgon2KeyLen || len(expectedHash) > maxArgon2KeyLen {
		return false, fmt.Errorf("%w: salt or key length", ErrArgon2Params)
	}

	hash := argon2.IDKey([]byte(input), salt, timeCost, memory, threads, uint32(len(expectedHash)))
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1, nil
}

// LegacyDigest returns the unsalted SHA-256 hex digest used by legacy
// user tables. It exists for migration and tests; never store new digests
// in this form.
func LegacyDigest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// HashPassword creates a salted Argon2id digest of the password.
func HashPassword(password string) (string, error) {
	return HashArgon2(password)
}

// CheckPassword verifies a password against a stored digest of any
// supported scheme.
func CheckPassword(password, encodedHash string) (bool, error) {
	switch Scheme(encodedHash) {
	case SchemeArgon2id:
		return VerifyArgon2(password, encodedHash)
	case SchemeBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return false, nil
		}
		return err == nil, err
	case SchemeSHA256:
		candidate := LegacyDigest(password)
		return subtle.ConstantTimeCompare([]byte(candidate), []byte(strings.ToLower(encodedHash))) == 1, nil
	default:
		return false, fmt.Errorf("unsupported digest format")
	}
}

// DummyCheck burns roughly the same time as a real argon2id verification.
// Call it when no stored digest exists for the presented username.
func DummyCheck(password string) {
	_, _ = VerifyArgon2(password, dummyDigest)
}

func isSHA256Hex(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func mustHash(s string) string {
	h, err := HashArgon2(s)
	if err != nil {
		panic(err)
	}
	return h
}
