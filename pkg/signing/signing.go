// Copyright 2024-2026 Aiku AI

// Package signing authenticates inbound webhook bodies, either with a keyed
// HMAC-SHA256 signature (GitHub style) or with a shared token.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

// SignaturePrefix is the algorithm prefix GitHub puts in front of its hex digest.
const SignaturePrefix = "sha256="

var (
	ErrMissingSignature   = errors.New("missing signature")
	ErrMalformedSignature = errors.New("malformed signature")
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrMissingToken       = errors.New("missing token")
	ErrTokenMismatch      = errors.New("token mismatch")
	ErrUnknownEndpoint    = errors.New("unknown endpoint")
)

// Sign returns the header value for body signed with secret.
func Sign(secret string, body []byte) string {
	return SignaturePrefix + hex.EncodeToString(computeMAC(secret, body))
}

// VerifyHMAC checks a declared "sha256=<hex>" signature against body.
func VerifyHMAC(secret, declared string, body []byte) error {
	if declared == "" {
		return ErrMissingSignature
	}
	digest, ok := strings.CutPrefix(declared, SignaturePrefix)
	if !ok {
		return ErrMalformedSignature
	}
	decoded, err := hex.DecodeString(digest)
	if err != nil {
		return ErrMalformedSignature
	}
	// hmac.Equal does not short-circuit on the first differing byte.
	if !hmac.Equal(decoded, computeMAC(secret, body)) {
		return ErrSignatureMismatch
	}
	return nil
}

// VerifyToken checks that declared is exactly the expected token.
func VerifyToken(expected, declared string) error {
	if declared == "" {
		return ErrMissingToken
	}
	if subtle.ConstantTimeCompare([]byte(declared), []byte(expected)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}

func computeMAC(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}

// Endpoints maps generic endpoint names to their secrets. It is read-only
// once constructed.
type Endpoints map[string]string

// Verify authenticates a request to the named endpoint. An unconfigured
// endpoint yields ErrUnknownEndpoint rather than a token error.
func (e Endpoints) Verify(name, declared string) error {
	secret, ok := e[name]
	if !ok {
		return ErrUnknownEndpoint
	}
	return VerifyToken(secret, declared)
}
