// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth manages the authenticated session against the trading API.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// SECURITY: The claim segment is decoded for display purposes only. No trust
// decision is ever made from it - the backend signed the token and the backend
// alone decides validity (see Gateway.CheckValidity).

// DecodeExpiry extracts the expiration instant from a bearer token's claim
// segment without verifying the signature.
//
// The function is total: any malformed input (wrong segment count, invalid
// base64, invalid JSON, missing or non-numeric exp claim) yields ok=false,
// never a panic or an error.
func DecodeExpiry(token string) (time.Time, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return time.Time{}, false
	}

	var claims struct {
		Exp *json.Number `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.Exp == nil {
		return time.Time{}, false
	}

	// exp is seconds since epoch; tolerate fractional seconds.
	secs, err := claims.Exp.Float64()
	if err != nil {
		return time.Time{}, false
	}

	return time.Unix(int64(secs), 0), true
}

// decodeSegment decodes a base64url token segment, with or without padding.
func decodeSegment(seg string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(seg)
}
