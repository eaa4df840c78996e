/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"

	jwtv4 "github.com/golang-jwt/jwt/v4"
)

// ParseTokenClaims decodes the payload segment of a JWT without verifying it.
// It returns nil when the token is not made of three segments, the payload is
// not base64url or it is not a JSON object.
func ParseTokenClaims(token string) jwtv4.MapClaims {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}

	payload, err := decodeJWTPart(parts[1])
	if err != nil {
		return nil
	}

	claims := jwtv4.MapClaims{}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&claims); err != nil {
		return nil
	}

	// trailing data makes the payload invalid JSON
	if _, err := decoder.Token(); err != io.EOF {
		return nil
	}

	// a "null" payload leaves claims nil
	return claims
}

// IdentifierFromToken returns the claim named by claim as it appears in a
// topic name: strings as they are, numbers in their shortest spelling and
// true as "true". It returns an empty string when the token cannot be
// decoded or the claim is missing, null, false, zero, empty or not a scalar.
func IdentifierFromToken(token, claim string) string {
	claims := ParseTokenClaims(token)
	if claims == nil {
		return ""
	}

	switch value := claims[claim].(type) {
	case string:
		return value
	case json.Number:
		if f := numberValue(value); f != 0 {
			return numberToString(f)
		}
	case bool:
		if value {
			return "true"
		}
	}
	return ""
}

// decodeJWTPart accepts both unpadded and padded base64url segments
func decodeJWTPart(part string) ([]byte, error) {
	decoded, err := jwtv4.DecodeSegment(part)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(part)
	}
	return decoded, err
}
