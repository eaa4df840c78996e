/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	jwtv4 "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nethesis/appointments-notifier/utils"
)

func TestParseTokenClaimsRoundTrip(t *testing.T) {
	token := utils.EncodePayloadToken(`{"doctorId":"D123"}`)

	claims := ParseTokenClaims(token)
	require.NotNil(t, claims)
	assert.Equal(t, jwtv4.MapClaims{"doctorId": "D123"}, claims)
}

func TestParseTokenClaimsSignedToken(t *testing.T) {
	token := utils.IssueToken(jwtv4.MapClaims{"sub": "house@clinic.org", "doctorId": "D123", "exp": 1700000000})

	claims := ParseTokenClaims(token)
	require.NotNil(t, claims)
	assert.Equal(t, "house@clinic.org", claims["sub"])
	assert.Equal(t, json.Number("1700000000"), claims["exp"])
}

func TestParseTokenClaimsAcceptsPaddedSegment(t *testing.T) {
	// 17 bytes of JSON need one padding character
	payload := base64.URLEncoding.EncodeToString([]byte(`{"doctorId":"D1"}`))
	require.Contains(t, payload, "=")

	claims := ParseTokenClaims("header." + payload + ".signature")
	require.NotNil(t, claims)
	assert.Equal(t, "D1", claims["doctorId"])
}

func TestParseTokenClaimsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"one segment":    "garbage",
		"two segments":   "a.b",
		"four segments":  "a.b.c.d",
		"not base64":     "header.!!!.signature",
		"not json":       utils.EncodePayloadToken("doctorId"),
		"json array":     utils.EncodePayloadToken(`["D123"]`),
		"json string":    utils.EncodePayloadToken(`"D123"`),
		"trailing data":  utils.EncodePayloadToken(`{"doctorId":"D123"} {}`),
		"truncated json": utils.EncodePayloadToken(`{"doctorId":`),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, ParseTokenClaims(token))
		})
	}
}

func TestIdentifierFromToken(t *testing.T) {
	cases := []struct {
		name     string
		payload  string
		expected string
	}{
		{"string claim", `{"doctorId":"D123"}`, "D123"},
		{"numeric claim", `{"doctorId":1234567890123}`, "1234567890123"},
		{"decimal claim drops trailing zeros", `{"doctorId":12.50}`, "12.5"},
		{"exponent claim", `{"doctorId":1e2}`, "100"},
		{"huge claim", `{"doctorId":1e21}`, "1e+21"},
		{"zero claim", `{"doctorId":0}`, ""},
		{"missing claim", `{"sub":"house"}`, ""},
		{"null claim", `{"doctorId":null}`, ""},
		{"empty claim", `{"doctorId":""}`, ""},
		{"object claim", `{"doctorId":{"id":"D123"}}`, ""},
		{"array claim", `{"doctorId":["D123"]}`, ""},
		{"true claim", `{"doctorId":true}`, "true"},
		{"false claim", `{"doctorId":false}`, ""},
		{"null payload", `null`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := utils.EncodePayloadToken(tc.payload)
			assert.Equal(t, tc.expected, IdentifierFromToken(token, "doctorId"))
		})
	}
}

func TestIdentifierFromMalformedToken(t *testing.T) {
	assert.Equal(t, "", IdentifierFromToken("not-a-token", "doctorId"))
}
