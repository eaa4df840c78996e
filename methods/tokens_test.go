/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	jwtv4 "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"

	"github.com/nethesis/appointments-notifier/logs"
	"github.com/nethesis/appointments-notifier/utils"
)

// logBuffer is written by the logger and read by the test goroutine
type logBuffer struct {
	mutex sync.Mutex
	buf   bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.String()
}

func captureLogs(t *testing.T) *logBuffer {
	t.Helper()
	previous, prefix := logs.Logs.Writer(), logs.Logs.Prefix()
	t.Cleanup(func() {
		logs.Logs.SetOutput(previous)
		logs.Logs.SetPrefix(prefix)
	})

	buf := &logBuffer{}
	logs.InitWithWriter("test", buf)
	return buf
}

func TestCheckTokenExpiryWarnsOncePerToken(t *testing.T) {
	output := captureLogs(t)

	now := time.Unix(1700000000, 0)
	session := newTestSession(t)
	session.Authenticate(utils.IssueToken(jwtv4.MapClaims{"doctorId": "D123", "exp": now.Add(-time.Minute).Unix()}), "D123")

	watcher := NewTokenWatcher(session)
	watcher.Now = func() time.Time { return now }

	assert.True(t, watcher.CheckTokenExpiry())
	assert.True(t, watcher.CheckTokenExpiry())
	assert.Equal(t, 1, strings.Count(output.String(), "[WARNING][AUTH] Session token expired"))

	// a new expired token warns again
	session.Authenticate(utils.IssueToken(jwtv4.MapClaims{"doctorId": "D123", "exp": now.Add(-time.Second).Unix()}), "D123")
	assert.True(t, watcher.CheckTokenExpiry())
	assert.Equal(t, 2, strings.Count(output.String(), "[WARNING][AUTH] Session token expired"))
}

func TestCheckTokenExpiryValidToken(t *testing.T) {
	output := captureLogs(t)

	now := time.Unix(1700000000, 0)
	session := newTestSession(t)
	session.Authenticate(utils.IssueToken(jwtv4.MapClaims{"doctorId": "D123", "exp": now.Add(time.Hour).Unix()}), "D123")

	watcher := NewTokenWatcher(session)
	watcher.Now = func() time.Time { return now }

	assert.False(t, watcher.CheckTokenExpiry())
	assert.Empty(t, output.String())
}

func TestCheckTokenExpiryWithoutExpiry(t *testing.T) {
	cases := map[string]string{
		"logged out":   "",
		"no exp claim": utils.EncodePayloadToken(`{"doctorId":"D123"}`),
		"malformed":    "garbage",
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			session := newTestSession(t)
			if token != "" {
				session.Authenticate(token, "")
			}
			assert.False(t, NewTokenWatcher(session).CheckTokenExpiry())
		})
	}
}
