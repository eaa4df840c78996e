/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"sync"
	"time"

	"github.com/nethesis/appointments-notifier/logs"
	"github.com/nethesis/appointments-notifier/store"
)

// TokenWatcher warns once per token when the session token is past its exp
// claim. Tokens are never refreshed.
type TokenWatcher struct {
	Session *store.Session
	Now     func() time.Time

	mutex  sync.Mutex
	warned string
}

func NewTokenWatcher(session *store.Session) *TokenWatcher {
	return &TokenWatcher{Session: session, Now: time.Now}
}

// CheckTokenExpiry returns true when the current token has expired
func (w *TokenWatcher) CheckTokenExpiry() bool {
	token := w.Session.Token()
	if token == "" {
		return false
	}

	claims := ParseTokenClaims(token)
	if claims == nil {
		return false
	}

	if claims.VerifyExpiresAt(w.Now().Unix(), false) {
		return false
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.warned != token {
		w.warned = token
		logs.Log("[WARNING][AUTH] Session token expired, login again to keep receiving notifications")
	}
	return true
}
