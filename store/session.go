/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// State is the position of a session in its login/connect lifecycle
type State int

const (
	LoggedOut State = iota
	LoggedIn
	Connected
)

func (s State) String() string {
	switch s {
	case LoggedIn:
		return "logged-in"
	case Connected:
		return "connected"
	default:
		return "logged-out"
	}
}

var (
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrAlreadyConnected = errors.New("already connected")
)

// Session holds the token and identifier of the logged user together with
// the cookie jar shared by the login request and the websocket handshake.
// A session is never logged out or disconnected.
type Session struct {
	mutex      sync.RWMutex
	jar        http.CookieJar
	token      string
	identifier string
	state      State
}

// NewSession creates an empty session backed by a fresh cookie jar
func NewSession() (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return NewSessionWithJar(jar), nil
}

func NewSessionWithJar(jar http.CookieJar) *Session {
	return &Session{jar: jar}
}

func (s *Session) Jar() http.CookieJar {
	return s.jar
}

// Authenticate records a successful login. An empty identifier is accepted
// and leaves the session unusable for connecting.
func (s *Session) Authenticate(token, identifier string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token = token
	s.identifier = identifier
	if s.state == LoggedOut {
		s.state = LoggedIn
	}
}

func (s *Session) Token() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.token
}

// Identifier returns the decoded identifier, ok is false when there is none
func (s *Session) Identifier() (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.identifier, s.identifier != ""
}

func (s *Session) State() State {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

// MarkConnected moves the session to Connected, at most once
func (s *Session) MarkConnected() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.identifier == "" {
		return ErrNotLoggedIn
	}
	if s.state == Connected {
		return ErrAlreadyConnected
	}
	s.state = Connected
	return nil
}
