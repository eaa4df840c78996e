/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nethesis/appointments-notifier/configuration"
	"github.com/nethesis/appointments-notifier/logs"
	"github.com/nethesis/appointments-notifier/models"
	"github.com/nethesis/appointments-notifier/page"
	"github.com/nethesis/appointments-notifier/store"
)

var (
	// ErrLoginFailed means the backend rejected the credentials
	ErrLoginFailed = errors.New("login failed")

	// ErrLoginRequest means the login request could not be completed
	ErrLoginRequest = errors.New("login request failed")
)

// Authenticator logs the user in with the credentials found on the page
type Authenticator struct {
	Client          *http.Client
	LoginURL        string
	CookieName      string
	CookiePath      string
	IdentifierClaim string

	Session *store.Session
	Page    page.Page
}

func NewAuthenticator(session *store.Session, pg page.Page) *Authenticator {
	return &Authenticator{
		Client: &http.Client{
			Jar:     session.Jar(),
			Timeout: configuration.Config.HTTPTimeout,
		},
		LoginURL:        configuration.Config.LoginURL(),
		CookieName:      configuration.Config.CookieName,
		CookiePath:      configuration.Config.CookiePath,
		IdentifierClaim: configuration.Config.IdentifierClaim,
		Session:         session,
		Page:            pg,
	}
}

// Login posts the page credentials. On success the token is stored as a
// cookie, its identifier claim is recorded in the session and the dashboard
// replaces the login form. A rejected login alerts the user and returns
// ErrLoginFailed; request failures are logged and wrap ErrLoginRequest.
// In both cases session and page are left untouched.
func (a *Authenticator) Login(ctx context.Context) error {
	loginData := models.LoginJson{
		Username: a.Page.Value(page.EmailInput),
		Password: a.Page.Value(page.PasswordInput),
	}

	loginResp, err := a.post(ctx, loginData)
	if err != nil {
		logs.Log("[ERROR][AUTH] " + err.Error())
		return err
	}

	if !loginResp.Success {
		logs.Logf("[INFO][AUTH] Login rejected for user %s: %s", loginData.Username, loginResp.Message)
		a.Page.Alert("Login failed!")
		return ErrLoginFailed
	}

	if loginResp.Data == nil {
		err := fmt.Errorf("%w: response carries no token", ErrLoginRequest)
		logs.Log("[ERROR][AUTH] " + err.Error())
		return err
	}

	token := loginResp.Data.Token
	if err := a.storeCookie(token); err != nil {
		logs.Log("[WARNING][AUTH] Failed to store session cookie: " + err.Error())
	}

	identifier := IdentifierFromToken(token, a.IdentifierClaim)
	if identifier == "" {
		logs.Logf("[WARNING][AUTH] Token for user %s carries no usable %s claim", loginData.Username, a.IdentifierClaim)
	}
	a.Session.Authenticate(token, identifier)

	logs.Logf("[INFO][AUTH] User %s logged in", loginData.Username)

	a.Page.Alert("Login successful!")
	a.Page.SetDisplay(page.LoginForm, page.DisplayNone)
	a.Page.SetDisplay(page.Dashboard, page.DisplayBlock)

	return nil
}

func (a *Authenticator) post(ctx context.Context, loginData models.LoginJson) (*models.LoginResponse, error) {
	payload, err := json.Marshal(loginData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoginRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.LoginURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoginRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoginRequest, err)
	}
	defer resp.Body.Close()

	// the envelope is decoded whatever the status, rejections come as 4xx
	var loginResp models.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response with status %s: %w", ErrLoginRequest, resp.Status, err)
	}

	return &loginResp, nil
}

// storeCookie writes "<name>=<token>; path=<path>" for the login origin.
// The cookie is a session cookie without Secure or HttpOnly flags.
func (a *Authenticator) storeCookie(token string) error {
	jar := a.Session.Jar()
	if jar == nil {
		return errors.New("session has no cookie jar")
	}

	u, err := url.Parse(a.LoginURL)
	if err != nil {
		return err
	}

	jar.SetCookies(u, []*http.Cookie{{
		Name:  a.CookieName,
		Value: token,
		Path:  a.CookiePath,
	}})
	return nil
}
