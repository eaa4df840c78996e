/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nethesis/appointments-notifier/models"
	"github.com/nethesis/appointments-notifier/page"
	"github.com/nethesis/appointments-notifier/store"
	"github.com/nethesis/appointments-notifier/utils"
)

func newTestSession(t *testing.T) *store.Session {
	t.Helper()
	session, err := store.NewSession()
	require.NoError(t, err)
	return session
}

func newTestDocument(email, password string) *page.Document {
	doc := page.NewDocument()
	doc.SetValue(page.EmailInput, email)
	doc.SetValue(page.PasswordInput, password)
	return doc
}

func newTestAuthenticator(session *store.Session, doc page.Page, loginURL string) *Authenticator {
	return &Authenticator{
		Client:          &http.Client{Jar: session.Jar()},
		LoginURL:        loginURL,
		CookieName:      "token",
		CookiePath:      "/",
		IdentifierClaim: "doctorId",
		Session:         session,
		Page:            doc,
	}
}

func newFakeBackend(t *testing.T) *utils.FakeBackend {
	t.Helper()
	backend := utils.NewFakeBackend()
	backend.AddUser("house@clinic.org", "vicodin", "D123")
	t.Cleanup(backend.Close)
	return backend
}

func TestLoginSuccess(t *testing.T) {
	backend := newFakeBackend(t)
	session := newTestSession(t)
	doc := newTestDocument("house@clinic.org", "vicodin")

	auth := newTestAuthenticator(session, doc, backend.URL()+"/api/v1/public/login")
	require.NoError(t, auth.Login(context.Background()))

	identifier, ok := session.Identifier()
	assert.True(t, ok)
	assert.Equal(t, "D123", identifier)
	assert.Equal(t, store.LoggedIn, session.State())
	assert.NotEmpty(t, session.Token())

	assert.Equal(t, []string{"Login successful!"}, doc.Alerts())
	assert.Equal(t, page.DisplayNone, doc.Display(page.LoginForm))
	assert.Equal(t, page.DisplayBlock, doc.Display(page.Dashboard))

	// the cookie is visible to every path of the backend origin
	wsURL, err := url.Parse(backend.URL() + "/ws/websocket")
	require.NoError(t, err)
	cookies := session.Jar().Cookies(wsURL)
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Equal(t, session.Token(), cookies[0].Value)
}

func TestLoginRejected(t *testing.T) {
	backend := newFakeBackend(t)
	session := newTestSession(t)
	doc := newTestDocument("house@clinic.org", "wrong")

	auth := newTestAuthenticator(session, doc, backend.URL()+"/api/v1/public/login")
	err := auth.Login(context.Background())
	assert.ErrorIs(t, err, ErrLoginFailed)

	_, ok := session.Identifier()
	assert.False(t, ok)
	assert.Equal(t, store.LoggedOut, session.State())

	assert.Equal(t, []string{"Login failed!"}, doc.Alerts())
	assert.Equal(t, page.DisplayBlock, doc.Display(page.LoginForm))
	assert.Equal(t, page.DisplayNone, doc.Display(page.Dashboard))
}

func TestLoginRejectedWithSuccessStatus(t *testing.T) {
	backend := newFakeBackend(t)
	backend.OverrideLogin(`{"success":false,"message":"bad credentials","errorCode":"AUTH_001"}`)

	session := newTestSession(t)
	doc := newTestDocument("house@clinic.org", "vicodin")

	err := newTestAuthenticator(session, doc, backend.URL()+"/api/v1/public/login").Login(context.Background())
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, []string{"Login failed!"}, doc.Alerts())
}

func TestLoginMalformedTokenLeavesIdentifierUnset(t *testing.T) {
	backend := newFakeBackend(t)
	backend.OverrideLogin(utils.LoginBody(true, "garbage"))

	session := newTestSession(t)
	doc := newTestDocument("house@clinic.org", "vicodin")

	require.NoError(t, newTestAuthenticator(session, doc, backend.URL()+"/api/v1/public/login").Login(context.Background()))

	_, ok := session.Identifier()
	assert.False(t, ok)
	assert.Equal(t, "garbage", session.Token())
	assert.Equal(t, page.DisplayBlock, doc.Display(page.Dashboard))
}

func TestLoginRequestErrors(t *testing.T) {
	cases := map[string]string{
		"not json":     "<html>Bad gateway</html>",
		"missing data": `{"success":true,"message":"ok"}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			backend := newFakeBackend(t)
			backend.OverrideLogin(body)

			session := newTestSession(t)
			doc := newTestDocument("house@clinic.org", "vicodin")

			err := newTestAuthenticator(session, doc, backend.URL()+"/api/v1/public/login").Login(context.Background())
			assert.ErrorIs(t, err, ErrLoginRequest)
			assert.NotErrorIs(t, err, ErrLoginFailed)

			assert.Empty(t, doc.Alerts())
			assert.Equal(t, store.LoggedOut, session.State())
			assert.Equal(t, page.DisplayBlock, doc.Display(page.LoginForm))
		})
	}
}

func TestLoginBackendUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	loginURL := server.URL + "/api/v1/public/login"
	server.Close()

	session := newTestSession(t)
	doc := newTestDocument("house@clinic.org", "vicodin")

	err := newTestAuthenticator(session, doc, loginURL).Login(context.Background())
	assert.ErrorIs(t, err, ErrLoginRequest)
	assert.Empty(t, doc.Alerts())
	assert.Equal(t, page.DisplayNone, doc.Display(page.Dashboard))
}

func TestLoginSendsJSONCredentials(t *testing.T) {
	var contentType string
	var received models.LoginJson

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(utils.LoginBody(true, utils.EncodePayloadToken(`{"doctorId":"D9"}`))))
	}))
	defer server.Close()

	session := newTestSession(t)
	doc := newTestDocument("wilson@clinic.org", "oncology")

	require.NoError(t, newTestAuthenticator(session, doc, server.URL).Login(context.Background()))

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, models.LoginJson{Username: "wilson@clinic.org", Password: "oncology"}, received)

	identifier, _ := session.Identifier()
	assert.Equal(t, "D9", identifier)
}
