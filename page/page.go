/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

// Package page models the document the client drives: input fields to read,
// sections to show or hide, a message log to append to and blocking alerts.
package page

const (
	EmailInput    = "email"
	PasswordInput = "password"
	LoginForm     = "login-form"
	Dashboard     = "dashboard"
	Messages      = "messages"
)

const (
	DisplayNone  = "none"
	DisplayBlock = "block"
)

// Page is the surface the authenticator and notifier write to. Elements are
// addressed by identifier and are expected to exist.
type Page interface {
	Value(id string) string
	SetDisplay(id, display string)
	AppendText(id, text string)
	Alert(message string)
}
