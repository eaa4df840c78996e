/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

type LoginJson struct {
	Username string `json:"username" structs:"username"`
	Password string `json:"password" structs:"password"`
}

type LoginData struct {
	Token string `json:"token" structs:"token"`
}

// LoginResponse is the envelope returned by the login endpoint
type LoginResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	ErrorCode string     `json:"errorCode"`
	Data      *LoginData `json:"data"`
}
