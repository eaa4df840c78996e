/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

// ApiResponse mirrors the generic response envelope of the appointments backend
type ApiResponse struct {
	Success   bool        `json:"success" structs:"success"`
	Message   string      `json:"message" structs:"message"`
	ErrorCode string      `json:"errorCode,omitempty" structs:"errorCode,omitempty"`
	Data      interface{} `json:"data" structs:"data"`
}
