/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

// WebsocketResponse is the envelope the backend pushes on appointment topics.
// The client renders any JSON body, this shape is only used to produce one.
type WebsocketResponse struct {
	Type    string      `json:"type" structs:"type"`
	Payload interface{} `json:"payload" structs:"payload"`
}
