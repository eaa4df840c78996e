/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package models

// UserAuthorizations is the identity carried by a doctor token
type UserAuthorizations struct {
	Username string `json:"username" structs:"username"`
	DoctorID string `json:"doctorId" structs:"doctorId"`
}
