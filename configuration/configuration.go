/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package configuration

import (
	"os"
	"strings"
	"time"

	"github.com/nethesis/appointments-notifier/logs"
)

const envPrefix = "APPOINTMENTS_NOTIFIER_"

type Configuration struct {
	ApiURL             string        `json:"api_url"`
	LoginPath          string        `json:"login_path"`
	WsEndpoint         string        `json:"ws_endpoint"`
	WsTransport        string        `json:"ws_transport"`
	TopicPrefix        string        `json:"topic_prefix"`
	IdentifierClaim    string        `json:"identifier_claim"`
	CookieName         string        `json:"cookie_name"`
	CookiePath         string        `json:"cookie_path"`
	MessageFormat      string        `json:"message_format"`
	HTTPTimeout        time.Duration `json:"http_timeout"`
	StompHeartBeat     time.Duration `json:"stomp_heartbeat"`
	TokenCheckSchedule string        `json:"token_check_schedule"`

	MQTTEnabled  bool   `json:"mqtt_enabled"`
	MQTTHost     string `json:"mqtt_host"`
	MQTTPort     string `json:"mqtt_port"`
	MQTTUsername string `json:"mqtt_username"`
	MQTTPassword string `json:"mqtt_password"`
	MQTTTopic    string `json:"mqtt_topic"`
}

var Config = Configuration{}

func Init() {
	Config.ApiURL = strings.TrimSuffix(getEnv("API_URL", "http://localhost:8080"), "/")
	Config.LoginPath = getEnv("LOGIN_PATH", "/api/v1/public/login")

	// the websocket endpoint is expressed as http(s), like the SockJS url used by browsers
	Config.WsEndpoint = getEnv("WS_ENDPOINT", Config.ApiURL+"/ws")

	// sockjs or websocket
	Config.WsTransport = getEnv("WS_TRANSPORT", "sockjs")

	Config.TopicPrefix = getEnv("TOPIC_PREFIX", "/topic/appointments/")
	Config.IdentifierClaim = getEnv("IDENTIFIER_CLAIM", "doctorId")
	Config.CookieName = getEnv("COOKIE_NAME", "token")
	Config.CookiePath = getEnv("COOKIE_PATH", "/")

	// json or flat
	Config.MessageFormat = getEnv("MESSAGE_FORMAT", "json")

	// zero means no timeout on the login request
	Config.HTTPTimeout = getDuration("HTTP_TIMEOUT", 0)
	Config.StompHeartBeat = getDuration("STOMP_HEARTBEAT", 0)
	Config.TokenCheckSchedule = getEnv("TOKEN_CHECK_SCHEDULE", "@every 1m")

	// mqtt relay is enabled only when a broker host is given
	Config.MQTTHost = getEnv("MQTT_HOST", "")
	Config.MQTTPort = getEnv("MQTT_PORT", "1883")
	Config.MQTTUsername = getEnv("MQTT_USERNAME", "")
	Config.MQTTPassword = getEnv("MQTT_PASSWORD", "")
	Config.MQTTTopic = getEnv("MQTT_TOPIC", "appointments")
	Config.MQTTEnabled = Config.MQTTHost != ""
}

// LoginURL returns the absolute login endpoint
func (c Configuration) LoginURL() string {
	return c.ApiURL + c.LoginPath
}

func getEnv(name string, fallback string) string {
	if value := os.Getenv(envPrefix + name); value != "" {
		return value
	}
	return fallback
}

func getDuration(name string, fallback time.Duration) time.Duration {
	value := os.Getenv(envPrefix + name)
	if value == "" {
		return fallback
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		logs.Log("[WARNING][CONFIG] " + envPrefix + name + " is not a valid duration, using default " + fallback.String())
		return fallback
	}
	return d
}
