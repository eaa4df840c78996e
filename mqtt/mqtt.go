/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nethesis/appointments-notifier/configuration"
	"github.com/nethesis/appointments-notifier/logs"
)

var ErrNotConnected = errors.New("MQTT client not connected")

// Relay republishes appointment messages on an MQTT broker, one topic per
// identifier below a base topic
type Relay struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
}

// Init creates the relay from configuration, it returns nil when MQTT is disabled
func Init() *Relay {
	if !configuration.Config.MQTTEnabled {
		logs.Log("[INFO][MQTT] MQTT relay disabled - missing broker host")
		return nil
	}

	// MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%s", configuration.Config.MQTTHost, configuration.Config.MQTTPort))
	opts.SetClientID("appointments-notifier-" + uuid.NewString()[:8])
	opts.SetUsername(configuration.Config.MQTTUsername)
	opts.SetPassword(configuration.Config.MQTTPassword)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logs.Log(fmt.Sprintf("[WARNING][MQTT] Connection lost: %v", err))
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logs.Log("[INFO][MQTT] Connected to MQTT broker")
	})

	relay := New(mqtt.NewClient(opts), configuration.Config.MQTTTopic)

	// the broker may be down, connect in background
	token := relay.client.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			logs.Log(fmt.Sprintf("[ERROR][MQTT] Failed to connect to MQTT broker: %v", token.Error()))
			logs.Log("[INFO][MQTT] Will retry connection in background...")
		}
	}()

	logs.Log("[INFO][MQTT] MQTT relay initialized - connecting in background")
	return relay
}

// New wraps an existing client
func New(client mqtt.Client, topic string) *Relay {
	return &Relay{
		client:  client,
		topic:   strings.TrimSuffix(topic, "/"),
		timeout: 5 * time.Second,
	}
}

// Topic returns the topic messages for identifier are published on
func (r *Relay) Topic(identifier string) string {
	return r.topic + "/" + identifier
}

// Publish sends payload with QoS 0. A nil relay drops the payload.
func (r *Relay) Publish(identifier string, payload []byte) error {
	if r == nil {
		return nil
	}
	if r.client == nil || !r.client.IsConnected() {
		return ErrNotConnected
	}

	token := r.client.Publish(r.Topic(identifier), 0, false, payload)
	if !token.WaitTimeout(r.timeout) {
		return fmt.Errorf("publish on %s timed out", r.Topic(identifier))
	}
	return token.Error()
}

// Close disconnects the client
func (r *Relay) Close() {
	if r == nil || r.client == nil {
		return
	}
	if r.client.IsConnected() {
		r.client.Disconnect(250)
		logs.Log("[INFO][MQTT] MQTT client disconnected")
	}
}
