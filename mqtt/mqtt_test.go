/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package mqtt

import (
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"

	"github.com/nethesis/appointments-notifier/configuration"
)

func TestInitDisabledWithoutHost(t *testing.T) {
	configuration.Config.MQTTEnabled = false
	assert.Nil(t, Init())
}

func TestNilRelayDropsMessages(t *testing.T) {
	var relay *Relay
	assert.NoError(t, relay.Publish("D123", []byte(`{}`)))
	relay.Close()
}

func TestRelayTopicLayout(t *testing.T) {
	relay := New(nil, "appointments/")
	assert.Equal(t, "appointments/D123", relay.Topic("D123"))
}

func TestPublishRequiresConnection(t *testing.T) {
	opts := mqtt.NewClientOptions().AddBroker("tcp://127.0.0.1:1")
	relay := New(mqtt.NewClient(opts), "appointments")

	err := relay.Publish("D123", []byte(`{"patient":"Jane"}`))
	assert.ErrorIs(t, err, ErrNotConnected)
}
